package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"message-sender/internal/config"
	"message-sender/internal/echo"
	"message-sender/internal/logging"
)

func main() {
	addr := flag.String("a", ":8080", "address:port for the TCP echo listener")
	framing := flag.String("framing", config.FramingRaw, "raw or length")
	wsAddr := flag.String("ws", "", "address:port for a WebSocket echo listener (disabled when empty)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logging.New(os.Stderr, *level, "text")
	if err != nil {
		logrus.Fatalf("Failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *wsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", echo.WSHandler(log))
		srv := &http.Server{Addr: *wsAddr, Handler: mux}
		go func() {
			log.Infof("WebSocket echo listening on %s", *wsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("WebSocket server error: %v", err)
			}
		}()
		defer srv.Close()
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("opening port error: %v", err)
	}
	log.WithField("framing", *framing).Infof("TCP echo listening on %s", ln.Addr())

	if err := echo.NewServer(*framing, log).Serve(ctx, ln); err != nil {
		log.Fatalf("accepting connection error: %v", err)
	}
	log.Info("Echo server stopped")
}
