// internal/echo/server.go
package echo

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"message-sender/internal/config"
	"message-sender/internal/pool"
	"message-sender/internal/transport"
)

// Server echoes every message back to its sender. With raw framing each read
// is written back as-is; with length framing each frame is echoed as a frame.
type Server struct {
	Framing string
	Log     logrus.FieldLogger

	buffers *pool.BufferPool

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewServer(framing string, log logrus.FieldLogger) *Server {
	return &Server{
		Framing: framing,
		Log:     log,
		buffers: pool.NewBufferPool(transport.MaxFrameSize),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on ln until ctx is done or Accept fails, then
// closes every open connection and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeAll()
	})
	defer stop()

	for {
		c, err := ln.Accept()
		if err != nil {
			// handlers only exit once their connection is closed
			s.closeAll()
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.track(c, true)
		s.wg.Add(1)
		go s.handleConn(c)
	}
}

func (s *Server) handleConn(c net.Conn) {
	defer s.wg.Done()
	log := s.Log.WithField("remote", c.RemoteAddr().String())
	log.Debug("[Echo] connection opened")
	defer func() {
		s.track(c, false)
		c.Close()
		log.Debug("[Echo] connection closed")
	}()

	buf := s.buffers.GetBuffer()
	defer s.buffers.PutBuffer(buf)

	for {
		var err error
		if s.Framing == config.FramingLength {
			var n int
			n, err = transport.ReadFrame(c, buf)
			if err == nil {
				err = transport.WriteFrame(c, buf[:n])
			}
		} else {
			var n int
			n, err = c.Read(buf)
			if n > 0 {
				if _, werr := c.Write(buf[:n]); werr != nil {
					err = werr
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.WithError(err).Warn("[Echo] connection error")
			}
			return
		}
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			c.Close()
			return
		}
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler echoes WebSocket messages with their original message type.
func WSHandler(log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("[Echo] websocket upgrade failed")
			return
		}
		defer c.Close()

		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if err := c.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	})
}
