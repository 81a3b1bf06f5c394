package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"message-sender/internal/api"
	"message-sender/internal/auth"
	"message-sender/internal/config"
	"message-sender/internal/consumer"
	"message-sender/internal/logging"
	"message-sender/internal/manager"
	"message-sender/internal/messaging"
	"message-sender/internal/metrics"
	"message-sender/internal/model"
	"message-sender/internal/prompt"
	"message-sender/internal/storage"
)

// @title Message Sender Load Generator API
// @version 1.0
// @description Start load-test batches and read their latency results
// @host localhost:8090
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "path of the YAML config file")
	count := flag.Int("count", 0, "send one batch of this many messages and exit")
	serve := flag.Bool("serve", false, "serve the API and request queue without prompting")
	token := flag.String("token", "", "print an API token for this operator and exit")
	flag.Parse()

	// Load Configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("Failed to init logger: %v", err)
	}
	log.Debug("Configuration loaded")

	// Setup JWT Secret
	auth.SetSecret(cfg.Auth.JWTSecret)
	if *token != "" {
		signed, err := auth.GenerateToken(*token, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Println(signed)
		return
	}

	// Init Metrics
	if cfg.Metrics.Enabled || cfg.API.Enabled {
		metrics.Init()
	}

	// Graceful Shutdown Setup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := manager.Options{Config: cfg, Console: os.Stdout, Log: log}

	// Init PostgreSQL
	var db *storage.Storage
	if cfg.Database.URL != "" {
		db, err = storage.NewStorage(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to init DB: %v", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
		opts.Store = db
		log.Info("PostgreSQL connected")
	}

	// Init RabbitMQ
	var rabbitClient *messaging.RabbitClient
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err = messaging.NewRabbitClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.EventsQueue, cfg.RabbitMQ.RequestsQueue, log)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rabbitClient.Close()
		if err := rabbitClient.DeclareQueues(); err != nil {
			log.Fatalf("Failed to declare queues: %v", err)
		}
		opts.Publisher = rabbitClient
		log.Info("RabbitMQ connected")
	}

	rm := manager.NewRunManager(opts)

	var requests *consumer.Consumer
	if rabbitClient != nil {
		// Start background loop for updating queue depth metrics
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					rabbitClient.UpdateQueueDepth()
				case <-ctx.Done():
					return
				}
			}
		}()

		requests, err = consumer.StartConsumer(rabbitClient.GetConnection(), rabbitClient.RequestsQueue(), func(req model.RunRequest) error {
			run, err := rm.Execute(ctx, req)
			if run == nil {
				return err
			}
			return nil
		}, log)
		if err != nil {
			log.Fatalf("Failed to start request consumer: %v", err)
		}
	}

	// Init API
	var server *http.Server
	if cfg.API.Enabled {
		var reader api.RunReader
		if db != nil {
			reader = db
		}
		apiHandler := api.NewAPI(ctx, rm, reader, cfg, log)
		server = &http.Server{
			Addr:    cfg.API.Addr,
			Handler: apiHandler.Router(),
		}

		go func() {
			log.Infof("Starting API server on %s", cfg.API.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		}()
	}

	if *count == 0 && !*serve && !cfg.Interactive {
		*count = cfg.Dispatch.MessageCount
	}

	exitCode := 0
	switch {
	case *count > 0:
		log.WithField("target", cfg.TargetAddr()).Info("Sending one batch")
		if _, err := rm.Execute(ctx, model.RunRequest{MessageCount: *count}); err != nil {
			log.WithError(err).Error("Batch finished with errors")
			exitCode = 1
		}

	case *serve:
		<-ctx.Done() // Wait for interrupt signal

	default:
		done := make(chan error, 1)
		go func() {
			done <- runInteractive(ctx, prompt.New(os.Stdin, os.Stdout), cfg, rm.Execute)
		}()
		select {
		case err := <-done:
			if sessionFailed(err) {
				log.WithError(err).Error("Session ended")
				exitCode = 1
			}
		case <-ctx.Done():
		}
	}

	log.Info("Shutdown initiated...")
	stop()

	// Shutdown sequence
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop HTTP server
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP shutdown error: %v", err)
		}
	}

	// Stop the request consumer
	if requests != nil {
		requests.Stop()
	}

	rm.Wait()

	log.Info("Shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
