package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/api"
	"github.com/cbodonnell/cloudflight/pkg/config"
	"github.com/cbodonnell/cloudflight/pkg/game"
	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/metrics"
	"github.com/cbodonnell/cloudflight/pkg/network"
	"github.com/cbodonnell/cloudflight/pkg/repositories"
	"github.com/cbodonnell/cloudflight/pkg/state"
	"github.com/cbodonnell/cloudflight/pkg/version"
	"github.com/cbodonnell/cloudflight/pkg/workers"
	"github.com/spf13/viper"
)

const sessionEventChannelSize = 256

func main() {
	configFile := flag.String("config", "", "Path to a config file")
	port := flag.Int("port", 8080, "Port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	logFormat := flag.String("log-format", "json", "Log format (json or console)")
	databaseURL := flag.String("database-url", "", "Flight recorder database (sqlite://path or postgresql://...)")
	migrationsDir := flag.String("migrations", "./migrations", "Migrations directory")
	tlsCert := flag.String("tls-cert", "", "TLS certificate file")
	tlsKey := flag.String("tls-key", "", "TLS key file")
	flag.Parse()

	// flags given explicitly win over the environment and the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			viper.Set("port", *port)
		case "log-level":
			viper.Set("logLevel", *logLevel)
		case "database-url":
			viper.Set("databaseUrl", *databaseURL)
		}
	})

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	parsedLogLevel, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	var logger *log.Logger
	switch *logFormat {
	case "json":
		logger = log.New(os.Stdout, parsedLogLevel)
	case "console":
		logger = log.NewConsole(os.Stdout, parsedLogLevel)
	default:
		panic(fmt.Sprintf("Unknown log format %s", *logFormat))
	}
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting cloudflight server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New()
	if err != nil {
		panic(fmt.Sprintf("Failed to create metrics: %v", err))
	}

	stateManager := state.NewInMemoryStateManager()

	// recorder goroutines finish before the repository is closed
	var wg sync.WaitGroup
	var repository repositories.Repository
	var sessionEvents chan types.SessionEvent
	if cfg.RecorderEnabled() {
		repository, err = repositories.NewRepository(ctx, cfg.DatabaseURL, *migrationsDir)
		if err != nil {
			panic(fmt.Sprintf("Failed to create repository: %v", err))
		}
		defer func() {
			wg.Wait()
			if err := repository.Close(context.Background()); err != nil {
				log.Error("Failed to close repository: %v", err)
			}
		}()

		sessionEvents = make(chan types.SessionEvent, sessionEventChannelSize)
		recorder := workers.NewRecorderWorker(workers.NewRecorderWorkerOptions{
			Repository:    repository,
			StateManager:  stateManager,
			SessionEvents: sessionEvents,
			Interval:      cfg.RecordInterval,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.Start(ctx)
		}()
		log.Info("Flight recorder enabled, recording every %s", cfg.RecordInterval)
	}

	sessionManager := game.NewSessionManager(game.NewSessionManagerOptions{
		StateManager:    stateManager,
		SessionEvents:   sessionEvents,
		Metrics:         m,
		PublishInterval: cfg.PublishInterval,
	})
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := sessionManager.Run(ctx); err != nil {
			log.Error("Session manager stopped: %v", err)
		}
	}()

	var tls *api.TLSConfig
	if *tlsCert != "" || *tlsKey != "" {
		tls = &api.TLSConfig{CertFile: *tlsCert, KeyFile: *tlsKey}
	}

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port: cfg.Port,
		TLS:  tls,
		WebSocketHandler: network.NewWSHandler(network.NewWSHandlerOptions{
			Sessions:         sessionManager,
			SendQueueSize:    cfg.SendQueueSize,
			ReceiveQueueSize: cfg.ReceiveQueueSize,
			Metrics:          m,
		}),
		StateManager: stateManager,
		Repository:   repository,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error("Server stopped: %v", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop server: %v", err)
	}
	<-sessionDone
}
