// Command chatserver wires configuration, logging, metrics, host-stats
// sampling, the optional event bus publisher, the transport layer, and
// the session-and-sector dispatch engine into a running chat relay.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"sectorchat/internal/chat"
	"sectorchat/internal/config"
	"sectorchat/internal/eventbus"
	"sectorchat/internal/hoststats"
	"sectorchat/internal/logging"
	"sectorchat/internal/metrics"
	"sectorchat/internal/transport"
)

func main() {
	debugFlag := flag.Bool("debug", false, "enable debug logging (overrides CHAT_LOG_LEVEL)")
	flag.Parse()

	bootLog := log.New(os.Stdout, "[chatserver] ", log.LstdFlags)

	maxProcs := runtime.GOMAXPROCS(0)
	bootLog.Printf("GOMAXPROCS: %d (via automaxprocs)", maxProcs)

	cfg, err := config.Load(nil)
	if err != nil {
		bootLog.Fatalf("failed to load configuration: %v", err)
	}
	if *debugFlag {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	workerThreads := cfg.WorkerThreadCount
	if workerThreads == 0 {
		workerThreads = runtime.NumCPU()
	}

	var publisher *eventbus.Publisher
	if cfg.NatsEnabled {
		publisher, err = eventbus.Connect(cfg.NatsURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("event bus connect failed, continuing with it disabled")
			publisher = eventbus.Disabled()
		}
	} else {
		publisher = eventbus.Disabled()
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := transport.NewServer(transport.Config{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		TCPNoDelay:        cfg.TCPNoDelay,
		WorkerThreadCount: workerThreads,
	}, logger)

	engine := chat.NewEngine(server, publisher, logger)
	disp := chat.NewDispatcher(engine, logger)
	server.Attach(engine, disp)

	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start listener")
	}

	sweeper := chat.NewSweeper(engine.Registry, server, logger)
	go sweeper.Run(ctx)

	metricsServer := metrics.NewServer(cfg.MetricsAddr, logger)
	metricsServer.Start()
	go metrics.SampleRegistrySize(ctx, cfg.MetricsInterval, engine.Registry.Len, engine.Sectors.OccupiedCells)
	go hoststats.Run(ctx, cfg.MetricsInterval, logger)

	logger.Info().Int("port", cfg.Port).Msg("sectorchat started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	cancel()
	server.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown error")
	}
}
