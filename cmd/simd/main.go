// Package main is the entry point for the simulator daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eugenway/perpsim/internal/agents"
	"github.com/eugenway/perpsim/internal/buildinfo"
	"github.com/eugenway/perpsim/internal/config"
	"github.com/eugenway/perpsim/internal/httpapi"
	"github.com/eugenway/perpsim/simkernel"
	"github.com/eugenway/perpsim/simkernel/fanout"
	"github.com/eugenway/perpsim/simkernel/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() == 0 {
		printUsage()
		return
	}

	switch flag.Arg(0) {
	case "run":
		runSim(logger, *configPath)
	case "version":
		fmt.Println(buildinfo.String())
		for k, v := range buildinfo.RuntimeInfo() {
			fmt.Printf("  %-12s %s\n", k+":", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("perpsim - deterministic perpetuals market simulator")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run      Run the simulation kernel and HTTP command surface")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func runSim(logger *slog.Logger, configPath string) {
	logger.Info("starting perpsim", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch, "built", buildinfo.BuildTime)

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"listen_port", cfg.Listen.Port,
		"tick_ns", cfg.Kernel.TickNs,
		"max_ticks", cfg.Kernel.MaxTicks,
	)

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "path", dataDir, "error", err)
		os.Exit(1)
	}

	latency := simkernel.NewJitteredLatency(
		simkernel.NewFixedLatency(cfg.Latency.NetworkDelayNs, cfg.Latency.ComputeDelayNs),
		cfg.Latency.JitterNs,
		cfg.Latency.Seed,
	)

	k, err := simkernel.NewKernel(latency, cfg.Kernel.TickNs, logger)
	if err != nil {
		logger.Error("failed to construct kernel", "error", err)
		os.Exit(1)
	}
	if cfg.Kernel.RealtimeTickMs > 0 {
		k.SetRealtime(cfg.Kernel.RealtimeTickMs)
	}

	errc := make(chan error, 16)
	go func() {
		for err := range errc {
			logger.Error("logger write failed", "error", err)
		}
	}()

	orderLog, err := logging.NewCSVOrderLogger(dataDir)
	if err != nil {
		logger.Error("failed to open order logger", "error", err)
		os.Exit(1)
	}
	defer orderLog.Close()
	orderLog.OnErrors(errc)

	oracleLog, err := logging.NewCSVOracleLogger(dataDir)
	if err != nil {
		logger.Error("failed to open oracle logger", "error", err)
		os.Exit(1)
	}
	defer oracleLog.Close()
	oracleLog.OnErrors(errc)

	execLog, err := logging.NewCSVExecutionLogger(dataDir)
	if err != nil {
		logger.Error("failed to open execution logger", "error", err)
		os.Exit(1)
	}
	defer execLog.Close()
	execLog.OnErrors(errc)

	jsonlLog, err := logging.NewJSONLLogger(dataDir + "/events.jsonl")
	if err != nil {
		logger.Error("failed to open jsonl logger", "error", err)
		os.Exit(1)
	}
	defer jsonlLog.Close()
	jsonlLog.OnErrors(errc)

	bus := k.EventBus()
	bus.Subscribe(orderLog)
	bus.Subscribe(oracleLog)
	bus.Subscribe(execLog)
	bus.Subscribe(jsonlLog)

	exchangeID := simkernel.AgentId(1)
	exchange := agents.NewExchangeAgent(exchangeID, "exchange", logger)
	k.AddAgent(exchange)

	oracle := agents.NewOracleAgent(
		simkernel.AgentId(2), "oracle", []string{"BTC", "ETH"}, exchangeID, cfg.Kernel.TickNs*10,
		agents.NewRandomWalkProvider(cfg.Latency.Seed, map[string]uint64{
			"BTC": 60_000_000_000,
			"ETH": 3_000_000_000,
		}, 50_000_000, 1_000_000),
		logger,
	)
	k.AddAgent(oracle)

	keeper := agents.NewKeeperAgent(simkernel.AgentId(3), "keeper", exchangeID, cfg.Kernel.TickNs*5, logger)
	k.AddAgent(keeper)

	commandAgent := httpapi.NewCommandAgent(simkernel.AgentId(4), exchangeID, cfg.Kernel.TickNs, logger)
	k.AddAgent(commandAgent)

	// The fan-out hub shares the CommandAgent's Commands channel, so a
	// command submitted over the WebSocket command surface is drained by
	// the same kernel goroutine as one submitted over HTTP.
	var hub *fanout.Hub
	if cfg.Fanout.Enabled {
		hub = fanout.NewHub(logger, commandAgent.Commands)
		bus.Subscribe(hub)
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewServer(commandAgent.Commands, logger))
	if hub != nil {
		mux.HandleFunc(cfg.Fanout.Path, hub.ServeWS)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
		_ = httpServer.Shutdown(context.Background())
	}()

	go func() {
		logger.Info("http command surface listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	k.Run(ctx, cfg.Kernel.MaxTicks)

	_ = httpServer.Shutdown(context.Background())
	close(errc)
	logger.Info("perpsim stopped")
}
