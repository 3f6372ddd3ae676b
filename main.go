package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/spachava753/sysown/internal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("sysown-mcp", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML configuration file")
	envFile := flags.String("env-file", "", "path to a .env file (default: .env when present)")
	logLevel := flags.String("log-level", "", "console log level: debug, info, warn or error")
	logFile := flags.String("log-file", "", "also write JSON logs to this rotated file")
	maxProcesses := flags.Int("max-processes", 0, "maximum number of tracked processes")
	persistenceFile := flags.String("persistence-file", "", "keep a JSON snapshot of the registry in this file")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flags.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := internal.LoadConfig(*configPath, *envFile, func(c *internal.Config) {
		if flags.Changed("log-level") {
			c.Log.Level = *logLevel
		}
		if flags.Changed("log-file") {
			c.Log.File = *logFile
		}
		if flags.Changed("max-processes") {
			c.Registry.MaxProcesses = *maxProcesses
		}
		if flags.Changed("persistence-file") {
			c.Registry.PersistenceFile = *persistenceFile
		}
	})
	if err != nil {
		return err
	}

	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok {
		version = bi.Main.Version
	}

	logger, closeLog := internal.NewLogger(cfg.Log, os.Stderr, version)
	defer closeLog()

	registry := internal.NewRegistry(&cfg.Registry, logger)
	defer registry.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving MCP over stdio",
		slog.Int("max_processes", cfg.Registry.MaxProcesses),
		slog.String("shell", cfg.Registry.DefaultShell))

	server := internal.NewServer(version, registry)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server failed", slog.Any("error", err))
		return err
	}
	return nil
}
