package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stemhealth/stem-measure/internal/config"
	"github.com/stemhealth/stem-measure/internal/logger"
	"github.com/stemhealth/stem-measure/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv(config.EnvConfigPath)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("stem-measure %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "--config", "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown argument %q\n", args[i])
			printUsage()
			os.Exit(2)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// stdout is for the MCP protocol
	log := logger.NewConsole(cfg.LogLevel)
	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Str("config", configPath).
		Msg("starting stem-measure")

	server.Version = Version
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server error")
	}
}

func printUsage() {
	fmt.Println("stem-measure - MCP server for seedling stem height measurement")
	fmt.Println()
	fmt.Println("Usage: stem-measure [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH    YAML configuration file")
	fmt.Println("  --version, -v        Print version information")
	fmt.Println("  --help, -h           Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=PATH                 Configuration file\n", config.EnvConfigPath)
	fmt.Printf("  %s=debug             Log level\n", config.EnvLogLevel)
	fmt.Printf("  %s=N                    Concurrent entries per batch\n", config.EnvWorkers)
	fmt.Printf("  %s=5.0     Reference object height\n", config.EnvReferenceHeightCM)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
}
