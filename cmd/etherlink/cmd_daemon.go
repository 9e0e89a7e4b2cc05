package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/etherlink/etherlink/internal/config"
	"github.com/etherlink/etherlink/internal/daemon"
	"github.com/etherlink/etherlink/internal/termcolor"
	"github.com/etherlink/etherlink/internal/watchdog"
	"github.com/etherlink/etherlink/pkg/engine"
)

func daemonAddrPath() string {
	dir, err := config.DefaultConfigDir()
	if err != nil {
		fatal("cannot determine config directory: %v", err)
	}
	return filepath.Join(dir, "daemon.addr")
}

func daemonCookiePath() string {
	dir, err := config.DefaultConfigDir()
	if err != nil {
		fatal("cannot determine config directory: %v", err)
	}
	return filepath.Join(dir, ".daemon-cookie")
}

func runDaemon(args []string) {
	if len(args) == 0 {
		runDaemonStart(args)
		return
	}

	switch args[0] {
	case "start":
		runDaemonStart(args[1:])
	case "status":
		runDaemonStatus(args[1:])
	case "stop":
		runDaemonStop(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown daemon subcommand: %s\n\n", args[0])
		printDaemonUsage()
		osExit(1)
	}
}

func printDaemonUsage() {
	fmt.Println("Usage: etherlink daemon [subcommand]")
	fmt.Println()
	fmt.Println("  (no subcommand)  Start daemon in foreground")
	fmt.Println("  start            Start daemon in foreground")
	fmt.Println("  status [--json]  Show daemon status")
	fmt.Println("  stop             Graceful shutdown")
}

func runDaemonStart(args []string) {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	configFlag := fs.String("config", "", "path to config file")
	fs.Parse(args)

	fmt.Printf("etherlink daemon %s (%s)\n", version, commit)
	fmt.Println()

	cfgFile, err := config.FindConfigFile(*configFlag)
	var cfg *config.Config
	if err != nil {
		fmt.Println("No config found, using defaults (run 'etherlink init' to customize).")
		cfg = &config.Config{
			Network: config.NetworkConfig{
				DiscoveryPort: defaultDiscoveryPort,
				TransferPort:  defaultTransferPort,
			},
		}
	} else {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fatal("failed to load config: %v", err)
		}
	}

	e := engine.New(engine.Config{
		DiscoveryPort: cfg.Network.DiscoveryPort,
		TransferPort:  cfg.Network.TransferPort,
		DownloadsDir:  cfg.DownloadsDir,
		Version:       version,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Start(ctx); err != nil {
		fatal("failed to start engine: %v", err)
	}
	defer e.Stop()

	if err := e.StartDiscovery(ctx); err != nil {
		fatal("failed to start discovery: %v", err)
	}
	defer e.StopDiscovery()

	addrPath := daemonAddrPath()
	cookiePath := daemonCookiePath()

	srv := daemon.NewServer(e, addrPath, cookiePath)
	if err := srv.Start(); err != nil {
		fatal("daemon API failed to start: %v", err)
	}
	defer srv.Stop()

	fmt.Printf("Transfer listener: %s\n", e.TransferAddr())
	fmt.Printf("Daemon API:         %s\n", srv.Addr())
	fmt.Println()
	termcolor.Green("Ready. Discovering peers on the LAN...")

	watchdogCtx, watchdogCancel := context.WithCancel(ctx)
	defer watchdogCancel()
	go watchdog.Run(watchdogCtx, watchdog.Config{}, []watchdog.HealthCheck{
		{
			Name: "daemon-api",
			Check: func() error {
				if srv.Addr() == nil {
					return fmt.Errorf("daemon API not listening")
				}
				return nil
			},
		},
	})
	watchdog.Ready()
	defer watchdog.Stopping()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	case <-srv.ShutdownCh():
		fmt.Println("\nShutdown requested via API")
	}

	fmt.Println("Daemon stopped.")
}

func daemonClient() *daemon.Client {
	c, err := daemon.NewClient(daemonAddrPath(), daemonCookiePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Is the daemon running? Try: etherlink daemon")
		osExit(1)
	}
	return c
}

// tryDaemonClient attempts to connect to a running daemon.
// Returns nil if the daemon is not running or unreachable.
func tryDaemonClient() *daemon.Client {
	c, err := daemon.NewClient(daemonAddrPath(), daemonCookiePath())
	if err != nil {
		return nil
	}
	return c
}

func runDaemonStatus(args []string) {
	fs := flag.NewFlagSet("daemon status", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output as JSON")
	fs.Parse(args)

	c := daemonClient()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := c.Status(ctx)
	if err != nil {
		fatal("failed to query daemon: %v", err)
	}

	if *jsonFlag {
		data, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Version:          %s\n", status.Version)
	fmt.Printf("Uptime:           %ds\n", status.UptimeSeconds)
	fmt.Printf("Downloads dir:    %s\n", status.DownloadsDir)
	fmt.Printf("Discovery:        %v\n", status.DiscoveryOn)
	fmt.Printf("Known peers:      %d\n", status.KnownPeers)
}

func runDaemonStop(args []string) {
	c := daemonClient()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		fatal("failed to stop daemon: %v", err)
	}
	termcolor.Green("Daemon stopped.")
}
