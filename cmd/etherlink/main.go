package main

import (
	"fmt"
	"os"
	"runtime"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD) -X main.buildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)" -o etherlink ./cmd/etherlink
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		osExit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "daemon":
		runDaemon(os.Args[2:])
	case "send":
		runSend(os.Args[2:])
	case "peers":
		runPeers(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		osExit(1)
	}
}

func printVersion() {
	fmt.Printf("etherlink %s (%s) built %s\n", version, commit, buildDate)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: etherlink <command> [options]")
	fmt.Println()
	fmt.Println("Daemon:")
	fmt.Println("  daemon                                    Start daemon (transfer listener + control API)")
	fmt.Println("  daemon status [--json]                    Query running daemon")
	fmt.Println("  daemon stop                                Graceful shutdown")
	fmt.Println()
	fmt.Println("Transfers:")
	fmt.Println("  send --peer <addr> [--peer <addr>...] <file>...")
	fmt.Println("                                             Send files to one or more peers")
	fmt.Println("  send cancel <transfer-id>                  Cancel an in-flight transfer")
	fmt.Println("  send pause <transfer-id>                   Pause an in-flight transfer")
	fmt.Println("  send resume <transfer-id>                  Resume a paused transfer")
	fmt.Println()
	fmt.Println("Peers:")
	fmt.Println("  peers list [--json]                        List discovered LAN peers")
	fmt.Println("  peers check <addr>                         Check whether a peer is reachable")
	fmt.Println("  peers discover start|stop                  Start or stop LAN discovery")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  init                                       Set up etherlink configuration")
	fmt.Println("  config show     [--config path]            Show resolved config")
	fmt.Println("  config validate [--config path]            Validate config")
	fmt.Println("  config rollback [--config path]            Restore last-known-good config")
	fmt.Println("  config downloads-dir [path]                Show or set the downloads directory")
	fmt.Println()
	fmt.Println("  version                                    Show version information")
	fmt.Println()
	fmt.Println("The daemon and config commands accept --config <path> to specify a config file.")
	fmt.Println("Without --config, etherlink searches: ./etherlink.yaml, ~/.config/etherlink/config.yaml")
	fmt.Println()
	fmt.Println("Get started:  etherlink init")
}
