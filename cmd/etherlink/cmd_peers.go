package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etherlink/etherlink/internal/termcolor"
	"github.com/etherlink/etherlink/internal/validate"
)

func runPeers(args []string) {
	if len(args) < 1 {
		printPeersUsage()
		osExit(1)
	}

	switch args[0] {
	case "list":
		runPeersList(args[1:])
	case "check":
		runPeersCheck(args[1:])
	case "discover":
		runPeersDiscover(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown peers command: %s\n\n", args[0])
		printPeersUsage()
		osExit(1)
	}
}

func printPeersUsage() {
	fmt.Println("Usage: etherlink peers <subcommand>")
	fmt.Println()
	fmt.Println("  list [--json]          List discovered LAN peers")
	fmt.Println("  check <addr>           Check whether a peer is reachable")
	fmt.Println("  discover start|stop    Start or stop LAN discovery")
}

func runPeersList(args []string) {
	fs := flag.NewFlagSet("peers list", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output as JSON")
	fs.Parse(args)

	c := daemonClient()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	peers, err := c.Peers(ctx)
	if err != nil {
		fatal("failed to list peers: %v", err)
	}

	if *jsonFlag {
		data, _ := json.MarshalIndent(peers, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(peers) == 0 {
		fmt.Println("No peers discovered yet.")
		return
	}
	for _, p := range peers {
		fmt.Printf("%-22s %-16s %-8s last seen %dms ago\n", p.Address, p.DisplayName, p.OS, p.LastSeenMs)
	}
}

func runPeersCheck(args []string) {
	if len(args) == 0 {
		fatal("peer address is required")
	}
	address := args[0]
	if err := validate.PeerAddress(address); err != nil {
		fatal("%v", err)
	}

	c := daemonClient()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := c.CheckPeer(ctx, address)
	if err != nil {
		fatal("check failed: %v", err)
	}

	if resp.Alive {
		termcolor.Green("%s is reachable", address)
	} else {
		termcolor.Red("%s is not reachable", address)
		osExit(1)
	}
}

func runPeersDiscover(args []string) {
	if len(args) == 0 {
		fatal("usage: etherlink peers discover start|stop")
	}

	c := daemonClient()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	var past string
	switch args[0] {
	case "start":
		err = c.StartDiscovery(ctx)
		past = "started"
	case "stop":
		err = c.StopDiscovery(ctx)
		past = "stopped"
	default:
		fatal("unknown discover action: %s", args[0])
	}
	if err != nil {
		fatal("discovery %s failed: %v", args[0], err)
	}
	termcolor.Green("Discovery %s", past)
}
