package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/etherlink/etherlink/internal/termcolor"
	"github.com/etherlink/etherlink/internal/validate"
)

func runSend(args []string) {
	if len(args) > 0 {
		switch args[0] {
		case "cancel":
			runSendAction(args[1:], "cancel")
			return
		case "pause":
			runSendAction(args[1:], "pause")
			return
		case "resume":
			runSendAction(args[1:], "resume")
			return
		}
	}

	if err := doSend(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doSend(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	var peers stringSlice
	fs.Var(&peers, "peer", "peer address to send to (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()

	if len(peers) == 0 {
		return fmt.Errorf("at least one --peer is required")
	}
	if len(files) == 0 {
		return fmt.Errorf("at least one file path is required")
	}

	for _, p := range peers {
		if err := validate.PeerAddress(p); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := validate.FilePath(f); err != nil {
			return err
		}
	}

	c := daemonClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batchID, err := c.SendBatch(ctx, "", peers, files)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	termcolor.Green("Batch %s started: %d file(s) to %d peer(s)", batchID, len(files), len(peers))
	fmt.Fprintln(stdout, "Progress events are streamed on the daemon's /v1/events endpoint.")
	return nil
}

func runSendAction(args []string, action string) {
	if len(args) == 0 {
		fatal("transfer id is required")
	}
	id := args[0]

	c := daemonClient()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	var past string
	switch action {
	case "cancel":
		err = c.CancelTransfer(ctx, id)
		past = "cancelled"
	case "pause":
		err = c.PauseTransfer(ctx, id)
		past = "paused"
	case "resume":
		err = c.ResumeTransfer(ctx, id)
		past = "resumed"
	}
	if err != nil {
		fatal("%s failed: %v", action, err)
	}
	termcolor.Green("Transfer %s %s", id, past)
}
