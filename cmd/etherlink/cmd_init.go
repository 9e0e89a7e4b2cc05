package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/etherlink/etherlink/internal/config"
)

const (
	defaultDiscoveryPort = 9000
	defaultTransferPort  = 9001
)

func runInit(args []string) {
	if err := doInit(args, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doInit(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dirFlag := fs.String("dir", "", "config directory (default: ~/.config/etherlink)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Welcome to EtherLink!")
	fmt.Fprintln(stdout)

	configDir := *dirFlag
	if configDir == "" {
		d, err := config.DefaultConfigDir()
		if err != nil {
			return fmt.Errorf("cannot determine config directory: %w", err)
		}
		configDir = d
	}

	configFile := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config already exists: %s\nDelete it first if you want to reinitialize", configFile)
	}

	fmt.Fprintf(stdout, "Creating config directory: %s\n", configDir)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	fmt.Fprintln(stdout)

	reader := bufio.NewReader(stdin)
	fmt.Fprintln(stdout, "Where should received files be saved?")
	home, _ := os.UserHomeDir()
	defaultDownloads := filepath.Join(home, "Downloads", "EtherLink")
	fmt.Fprintf(stdout, "> [%s] ", defaultDownloads)
	downloadsInput, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	downloadsDir := strings.TrimSpace(downloadsInput)
	if downloadsDir == "" {
		downloadsDir = defaultDownloads
	}

	if err := os.MkdirAll(downloadsDir, 0755); err != nil {
		return fmt.Errorf("failed to create downloads directory: %w", err)
	}
	fmt.Fprintln(stdout)

	cfg := &config.Config{
		Version:      config.CurrentConfigVersion,
		DownloadsDir: downloadsDir,
		Network: config.NetworkConfig{
			DiscoveryPort: defaultDiscoveryPort,
			TransferPort:  defaultTransferPort,
		},
	}
	if err := config.Save(configFile, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(stdout, "Config written to:      %s\n", configFile)
	fmt.Fprintf(stdout, "Downloads directory:    %s\n", downloadsDir)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintln(stdout, "  1. Run the daemon:  etherlink daemon")
	fmt.Fprintln(stdout, "  2. Find peers:       etherlink peers discover start")
	fmt.Fprintln(stdout, "  3. Send a file:      etherlink send --peer <addr> myfile.zip")
	return nil
}
