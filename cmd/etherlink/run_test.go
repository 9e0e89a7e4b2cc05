package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etherlink/etherlink/internal/config"
)

// captureExit overrides the package-level osExit variable so that calls to
// osExit inside fn are intercepted. It returns the exit code and a boolean
// indicating whether osExit was actually called.
func captureExit(fn func()) (code int, exited bool) {
	old := osExit
	defer func() { osExit = old }()

	osExit = func(c int) {
		panic(exitSentinel(c))
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if s, ok := r.(exitSentinel); ok {
					code = int(s)
					exited = true
				} else {
					panic(r)
				}
			}
		}()
		fn()
	}()
	return code, exited
}

func TestDoInit(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	stdin := strings.NewReader("/tmp/does-not-need-to-exist-yet\n")

	err := doInit([]string{"--dir", dir}, stdin, &out)
	if err != nil {
		t.Fatalf("doInit: %v", err)
	}

	cfgFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(cfgFile); err != nil {
		t.Fatalf("expected config file at %s: %v", cfgFile, err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.DiscoveryPort != defaultDiscoveryPort {
		t.Errorf("DiscoveryPort = %d, want %d", cfg.Network.DiscoveryPort, defaultDiscoveryPort)
	}
}

func TestDoInit_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("version: 1\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	err := doInit([]string{"--dir", dir}, strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "etherlink.yaml")
	cfg := &config.Config{
		Version:      config.CurrentConfigVersion,
		DownloadsDir: filepath.Join(dir, "downloads"),
		Network: config.NetworkConfig{
			DiscoveryPort: defaultDiscoveryPort,
			TransferPort:  defaultTransferPort,
		},
	}
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func TestDoConfigShow(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	var out bytes.Buffer
	if err := doConfigShow([]string{"--config", path}, &out); err != nil {
		t.Fatalf("doConfigShow: %v", err)
	}
	if !strings.Contains(out.String(), "downloads_dir") {
		t.Errorf("output missing downloads_dir: %s", out.String())
	}
}

func TestDoConfigValidate_Missing(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	err := doConfigValidate([]string{"--config", filepath.Join(dir, "nope.yaml")}, &out)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestDoConfigValidate_OK(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	var out bytes.Buffer
	if err := doConfigValidate([]string{"--config", path}, &out); err != nil {
		t.Fatalf("doConfigValidate: %v", err)
	}
	if !strings.Contains(out.String(), "OK") {
		t.Errorf("expected OK output, got %s", out.String())
	}
}

func TestDoConfigRollback_NoArchive(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	var out bytes.Buffer
	err := doConfigRollback([]string{"--config", path}, &out)
	if err == nil {
		t.Fatal("expected error when no archive exists")
	}
}

func TestDoConfigDownloadsDir_ShowAndSet(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir)

	var out bytes.Buffer
	if err := doConfigDownloadsDir([]string{"--config", path}, &out); err != nil {
		t.Fatalf("doConfigDownloadsDir (show): %v", err)
	}
	if !strings.Contains(out.String(), "downloads") {
		t.Errorf("expected downloads dir in output, got %s", out.String())
	}

	newDir := filepath.Join(dir, "elsewhere")
	out.Reset()
	if err := doConfigDownloadsDir([]string{"--config", path, newDir}, &out); err != nil {
		t.Fatalf("doConfigDownloadsDir (set): %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DownloadsDir != newDir {
		t.Errorf("DownloadsDir = %q, want %q", cfg.DownloadsDir, newDir)
	}
}

func TestRunConfigValidate_ExitsOnError(t *testing.T) {
	dir := t.TempDir()
	code, exited := captureExit(func() {
		runConfigValidate([]string{"--config", filepath.Join(dir, "missing.yaml")})
	})
	if !exited || code != 1 {
		t.Fatalf("exited=%v code=%d, want exited=true code=1", exited, code)
	}
}

func TestDoSend_RequiresPeer(t *testing.T) {
	var out bytes.Buffer
	err := doSend([]string{"somefile.txt"}, &out)
	if err == nil || !strings.Contains(err.Error(), "--peer") {
		t.Fatalf("expected missing-peer error, got %v", err)
	}
}

func TestDoSend_RequiresFile(t *testing.T) {
	var out bytes.Buffer
	err := doSend([]string{"--peer", "127.0.0.1:9001"}, &out)
	if err == nil || !strings.Contains(err.Error(), "file path") {
		t.Fatalf("expected missing-file error, got %v", err)
	}
}

func TestDoSend_InvalidPeerAddress(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(f, []byte("hi"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	err := doSend([]string{"--peer", "", f}, &out)
	if err == nil {
		t.Fatal("expected error for empty peer address")
	}
}
