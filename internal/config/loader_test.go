package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfigYAML = `
downloads_dir: "/home/user/Downloads/EtherLink"
network:
  discovery_port: 9500
  transfer_port: 9501
discovery:
  poll_interval: "5s"
telemetry:
  metrics:
    enabled: true
`

func writeTestConfig(t testing.TB, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, testConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DownloadsDir != "/home/user/Downloads/EtherLink" {
		t.Errorf("DownloadsDir = %q", cfg.DownloadsDir)
	}
	if cfg.Network.DiscoveryPort != 9500 {
		t.Errorf("DiscoveryPort = %d, want 9500", cfg.Network.DiscoveryPort)
	}
	if cfg.Network.TransferPort != 9501 {
		t.Errorf("TransferPort = %d, want 9501", cfg.Network.TransferPort)
	}
	if cfg.Discovery.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.Discovery.PollInterval)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Telemetry.Metrics.Enabled should be true")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "not: [valid: yaml: {{{")

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadDefaultsMinimal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DownloadsDir != "" {
		t.Errorf("DownloadsDir = %q, want empty (engine applies its own default)", cfg.DownloadsDir)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1 (default)", cfg.Version)
	}
}

func TestConfigVersionExplicit(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "version: 1\n"+testConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
}

func TestConfigVersionFutureRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "version: 999\n"+testConfigYAML)

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for future config version")
	}
	if !errors.Is(err, ErrConfigVersionTooNew) {
		t.Errorf("err = %v, want ErrConfigVersionTooNew", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{
		DownloadsDir: filepath.Join(dir, "downloads"),
		Network:      NetworkConfig{DiscoveryPort: 9500, TransferPort: 9501},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DownloadsDir != cfg.DownloadsDir {
		t.Errorf("DownloadsDir = %q, want %q", got.DownloadsDir, cfg.DownloadsDir)
	}
	if got.Network.DiscoveryPort != 9500 {
		t.Errorf("DiscoveryPort = %d, want 9500", got.Network.DiscoveryPort)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "config.yaml")

	if err := Save(path, &Config{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config not written: %v", err)
	}
}

func TestSaveNoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := Save(path, &Config{}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFindConfigFileExplicit(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, testConfigYAML)

	found, err := FindConfigFile(path)
	if err != nil {
		t.Fatalf("FindConfigFile: %v", err)
	}
	if found != path {
		t.Errorf("found = %q, want %q", found, path)
	}
}

func TestFindConfigFileExplicitMissing(t *testing.T) {
	_, err := FindConfigFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestFindConfigFileLocalDir(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "etherlink.yaml")
	if err := os.WriteFile(configPath, []byte(testConfigYAML), 0600); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	found, err := FindConfigFile("")
	if err != nil {
		t.Fatalf("FindConfigFile: %v", err)
	}
	if found != "etherlink.yaml" {
		t.Errorf("found = %q, want %q", found, "etherlink.yaml")
	}
}

func TestFindConfigFileNotFound(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	_, err := FindConfigFile("")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath: %v", err)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("base = %q, want config.yaml", filepath.Base(path))
	}
}
