package config

import "testing"

func BenchmarkLoad(b *testing.B) {
	dir := b.TempDir()
	path := writeTestConfig(b, dir, testConfigYAML)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Load(path)
	}
}

func BenchmarkSave(b *testing.B) {
	dir := b.TempDir()
	path := dir + "/config.yaml"
	cfg := &Config{DownloadsDir: "/home/user/Downloads/EtherLink"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Save(path, cfg)
	}
}
