package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_DefaultValues(t *testing.T) {
	// Reset viper for clean test
	viper.Reset()

	tests := []struct {
		name     string
		field    string
		expected interface{}
	}{
		{"SyncMode", "SyncMode", "delta"},
		{"SyncIntervalMs", "SyncIntervalMs", 100},
		{"EnableFieldCompression", "EnableFieldCompression", true},
		{"SchemaVersion", "SchemaVersion", uint32(1)},
		{"EnableRateLimiting", "EnableRateLimiting", true},
		{"MaxMessagesPerSecond", "MaxMessagesPerSecond", uint64(1000)},
		{"BurstSize", "BurstSize", uint64(100)},
		{"WindowDurationMs", "WindowDurationMs", 1000},
		{"TokenBucketCapacity", "TokenBucketCapacity", uint64(100)},
		{"AdminBindAddr", "AdminBindAddr", ":8181"},
		{"AutoReconnect", "AutoReconnect", false},
		{"MaxReconnectAttempts", "MaxReconnectAttempts", 3},
	}

	if err := Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Get()
			var actual interface{}
			switch tt.field {
			case "SyncMode":
				actual = cfg.SyncMode
			case "SyncIntervalMs":
				actual = cfg.SyncIntervalMs
			case "EnableFieldCompression":
				actual = cfg.EnableFieldCompression
			case "SchemaVersion":
				actual = cfg.SchemaVersion
			case "EnableRateLimiting":
				actual = cfg.EnableRateLimiting
			case "MaxMessagesPerSecond":
				actual = cfg.MaxMessagesPerSecond
			case "BurstSize":
				actual = cfg.BurstSize
			case "WindowDurationMs":
				actual = cfg.WindowDurationMs
			case "TokenBucketCapacity":
				actual = cfg.TokenBucketCapacity
			case "AdminBindAddr":
				actual = cfg.AdminBindAddr
			case "AutoReconnect":
				actual = cfg.AutoReconnect
			case "MaxReconnectAttempts":
				actual = cfg.MaxReconnectAttempts
			}
			if actual != tt.expected {
				t.Errorf("Config.%s = %v, want %v", tt.field, actual, tt.expected)
			}
		})
	}
}

func TestLoad_TOMLParsing(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "worldlink.toml")

	configData := `
SyncMode = "full"
SyncIntervalMs = 250
EnableFieldCompression = false
SchemaVersion = 2
MaxMessagesPerSecond = 500
AdminBindAddr = ":9090"
EnabledTransports = ["memory", "stdio"]
`

	if err := os.WriteFile(configPath, []byte(configData), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	viper.Reset()
	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath(tmpDir)

	viper.SetDefault("SyncMode", "delta")
	viper.SetDefault("SyncIntervalMs", 100)
	viper.SetDefault("EnableFieldCompression", true)
	viper.SetDefault("SchemaVersion", 1)
	viper.SetDefault("MaxMessagesPerSecond", 1000)
	viper.SetDefault("AdminBindAddr", ":8181")
	viper.SetDefault("EnabledTransports", []string{"memory"})

	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("viper.ReadInConfig() failed: %v", err)
	}

	if err := viper.Unmarshal(&C); err != nil {
		t.Fatalf("viper.Unmarshal() failed: %v", err)
	}

	cfg := Get()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"SyncMode", cfg.SyncMode, "full"},
		{"SyncIntervalMs", cfg.SyncIntervalMs, 250},
		{"EnableFieldCompression", cfg.EnableFieldCompression, false},
		{"SchemaVersion", cfg.SchemaVersion, uint32(2)},
		{"MaxMessagesPerSecond", cfg.MaxMessagesPerSecond, uint64(500)},
		{"AdminBindAddr", cfg.AdminBindAddr, ":9090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Config.%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if len(cfg.EnabledTransports) != 2 {
		t.Errorf("len(EnabledTransports) = %d, want 2", len(cfg.EnabledTransports))
	}
}

func TestLoad_MissingFileFallback(t *testing.T) {
	viper.Reset()
	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/nonexistent/path")

	// Should not error, just use defaults
	if err := Load(); err != nil {
		t.Errorf("Load() with missing file should not error, got: %v", err)
	}

	cfg := Get()
	if cfg.SyncMode != "delta" {
		t.Errorf("Default SyncMode = %q, want delta", cfg.SyncMode)
	}
}

func TestWriteConfigAs_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "worldlink.toml")

	viper.Reset()
	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath(tmpDir)

	if err := Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	cfg := Config{
		SyncMode:               "manual",
		SyncIntervalMs:         500,
		EnableFieldCompression: false,
		SchemaVersion:          3,
		EnableRateLimiting:     false,
		MaxMessagesPerSecond:   200,
		MaxBytesPerSecond:      4096,
		BurstSize:              20,
		WindowDurationMs:       2000,
		TokenBucketCapacity:    10,
		TokenBucketRefillRate:  5.0,
		EnabledTransports:      []string{"memory"},
		AdminBindAddr:          ":7070",
		AutoReconnect:          true,
		MaxReconnectAttempts:   5,
		ReconnectDelayMs:       2000,
	}
	Set(cfg)

	viper.Set("SyncMode", cfg.SyncMode)
	viper.Set("SyncIntervalMs", cfg.SyncIntervalMs)
	viper.Set("EnableFieldCompression", cfg.EnableFieldCompression)
	viper.Set("SchemaVersion", cfg.SchemaVersion)
	viper.Set("AdminBindAddr", cfg.AdminBindAddr)

	if err := viper.WriteConfigAs(configPath); err != nil {
		t.Fatalf("viper.WriteConfigAs() failed: %v", err)
	}

	viper.Reset()
	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath(tmpDir)

	if err := Load(); err != nil {
		t.Fatalf("Load() after save failed: %v", err)
	}

	newCfg := Get()
	if newCfg.SyncMode != "manual" {
		t.Errorf("SyncMode = %s, want manual", newCfg.SyncMode)
	}
	if newCfg.AdminBindAddr != ":7070" {
		t.Errorf("AdminBindAddr = %s, want :7070", newCfg.AdminBindAddr)
	}
}

func TestWatch_HotReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "worldlink.toml")

	initialData := `
SyncMode = "delta"
SyncIntervalMs = 100
SchemaVersion = 1
`
	if err := os.WriteFile(configPath, []byte(initialData), 0o644); err != nil {
		t.Fatalf("Failed to write initial config: %v", err)
	}

	viper.Reset()

	mu.Lock()
	C = Config{}
	mu.Unlock()

	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath(tmpDir)

	viper.SetDefault("SyncMode", "delta")
	viper.SetDefault("SyncIntervalMs", 100)
	viper.SetDefault("SchemaVersion", 1)

	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("viper.ReadInConfig() failed: %v", err)
	}

	mu.Lock()
	if err := viper.Unmarshal(&C); err != nil {
		mu.Unlock()
		t.Fatalf("viper.Unmarshal() failed: %v", err)
	}
	mu.Unlock()

	initialCfg := Get()
	if initialCfg.SyncIntervalMs != 100 {
		t.Fatalf("Initial SyncIntervalMs = %d, want 100", initialCfg.SyncIntervalMs)
	}

	var callbackCalled bool
	var newCfg Config
	var cbMu sync.Mutex

	callback := func(old, new Config) {
		cbMu.Lock()
		callbackCalled = true
		newCfg = new
		cbMu.Unlock()
		t.Logf("Hot-reload callback invoked: old.SyncIntervalMs=%d, new.SyncIntervalMs=%d", old.SyncIntervalMs, new.SyncIntervalMs)
	}

	stop, err := Watch(callback)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	defer stop()

	time.Sleep(100 * time.Millisecond)

	modifiedData := `
SyncMode = "full"
SyncIntervalMs = 250
SchemaVersion = 2
`
	if err := os.WriteFile(configPath, []byte(modifiedData), 0o644); err != nil {
		t.Fatalf("Failed to write modified config: %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	cbMu.Lock()
	called := callbackCalled
	cbMu.Unlock()

	if !called {
		t.Error("Callback was not called after config change")
		return
	}

	cbMu.Lock()
	if newCfg.SyncIntervalMs != 250 {
		t.Errorf("Callback new.SyncIntervalMs = %d, want 250", newCfg.SyncIntervalMs)
	}
	if newCfg.SyncMode != "full" {
		t.Errorf("Callback new.SyncMode = %s, want full", newCfg.SyncMode)
	}
	cbMu.Unlock()

	cfg := Get()
	if cfg.SyncIntervalMs != 250 {
		t.Errorf("Global SyncIntervalMs = %d, want 250", cfg.SyncIntervalMs)
	}
	if cfg.SchemaVersion != 2 {
		t.Errorf("Global SchemaVersion = %d, want 2", cfg.SchemaVersion)
	}
}

func TestWatch_NilCallback(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "worldlink.toml")

	initialData := `SyncIntervalMs = 100`
	if err := os.WriteFile(configPath, []byte(initialData), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	viper.Reset()
	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath(tmpDir)

	if err := Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Watch with nil callback should not panic
	stop, err := Watch(nil)
	if err != nil {
		t.Fatalf("Watch(nil) failed: %v", err)
	}
	defer stop()

	time.Sleep(100 * time.Millisecond)

	modifiedData := `SyncIntervalMs = 250`
	if err := os.WriteFile(configPath, []byte(modifiedData), 0o644); err != nil {
		t.Fatalf("Failed to write modified config: %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	cfg := Get()
	if cfg.SyncIntervalMs != 250 {
		t.Errorf("SyncIntervalMs = %d, want 250", cfg.SyncIntervalMs)
	}
}

func TestGetSet_Concurrency(t *testing.T) {
	viper.Reset()
	if err := Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	var wg sync.WaitGroup
	iterations := 100

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				_ = Get()
			}
		}()
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				cfg := Get()
				cfg.SyncIntervalMs = 100 + id
				Set(cfg)
			}
		}(i)
	}

	wg.Wait()

	cfg := Get()
	if cfg.SyncIntervalMs < 100 || cfg.SyncIntervalMs >= 110 {
		t.Logf("Final SyncIntervalMs = %d (expected in range [100, 110))", cfg.SyncIntervalMs)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "worldlink.toml")

	invalidData := `
SyncIntervalMs = "not a number"
[[[invalid structure
`
	if err := os.WriteFile(configPath, []byte(invalidData), 0o644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	viper.Reset()
	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath(tmpDir)

	err := Load()
	if err == nil {
		t.Error("Load() should return error for invalid TOML")
	}
}

func BenchmarkGet(b *testing.B) {
	viper.Reset()
	if err := Load(); err != nil {
		b.Fatalf("Load() failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Get()
	}
}

func BenchmarkSet(b *testing.B) {
	viper.Reset()
	if err := Load(); err != nil {
		b.Fatalf("Load() failed: %v", err)
	}

	cfg := Get()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Set(cfg)
	}
}

func BenchmarkGetSet_Concurrent(b *testing.B) {
	viper.Reset()
	if err := Load(); err != nil {
		b.Fatalf("Load() failed: %v", err)
	}

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cfg := Get()
			cfg.SyncIntervalMs = 150
			Set(cfg)
		}
	})
}
