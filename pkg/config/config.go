// Package config handles loading and hot-reloading worldlink's runtime
// configuration.
package config

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all link-level runtime configuration.
type Config struct {
	SyncMode               string        `mapstructure:"SyncMode"` // "full", "delta", "manual"
	SyncIntervalMs         int           `mapstructure:"SyncIntervalMs"`
	EnableFieldCompression bool          `mapstructure:"EnableFieldCompression"`
	SchemaVersion          uint32        `mapstructure:"SchemaVersion"`

	EnableRateLimiting   bool    `mapstructure:"EnableRateLimiting"`
	MaxMessagesPerSecond uint64  `mapstructure:"MaxMessagesPerSecond"`
	MaxBytesPerSecond    uint64  `mapstructure:"MaxBytesPerSecond"`
	BurstSize            uint64  `mapstructure:"BurstSize"`
	WindowDurationMs      int    `mapstructure:"WindowDurationMs"`

	TokenBucketCapacity   uint64  `mapstructure:"TokenBucketCapacity"`
	TokenBucketRefillRate float64 `mapstructure:"TokenBucketRefillRate"`

	UseContinuousLimiter     bool    `mapstructure:"UseContinuousLimiter"`
	ContinuousMessagesPerSec float64 `mapstructure:"ContinuousMessagesPerSec"`
	ContinuousBurst          int     `mapstructure:"ContinuousBurst"`

	EnabledTransports []string `mapstructure:"EnabledTransports"` // "memory", "stdio", "websocket"
	AdminBindAddr     string   `mapstructure:"AdminBindAddr"`

	SchemaManifestPath string `mapstructure:"SchemaManifestPath"` // empty disables manifest loading

	AutoReconnect        bool `mapstructure:"AutoReconnect"`
	MaxReconnectAttempts int  `mapstructure:"MaxReconnectAttempts"`
	ReconnectDelayMs     int  `mapstructure:"ReconnectDelayMs"`
}

// SyncInterval returns SyncIntervalMs as a time.Duration.
func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMs) * time.Millisecond
}

// WindowDuration returns WindowDurationMs as a time.Duration.
func (c Config) WindowDuration() time.Duration {
	return time.Duration(c.WindowDurationMs) * time.Millisecond
}

// ReconnectDelay returns ReconnectDelayMs as a time.Duration.
func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// C is the global configuration instance.
var C Config

// mu protects concurrent access to C during hot-reload.
var mu sync.RWMutex

// watcherMu protects the watcher state
var (
	watcherMu       sync.Mutex
	watcherActive   bool
	watcherCtx      context.Context
	watcherCancel   context.CancelFunc
	currentCallback ReloadCallback
)

// ReloadCallback is called when the configuration is hot-reloaded.
type ReloadCallback func(old, new Config)

// Load reads configuration from file and environment, populating C.
func Load() error {
	viper.SetConfigName("worldlink")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.worldlink")

	viper.SetDefault("SyncMode", "delta")
	viper.SetDefault("SyncIntervalMs", 100)
	viper.SetDefault("EnableFieldCompression", true)
	viper.SetDefault("SchemaVersion", 1)

	viper.SetDefault("EnableRateLimiting", true)
	viper.SetDefault("MaxMessagesPerSecond", 1000)
	viper.SetDefault("MaxBytesPerSecond", 10*1024*1024)
	viper.SetDefault("BurstSize", 100)
	viper.SetDefault("WindowDurationMs", 1000)

	viper.SetDefault("TokenBucketCapacity", 100)
	viper.SetDefault("TokenBucketRefillRate", 50.0)

	viper.SetDefault("UseContinuousLimiter", false)
	viper.SetDefault("ContinuousMessagesPerSec", 100.0)
	viper.SetDefault("ContinuousBurst", 50)

	viper.SetDefault("EnabledTransports", []string{"memory"})
	viper.SetDefault("AdminBindAddr", ":8181")
	viper.SetDefault("SchemaManifestPath", "")

	viper.SetDefault("AutoReconnect", false)
	viper.SetDefault("MaxReconnectAttempts", 3)
	viper.SetDefault("ReconnectDelayMs", 1000)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	return viper.Unmarshal(&C)
}

// Save writes the current configuration to file.
func Save() error {
	mu.RLock()
	defer mu.RUnlock()

	viper.Set("SyncMode", C.SyncMode)
	viper.Set("SyncIntervalMs", C.SyncIntervalMs)
	viper.Set("EnableFieldCompression", C.EnableFieldCompression)
	viper.Set("SchemaVersion", C.SchemaVersion)
	viper.Set("EnableRateLimiting", C.EnableRateLimiting)
	viper.Set("MaxMessagesPerSecond", C.MaxMessagesPerSecond)
	viper.Set("MaxBytesPerSecond", C.MaxBytesPerSecond)
	viper.Set("BurstSize", C.BurstSize)
	viper.Set("WindowDurationMs", C.WindowDurationMs)
	viper.Set("TokenBucketCapacity", C.TokenBucketCapacity)
	viper.Set("TokenBucketRefillRate", C.TokenBucketRefillRate)
	viper.Set("UseContinuousLimiter", C.UseContinuousLimiter)
	viper.Set("ContinuousMessagesPerSec", C.ContinuousMessagesPerSec)
	viper.Set("ContinuousBurst", C.ContinuousBurst)
	viper.Set("EnabledTransports", C.EnabledTransports)
	viper.Set("AdminBindAddr", C.AdminBindAddr)
	viper.Set("SchemaManifestPath", C.SchemaManifestPath)
	viper.Set("AutoReconnect", C.AutoReconnect)
	viper.Set("MaxReconnectAttempts", C.MaxReconnectAttempts)
	viper.Set("ReconnectDelayMs", C.ReconnectDelayMs)

	return viper.WriteConfig()
}

// Watch starts watching the config file for changes and calls the callback on reload.
// Returns a stop function to cancel watching.
// Only one watcher can be active at a time. Calling Watch when a watcher is active
// will replace the callback but keep the same underlying file watcher (to avoid
// viper race conditions).
func Watch(callback ReloadCallback) (stop func(), err error) {
	watcherMu.Lock()
	defer watcherMu.Unlock()

	// If no watcher is active, start one
	if !watcherActive {
		ctx, cancel := context.WithCancel(context.Background())
		watcherCtx = ctx
		watcherCancel = cancel
		currentCallback = callback
		watcherActive = true

		// Start viper's file watcher (only once)
		viper.WatchConfig()
		viper.OnConfigChange(func(e fsnotify.Event) {
			watcherMu.Lock()
			cb := currentCallback
			ctx := watcherCtx
			watcherMu.Unlock()

			// Check if watcher has been stopped
			if ctx != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
			}

			mu.Lock()
			old := C
			var newCfg Config
			if err := viper.Unmarshal(&newCfg); err == nil {
				C = newCfg
				mu.Unlock()
				if cb != nil {
					cb(old, newCfg)
				}
			} else {
				mu.Unlock()
			}
		})
	} else {
		// Watcher already active, just replace the callback
		currentCallback = callback
	}

	return func() {
		watcherMu.Lock()
		defer watcherMu.Unlock()
		if watcherCancel != nil {
			watcherCancel()
			watcherCancel = nil
			watcherCtx = nil
		}
		watcherActive = false
		currentCallback = nil
	}, nil
}

// Get returns a copy of the current config safely.
func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return C
}

// Set updates the config safely.
func Set(cfg Config) {
	mu.Lock()
	C = cfg
	mu.Unlock()
}
