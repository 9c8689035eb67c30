package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/types"
)

var (
	// Cache the configuration after first load
	cachedConfig atomic.Value // stores *types.Config

	// Only protect write operations
	writeMutex sync.Mutex

	// Debounce timer for config file changes
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
)

// InitConfig initializes the global viper configuration
func InitConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("HORNETS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config.yaml found, creating default configuration...")
			if err := viper.WriteConfigAs("config.yaml"); err != nil {
				return fmt.Errorf("failed to create default config: %w", err)
			}
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read created config: %w", err)
			}
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := reloadConfigCache(); err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}

	// Watch for config file changes with debouncing
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Debounce file changes to avoid reading partial writes on slower machines
		debounceMutex.Lock()
		defer debounceMutex.Unlock()

		if debounceTimer != nil {
			debounceTimer.Stop()
		}

		debounceTimer = time.AfterFunc(500*time.Millisecond, func() {
			writeMutex.Lock()
			defer writeMutex.Unlock()

			if err := reloadConfigCache(); err != nil {
				log.Printf("Error reloading config cache after file change: %v", err)
			} else {
				log.Printf("Config cache refreshed after file change: %s", e.Name)
			}
		})
	})

	return nil
}

func setDefaults() {
	viper.SetDefault("network", "mainnet")
	viper.SetDefault("server.port", 9002)
	viper.SetDefault("server.bind_address", "0.0.0.0")
	viper.SetDefault("server.demo", false)
	viper.SetDefault("server.data_path", "./data")
	viper.SetDefault("external_services.wallet.url", "")
	viper.SetDefault("external_services.wallet.name", "default")
	viper.SetDefault("wallet.token_store", "wallet_session")
	viper.SetDefault("wallet.request_timeout", 30)
	viper.SetDefault("wallet.estimate_debounce_ms", 500)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("relay_stats_db", "relay_stats.db")
}

// reloadConfigCache loads the configuration from viper into the cache
func reloadConfigCache() error {
	config := &types.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cachedConfig.Store(config)
	return nil
}

// GetConfig returns the cached configuration struct
func GetConfig() (*types.Config, error) {
	if cfg := cachedConfig.Load(); cfg != nil {
		return cfg.(*types.Config), nil
	}

	// Not initialized through InitConfig, unmarshal directly
	config := &types.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("config not initialized: %w", err)
	}
	cachedConfig.Store(config)
	return config, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig() error {
	writeMutex.Lock()
	defer writeMutex.Unlock()

	if err := viper.WriteConfig(); err != nil {
		return err
	}
	return reloadConfigCache()
}

// GetNetwork returns the configured Bitcoin network (mainnet or testnet)
func GetNetwork() string {
	cfg, err := GetConfig()
	if err != nil || cfg.Network == "" {
		return "mainnet"
	}
	return cfg.Network
}

// GetExternalURL returns the base URL of an external service
func GetExternalURL(service string) string {
	cfg, err := GetConfig()
	if err != nil {
		return ""
	}

	switch service {
	case "wallet":
		return cfg.ExternalServices.Wallet.URL
	default:
		return ""
	}
}

// GetPort returns the configured web server port
func GetPort() int {
	cfg, err := GetConfig()
	if err != nil || cfg.Server.Port == 0 {
		return 9002 // fallback
	}
	return cfg.Server.Port
}

// GetDataDir returns the base data directory
func GetDataDir() string {
	cfg, err := GetConfig()
	if err != nil || cfg.Server.DataPath == "" {
		return "./data"
	}
	return cfg.Server.DataPath
}

// GetPath returns a path relative to the data directory
func GetPath(subPath string) string {
	return filepath.Join(GetDataDir(), subPath)
}

// GetWalletRequestTimeout returns the bounded timeout for wallet-proxy calls
func GetWalletRequestTimeout() time.Duration {
	cfg, err := GetConfig()
	if err != nil || cfg.Wallet.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Wallet.RequestTimeoutSeconds) * time.Second
}

// GetEstimateDebounce returns the size-estimation debounce window
func GetEstimateDebounce() time.Duration {
	cfg, err := GetConfig()
	if err != nil || cfg.Wallet.EstimateDebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(cfg.Wallet.EstimateDebounceMs) * time.Millisecond
}
