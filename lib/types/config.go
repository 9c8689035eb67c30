// Configuration types
package types

// Config represents the complete application configuration
type Config struct {
	Server           ServerConfig           `mapstructure:"server"`
	Network          string                 `mapstructure:"network"`
	ExternalServices ExternalServicesConfig `mapstructure:"external_services"`
	Wallet           WalletClientConfig     `mapstructure:"wallet"`
	Logging          LoggingConfig          `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	BindAddress string `mapstructure:"bind_address"`
	Demo        bool   `mapstructure:"demo"`
	DataPath    string `mapstructure:"data_path"`
}

// ExternalServicesConfig holds external service configurations
type ExternalServicesConfig struct {
	Wallet WalletServiceConfig `mapstructure:"wallet"`
}

// WalletServiceConfig holds the wallet-proxy service configuration
type WalletServiceConfig struct {
	URL  string `mapstructure:"url"`
	Key  string `mapstructure:"key"`
	Name string `mapstructure:"name"`
}

// WalletClientConfig holds the send-pipeline client configuration
type WalletClientConfig struct {
	// Nsec is the bech32 private key used to sign the wallet login challenge.
	Nsec string `mapstructure:"nsec"`
	// TokenStore is the path of the bbolt file holding the session token.
	TokenStore string `mapstructure:"token_store"`
	// RequestTimeoutSeconds bounds every wallet-proxy call.
	RequestTimeoutSeconds int `mapstructure:"request_timeout"`
	// EstimateDebounceMs is the size-estimation debounce window.
	EstimateDebounceMs int `mapstructure:"estimate_debounce_ms"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	Path   string `mapstructure:"path"`
}
