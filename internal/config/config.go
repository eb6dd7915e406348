package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// DefaultWalletSeed is the placeholder seed shipped in config examples.
// Running with it derives predictable deposit addresses, so the security
// validator reports a warning whenever it is still in use.
const DefaultWalletSeed = "jarvis-dev-seed"

// Config holds all configuration for the settlement service
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Blockchain   BlockchainConfig
	Wallet       WalletConfig
	Settlement   SettlementConfig
	Notification NotificationConfig
	Logging      LoggingConfig
	AWS          AWSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// BlockchainConfig holds blockchain configuration
type BlockchainConfig struct {
	BSC BSCConfig
}

// BSCConfig holds BSC chain node and token configuration
type BSCConfig struct {
	RpcURL        string
	ChainID       int64
	TokenContract string
	TokenDecimals int
}

// WalletConfig holds custody and derivation configuration.
// CustodyPrivateKey is resolved once at startup (env, encrypted env blob, or
// AWS Secrets Manager) and never reloaded.
type WalletConfig struct {
	CustodyPrivateKey string
	AdminWallet       string
	FeeWallet         string
	Seed              string
	Salt              string
	Passphrase        string
}

// SettlementConfig holds withdrawal settlement configuration
type SettlementConfig struct {
	AdminToken    string
	ChainTimeout  time.Duration
	StuckAfter    time.Duration
	EnableSweeper bool
}

// NotificationConfig holds notification configuration
type NotificationConfig struct {
	Telegram TelegramConfig
}

// TelegramConfig holds Telegram specific configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Dir    string
}

// AWSConfig holds AWS configuration for the custody key secret
type AWSConfig struct {
	SecretID string
	KeyAlias string
}

// LoadConfig loads configuration from YAML file or environment variables
func LoadConfig() *Config {
	if config, err := LoadConfigFromYAML(); err == nil {
		return config
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromYAML loads configuration from a YAML file under ./configs
func LoadConfigFromYAML() (*Config, error) {
	viper.SetConfigName("config.dev")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideWithEnvVars(&config)

	return &config, nil
}

// overrideWithEnvVars overrides secret-bearing values with environment
// variables when present, so the YAML file never has to carry them.
func overrideWithEnvVars(config *Config) {
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if pk := os.Getenv("CUSTODY_PRIVATE_KEY"); pk != "" {
		config.Wallet.CustodyPrivateKey = pk
	}
	if seed := os.Getenv("WALLET_SEED"); seed != "" {
		config.Wallet.Seed = seed
	}
	if salt := os.Getenv("WALLET_SALT"); salt != "" {
		config.Wallet.Salt = salt
	}
	if pass := os.Getenv("CRYPTO_PASSPHRASE"); pass != "" {
		config.Wallet.Passphrase = pass
	}
	if token := os.Getenv("ADMIN_API_TOKEN"); token != "" {
		config.Settlement.AdminToken = token
	}
}

// LoadConfigFromEnv loads configuration from environment variables
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_URL", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Database: getEnv("DB_DATABASE", "jarvis_settlement"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Blockchain: BlockchainConfig{
			BSC: BSCConfig{
				RpcURL:        getEnv("BSC_RPC_URL", ""),
				ChainID:       int64(getEnvAsInt("BSC_CHAIN_ID", 56)),
				TokenContract: getEnv("USDT_CONTRACT_ADDRESS", ""),
				TokenDecimals: getEnvAsInt("USDT_DECIMALS", 18),
			},
		},
		Wallet: WalletConfig{
			CustodyPrivateKey: getEnv("CUSTODY_PRIVATE_KEY", ""),
			AdminWallet:       getEnv("ADMIN_WALLET_ADDRESS", ""),
			FeeWallet:         getEnv("FEE_WALLET_ADDRESS", ""),
			Seed:              getEnv("WALLET_SEED", ""),
			Salt:              getEnv("WALLET_SALT", ""),
			Passphrase:        getEnv("CRYPTO_PASSPHRASE", ""),
		},
		Settlement: SettlementConfig{
			AdminToken:    getEnv("ADMIN_API_TOKEN", ""),
			ChainTimeout:  getEnvAsDuration("CHAIN_TIMEOUT", 60*time.Second),
			StuckAfter:    getEnvAsDuration("SETTLEMENT_STUCK_AFTER", 5*time.Minute),
			EnableSweeper: getEnv("SETTLEMENT_ENABLE_SWEEPER", "true") == "true",
		},
		Notification: NotificationConfig{
			Telegram: TelegramConfig{
				BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
				ChatID:   getEnv("TELEGRAM_BOT_MESSAGE_GROUP", ""),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			Dir:    getEnv("LOG_DIR", "./logs"),
		},
		AWS: AWSConfig{
			SecretID: getEnv("SECRETID", ""),
			KeyAlias: getEnv("KEYALIAS", ""),
		},
	}
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
