package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/intentswap-hq/solver/pkg/logger"
)

// Config holds the configuration for the solver service
type Config struct {
	RPCURL          string
	LedgerAddress   string
	RouterURL       string
	PrivateKey      string
	PollingInterval time.Duration
	WorkerCount     int
	MetricsPort     string
	Strategy        string
	SlippageBps     int64
	MaxRetries      int
	MaxGasPrice     *big.Int
	GasMultiplier   float64
	CircuitBreaker  CircuitBreakerConfig
	LoggerConfig    LoggerConfig
	BookkeepingDB   string
	TxCacheSize     int
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	pollingInterval, err := GetEnvPollingInterval()
	if err != nil {
		return nil, err
	}

	workerCount, err := GetEnvWorkerCount()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	strategyName, err := GetEnvStrategy()
	if err != nil {
		return nil, err
	}

	slippageBps, err := GetEnvSlippageBps()
	if err != nil {
		return nil, err
	}

	maxRetries, err := GetEnvMaxRetries()
	if err != nil {
		return nil, err
	}

	maxGasPrice, err := GetEnvMaxGasPrice()
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	txCacheSize, err := GetEnvTxCacheSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCURL:          os.Getenv("RPC_URL"),
		LedgerAddress:   os.Getenv("LEDGER_ADDRESS"),
		RouterURL:       os.Getenv("ROUTER_URL"),
		PrivateKey:      os.Getenv("PRIVATE_KEY"),
		PollingInterval: pollingInterval,
		WorkerCount:     workerCount,
		MetricsPort:     metricsPort,
		Strategy:        strategyName,
		SlippageBps:     slippageBps,
		MaxRetries:      maxRetries,
		MaxGasPrice:     maxGasPrice,
		GasMultiplier:   gasMultiplier,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
		BookkeepingDB: GetEnvBookkeepingDB(),
		TxCacheSize:   txCacheSize,
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration. Missing required settings are
// rejected here, before any network call is made.
func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("RPC_URL environment variable is required")
	}
	if cfg.LedgerAddress == "" {
		return fmt.Errorf("LEDGER_ADDRESS environment variable is required")
	}
	if cfg.RouterURL == "" {
		return fmt.Errorf("ROUTER_URL environment variable is required")
	}
	if cfg.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	if cfg.SlippageBps < 0 {
		return fmt.Errorf("SLIPPAGE_BPS must not be negative")
	}
	return nil
}
