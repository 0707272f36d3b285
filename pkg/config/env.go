package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/intentswap-hq/solver/pkg/logger"
	"github.com/intentswap-hq/solver/pkg/strategy"
)

const (
	// DefaultPollingInterval defines the default polling interval in seconds
	DefaultPollingInterval = 5

	// DefaultWorkerCount defines the default number of workers to process intents
	DefaultWorkerCount = 5

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultStrategy defines the default solver strategy
	DefaultStrategy = strategy.NameBaseline

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker in minutes
	DefaultCircuitBreakerWindow = 5

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker in minutes
	DefaultCircuitBreakerReset = 15

	// DefaultMaxRetries defines the maximum number of retries for failed submissions
	DefaultMaxRetries = 3

	// DefaultMaxGasPrice defines the maximum gas price for transactions
	DefaultMaxGasPrice = "1000000000" // 1 Gwei

	// DefaultGasMultiplier defines the default gas price buffer (10%)
	DefaultGasMultiplier = 1.1

	// DefaultBookkeepingDB defines the default path of the audit store
	DefaultBookkeepingDB = "solver.db"

	// DefaultTxCacheSize defines the retention cap of the local tx-hash cache
	DefaultTxCacheSize = 1024
)

// GetEnvPollingInterval returns the polling interval in seconds from environment variables
func GetEnvPollingInterval() (time.Duration, error) {
	pollingInterval := os.Getenv("POLLING_INTERVAL")
	if pollingInterval == "" {
		return time.Duration(DefaultPollingInterval) * time.Second, nil
	}

	interval, err := strconv.Atoi(pollingInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid POLLING_INTERVAL value: %s, must be an integer", pollingInterval)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("POLLING_INTERVAL must be greater than 0")
	}
	return time.Duration(interval) * time.Second, nil
}

// GetEnvWorkerCount returns the number of workers from environment variables
func GetEnvWorkerCount() (int, error) {
	workerCount := os.Getenv("WORKER_COUNT")
	if workerCount == "" {
		return DefaultWorkerCount, nil
	}

	count, err := strconv.Atoi(workerCount)
	if err != nil {
		return 0, fmt.Errorf("invalid WORKER_COUNT value: %s, must be an integer", workerCount)
	}
	if count <= 0 {
		return 0, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}
	return count, nil
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	port, err := strconv.Atoi(metricsPort)
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvStrategy returns the configured solver strategy name
func GetEnvStrategy() (string, error) {
	name := os.Getenv("STRATEGY")
	if name == "" {
		return DefaultStrategy, nil
	}

	if name != strategy.NameBaseline && name != strategy.NameSpread {
		return "", fmt.Errorf("invalid STRATEGY value: %s, must be %q or %q",
			name, strategy.NameBaseline, strategy.NameSpread)
	}
	return name, nil
}

// GetEnvSlippageBps returns the slippage tolerance in basis points. There
// is no default: an unset slippage bound is rejected before any network
// call is made.
func GetEnvSlippageBps() (int64, error) {
	slippage := os.Getenv("SLIPPAGE_BPS")
	if slippage == "" {
		return 0, fmt.Errorf("SLIPPAGE_BPS environment variable is required")
	}

	bps, err := strconv.ParseInt(slippage, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid SLIPPAGE_BPS value: %s, must be an integer", slippage)
	}
	if bps < 0 || bps >= 10000 {
		return 0, fmt.Errorf("SLIPPAGE_BPS must be in [0, 10000)")
	}
	return bps, nil
}

// GetEnvMaxRetries returns the maximum retry count from environment variables
func GetEnvMaxRetries() (int, error) {
	maxRetries := os.Getenv("MAX_RETRIES")
	if maxRetries == "" {
		return DefaultMaxRetries, nil
	}

	retries, err := strconv.Atoi(maxRetries)
	if err != nil {
		return 0, fmt.Errorf("invalid MAX_RETRIES value: %s, must be an integer", maxRetries)
	}
	if retries < 0 {
		return 0, fmt.Errorf("MAX_RETRIES must not be negative")
	}
	return retries, nil
}

// GetEnvMaxGasPrice returns the maximum gas price from environment variables
func GetEnvMaxGasPrice() (*big.Int, error) {
	maxGasPrice := os.Getenv("MAX_GAS_PRICE")
	if maxGasPrice == "" {
		maxGasPrice = DefaultMaxGasPrice
	}

	price, ok := new(big.Int).SetString(maxGasPrice, 10)
	if !ok || price.Sign() <= 0 {
		return nil, fmt.Errorf("invalid MAX_GAS_PRICE value: %s", maxGasPrice)
	}
	return price, nil
}

// GetEnvGasMultiplier returns the gas price buffer multiplier
func GetEnvGasMultiplier() (float64, error) {
	multiplier := os.Getenv("GAS_MULTIPLIER")
	if multiplier == "" {
		return DefaultGasMultiplier, nil
	}

	value, err := strconv.ParseFloat(multiplier, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid GAS_MULTIPLIER value: %s", multiplier)
	}
	return value, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	value, err := strconv.ParseBool(enabled)
	if err != nil {
		return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s", enabled)
	}
	return value, nil
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker failure threshold
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	value, err := strconv.Atoi(threshold)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s", threshold)
	}
	return value, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker failure window
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	window := os.Getenv("CIRCUIT_BREAKER_WINDOW")
	if window == "" {
		return time.Duration(DefaultCircuitBreakerWindow) * time.Minute, nil
	}

	minutes, err := strconv.Atoi(window)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_WINDOW value: %s", window)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	reset := os.Getenv("CIRCUIT_BREAKER_RESET")
	if reset == "" {
		return time.Duration(DefaultCircuitBreakerReset) * time.Minute, nil
	}

	minutes, err := strconv.Atoi(reset)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_RESET value: %s", reset)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetEnvLogLevel returns the configured log level
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	switch level {
	case "":
		return logger.InfoLevel, nil
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL value: %s", level)
	}
}

// GetEnvLogColoring returns whether log coloring is enabled
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return true, nil
	}

	value, err := strconv.ParseBool(coloring)
	if err != nil {
		return false, fmt.Errorf("invalid LOG_COLORING value: %s", coloring)
	}
	return value, nil
}

// GetEnvBookkeepingDB returns the path of the local audit store
func GetEnvBookkeepingDB() string {
	path := os.Getenv("BOOKKEEPING_DB")
	if path == "" {
		return DefaultBookkeepingDB
	}
	return path
}

// GetEnvTxCacheSize returns the retention cap of the tx-hash cache
func GetEnvTxCacheSize() (int, error) {
	size := os.Getenv("TX_CACHE_SIZE")
	if size == "" {
		return DefaultTxCacheSize, nil
	}

	value, err := strconv.Atoi(size)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid TX_CACHE_SIZE value: %s", size)
	}
	return value, nil
}
