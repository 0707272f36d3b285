package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("LEDGER_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("ROUTER_URL", "http://localhost:9000")
	t.Setenv("PRIVATE_KEY", "abc123")
	t.Setenv("SLIPPAGE_BPS", "50")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.PollingInterval)
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount)
	assert.Equal(t, DefaultMetricsPort, cfg.MetricsPort)
	assert.Equal(t, DefaultStrategy, cfg.Strategy)
	assert.Equal(t, int64(50), cfg.SlippageBps)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.True(t, cfg.CircuitBreaker.Enabled)
}

func TestLoadConfigRequiresSlippageBound(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SLIPPAGE_BPS", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLIPPAGE_BPS")
}

func TestLoadConfigRequiresLedgerAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LEDGER_ADDRESS", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_ADDRESS")
}

func TestSlippageBpsRejectsOutOfRange(t *testing.T) {
	t.Setenv("SLIPPAGE_BPS", "10000")
	_, err := GetEnvSlippageBps()
	assert.Error(t, err)

	t.Setenv("SLIPPAGE_BPS", "-1")
	_, err = GetEnvSlippageBps()
	assert.Error(t, err)

	t.Setenv("SLIPPAGE_BPS", "9999")
	bps, err := GetEnvSlippageBps()
	require.NoError(t, err)
	assert.Equal(t, int64(9999), bps)
}

func TestPollingIntervalRejectsNonPositive(t *testing.T) {
	t.Setenv("POLLING_INTERVAL", "0")
	_, err := GetEnvPollingInterval()
	assert.Error(t, err)

	t.Setenv("POLLING_INTERVAL", "7")
	interval, err := GetEnvPollingInterval()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, interval)
}

func TestStrategyNameValidated(t *testing.T) {
	t.Setenv("STRATEGY", "arbitrage")
	_, err := GetEnvStrategy()
	assert.Error(t, err)

	t.Setenv("STRATEGY", "spread")
	name, err := GetEnvStrategy()
	require.NoError(t, err)
	assert.Equal(t, "spread", name)
}
