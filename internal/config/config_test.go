package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultRelayURL, cfg.RelayURL)
	assert.Equal(t, DefaultGroupSize, cfg.GroupSize)
	assert.Equal(t, uint64(DefaultSlippageBps), cfg.SlippageBps)
	assert.Equal(t, DefaultSubmitTimeout, cfg.SubmitTimeout)
	assert.True(t, cfg.ProjectFills)

	commitment, err := cfg.CommitmentType()
	require.NoError(t, err)
	assert.Equal(t, rpc.CommitmentConfirmed, commitment)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
rpc_url: http://127.0.0.1:8899
relay_url: https://ny.mainnet.block-engine.jito.wtf/api/v1/bundles
commitment: finalized
wallets_file: wallets.csv
group_size: 3
slippage_bps: 250
tip_lamports: 10000
retry_max_attempts: 5
retry_initial_interval: 200ms
retry_max_interval: 2s
retry_multiplier: 1.5
wait_for_inclusion: true
inclusion_timeout: 45s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8899", cfg.RPCURL)
	assert.Equal(t, 3, cfg.GroupSize)
	assert.Equal(t, uint64(250), cfg.SlippageBps)
	assert.Equal(t, uint64(10_000), cfg.TipLamports)
	assert.Equal(t, uint(5), cfg.RetryMaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryInitialInterval)
	assert.Equal(t, 2*time.Second, cfg.RetryMaxInterval)
	assert.InDelta(t, 1.5, cfg.RetryMultiplier, 1e-9)
	assert.True(t, cfg.WaitForInclusion)
	assert.Equal(t, 45*time.Second, cfg.InclusionTimeout)
	// значения, которых нет в файле, берутся из defaults
	assert.Equal(t, DefaultLookupConcurrency, cfg.LookupConcurrency)

	commitment, err := cfg.CommitmentType()
	require.NoError(t, err)
	assert.Equal(t, rpc.CommitmentFinalized, commitment)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "group_size: 3\nslippage_bps: 250\n")
	t.Setenv("PUMPBUNDLE_GROUP_SIZE", "5")
	t.Setenv("PUMPBUNDLE_RELAY_AUTH", "3f1c9a2e-7b1d-4c55-9f0e-2a8b6d4e1c77")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.GroupSize)
	assert.Equal(t, uint64(250), cfg.SlippageBps)
	assert.Equal(t, "3f1c9a2e-7b1d-4c55-9f0e-2a8b6d4e1c77", cfg.RelayAuth)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad rpc scheme", content: "rpc_url: ftp://node\n"},
		{name: "bad commitment", content: "commitment: eventually\n"},
		{name: "zero group", content: "group_size: 0\n"},
		{name: "slippage over 100%", content: "slippage_bps: 10001\n"},
		{name: "bad tip account", content: "tip_account: not-a-key\n"},
		{name: "bad priority", content: "priority_level: ludicrous\n"},
		{name: "multiplier below one", content: "retry_multiplier: 0.5\n"},
		{name: "wait without timeout", content: "wait_for_inclusion: true\ninclusion_timeout: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
