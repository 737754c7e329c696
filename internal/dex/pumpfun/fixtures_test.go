package pumpfun

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Начальные параметры запуска Pump.fun
const (
	launchVirtualTokens uint64 = 1_073_000_000_000_000
	launchVirtualSol    uint64 = 30_000_000_000
	launchRealTokens    uint64 = 793_100_000_000_000
	launchSupply        uint64 = 1_000_000_000_000_000
	launchFeeBps        uint64 = 100
)

// fakeChain отвечает на запросы ChainReader и AccountLookup из карт.
// Карты заполняются до вызова, поэтому параллельное чтение безопасно.
type fakeChain struct {
	accounts   map[solana.PublicKey][]byte
	balances   map[solana.PublicKey]uint64
	tokenAccts map[solana.PublicKey]bool
	balanceErr error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts:   make(map[solana.PublicKey][]byte),
		balances:   make(map[solana.PublicKey]uint64),
		tokenAccts: make(map[solana.PublicKey]bool),
	}
}

func (f *fakeChain) GetAccountData(_ context.Context, address solana.PublicKey, _ rpc.CommitmentType) ([]byte, error) {
	return f.accounts[address], nil
}

func (f *fakeChain) GetBalance(_ context.Context, address solana.PublicKey, _ rpc.CommitmentType) (uint64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balances[address], nil
}

func (f *fakeChain) AccountExists(_ context.Context, owner, _ solana.PublicKey) (bool, error) {
	return f.tokenAccts[owner], nil
}

var errNodeDown = errors.New("node unavailable")

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Setup(zap.NewNop()))
	return cfg
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func newKeys(t *testing.T, n int) []solana.PublicKey {
	t.Helper()
	keys := make([]solana.PublicKey, n)
	for i := range keys {
		keys[i] = newKey(t)
	}
	return keys
}

func testGlobal(feeRecipient solana.PublicKey) GlobalConfig {
	return GlobalConfig{
		Initialized:                 true,
		FeeRecipient:                feeRecipient,
		InitialVirtualTokenReserves: launchVirtualTokens,
		InitialVirtualSolReserves:   launchVirtualSol,
		InitialRealTokenReserves:    launchRealTokens,
		TokenTotalSupply:            launchSupply,
		FeeBasisPoints:              launchFeeBps,
	}
}

func testCurve() BondingCurveState {
	return BondingCurveState{
		VirtualTokenReserves: launchVirtualTokens,
		VirtualSolReserves:   launchVirtualSol,
		RealTokenReserves:    launchRealTokens,
		TokenTotalSupply:     launchSupply,
	}
}

// seedMint кладёт Global и кривую минта в фейковую сеть.
func seedMint(t *testing.T, chain *fakeChain, cfg *Config, mint solana.PublicKey, curve BondingCurveState) GlobalConfig {
	t.Helper()
	global := testGlobal(newKey(t))

	globalData, err := EncodeGlobalConfig(global)
	require.NoError(t, err)
	chain.accounts[cfg.Global] = globalData

	accounts, err := cfg.DeriveMintAccounts(mint)
	require.NoError(t, err)
	curveData, err := EncodeBondingCurve(curve)
	require.NoError(t, err)
	chain.accounts[accounts.BondingCurve] = curveData

	return global
}
