package pumpfun

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTradeAccounts(t *testing.T) (*Config, TradeAccounts) {
	t.Helper()
	cfg := newTestConfig(t)
	mint, err := cfg.DeriveMintAccounts(newKey(t))
	require.NoError(t, err)
	return cfg, NewTradeAccounts(cfg, testGlobal(newKey(t)), mint)
}

func accountKeys(ix solana.Instruction) []solana.PublicKey {
	metas := ix.Accounts()
	keys := make([]solana.PublicKey, len(metas))
	for i, m := range metas {
		keys[i] = m.PublicKey
	}
	return keys
}

func TestBuildBuyInstruction(t *testing.T) {
	_, accounts := newTestTradeAccounts(t)
	user := newKey(t)

	ix, err := BuildBuyInstruction(accounts, user, 357_547_484_172, 10_500_000)
	require.NoError(t, err)
	assert.Equal(t, accounts.Program, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, BuyDiscriminator[:], data[:8])
	assert.Equal(t, uint64(357_547_484_172), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(10_500_000), binary.LittleEndian.Uint64(data[16:24]))

	userATA, _, err := solana.FindAssociatedTokenAddress(user, accounts.Mint)
	require.NoError(t, err)

	assert.Equal(t, []solana.PublicKey{
		accounts.Global,
		accounts.FeeRecipient,
		accounts.Mint,
		accounts.BondingCurve,
		accounts.AssociatedBondingCurve,
		userATA,
		user,
		solana.SystemProgramID,
		solana.TokenProgramID,
		solana.SysVarRentPubkey,
		accounts.EventAuthority,
		accounts.Program,
	}, accountKeys(ix))

	metas := ix.Accounts()
	assert.True(t, metas[6].IsSigner)
	assert.True(t, metas[6].IsWritable)
	assert.True(t, metas[1].IsWritable)
	assert.False(t, metas[0].IsWritable)
}

func TestBuildSellInstruction(t *testing.T) {
	_, accounts := newTestTradeAccounts(t)
	user := newKey(t)

	ix, err := BuildSellInstruction(accounts, user, 1_000_000, 9_000)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, SellDiscriminator[:], data[:8])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(9_000), binary.LittleEndian.Uint64(data[16:24]))

	keys := accountKeys(ix)
	require.Len(t, keys, 12)
	assert.Equal(t, solana.SystemProgramID, keys[7])
	assert.Equal(t, solana.TokenProgramID, keys[8])
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, keys[9])
}

func TestBuildCreateInstruction(t *testing.T) {
	cfg := newTestConfig(t)
	mint, err := cfg.DeriveMintAccounts(newKey(t))
	require.NoError(t, err)
	creator := newKey(t)

	ix, err := BuildCreateInstruction(cfg, mint, creator, CreateParams{Name: "Moon", Symbol: "MN", URI: "ipfs://x"})
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	want := append([]byte{}, CreateDiscriminator[:]...)
	want = append(want, 4, 0, 0, 0, 'M', 'o', 'o', 'n')
	want = append(want, 2, 0, 0, 0, 'M', 'N')
	want = append(want, 8, 0, 0, 0, 'i', 'p', 'f', 's', ':', '/', '/', 'x')
	assert.Equal(t, want, data)

	metas := ix.Accounts()
	require.Len(t, metas, 14)
	assert.Equal(t, mint.Mint, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, creator, metas[7].PublicKey)
	assert.True(t, metas[7].IsSigner)
	assert.Equal(t, MetadataProgramID, metas[5].PublicKey)
}

func TestBuildCreateATAIdempotentInstruction(t *testing.T) {
	payer, owner, mint := newKey(t), newKey(t), newKey(t)

	ix, err := BuildCreateATAIdempotentInstruction(payer, owner, mint)
	require.NoError(t, err)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{
		payer, ata, owner, mint, solana.SystemProgramID, solana.TokenProgramID,
	}, accountKeys(ix))
}
