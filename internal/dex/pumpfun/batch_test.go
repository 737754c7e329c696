package pumpfun

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpbundle/internal/types"
)

func TestPartition(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	groups := Partition(items, 4)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{1, 2, 3, 4}, groups[0])
	assert.Equal(t, []int{5, 6, 7, 8}, groups[1])
	assert.Equal(t, []int{9, 10}, groups[2])

	// конкатенация групп восстанавливает вход
	for _, n := range []int{1, 3, 4, 7, 10, 25} {
		var flat []int
		groups := Partition(items, n)
		for i, g := range groups {
			if i < len(groups)-1 {
				assert.Len(t, g, n)
			}
			assert.NotEmpty(t, g)
			flat = append(flat, g...)
		}
		assert.Equal(t, items, flat, "n=%d", n)
	}

	empty := Partition([]int{}, 4)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	assert.Len(t, Partition(items, 0), len(items))
}

var computeBudgetProgram = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

func newTestPlanner(t *testing.T, groupSize int) *Planner {
	t.Helper()
	logger := zaptest.NewLogger(t)
	priority := types.NewPriorityManager(types.PriorityCustom,
		types.PriorityConfig{ComputeUnits: 200_000, PriorityFee: 10_000}, logger)
	return NewPlanner(priority, groupSize, logger)
}

// buyLegs ноги только с инструкцией buy, без создания ATA.
func buyLegs(t *testing.T, accounts TradeAccounts, n int) []Leg {
	t.Helper()
	legs := make([]Leg, n)
	for i := range legs {
		wallet := newKey(t)
		ix, err := BuildBuyInstruction(accounts, wallet, 1_000, 1_000)
		require.NoError(t, err)
		legs[i] = Leg{Wallet: wallet, Instructions: []solana.Instruction{ix}, Headroom: 1_000_000_000}
	}
	return legs
}

func TestPlanBatch(t *testing.T) {
	_, accounts := newTestTradeAccounts(t)
	legs := buyLegs(t, accounts, 10)
	tipAccount := newKey(t)

	batch, err := newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, legs, PlanOptions{
		Tip: &Tip{Account: tipAccount, Lamports: 100_000},
	})
	require.NoError(t, err)
	require.Len(t, batch.Plans, 3)
	assert.Equal(t, types.SideBuy, batch.Side)
	assert.Equal(t, accounts.Mint, batch.Mint)

	wantSizes := []int{4, 4, 2}
	for i, plan := range batch.Plans {
		assert.Len(t, plan.Wallets, wantSizes[i])
		assert.Equal(t, plan.Wallets[0], plan.FeePayer)
		assert.Equal(t, plan.Wallets, plan.Signers)

		// compute budget открывает каждую транзакцию
		require.GreaterOrEqual(t, len(plan.Instructions), 2)
		assert.Equal(t, computeBudgetProgram, plan.Instructions[0].ProgramID())
		assert.Equal(t, computeBudgetProgram, plan.Instructions[1].ProgramID())

		size, err := EstimateSize(plan)
		require.NoError(t, err)
		assert.LessOrEqual(t, size, MaxTransactionSize)
	}

	wallets := batch.Wallets()
	require.Len(t, wallets, len(legs))
	for i, leg := range legs {
		assert.Equal(t, leg.Wallet, wallets[i])
	}

	// чаевые только в последней транзакции, от её плательщика
	last := batch.Plans[2]
	tip := last.Instructions[len(last.Instructions)-1]
	assert.Equal(t, solana.SystemProgramID, tip.ProgramID())
	metas := tip.Accounts()
	assert.Equal(t, last.FeePayer, metas[0].PublicKey)
	assert.Equal(t, tipAccount, metas[1].PublicKey)
	for _, plan := range batch.Plans[:2] {
		for _, ix := range plan.Instructions {
			assert.NotEqual(t, solana.SystemProgramID, ix.ProgramID())
		}
	}
}

func TestPlanBatchPrelude(t *testing.T) {
	_, accounts := newTestTradeAccounts(t)
	legs := buyLegs(t, accounts, 3)
	creator := newKey(t)
	prelude := system.NewTransferInstruction(1, creator, newKey(t)).Build()

	batch, err := newTestPlanner(t, 2).PlanBatch(types.SideBuy, accounts.Mint, legs, PlanOptions{
		Prelude: &Prelude{Instructions: []solana.Instruction{prelude}, Signers: []solana.PublicKey{creator}},
	})
	require.NoError(t, err)
	require.Len(t, batch.Plans, 2)

	first := batch.Plans[0]
	assert.Equal(t, prelude, first.Instructions[2])
	assert.Equal(t, []solana.PublicKey{creator, legs[0].Wallet, legs[1].Wallet}, first.Signers)
	assert.Equal(t, legs[0].Wallet, first.FeePayer)
	assert.Equal(t, []solana.PublicKey{legs[2].Wallet}, batch.Plans[1].Signers)
}

func TestPlanBatchLimits(t *testing.T) {
	_, accounts := newTestTradeAccounts(t)

	_, err := newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, buyLegs(t, accounts, 21), PlanOptions{})
	assert.ErrorIs(t, err, ErrBundleTooLarge)

	huge := Leg{
		Wallet:       newKey(t),
		Instructions: []solana.Instruction{solana.NewInstruction(newKey(t), solana.AccountMetaSlice{}, make([]byte, MaxTransactionSize))},
	}
	_, err = newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, []Leg{huge}, PlanOptions{})
	assert.ErrorIs(t, err, ErrTransactionTooLarge)

	_, err = newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, nil, PlanOptions{})
	assert.ErrorIs(t, err, ErrNoEligibleWallets)

	// 20 кошельков по 4 ровно в пять транзакций
	batch, err := newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, buyLegs(t, accounts, 20), PlanOptions{})
	require.NoError(t, err)
	assert.Len(t, batch.Plans, MaxBundleTransactions)
}

func TestPlanBatchSplitsOversizedGroups(t *testing.T) {
	_, accounts := newTestTradeAccounts(t)

	// 12 ног в одну транзакцию не влезают, лишние уходят в следующие
	legs := buyLegs(t, accounts, 12)
	batch, err := newTestPlanner(t, 12).PlanBatch(types.SideBuy, accounts.Mint, legs, PlanOptions{})
	require.NoError(t, err)
	assert.Greater(t, len(batch.Plans), 1)
	assertPlansFit(t, batch)
	assert.Equal(t, walletsOf(legs), batch.Wallets())

	// prelude занимает место в первой транзакции
	creator := newKey(t)
	prelude := solana.NewInstruction(newKey(t), solana.AccountMetaSlice{solana.Meta(creator).SIGNER().WRITE()}, make([]byte, 300))
	legs = buyLegs(t, accounts, 8)
	batch, err = newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, legs, PlanOptions{
		Prelude: &Prelude{Instructions: []solana.Instruction{prelude}, Signers: []solana.PublicKey{creator}},
		Tip:     &Tip{Account: newKey(t), Lamports: 100_000},
	})
	require.NoError(t, err)
	assertPlansFit(t, batch)
	assert.Equal(t, walletsOf(legs), batch.Wallets())

	first := batch.Plans[0]
	assert.Contains(t, first.Instructions, prelude)
	assert.Contains(t, first.Signers, creator)
	assert.Less(t, len(first.Wallets), 4)
	for _, plan := range batch.Plans[1:] {
		assert.NotContains(t, plan.Signers, creator)
	}
}

func TestPlanBatchTipPayer(t *testing.T) {
	_, accounts := newTestTradeAccounts(t)
	tip := &Tip{Account: newKey(t), Lamports: 100_000}

	legs := buyLegs(t, accounts, 3)
	legs[0].Headroom = 0
	legs[1].Headroom = tip.Lamports - 1
	batch, err := newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, legs, PlanOptions{Tip: tip})
	require.NoError(t, err)
	require.Len(t, batch.Plans, 1)
	plan := batch.Plans[0]
	assert.Equal(t, legs[2].Wallet, plan.FeePayer)
	transfer := plan.Instructions[len(plan.Instructions)-1]
	assert.Equal(t, legs[2].Wallet, transfer.Accounts()[0].PublicKey)

	// без чаевых плательщик остаётся первым кошельком
	batch, err = newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, legs, PlanOptions{})
	require.NoError(t, err)
	assert.Equal(t, legs[0].Wallet, batch.Plans[0].FeePayer)

	legs[2].Headroom = 0
	_, err = newTestPlanner(t, 4).PlanBatch(types.SideBuy, accounts.Mint, legs, PlanOptions{Tip: tip})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestPlannerFeeReserve(t *testing.T) {
	// 6 подписей и 200k CU по 10k micro-lamports
	assert.Equal(t, uint64(6*LamportsPerSignature+2_000), newTestPlanner(t, 4).FeeReserve())
}

func assertPlansFit(t *testing.T, batch types.TransactionBatch) {
	t.Helper()
	assert.LessOrEqual(t, len(batch.Plans), MaxBundleTransactions)
	for i, plan := range batch.Plans {
		size, err := EstimateSize(plan)
		require.NoError(t, err)
		assert.LessOrEqual(t, size, MaxTransactionSize, "plan %d", i)
		assert.NotEmpty(t, plan.Wallets)
	}
}

func walletsOf(legs []Leg) []solana.PublicKey {
	out := make([]solana.PublicKey, len(legs))
	for i, leg := range legs {
		out[i] = leg.Wallet
	}
	return out
}
