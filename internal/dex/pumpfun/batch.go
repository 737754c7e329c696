// =============================
// File: internal/dex/pumpfun/batch.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/types"
)

const (
	// MaxTransactionSize размер пакета Solana для сериализованной транзакции.
	MaxTransactionSize = 1232
	// MaxBundleTransactions лимит транзакций в одном бандле релея.
	MaxBundleTransactions = 5
	// DefaultGroupSize кошельков на транзакцию.
	DefaultGroupSize = 4

	signatureSize = 64
)

// Partition режет items на группы по n с сохранением порядка.
// Все группы, кроме последней, ровно n; n < 1 трактуется как 1.
func Partition[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	groups := make([][]T, 0, (len(items)+n-1)/n)
	for start := 0; start < len(items); start += n {
		end := min(start+n, len(items))
		groups = append(groups, items[start:end])
	}
	return groups
}

// Prelude инструкции, открывающие первую транзакцию (например create при запуске).
type Prelude struct {
	Instructions []solana.Instruction
	Signers      []solana.PublicKey
}

// Tip перевод чаевых релею, добавляется в конец последней транзакции.
type Tip struct {
	Account  solana.PublicKey
	Lamports uint64
}

// PlanOptions дополнительные части бандла.
type PlanOptions struct {
	Prelude *Prelude
	Tip     *Tip
}

func (o PlanOptions) tip() *Tip {
	if o.Tip == nil || o.Tip.Lamports == 0 {
		return nil
	}
	return o.Tip
}

// Planner группирует ноги в транзакции бандла.
type Planner struct {
	priority  *types.PriorityManager
	groupSize int
	logger    *zap.Logger
}

func NewPlanner(priority *types.PriorityManager, groupSize int, logger *zap.Logger) *Planner {
	if groupSize < 1 {
		groupSize = DefaultGroupSize
	}
	return &Planner{
		priority:  priority,
		groupSize: groupSize,
		logger:    logger.Named("pumpfun-planner"),
	}
}

// FeeReserve комиссия, которую кошелёк держит на случай, если станет плательщиком
// транзакции: подписи полной группы вместе с prelude и приоритетная часть.
func (p *Planner) FeeReserve() uint64 {
	signatures := uint64(p.groupSize + 2)
	return signatures*LamportsPerSignature + p.priority.Fee()
}

// PlanBatch строит по одному TxPlan на группу кошельков.
// Группы режутся по groupSize, затем по размеру пакета: транзакция, не влезающая
// в MaxTransactionSize, делится, и лишние ноги уходят в следующую транзакцию.
// Плательщик комиссии это первый кошелек группы; в последней транзакции первый,
// у кого Headroom покрывает чаевые.
func (p *Planner) PlanBatch(side types.TradeSide, mint solana.PublicKey, legs []Leg, opts PlanOptions) (types.TransactionBatch, error) {
	if len(legs) == 0 {
		return types.TransactionBatch{}, ErrNoEligibleWallets
	}

	chunks := Partition(legs, p.groupSize)
	var groups [][]Leg
	for i, chunk := range chunks {
		fitted, err := p.fit(chunk, len(groups) == 0, i == len(chunks)-1, opts)
		if err != nil {
			return types.TransactionBatch{}, err
		}
		groups = append(groups, fitted...)
	}
	if len(groups) > MaxBundleTransactions {
		return types.TransactionBatch{}, fmt.Errorf("%w: %d transactions for %d wallets, limit %d",
			ErrBundleTooLarge, len(groups), len(legs), MaxBundleTransactions)
	}

	batch := types.TransactionBatch{Side: side, Mint: mint}
	for i, group := range groups {
		payer, tip := group[0].Wallet, (*Tip)(nil)
		if i == len(groups)-1 {
			if tip = opts.tip(); tip != nil {
				var err error
				if payer, err = tipPayer(group, tip.Lamports); err != nil {
					return types.TransactionBatch{}, err
				}
			}
		}
		plan, size, err := p.plan(group, payer, i == 0, tip, opts)
		if err != nil {
			return types.TransactionBatch{}, err
		}

		p.logger.Debug("Transaction planned",
			zap.Int("index", i),
			zap.String("fee_payer", plan.FeePayer.String()),
			zap.Int("wallets", len(plan.Wallets)),
			zap.Int("instructions", len(plan.Instructions)),
			zap.Int("size", size))

		batch.Plans = append(batch.Plans, plan)
	}

	return batch, nil
}

// fit делит группу так, чтобы каждая транзакция влезала в пакет.
// Последняя группа батча проверяется вместе с переводом чаевых; на размер
// выбор плательщика не влияет, поэтому здесь это первый кошелек.
func (p *Planner) fit(group []Leg, first, last bool, opts PlanOptions) ([][]Leg, error) {
	var tip *Tip
	if last {
		tip = opts.tip()
	}
	var out [][]Leg
	for len(group) > 0 {
		n := len(group)
		for ; n > 0; n-- {
			_, size, err := p.plan(group[:n], group[0].Wallet, first && len(out) == 0, tip, opts)
			if err != nil {
				return nil, err
			}
			if size <= MaxTransactionSize {
				break
			}
		}
		if n == 0 {
			_, size, err := p.plan(group[:1], group[0].Wallet, first && len(out) == 0, tip, opts)
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: wallet %s alone needs %d bytes, limit %d",
				ErrTransactionTooLarge, group[0].Wallet, size, MaxTransactionSize)
		}
		out = append(out, group[:n])
		group = group[n:]
	}
	return out, nil
}

// plan собирает TxPlan группы и считает его размер. tip != nil только для последней транзакции.
func (p *Planner) plan(group []Leg, payer solana.PublicKey, first bool, tip *Tip, opts PlanOptions) (types.TxPlan, int, error) {
	budget, err := p.priority.Instructions()
	if err != nil {
		return types.TxPlan{}, 0, err
	}

	plan := types.TxPlan{FeePayer: payer}
	plan.Instructions = append(plan.Instructions, budget...)

	if first && opts.Prelude != nil {
		plan.Instructions = append(plan.Instructions, opts.Prelude.Instructions...)
		for _, s := range opts.Prelude.Signers {
			plan.AddSigner(s)
		}
	}

	for _, leg := range group {
		plan.Instructions = append(plan.Instructions, leg.Instructions...)
		plan.Wallets = append(plan.Wallets, leg.Wallet)
		plan.AddSigner(leg.Wallet)
	}

	if tip != nil {
		plan.Instructions = append(plan.Instructions,
			system.NewTransferInstruction(tip.Lamports, plan.FeePayer, tip.Account).Build())
	}

	size, err := EstimateSize(plan)
	if err != nil {
		return types.TxPlan{}, 0, err
	}
	return plan, size, nil
}

// tipPayer первый кошелек группы, которому хватает SOL на чаевые.
func tipPayer(group []Leg, lamports uint64) (solana.PublicKey, error) {
	for _, leg := range group {
		if leg.Headroom >= lamports {
			return leg.Wallet, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("%w: no wallet in the last transaction can pay a %d lamport tip",
		ErrInsufficientFunds, lamports)
}

// EstimateSize размер подписанной транзакции плана в байтах.
func EstimateSize(plan types.TxPlan) (int, error) {
	tx, err := solana.NewTransaction(plan.Instructions, solana.Hash{}, solana.TransactionPayer(plan.FeePayer))
	if err != nil {
		return 0, fmt.Errorf("failed to compile transaction: %w", err)
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("failed to serialize message: %w", err)
	}
	sigs := int(tx.Message.Header.NumRequiredSignatures)
	return compactU16Len(sigs) + sigs*signatureSize + len(msg), nil
}

func compactU16Len(n int) int {
	switch {
	case n < 0x80:
		return 1
	case n < 0x4000:
		return 2
	default:
		return 3
	}
}
