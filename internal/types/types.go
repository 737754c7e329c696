// internal/types/types.go
package types

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// TradeSide направление сделки.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// ParseTradeSide разбирает строковое представление направления.
func ParseTradeSide(s string) (TradeSide, error) {
	switch TradeSide(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", s)
	}
}

// TradeQuote результат расчёта сделки против снимка кривой.
// Для покупки InputAmount в лампортах, OutputAmount в токенах, LimitAmount это maxSolCost.
// Для продажи InputAmount в токенах, OutputAmount в лампортах, LimitAmount это minSolOutput.
type TradeQuote struct {
	Side         TradeSide
	InputAmount  uint64
	OutputAmount uint64
	LimitAmount  uint64
}

// TxPlan неподписанный скелет одной транзакции бандла.
// Blockhash привязывается только при отправке.
type TxPlan struct {
	FeePayer     solana.PublicKey
	Instructions []solana.Instruction
	Signers      []solana.PublicKey
	Wallets      []solana.PublicKey
}

// AddSigner добавляет подписанта, если его ещё нет в плане.
func (p *TxPlan) AddSigner(key solana.PublicKey) {
	for _, s := range p.Signers {
		if s.Equals(key) {
			return
		}
	}
	p.Signers = append(p.Signers, key)
}

// SkippedWallet кошелёк, исключённый из батча при сборке.
type SkippedWallet struct {
	Wallet solana.PublicKey
	Reason string
}

// TransactionBatch упорядоченный набор планов, по одному на группу кошельков.
type TransactionBatch struct {
	Side    TradeSide
	Mint    solana.PublicKey
	Plans   []TxPlan
	Skipped []SkippedWallet
}

// Wallets возвращает все кошельки, покрытые батчем, в порядке планов.
func (b TransactionBatch) Wallets() []solana.PublicKey {
	var out []solana.PublicKey
	for _, p := range b.Plans {
		out = append(out, p.Wallets...)
	}
	return out
}

// BundleResult итог отправки бандла.
type BundleResult struct {
	Success     bool
	BundleID    string
	Signatures  []string
	Attempts    int
	ErrorDetail string
}
