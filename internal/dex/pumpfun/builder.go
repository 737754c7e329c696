// =============================
// File: internal/dex/pumpfun/builder.go
// =============================
package pumpfun

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpbundle/internal/types"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/metrics"
)

// Order сделка одного кошелька. Amount в лампортах для покупки и в токенах для продажи.
type Order struct {
	Wallet solana.PublicKey
	Amount uint64
}

// OrdersFor одна и та же сумма для каждого кошелька.
func OrdersFor(wallets []solana.PublicKey, amount uint64) []Order {
	orders := make([]Order, len(wallets))
	for i, w := range wallets {
		orders[i] = Order{Wallet: w, Amount: amount}
	}
	return orders
}

// Leg инструкции одного кошелька: опциональное создание ATA и сама сделка.
type Leg struct {
	Wallet       solana.PublicKey
	Instructions []solana.Instruction
	Quote        types.TradeQuote
	// Headroom SOL кошелька сверх всего, что он тратит во всех своих ногах батча.
	Headroom uint64
}

// BuildRequest параметры сборки ног батча.
type BuildRequest struct {
	Side        types.TradeSide
	Mint        solana.PublicKey
	Orders      []Order
	SlippageBps uint64

	// FeeReserve лампорты на комиссию транзакции, которые каждая нога держит на
	// случай, если её кошелёк станет плательщиком группы.
	FeeReserve uint64
	// Reserves дополнительные расходы отдельных кошельков, например рента create у создателя.
	Reserves map[solana.PublicKey]uint64

	// Global и Curve подставляются вместо чтения из сети (запуск нового токена).
	Global *GlobalConfig
	Curve  *BondingCurveState
}

// BuildResult ноги в порядке входа, пропущенные кошельки и кривая после всех ног.
type BuildResult struct {
	Legs     []Leg
	Skipped  []types.SkippedWallet
	Accounts TradeAccounts
	Curve    BondingCurveState
}

// Builder собирает инструкции сделок для списка кошельков.
type Builder struct {
	cfg     *Config
	reader  ChainReader
	lookup  AccountLookup
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewBuilder creates a builder. collector may be nil.
func NewBuilder(cfg *Config, reader ChainReader, lookup AccountLookup, collector *metrics.Collector, logger *zap.Logger) *Builder {
	return &Builder{
		cfg:     cfg,
		reader:  reader,
		lookup:  lookup,
		metrics: collector,
		logger:  logger.Named("pumpfun-builder"),
	}
}

// errNoTokenAccount продавец без ATA для минта.
var errNoTokenAccount = errors.New("no token account for mint")

type walletState struct {
	ataExists bool
	balance   uint64
}

// Build проверяет кошельки и возвращает ноги в исходном порядке.
// Кошельки без средств на ренту ATA, сделку и комиссии пропускаются, это не ошибка.
// Повторный ордер того же кошелька сохраняется: общий только ATA, и баланс
// сверяется с суммой всех его ног.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return BuildResult{}, fmt.Errorf("unknown trade side %q", req.Side)
	}
	if req.SlippageBps > types.BasisPointsDenominator {
		return BuildResult{}, fmt.Errorf("%w: %d", ErrInvalidSlippage, req.SlippageBps)
	}
	for _, order := range req.Orders {
		if order.Amount == 0 {
			return BuildResult{}, fmt.Errorf("%w: wallet %s", ErrInvalidAmount, order.Wallet)
		}
	}

	mintAccounts, err := b.cfg.DeriveMintAccounts(req.Mint)
	if err != nil {
		return BuildResult{}, err
	}

	global, err := b.global(ctx, req)
	if err != nil {
		return BuildResult{}, err
	}
	curve, err := b.curve(ctx, req, mintAccounts)
	if err != nil {
		return BuildResult{}, err
	}
	if curve.Complete {
		return BuildResult{}, fmt.Errorf("mint %s: %w", req.Mint, ErrCurveComplete)
	}

	states, err := b.lookupWallets(ctx, req)
	if err != nil {
		return BuildResult{}, err
	}

	result := BuildResult{
		Accounts: NewTradeAccounts(b.cfg, global, mintAccounts),
		Curve:    curve,
	}
	batch := newBatchLedger()

	for i, order := range req.Orders {
		batch.observe(order.Wallet, states[i].balance)
		spent := batch.spent(order.Wallet, req.Reserves[order.Wallet])

		leg, cost, next, err := b.buildLeg(req, order, states[i], spent, batch, result.Accounts, result.Curve, global)
		switch {
		case errors.Is(err, ErrInsufficientFunds):
			b.skip(&result, order.Wallet, "insufficient_funds", err.Error())
			continue
		case errors.Is(err, errNoTokenAccount):
			b.skip(&result, order.Wallet, "no_token_account", err.Error())
			continue
		}
		if err != nil {
			return BuildResult{}, fmt.Errorf("wallet %s: %w", order.Wallet, err)
		}

		batch.commit(order.Wallet, spent+cost)
		result.Legs = append(result.Legs, leg)
		if b.cfg.ProjectFills {
			result.Curve = next
		}
	}

	if len(result.Legs) == 0 {
		return result, fmt.Errorf("%w: %d wallets checked", ErrNoEligibleWallets, len(req.Orders))
	}
	for i := range result.Legs {
		result.Legs[i].Headroom = batch.headroom(result.Legs[i].Wallet)
	}

	b.logger.Info("Trade legs prepared",
		zap.String("side", string(req.Side)),
		zap.String("mint", req.Mint.String()),
		zap.Int("legs", len(result.Legs)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

// batchLedger расходы кошельков и ATA, уже запланированные в батче.
type batchLedger struct {
	balances  map[solana.PublicKey]uint64
	committed map[solana.PublicKey]uint64
	atas      map[solana.PublicKey]struct{}
}

func newBatchLedger() *batchLedger {
	return &batchLedger{
		balances:  make(map[solana.PublicKey]uint64),
		committed: make(map[solana.PublicKey]uint64),
		atas:      make(map[solana.PublicKey]struct{}),
	}
}

// observe запоминает первый полученный баланс кошелька.
func (l *batchLedger) observe(wallet solana.PublicKey, balance uint64) {
	if _, ok := l.balances[wallet]; !ok {
		l.balances[wallet] = balance
	}
}

// spent уже потраченное кошельком; reserve учитывается один раз, с первой ногой.
func (l *batchLedger) spent(wallet solana.PublicKey, reserve uint64) uint64 {
	if total, ok := l.committed[wallet]; ok {
		return total
	}
	return reserve
}

func (l *batchLedger) commit(wallet solana.PublicKey, total uint64) {
	l.committed[wallet] = total
}

func (l *batchLedger) headroom(wallet solana.PublicKey) uint64 {
	balance, total := l.balances[wallet], l.committed[wallet]
	if total >= balance {
		return 0
	}
	return balance - total
}

func (b *Builder) buildLeg(
	req BuildRequest,
	order Order,
	state walletState,
	spent uint64,
	batch *batchLedger,
	accounts TradeAccounts,
	curve BondingCurveState,
	global GlobalConfig,
) (Leg, uint64, BondingCurveState, error) {
	leg := Leg{Wallet: order.Wallet}

	switch req.Side {
	case types.SideBuy:
		ata, _, err := solana.FindAssociatedTokenAddress(order.Wallet, req.Mint)
		if err != nil {
			return Leg{}, 0, curve, err
		}
		_, pending := batch.atas[ata]
		createATA := !state.ataExists && !pending

		cost := order.Amount + req.FeeReserve
		if createATA {
			cost += b.cfg.RentExemptReserve
		}
		if cost < order.Amount {
			return Leg{}, 0, curve, fmt.Errorf("%w: required amount overflows", ErrInsufficientFunds)
		}
		if err := checkFunds(state.balance, spent, cost); err != nil {
			return Leg{}, 0, curve, err
		}

		tokensOut, err := QuoteBuy(curve, order.Amount)
		if err != nil {
			return Leg{}, 0, curve, err
		}
		maxSolCost, err := types.CalcBuyLimit(order.Amount, req.SlippageBps)
		if err != nil {
			return Leg{}, 0, curve, err
		}

		if createATA {
			ix, err := BuildCreateATAIdempotentInstruction(order.Wallet, order.Wallet, req.Mint)
			if err != nil {
				return Leg{}, 0, curve, err
			}
			leg.Instructions = append(leg.Instructions, ix)
		}
		ix, err := BuildBuyInstruction(accounts, order.Wallet, tokensOut, maxSolCost)
		if err != nil {
			return Leg{}, 0, curve, err
		}
		leg.Instructions = append(leg.Instructions, ix)
		leg.Quote = types.TradeQuote{
			Side:         types.SideBuy,
			InputAmount:  order.Amount,
			OutputAmount: tokensOut,
			LimitAmount:  maxSolCost,
		}
		if createATA {
			batch.atas[ata] = struct{}{}
		}
		return leg, cost, curve.AfterBuy(order.Amount, tokensOut), nil

	default:
		if !state.ataExists {
			return Leg{}, 0, curve, errNoTokenAccount
		}
		if err := checkFunds(state.balance, spent, req.FeeReserve); err != nil {
			return Leg{}, 0, curve, err
		}

		gross, fee, err := sellBreakdown(curve, order.Amount, global.FeeBasisPoints)
		if err != nil {
			return Leg{}, 0, curve, err
		}
		minSolOutput, err := types.CalcSellLimit(gross-fee, req.SlippageBps)
		if err != nil {
			return Leg{}, 0, curve, err
		}
		ix, err := BuildSellInstruction(accounts, order.Wallet, order.Amount, minSolOutput)
		if err != nil {
			return Leg{}, 0, curve, err
		}
		leg.Instructions = append(leg.Instructions, ix)
		leg.Quote = types.TradeQuote{
			Side:         types.SideSell,
			InputAmount:  order.Amount,
			OutputAmount: gross - fee,
			LimitAmount:  minSolOutput,
		}
		return leg, req.FeeReserve, curve.AfterSell(order.Amount, gross), nil
	}
}

// checkFunds баланс должен покрыть уже запланированное и новую ногу.
func checkFunds(balance, spent, cost uint64) error {
	need := spent + cost
	if need < spent {
		return fmt.Errorf("%w: required amount overflows", ErrInsufficientFunds)
	}
	if balance < need {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, balance, need)
	}
	return nil
}

// lookupWallets опрашивает ATA и балансы параллельно, результаты кладутся по индексу.
func (b *Builder) lookupWallets(ctx context.Context, req BuildRequest) ([]walletState, error) {
	states := make([]walletState, len(req.Orders))

	limit := b.cfg.LookupConcurrency
	if limit <= 0 {
		limit = DefaultLookupConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, order := range req.Orders {
		g.Go(func() error {
			exists, err := b.lookup.AccountExists(gctx, order.Wallet, req.Mint)
			if err != nil {
				return fmt.Errorf("token account lookup for %s: %w", order.Wallet, err)
			}
			states[i].ataExists = exists

			balance, err := b.reader.GetBalance(gctx, order.Wallet, b.cfg.Commitment)
			if err != nil {
				return fmt.Errorf("balance lookup for %s: %w", order.Wallet, err)
			}
			states[i].balance = balance
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

func (b *Builder) global(ctx context.Context, req BuildRequest) (GlobalConfig, error) {
	if req.Global != nil {
		return *req.Global, nil
	}
	return FetchGlobalConfig(ctx, b.reader, b.cfg)
}

func (b *Builder) curve(ctx context.Context, req BuildRequest, accounts MintAccounts) (BondingCurveState, error) {
	if req.Curve != nil {
		return *req.Curve, nil
	}
	return FetchBondingCurve(ctx, b.reader, b.cfg, accounts)
}

func (b *Builder) skip(result *BuildResult, wallet solana.PublicKey, code, detail string) {
	b.logger.Warn("Wallet skipped",
		zap.String("wallet", wallet.String()),
		zap.String("reason", code),
		zap.String("detail", detail))
	result.Skipped = append(result.Skipped, types.SkippedWallet{Wallet: wallet, Reason: detail})
	b.metrics.RecordSkip(code)
}
