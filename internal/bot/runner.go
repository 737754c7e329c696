// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/blockchain"
	"github.com/rovshanmuradov/pumpbundle/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/config"
	"github.com/rovshanmuradov/pumpbundle/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbundle/internal/jito"
	"github.com/rovshanmuradov/pumpbundle/internal/types"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/logger"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/metrics"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

// Action что делает запуск CLI.
type Action string

const (
	ActionBuy    Action = "buy"
	ActionSell   Action = "sell"
	ActionLaunch Action = "launch"
)

// Command одна операция CLI.
type Command struct {
	Action      Action
	Mint        solana.PublicKey // пусто для launch
	Amount      uint64
	SlippageBps uint64
	QuoteOnly   bool

	// Только для launch. Создатель это первый кошелёк списка.
	Name       string
	Symbol     string
	URI        string
	CreatorBuy uint64
}

// Runner собирает зависимости из конфигурации и выполняет команду.
type Runner struct {
	cfg      *config.Config
	log      *logger.Logger
	wallets  []*wallet.Wallet
	service  *TradingService
	registry *prometheus.Registry
	shutdown *ShutdownHandler
}

// NewRunner загружает кошельки и создаёт клиентов узла и релея.
func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	commitment, err := cfg.CommitmentType()
	if err != nil {
		return nil, err
	}

	pump := pumpfun.GetDefaultConfig()
	pump.Commitment = commitment
	pump.RentExemptReserve = cfg.RentExemptReserve
	pump.LookupConcurrency = cfg.LookupConcurrency
	pump.ProjectFills = cfg.ProjectFills
	if err := pump.Setup(log.Logger); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	var node blockchain.Client = solbc.NewClient(cfg.RPCURL, commitment, collector, log.Logger)
	relay := jito.NewClient(cfg.RelayURL, jito.Options{AuthUUID: cfg.RelayAuth}, collector, log.Logger)
	keys := wallet.NewKeyring(wallets...)

	submitter := bundle.NewSubmitter(relay, node, keys, bundle.Options{
		Retry: bundle.RetryPolicy{
			MaxAttempts:     cfg.RetryMaxAttempts,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			Multiplier:      cfg.RetryMultiplier,
		},
		SubmitTimeout:    cfg.SubmitTimeout,
		WaitForInclusion: cfg.WaitForInclusion,
		InclusionTimeout: cfg.InclusionTimeout,
	}, collector, log.Logger)

	var tipAccount solana.PublicKey
	if cfg.TipAccount != "" {
		tipAccount = solana.MustPublicKeyFromBase58(cfg.TipAccount)
	}

	service := NewTradingService(&TradingServiceConfig{
		Logger:    log.Logger,
		Pump:      pump,
		Chain:     node,
		Submitter: submitter,
		Keys:      keys,
		Priority: types.NewPriorityManager(types.PriorityLevel(cfg.PriorityLevel), types.PriorityConfig{
			ComputeUnits: cfg.ComputeUnits,
			PriorityFee:  cfg.PriorityFee,
		}, log.Logger),
		GroupSize: cfg.GroupSize,
		Tip:       TipConfig{Lamports: cfg.TipLamports, Account: tipAccount},
		Metrics:   collector,
	})

	log.Info(fmt.Sprintf("🔑 Loaded %d wallets", len(wallets)))

	return &Runner{
		cfg:      cfg,
		log:      log,
		wallets:  wallets,
		service:  service,
		registry: registry,
		shutdown: NewShutdownHandler(log.Logger, 5*time.Second),
	}, nil
}

// Run выполняет команду. SIGINT/SIGTERM отменяют ctx: уже начатая отправка бандла доводится до конца.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if r.cfg.MetricsAddr != "" {
		r.serveMetrics()
	}

	opLog := r.log.WithOperation(string(cmd.Action))

	switch cmd.Action {
	case ActionBuy, ActionSell:
		side := types.TradeSide(cmd.Action)
		if cmd.QuoteOnly {
			return r.quote(ctx, opLog, side, cmd)
		}
		return r.trade(ctx, opLog, side, cmd)
	case ActionLaunch:
		return r.launch(ctx, opLog, cmd)
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
}

func (r *Runner) quote(ctx context.Context, opLog *zap.Logger, side types.TradeSide, cmd Command) error {
	quote, err := r.service.Quote(ctx, side, cmd.Mint, cmd.Amount, cmd.SlippageBps)
	if err != nil {
		return err
	}
	opLog.Info("📊 Quote",
		zap.String("side", string(quote.Side)),
		zap.String("mint", cmd.Mint.String()),
		zap.Uint64("input", quote.InputAmount),
		zap.Uint64("output", quote.OutputAmount),
		zap.Uint64("limit", quote.LimitAmount))
	return nil
}

func (r *Runner) trade(ctx context.Context, opLog *zap.Logger, side types.TradeSide, cmd Command) error {
	wallets := wallet.PublicKeys(r.wallets)

	var (
		result TradeResult
		err    error
	)
	if side == types.SideBuy {
		result, err = r.service.Buy(ctx, wallets, cmd.Mint, cmd.Amount, cmd.SlippageBps)
	} else {
		result, err = r.service.Sell(ctx, wallets, cmd.Mint, cmd.Amount, cmd.SlippageBps)
	}
	if err != nil {
		return err
	}
	return r.report(ctx, opLog, result)
}

func (r *Runner) launch(ctx context.Context, opLog *zap.Logger, cmd Command) error {
	keys := wallet.PublicKeys(r.wallets)
	result, err := r.service.Launch(ctx, LaunchRequest{
		Creator:     keys[0],
		Metadata:    TokenMetadata{Name: cmd.Name, Symbol: cmd.Symbol},
		URI:         cmd.URI,
		CreatorBuy:  cmd.CreatorBuy,
		Wallets:     keys[1:],
		Amount:      cmd.Amount,
		SlippageBps: cmd.SlippageBps,
	})
	if err != nil {
		return err
	}
	opLog.Info("🚀 Token launched", zap.String("mint", result.Mint.String()))
	return r.report(ctx, opLog, result.TradeResult)
}

func (r *Runner) report(ctx context.Context, opLog *zap.Logger, result TradeResult) error {
	batchLog := r.log.WithBatch(result.Batch)
	for _, s := range result.Batch.Skipped {
		batchLog.Warn("⚠️ Wallet skipped", zap.String("wallet", s.Wallet.String()), zap.String("reason", s.Reason))
	}

	res := result.Bundle
	if !res.Success {
		batchLog.Error("💥 Bundle not accepted",
			zap.Int("attempts", res.Attempts),
			zap.String("error", res.ErrorDetail))
		return errors.New(res.ErrorDetail)
	}

	batchLog.Info("✅ Bundle accepted",
		zap.String("bundle_id", res.BundleID),
		zap.Int("attempts", res.Attempts),
		zap.Strings("signatures", res.Signatures))

	if !r.cfg.WaitForInclusion {
		return nil
	}
	fills, err := r.service.Fills(ctx, res.Signatures)
	if err != nil {
		opLog.Warn("Failed to read fills", zap.Error(err))
		return nil
	}
	for _, fill := range fills {
		opLog.Info("💰 Fill",
			zap.String("user", fill.User.String()),
			zap.Bool("buy", fill.IsBuy),
			zap.Uint64("sol", fill.SolAmount),
			zap.Uint64("tokens", fill.TokenAmount))
	}
	return nil
}

func (r *Runner) serveMetrics() {
	server := &http.Server{
		Addr:              r.cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.LogError("Metrics server stopped", err)
		}
	}()
	r.shutdown.Add("metrics", server)
	r.log.Info("📈 Metrics exposed", zap.String("addr", r.cfg.MetricsAddr))
}

// Shutdown закрывает сервисы и сбрасывает логгер.
func (r *Runner) Shutdown() {
	for _, err := range r.shutdown.Shutdown() {
		r.log.LogError("Shutdown error", err)
	}
	r.log.Info("👋 Bundler shutting down")
	_ = r.log.Sync()
}
