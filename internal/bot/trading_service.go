// internal/bot/trading_service.go
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbundle/internal/jito"
	"github.com/rovshanmuradov/pumpbundle/internal/types"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/metrics"
)

// ChainClient узел Solana, нужный сервису.
type ChainClient interface {
	pumpfun.ChainReader
	pumpfun.AccountLookup
	GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error)
}

// BundleSubmitter отправляет подготовленный батч одним бандлом.
type BundleSubmitter interface {
	Submit(ctx context.Context, batch types.TransactionBatch) types.BundleResult
}

// SignerKeyring keyring подписантов, в который можно добавить ключ нового минта.
type SignerKeyring interface {
	bundle.Keyring
	Add(key solana.PrivateKey)
}

// TokenMetadata описание токена для загрузки перед запуском.
type TokenMetadata struct {
	Name        string
	Symbol      string
	Description string
	Image       []byte
	Twitter     string
	Telegram    string
	Website     string
}

// MetadataUploader загружает метаданные (IPFS) и возвращает URI для инструкции create.
type MetadataUploader interface {
	Upload(ctx context.Context, meta TokenMetadata) (string, error)
}

// TipConfig чаевые релею. Пустой Account означает случайный аккаунт Jito на каждый батч.
type TipConfig struct {
	Lamports uint64
	Account  solana.PublicKey
}

// ErrNoMetadataURI запуск без готового URI и без загрузчика.
var ErrNoMetadataURI = errors.New("metadata uri is required")

// TradingService provides centralized trading operations
type TradingService struct {
	cfg       *pumpfun.Config
	chain     ChainClient
	builder   *pumpfun.Builder
	planner   *pumpfun.Planner
	submitter BundleSubmitter
	keys      SignerKeyring
	uploader  MetadataUploader
	tip       TipConfig
	logger    *zap.Logger
}

// TradingServiceConfig configuration for TradingService
type TradingServiceConfig struct {
	Logger    *zap.Logger
	Pump      *pumpfun.Config
	Chain     ChainClient
	Submitter BundleSubmitter
	Keys      SignerKeyring
	Priority  *types.PriorityManager
	GroupSize int
	Tip       TipConfig
	Uploader  MetadataUploader // optional
	Metrics   *metrics.Collector
}

// NewTradingService creates a new trading service
func NewTradingService(config *TradingServiceConfig) *TradingService {
	logger := config.Logger.Named("trading_service")
	service := &TradingService{
		cfg:       config.Pump,
		chain:     config.Chain,
		builder:   pumpfun.NewBuilder(config.Pump, config.Chain, config.Chain, config.Metrics, config.Logger),
		planner:   pumpfun.NewPlanner(config.Priority, config.GroupSize, config.Logger),
		submitter: config.Submitter,
		keys:      config.Keys,
		uploader:  config.Uploader,
		tip:       config.Tip,
		logger:    logger,
	}

	logger.Info("TradingService initialized successfully",
		zap.Int("group_size", config.GroupSize),
		zap.Uint64("tip_lamports", config.Tip.Lamports))
	return service
}

// Quote считает сделку по свежему снимку кривой без отправки.
func (s *TradingService) Quote(ctx context.Context, side types.TradeSide, mint solana.PublicKey, amount, slippageBps uint64) (types.TradeQuote, error) {
	global, err := pumpfun.FetchGlobalConfig(ctx, s.chain, s.cfg)
	if err != nil {
		return types.TradeQuote{}, err
	}
	accounts, err := s.cfg.DeriveMintAccounts(mint)
	if err != nil {
		return types.TradeQuote{}, err
	}
	curve, err := pumpfun.FetchBondingCurve(ctx, s.chain, s.cfg, accounts)
	if err != nil {
		return types.TradeQuote{}, err
	}
	if curve.Complete {
		return types.TradeQuote{}, fmt.Errorf("mint %s: %w", mint, pumpfun.ErrCurveComplete)
	}

	quote, err := pumpfun.Quote(side, curve, amount, slippageBps, global.FeeBasisPoints)
	if err != nil {
		return types.TradeQuote{}, err
	}

	s.logger.Debug("Quote calculated",
		zap.String("side", string(side)),
		zap.String("mint", mint.String()),
		zap.Uint64("input", quote.InputAmount),
		zap.Uint64("output", quote.OutputAmount),
		zap.Uint64("limit", quote.LimitAmount),
		zap.Float64("spot_price", pumpfun.SpotPrice(curve)))
	return quote, nil
}

// BuildTradeBatch собирает батч, в котором каждый кошелёк торгует одну и ту же сумму.
func (s *TradingService) BuildTradeBatch(
	ctx context.Context,
	side types.TradeSide,
	wallets []solana.PublicKey,
	mint solana.PublicKey,
	amount, slippageBps uint64,
) (types.TransactionBatch, error) {
	result, err := s.builder.Build(ctx, pumpfun.BuildRequest{
		Side:        side,
		Mint:        mint,
		Orders:      pumpfun.OrdersFor(wallets, amount),
		SlippageBps: slippageBps,
		FeeReserve:  s.planner.FeeReserve(),
	})
	if err != nil {
		return types.TransactionBatch{Side: side, Mint: mint, Skipped: result.Skipped}, err
	}

	batch, err := s.planner.PlanBatch(side, mint, result.Legs, pumpfun.PlanOptions{Tip: s.tipFor()})
	if err != nil {
		return types.TransactionBatch{}, err
	}
	batch.Skipped = result.Skipped
	return batch, nil
}

// SubmitBatch отправляет батч. Ошибки отражены в BundleResult.
func (s *TradingService) SubmitBatch(ctx context.Context, batch types.TransactionBatch) types.BundleResult {
	return s.submitter.Submit(ctx, batch)
}

// TradeResult батч и итог его отправки.
type TradeResult struct {
	Batch  types.TransactionBatch
	Bundle types.BundleResult
}

// Buy покупает на lamports SOL с каждого кошелька одним бандлом.
func (s *TradingService) Buy(ctx context.Context, wallets []solana.PublicKey, mint solana.PublicKey, lamports, slippageBps uint64) (TradeResult, error) {
	return s.trade(ctx, types.SideBuy, wallets, mint, lamports, slippageBps)
}

// Sell продаёт tokens с каждого кошелька одним бандлом.
func (s *TradingService) Sell(ctx context.Context, wallets []solana.PublicKey, mint solana.PublicKey, tokens, slippageBps uint64) (TradeResult, error) {
	return s.trade(ctx, types.SideSell, wallets, mint, tokens, slippageBps)
}

func (s *TradingService) trade(
	ctx context.Context,
	side types.TradeSide,
	wallets []solana.PublicKey,
	mint solana.PublicKey,
	amount, slippageBps uint64,
) (TradeResult, error) {
	batch, err := s.BuildTradeBatch(ctx, side, wallets, mint, amount, slippageBps)
	if err != nil {
		return TradeResult{Batch: batch}, fmt.Errorf("failed to build %s batch: %w", side, err)
	}
	return TradeResult{Batch: batch, Bundle: s.SubmitBatch(ctx, batch)}, nil
}

// LaunchRequest параметры запуска нового токена.
type LaunchRequest struct {
	Creator     solana.PublicKey
	Metadata    TokenMetadata
	URI         string            // готовый URI, иначе метаданные загружает uploader
	MintKey     solana.PrivateKey // пустой ключ генерируется
	CreatorBuy  uint64            // лампорты покупки создателя, 0 без покупки
	Wallets     []solana.PublicKey
	Amount      uint64 // лампорты на каждый кошелёк из Wallets
	SlippageBps uint64
}

// LaunchResult адрес нового минта вместе с итогом бандла.
type LaunchResult struct {
	Mint solana.PublicKey
	TradeResult
}

// Launch создаёт токен и покупает его создателем и кошельками в одном бандле.
// Котировки считаются по начальной кривой из Global.
func (s *TradingService) Launch(ctx context.Context, req LaunchRequest) (LaunchResult, error) {
	mintKey := req.MintKey
	if len(mintKey) == 0 {
		var err error
		if mintKey, err = solana.NewRandomPrivateKey(); err != nil {
			return LaunchResult{}, fmt.Errorf("failed to generate mint key: %w", err)
		}
	}
	mint := mintKey.PublicKey()
	result := LaunchResult{Mint: mint}

	uri, err := s.metadataURI(ctx, req)
	if err != nil {
		return result, err
	}

	global, err := pumpfun.FetchGlobalConfig(ctx, s.chain, s.cfg)
	if err != nil {
		return result, err
	}
	curve := pumpfun.InitialCurve(global)

	mintAccounts, err := s.cfg.DeriveMintAccounts(mint)
	if err != nil {
		return result, err
	}
	createIx, err := pumpfun.BuildCreateInstruction(s.cfg, mintAccounts, req.Creator, pumpfun.CreateParams{
		Name:   req.Metadata.Name,
		Symbol: req.Metadata.Symbol,
		URI:    uri,
	})
	if err != nil {
		return result, err
	}

	var orders []pumpfun.Order
	if req.CreatorBuy > 0 {
		orders = append(orders, pumpfun.Order{Wallet: req.Creator, Amount: req.CreatorBuy})
	} else if err := s.checkCreatorFunds(ctx, req.Creator); err != nil {
		return result, err
	}
	orders = append(orders, pumpfun.OrdersFor(req.Wallets, req.Amount)...)

	built, err := s.builder.Build(ctx, pumpfun.BuildRequest{
		Side:        types.SideBuy,
		Mint:        mint,
		Orders:      orders,
		SlippageBps: req.SlippageBps,
		FeeReserve:  s.planner.FeeReserve(),
		// создатель платит ренту аккаунтов create
		Reserves: map[solana.PublicKey]uint64{req.Creator: s.cfg.LaunchRentReserve},
		Global:   &global,
		Curve:    &curve,
	})
	if err != nil {
		return result, fmt.Errorf("failed to build launch legs: %w", err)
	}
	if req.CreatorBuy > 0 {
		for _, skipped := range built.Skipped {
			if skipped.Wallet.Equals(req.Creator) {
				return result, fmt.Errorf("creator %s cannot fund the launch: %w",
					req.Creator, pumpfun.ErrInsufficientFunds)
			}
		}
	}

	batch, err := s.planner.PlanBatch(types.SideBuy, mint, built.Legs, pumpfun.PlanOptions{
		Prelude: &pumpfun.Prelude{
			Instructions: []solana.Instruction{createIx},
			Signers:      []solana.PublicKey{req.Creator, mint},
		},
		Tip: s.tipFor(),
	})
	if err != nil {
		return result, err
	}
	batch.Skipped = built.Skipped
	result.Batch = batch

	s.keys.Add(mintKey)

	s.logger.Info("Launching token",
		zap.String("mint", mint.String()),
		zap.String("symbol", req.Metadata.Symbol),
		zap.String("uri", uri),
		zap.Int("buyers", len(batch.Wallets())))

	result.Bundle = s.SubmitBatch(ctx, batch)
	return result, nil
}

// checkCreatorFunds создатель без своей покупки всё равно платит ренту create и комиссию.
func (s *TradingService) checkCreatorFunds(ctx context.Context, creator solana.PublicKey) error {
	balance, err := s.chain.GetBalance(ctx, creator, s.cfg.Commitment)
	if err != nil {
		return fmt.Errorf("balance lookup for creator %s: %w", creator, err)
	}
	need := s.cfg.LaunchRentReserve + s.planner.FeeReserve()
	if balance < need {
		return fmt.Errorf("creator %s cannot fund the launch: %w: balance %d, need %d",
			creator, pumpfun.ErrInsufficientFunds, balance, need)
	}
	return nil
}

func (s *TradingService) metadataURI(ctx context.Context, req LaunchRequest) (string, error) {
	if req.URI != "" {
		return req.URI, nil
	}
	if s.uploader == nil {
		return "", ErrNoMetadataURI
	}
	uri, err := s.uploader.Upload(ctx, req.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}
	return uri, nil
}

// Fills возвращает события сделок из логов транзакций бандла.
func (s *TradingService) Fills(ctx context.Context, signatures []string) ([]pumpfun.TradeEvent, error) {
	var fills []pumpfun.TradeEvent
	for _, raw := range signatures {
		sig, err := solana.SignatureFromBase58(raw)
		if err != nil {
			return fills, fmt.Errorf("invalid signature %q: %w", raw, err)
		}
		logs, err := s.chain.GetTransactionLogs(ctx, sig)
		if err != nil {
			return fills, fmt.Errorf("failed to fetch logs for %s: %w", raw, err)
		}
		events, err := pumpfun.DecodeLogs(logs)
		if err != nil {
			return fills, fmt.Errorf("failed to decode events of %s: %w", raw, err)
		}
		for _, ev := range events {
			if trade, ok := ev.(pumpfun.TradeEvent); ok {
				fills = append(fills, trade)
			}
		}
	}
	return fills, nil
}

func (s *TradingService) tipFor() *pumpfun.Tip {
	if s.tip.Lamports == 0 {
		return nil
	}
	account := s.tip.Account
	if account.IsZero() {
		account = jito.RandomTipAccount()
	}
	return &pumpfun.Tip{Account: account, Lamports: s.tip.Lamports}
}
