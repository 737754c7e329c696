// =============================
// File: internal/bundle/submitter.go
// =============================
package bundle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpbundle/internal/jito"
	"github.com/rovshanmuradov/pumpbundle/internal/types"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/metrics"
)

// Relay принимает подписанные транзакции одним атомарным бандлом.
type Relay interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
}

// InclusionWaiter ждёт попадания бандла в блок. Реализуется релеем опционально.
type InclusionWaiter interface {
	WaitForBundle(ctx context.Context, bundleID string) error
}

// BlockhashSource выдаёт свежий blockhash для каждой попытки.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Keyring возвращает приватный ключ по публичному, nil если ключа нет.
type Keyring interface {
	PrivateKey(pub solana.PublicKey) *solana.PrivateKey
}

// ErrMissingSigner подписант плана отсутствует в keyring.
var ErrMissingSigner = errors.New("missing signer key")

const defaultSubmitTimeout = 10 * time.Second

// RetryPolicy управляет повторами отправки.
// Нулевое значение: бесконечные повторы без пауз.
type RetryPolicy struct {
	MaxAttempts     uint // 0 = без ограничения
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.InitialInterval <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	return b
}

// Options параметры отправки.
type Options struct {
	Retry RetryPolicy
	// SubmitTimeout ограничивает один вызов релея, который не прерывается отменой ctx.
	SubmitTimeout time.Duration
	// WaitForInclusion после принятия ждёт бандл в блоке; таймаут считается временной ошибкой.
	WaitForInclusion bool
	InclusionTimeout time.Duration
}

// Submitter отправляет батч бандлом, пока релей его не примет.
type Submitter struct {
	relay     Relay
	waiter    InclusionWaiter
	blockhash BlockhashSource
	keys      Keyring
	opts      Options
	analyzer  *solbc.ErrorAnalyzer
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewSubmitter creates a submitter. collector may be nil.
func NewSubmitter(relay Relay, blockhash BlockhashSource, keys Keyring, opts Options, collector *metrics.Collector, logger *zap.Logger) *Submitter {
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = defaultSubmitTimeout
	}
	s := &Submitter{
		relay:     relay,
		blockhash: blockhash,
		keys:      keys,
		opts:      opts,
		analyzer:  solbc.NewErrorAnalyzer(logger),
		metrics:   collector,
		logger:    logger.Named("bundle-submitter"),
	}
	if opts.WaitForInclusion {
		if w, ok := relay.(InclusionWaiter); ok {
			s.waiter = w
		} else {
			s.logger.Warn("Relay cannot report inclusion, waiting disabled")
		}
	}
	return s
}

// attemptResult итог одной удачной попытки.
type attemptResult struct {
	bundleID   string
	signatures []string
}

// Submit повторяет BUILD, SIGN, SUBMIT до принятия бандла, исчерпания политики или отмены ctx.
// Отмена проверяется перед каждой отправкой; начатый вызов релея доводится до конца.
func (s *Submitter) Submit(ctx context.Context, batch types.TransactionBatch) types.BundleResult {
	start := time.Now()
	logger := s.logger.With(
		zap.String("side", string(batch.Side)),
		zap.String("mint", batch.Mint.String()),
		zap.Int("transactions", len(batch.Plans)))

	if len(batch.Plans) == 0 {
		return types.BundleResult{ErrorDetail: "empty batch"}
	}

	var (
		attempts int
		lastID   string
	)
	op := func() (attemptResult, error) {
		attempts++
		res, err := s.attempt(ctx, batch, attempts, &lastID, logger)
		if err != nil && ctx.Err() != nil {
			return res, backoff.Permanent(ctx.Err())
		}
		return res, err
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("Bundle attempt failed, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", next),
			zap.Error(err))
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(s.opts.Retry.backOff()),
		backoff.WithMaxTries(s.opts.Retry.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))

	s.metrics.RecordBundle(ctx, string(batch.Side), time.Since(start), err == nil)

	if err != nil {
		logger.Error("Bundle not submitted",
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return types.BundleResult{
			BundleID:    lastID,
			Attempts:    attempts,
			ErrorDetail: err.Error(),
		}
	}

	logger.Info("Bundle accepted",
		zap.String("bundle_id", res.bundleID),
		zap.Int("attempts", attempts),
		zap.Duration("elapsed", time.Since(start)))

	return types.BundleResult{
		Success:    true,
		BundleID:   res.bundleID,
		Signatures: res.signatures,
		Attempts:   attempts,
	}
}

func (s *Submitter) attempt(ctx context.Context, batch types.TransactionBatch, n int, lastID *string, logger *zap.Logger) (attemptResult, error) {
	// BUILD
	blockhash, err := s.blockhash.GetLatestBlockhash(ctx)
	if err != nil {
		s.metrics.RecordAttempt(metrics.OutcomeTransient)
		return attemptResult{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	// SIGN
	txs, signatures, err := s.signBatch(batch, blockhash)
	if err != nil {
		s.metrics.RecordAttempt(metrics.OutcomeFatal)
		return attemptResult{}, backoff.Permanent(err)
	}

	if err := ctx.Err(); err != nil {
		return attemptResult{}, backoff.Permanent(err)
	}

	// SUBMIT
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SubmitTimeout)
	bundleID, err := s.relay.SendBundle(sendCtx, txs)
	cancel()
	if err != nil {
		var rejection *jito.RelayRejection
		if errors.As(err, &rejection) {
			s.metrics.RecordAttempt(metrics.OutcomeRejected)
			logger.Debug("Relay rejection details",
				zap.Int("attempt", n),
				zap.String("analysis", s.analyzer.FormatErrorAnalysis(s.analyzer.AnalyzeRPCError(err))))
		} else {
			s.metrics.RecordAttempt(metrics.OutcomeTransient)
		}
		return attemptResult{}, err
	}
	*lastID = bundleID

	logger.Debug("Bundle sent",
		zap.Int("attempt", n),
		zap.String("bundle_id", bundleID),
		zap.String("blockhash", blockhash.String()))

	if s.waiter != nil {
		waitCtx := ctx
		if s.opts.InclusionTimeout > 0 {
			var cancelWait context.CancelFunc
			waitCtx, cancelWait = context.WithTimeout(ctx, s.opts.InclusionTimeout)
			defer cancelWait()
		}
		if err := s.waiter.WaitForBundle(waitCtx, bundleID); err != nil {
			s.metrics.RecordAttempt(metrics.OutcomeTransient)
			return attemptResult{}, err
		}
	}

	s.metrics.RecordAttempt(metrics.OutcomeAccepted)
	return attemptResult{bundleID: bundleID, signatures: signatures}, nil
}

// signBatch собирает транзакции на blockhash и подписывает все планы.
func (s *Submitter) signBatch(batch types.TransactionBatch, blockhash solana.Hash) ([]*solana.Transaction, []string, error) {
	txs := make([]*solana.Transaction, 0, len(batch.Plans))
	signatures := make([]string, 0, len(batch.Plans))

	for i, plan := range batch.Plans {
		for _, signer := range plan.Signers {
			if s.keys.PrivateKey(signer) == nil {
				return nil, nil, fmt.Errorf("%w: %s (transaction %d)", ErrMissingSigner, signer, i)
			}
		}

		tx, err := solana.NewTransaction(plan.Instructions, blockhash, solana.TransactionPayer(plan.FeePayer))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create transaction %d: %w", i, err)
		}
		if _, err := tx.Sign(s.keys.PrivateKey); err != nil {
			return nil, nil, fmt.Errorf("failed to sign transaction %d: %w", i, err)
		}

		txs = append(txs, tx)
		signatures = append(signatures, tx.Signatures[0].String())
	}
	return txs, signatures, nil
}
