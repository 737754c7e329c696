// =============================
// File: internal/jito/client.go
// =============================
package jito

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/utils/metrics"
)

const (
	// DefaultBlockEngineURL mainnet endpoint блок-энджина.
	DefaultBlockEngineURL = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"

	defaultPollInterval = 500 * time.Millisecond
)

// DefaultTipAccounts mainnet tip-аккаунты блок-энджина.
var DefaultTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// RandomTipAccount выбирает tip-аккаунт из списка по умолчанию.
func RandomTipAccount() solana.PublicKey {
	return DefaultTipAccounts[rand.IntN(len(DefaultTipAccounts))]
}

var (
	// ErrBundleFailed бандл попал в блок с ошибкой или был отброшен.
	ErrBundleFailed = errors.New("bundle failed")
	// ErrBundleNotLanded бандл не появился в блоке до таймаута.
	ErrBundleNotLanded = errors.New("bundle not landed")
)

// RelayRejection JSON-RPC ошибка, которой релей отклонил запрос.
type RelayRejection struct {
	Method string
	Code   int
	Msg    string
	Err    error
}

func (e *RelayRejection) Error() string {
	return fmt.Sprintf("relay rejected %s (code %d): %s", e.Method, e.Code, e.Msg)
}

func (e *RelayRejection) Unwrap() error {
	return e.Err
}

// Options параметры клиента.
type Options struct {
	// AuthUUID отправляется в заголовке x-jito-auth, пустой не отправляется.
	AuthUUID     string
	PollInterval time.Duration
}

// Client клиент JSON-RPC API бандлов блок-энджина.
type Client struct {
	rpc          jsonrpc.RPCClient
	endpoint     string
	pollInterval time.Duration
	metrics      *metrics.Collector
	logger       *zap.Logger
}

// NewClient создаёт клиента релея. collector может быть nil.
func NewClient(endpoint string, opts Options, collector *metrics.Collector, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultBlockEngineURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	var rpcClient jsonrpc.RPCClient
	if opts.AuthUUID != "" {
		rpcClient = jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			CustomHeaders: map[string]string{"x-jito-auth": opts.AuthUUID},
		})
	} else {
		rpcClient = jsonrpc.NewClient(endpoint)
	}

	return &Client{
		rpc:          rpcClient,
		endpoint:     endpoint,
		pollInterval: opts.PollInterval,
		metrics:      collector,
		logger:       logger.Named("jito-client"),
	}
}

// SendBundle отправляет подписанные транзакции одним атомарным бандлом и возвращает его id.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", errors.New("empty bundle")
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("failed to serialize transaction %d: %w", i, err)
		}
		encoded[i] = base58.Encode(raw)
	}

	var bundleID string
	if err := c.call(ctx, &bundleID, "sendBundle", []interface{}{encoded}); err != nil {
		return "", err
	}

	c.logger.Info("Bundle sent",
		zap.String("bundle_id", bundleID),
		zap.Int("transactions", len(txs)))
	return bundleID, nil
}

// BundleStatus статус бандла, попавшего в блок.
type BundleStatus struct {
	BundleID           string          `json:"bundle_id"`
	Transactions       []string        `json:"transactions"`
	Slot               uint64          `json:"slot"`
	ConfirmationStatus string          `json:"confirmation_status"`
	Err                bundleStatusErr `json:"err"`
}

// bundleStatusErr поле err вида {"Ok": null} или {"Err": ...}.
type bundleStatusErr struct {
	Ok  *struct{}   `json:"Ok,omitempty"`
	Err interface{} `json:"Err,omitempty"`
}

// Failed сообщает, что транзакции бандла выполнились с ошибкой.
func (s BundleStatus) Failed() bool {
	return s.Err.Err != nil
}

// Landed бандл подтвержден хотя бы на уровне confirmed.
func (s BundleStatus) Landed() bool {
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

type bundleStatusesResult struct {
	Value []*BundleStatus `json:"value"`
}

// GetBundleStatuses возвращает статусы по id; nil в слоте означает, что бандл ещё не найден.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) ([]*BundleStatus, error) {
	var out bundleStatusesResult
	if err := c.call(ctx, &out, "getBundleStatuses", []interface{}{bundleIDs}); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetTipAccounts запрашивает актуальные tip-аккаунты у релея.
func (c *Client) GetTipAccounts(ctx context.Context) ([]solana.PublicKey, error) {
	var raw []string
	if err := c.call(ctx, &raw, "getTipAccounts", []interface{}{}); err != nil {
		return nil, err
	}
	accounts := make([]solana.PublicKey, 0, len(raw))
	for _, s := range raw {
		key, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("invalid tip account %q: %w", s, err)
		}
		accounts = append(accounts, key)
	}
	return accounts, nil
}

// WaitForBundle опрашивает статус бандла, пока он не подтвердится или не истечёт ctx.
// Ошибки опроса не прерывают ожидание.
func (c *Client) WaitForBundle(ctx context.Context, bundleID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.GetBundleStatuses(ctx, []string{bundleID})
		switch {
		case err != nil:
			c.logger.Debug("Bundle status poll failed", zap.String("bundle_id", bundleID), zap.Error(err))
		case len(statuses) > 0 && statuses[0] != nil:
			status := statuses[0]
			if status.Failed() {
				return fmt.Errorf("%w: %s in slot %d: %v", ErrBundleFailed, bundleID, status.Slot, status.Err.Err)
			}
			if status.Landed() {
				c.logger.Info("Bundle landed",
					zap.String("bundle_id", bundleID),
					zap.Uint64("slot", status.Slot),
					zap.String("status", status.ConfirmationStatus))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrBundleNotLanded, bundleID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) call(ctx context.Context, out interface{}, method string, params []interface{}) error {
	start := time.Now()
	err := c.rpc.CallForInto(ctx, out, method, params)
	c.metrics.RecordRPCLatency(method, time.Since(start))
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &RelayRejection{Method: method, Code: rpcErr.Code, Msg: rpcErr.Message, Err: err}
	}
	return fmt.Errorf("%s request to %s: %w", method, c.endpoint, err)
}
