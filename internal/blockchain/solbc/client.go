// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/blockchain"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/metrics"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
// collector может быть nil.
func NewClient(rpcURL string, commitment rpc.CommitmentType, collector *metrics.Collector, logger *zap.Logger) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), commitment, collector, logger)
}

// NewClientWithRPC оборачивает готовый rpc.Client (тесты, кастомный транспорт).
func NewClientWithRPC(rpcClient *rpc.Client, commitment rpc.CommitmentType, collector *metrics.Collector, logger *zap.Logger) *Client {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		rpc:        rpcClient,
		commitment: commitment,
		metrics:    collector,
		logger:     logger.Named("solbc-client"),
	}
}

// GetLatestBlockhash получает последний blockhash на уровне commitment клиента.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	defer c.observe("getLatestBlockhash", time.Now())

	result, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetAccountData возвращает сырые данные аккаунта; (nil, nil), если аккаунта нет.
func (c *Client) GetAccountData(ctx context.Context, address solana.PublicKey, commitment rpc.CommitmentType) ([]byte, error) {
	defer c.observe("getAccountInfo", time.Now())

	result, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", address.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil || result.Value.Data == nil {
		return nil, nil
	}
	return result.Value.Data.GetBinary(), nil
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, address solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	defer c.observe("getBalance", time.Now())

	result, err := c.rpc.GetBalance(ctx, address, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.String("pubkey", address.String()), zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// AccountExists проверяет, создан ли ATA владельца для минта.
func (c *Client) AccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return false, err
	}
	data, err := c.GetAccountData(ctx, ata, c.commitment)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// GetTransactionLogs возвращает логи выполненной транзакции.
func (c *Client) GetTransactionLogs(ctx context.Context, signature solana.Signature) ([]string, error) {
	defer c.observe("getTransaction", time.Now())

	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		c.logger.Debug("GetTransaction error",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Meta == nil {
		return nil, nil
	}
	return result.Meta.LogMessages, nil
}

func (c *Client) observe(method string, start time.Time) {
	c.metrics.RecordRPCLatency(method, time.Since(start))
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
