package jito

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// fakeRelay JSON-RPC сервер, отвечающий handler'ом по имени метода.
type fakeRelay struct {
	mu       sync.Mutex
	requests []rpcRequest
	headers  []http.Header
	handler  func(req rpcRequest) (result interface{}, rpcErr map[string]interface{})
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.headers = append(f.headers, r.Header.Clone())
	f.mu.Unlock()

	result, rpcErr := f.handler(req)
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeRelay) last() rpcRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeRelay) header(i int) http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[i]
}

func newTestClient(t *testing.T, relay *fakeRelay, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(relay)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, opts, nil, zaptest.NewLogger(t))
}

func signedTransfer(t *testing.T) *solana.Transaction {
	t.Helper()
	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer.PublicKey(), RandomTipAccount()).Build()},
		solana.Hash{1},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func TestSendBundle(t *testing.T) {
	relay := &fakeRelay{handler: func(req rpcRequest) (interface{}, map[string]interface{}) {
		return "bundle-1", nil
	}}
	client := newTestClient(t, relay, Options{AuthUUID: "secret"})

	txs := []*solana.Transaction{signedTransfer(t), signedTransfer(t)}
	id, err := client.SendBundle(context.Background(), txs)
	require.NoError(t, err)
	assert.Equal(t, "bundle-1", id)

	req := relay.last()
	assert.Equal(t, "sendBundle", req.Method)

	var params [][]string
	require.NoError(t, json.Unmarshal(req.Params, &params))
	require.Len(t, params, 1)
	require.Len(t, params[0], 2)

	raw, err := base58.Decode(params[0][1])
	require.NoError(t, err)
	want, err := txs[1].MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, want, raw)

	assert.Equal(t, "secret", relay.header(0).Get("x-jito-auth"))
}

func TestSendBundleRejected(t *testing.T) {
	relay := &fakeRelay{handler: func(req rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": -32602, "message": "bundle contains an already processed transaction"}
	}}
	client := newTestClient(t, relay, Options{})

	_, err := client.SendBundle(context.Background(), []*solana.Transaction{signedTransfer(t)})
	require.Error(t, err)

	var rejection *RelayRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "sendBundle", rejection.Method)
	assert.Equal(t, -32602, rejection.Code)
	assert.Contains(t, rejection.Msg, "already processed")

	_, err = client.SendBundle(context.Background(), nil)
	assert.Error(t, err)
}

func TestGetTipAccounts(t *testing.T) {
	relay := &fakeRelay{handler: func(req rpcRequest) (interface{}, map[string]interface{}) {
		return []string{DefaultTipAccounts[0].String(), DefaultTipAccounts[3].String()}, nil
	}}
	client := newTestClient(t, relay, Options{})

	accounts, err := client.GetTipAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{DefaultTipAccounts[0], DefaultTipAccounts[3]}, accounts)
	assert.Equal(t, "getTipAccounts", relay.last().Method)
}

func TestWaitForBundle(t *testing.T) {
	var polls atomic.Int32
	relay := &fakeRelay{handler: func(req rpcRequest) (interface{}, map[string]interface{}) {
		if polls.Add(1) < 3 {
			return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": []interface{}{nil}}, nil
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 100},
			"value": []interface{}{map[string]interface{}{
				"bundle_id":           "bundle-1",
				"transactions":        []string{"sig1"},
				"slot":                99,
				"confirmation_status": "confirmed",
				"err":                 map[string]interface{}{"Ok": nil},
			}},
		}, nil
	}}
	client := newTestClient(t, relay, Options{PollInterval: time.Millisecond})

	require.NoError(t, client.WaitForBundle(context.Background(), "bundle-1"))
	assert.Equal(t, int32(3), polls.Load())

	var params [][]string
	require.NoError(t, json.Unmarshal(relay.last().Params, &params))
	assert.Equal(t, [][]string{{"bundle-1"}}, params)
}

func TestWaitForBundleFailures(t *testing.T) {
	failed := &fakeRelay{handler: func(req rpcRequest) (interface{}, map[string]interface{}) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 100},
			"value": []interface{}{map[string]interface{}{
				"bundle_id":           "bundle-1",
				"slot":                99,
				"confirmation_status": "processed",
				"err":                 map[string]interface{}{"Err": "AccountInUse"},
			}},
		}, nil
	}}
	client := newTestClient(t, failed, Options{PollInterval: time.Millisecond})
	err := client.WaitForBundle(context.Background(), "bundle-1")
	assert.ErrorIs(t, err, ErrBundleFailed)

	pending := &fakeRelay{handler: func(req rpcRequest) (interface{}, map[string]interface{}) {
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": []interface{}{nil}}, nil
	}}
	client = newTestClient(t, pending, Options{PollInterval: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = client.WaitForBundle(ctx, "bundle-1")
	assert.ErrorIs(t, err, ErrBundleNotLanded)
}

func TestRandomTipAccount(t *testing.T) {
	for range 20 {
		assert.Contains(t, DefaultTipAccounts, RandomTipAccount())
	}
}
