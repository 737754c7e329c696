package solbc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFindProgramError(t *testing.T) {
	tests := []struct {
		name  string
		logs  []string
		want  AnchorError
		found bool
	}{
		{
			name: "anchor log",
			logs: []string{
				"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
				"Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage: Too much SOL required to buy the given amount of tokens..",
			},
			want:  AnchorError{Code: 6002, Name: "TooMuchSolRequired", Msg: "slippage: Too much SOL required to buy the given amount of tokens."},
			found: true,
		},
		{
			name:  "runtime custom error",
			logs:  []string{"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P failed: custom program error: 0x1775"},
			want:  AnchorError{Code: CodeBondingCurveComplete, Name: "BondingCurveComplete"},
			found: true,
		},
		{
			name: "no error",
			logs: []string{"Program log: Instruction: Buy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := FindProgramError(tt.logs)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzeRPCError(t *testing.T) {
	ea := NewErrorAnalyzer(zaptest.NewLogger(t))

	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 2: custom program error: 0x1772",
		Data: map[string]interface{}{
			"err": map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6002}}},
			"logs": []interface{}{
				"Program log: Instruction: Buy",
				"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P failed: custom program error: 0x1772",
			},
		},
	}

	// ошибка приходит обёрнутой
	analysis := ea.AnalyzeRPCError(fmt.Errorf("send bundle: %w", rpcErr))
	assert.Equal(t, "rpc_error", analysis["type"])
	assert.Equal(t, true, analysis["simulation_failed"])
	assert.NotNil(t, analysis["instruction_error"])
	require.Contains(t, analysis, "anchor_error")
	assert.Equal(t, AnchorError{Code: CodeTooMuchSolRequired, Name: "TooMuchSolRequired"}, analysis["anchor_error"])
	assert.Contains(t, ea.FormatErrorAnalysis(analysis), "TooMuchSolRequired")

	generic := ea.AnalyzeRPCError(errors.New("connection refused"))
	assert.Equal(t, "generic_error", generic["type"])

	assert.Contains(t, ea.AnalyzeRPCError(nil), "error")
}
