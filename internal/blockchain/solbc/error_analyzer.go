package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// Коды ошибок программы Pump.fun из IDL
const (
	CodeNotAuthorized           = 6000
	CodeAlreadyInitialized      = 6001
	CodeTooMuchSolRequired      = 6002
	CodeTooLittleSolReceived    = 6003
	CodeMintDoesNotMatchCurve   = 6004
	CodeBondingCurveComplete    = 6005
	CodeBondingCurveNotComplete = 6006
	CodeNotInitialized          = 6007
)

const (
	customProgramErrorMarker  = "custom program error: 0x"
	anchorErrorOccurredMarker = "AnchorError occurred"
	simulationFailedMarker    = "simulation failed"
)

var programErrorNames = map[int]string{
	CodeNotAuthorized:           "NotAuthorized",
	CodeAlreadyInitialized:      "AlreadyInitialized",
	CodeTooMuchSolRequired:      "TooMuchSolRequired",
	CodeTooLittleSolReceived:    "TooLittleSolReceived",
	CodeMintDoesNotMatchCurve:   "MintDoesNotMatchBondingCurve",
	CodeBondingCurveComplete:    "BondingCurveComplete",
	CodeBondingCurveNotComplete: "BondingCurveNotComplete",
	CodeNotInitialized:          "NotInitialized",
}

// ProgramErrorName имя ошибки программы по коду или пустая строка.
func ProgramErrorName(code int) string {
	return programErrorNames[code]
}

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg,omitempty"`
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeRPCError extracts the JSON-RPC error from err's chain and the program errors in its logs.
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{
			"error": "No error provided",
		}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return map[string]interface{}{
			"type":    "generic_error",
			"message": err.Error(),
		}
	}

	result := map[string]interface{}{
		"type":    "rpc_error",
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}

	if strings.Contains(strings.ToLower(rpcErr.Message), simulationFailedMarker) {
		result["simulation_failed"] = true
	}

	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return result
	}
	if instrErr, ok := dataMap["err"]; ok && instrErr != nil {
		result["instruction_error"] = instrErr
	}

	logs, ok := dataMap["logs"].([]interface{})
	if !ok {
		return result
	}
	result["logs"] = logs

	lines := make([]string, 0, len(logs))
	for _, entry := range logs {
		if s, ok := entry.(string); ok {
			lines = append(lines, s)
		}
	}
	if anchorErr, found := FindProgramError(lines); found {
		result["anchor_error"] = anchorErr
		ea.logger.Warn("Program error detected",
			zap.Int("code", anchorErr.Code),
			zap.String("name", anchorErr.Name),
			zap.String("message", anchorErr.Msg))
	}

	return result
}

// FindProgramError ищет первую ошибку программы в логах: строку AnchorError
// или "custom program error: 0x..." от рантайма.
func FindProgramError(logs []string) (AnchorError, bool) {
	for _, line := range logs {
		if strings.Contains(line, anchorErrorOccurredMarker) {
			return parseAnchorErrorLog(line), true
		}
		if _, hex, ok := strings.Cut(line, customProgramErrorMarker); ok {
			code, err := strconv.ParseInt(strings.TrimSpace(hex), 16, 32)
			if err != nil {
				continue
			}
			return AnchorError{Code: int(code), Name: ProgramErrorName(int(code))}, true
		}
	}
	return AnchorError{}, false
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage: Too much SOL required to buy the given amount of tokens.."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if _, rest, ok := strings.Cut(logStr, "Error Number:"); ok {
		num, _, _ := strings.Cut(rest, ".")
		result.Code, _ = strconv.Atoi(strings.TrimSpace(num))
	}

	if _, rest, ok := strings.Cut(logStr, "Error Code:"); ok {
		name, _, _ := strings.Cut(rest, ".")
		result.Name = strings.TrimSpace(name)
	}
	if result.Name == "" {
		result.Name = ProgramErrorName(result.Code)
	}

	if _, rest, ok := strings.Cut(logStr, "Error Message:"); ok {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(rest), ".")
	}

	return result
}

// FormatErrorAnalysis formats the error analysis for logging or display
func (ea *ErrorAnalyzer) FormatErrorAnalysis(analysis map[string]interface{}) string {
	jsonBytes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting analysis: %v", err)
	}
	return string(jsonBytes)
}
