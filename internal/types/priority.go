package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"
)

type PriorityLevel string

const (
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
	// PriorityCustom берёт значения из конфигурации бандла.
	PriorityCustom PriorityLevel = "custom"
)

type PriorityConfig struct {
	ComputeUnits uint32 // Лимит вычислительных единиц на транзакцию
	PriorityFee  uint64 // Цена CU в micro-lamports
}

// PriorityManager выдаёт compute-budget инструкции, открывающие каждую транзакцию бандла.
type PriorityManager struct {
	profiles map[PriorityLevel]*PriorityConfig
	level    PriorityLevel
	logger   *zap.Logger
}

// NewPriorityManager создаёт менеджер с заданным уровнем по умолчанию.
// custom используется для PriorityCustom.
func NewPriorityManager(level PriorityLevel, custom PriorityConfig, logger *zap.Logger) *PriorityManager {
	if level == "" {
		level = PriorityCustom
	}
	return &PriorityManager{
		profiles: map[PriorityLevel]*PriorityConfig{
			PriorityLow:     {ComputeUnits: 200_000, PriorityFee: 1_000},
			PriorityMedium:  {ComputeUnits: 400_000, PriorityFee: 5_000},
			PriorityHigh:    {ComputeUnits: 800_000, PriorityFee: 10_000},
			PriorityExtreme: {ComputeUnits: 1_000_000, PriorityFee: 50_000},
			PriorityCustom:  &custom,
		},
		level:  level,
		logger: logger.Named("priority"),
	}
}

// Instructions возвращает инструкции для уровня по умолчанию.
func (pm *PriorityManager) Instructions() ([]solana.Instruction, error) {
	return pm.CreatePriorityInstructions(pm.level)
}

func (pm *PriorityManager) CreatePriorityInstructions(level PriorityLevel) ([]solana.Instruction, error) {
	config, ok := pm.profiles[level]
	if !ok {
		return nil, fmt.Errorf("unknown priority level: %s", level)
	}
	pm.logger.Debug("Compute budget",
		zap.String("level", string(level)),
		zap.Uint32("compute_units", config.ComputeUnits),
		zap.Uint64("priority_fee", config.PriorityFee))

	var instructions []solana.Instruction
	if config.ComputeUnits > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(config.ComputeUnits).Build())
	}
	if config.PriorityFee > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(config.PriorityFee).Build())
	}
	return instructions, nil
}

// Fee приоритетная часть комиссии одной транзакции в лампортах (округление вверх).
func (pm *PriorityManager) Fee() uint64 {
	config, ok := pm.profiles[pm.level]
	if !ok {
		return 0
	}
	micro := uint64(config.ComputeUnits) * config.PriorityFee
	return (micro + 999_999) / 1_000_000
}
