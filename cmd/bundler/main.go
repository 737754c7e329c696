// ====================================
// File: cmd/bundler/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/bot"
	"github.com/rovshanmuradov/pumpbundle/internal/config"
	"github.com/rovshanmuradov/pumpbundle/internal/utils/logger"
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "configs/config.yaml", "path to config file (yaml or json)")
		side        = pflag.String("side", "buy", "buy, sell or launch")
		mint        = pflag.String("mint", "", "token mint (not used for launch)")
		amount      = pflag.Uint64("amount", 0, "lamports per wallet for buy/launch, tokens per wallet for sell")
		slippageBps = pflag.Int64("slippage-bps", -1, "slippage in basis points (default from config)")
		quoteOnly   = pflag.Bool("quote-only", false, "print the quote without submitting")
		name        = pflag.String("name", "", "launch: token name")
		symbol      = pflag.String("symbol", "", "launch: token symbol")
		uri         = pflag.String("uri", "", "launch: metadata uri")
		creatorBuy  = pflag.Uint64("creator-buy", 0, "launch: creator buy in lamports")
	)
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	cmd := bot.Command{
		Action:      bot.Action(*side),
		Amount:      *amount,
		SlippageBps: cfg.SlippageBps,
		QuoteOnly:   *quoteOnly,
		Name:        *name,
		Symbol:      *symbol,
		URI:         *uri,
		CreatorBuy:  *creatorBuy,
	}
	if *slippageBps >= 0 {
		cmd.SlippageBps = uint64(*slippageBps)
	}
	if cmd.Action != bot.ActionLaunch {
		if cmd.Amount == 0 {
			log.Fatal("💥 --amount must be positive", zap.String("side", *side))
		}
		if cmd.Mint, err = solana.PublicKeyFromBase58(*mint); err != nil {
			log.Fatal("💥 Invalid mint", zap.String("mint", *mint), zap.Error(err))
		}
	}

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("💥 Failed to initialize bundler", zap.Error(err))
	}
	defer runner.Shutdown()

	if err := runner.Run(context.Background(), cmd); err != nil {
		log.Error("💥 Bundler execution error", zap.Error(err))
		runner.Shutdown()
		os.Exit(1)
	}
}
