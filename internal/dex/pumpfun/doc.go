// Package pumpfun implements the Pump.fun bonding-curve program client used by the bundler.
//
// This package provides:
// - Decoding and encoding of the Global and BondingCurve accounts.
// - Bonding curve pricing for buys and sells with 128-bit intermediates.
// - Buy, sell, create and idempotent ATA instructions.
// - Multi-wallet leg construction and grouping of legs into bundle transactions.
// - Decoding of program events from transaction logs.
//
// Source files:
//   - accounts.go: account layouts, discriminators, fetching through ChainReader.
//   - token_calc.go: QuoteBuy, QuoteSell, Quote and the initial launch curve.
//   - instructions.go: instruction encoding in the exact account order of the program.
//   - builder.go: per-wallet checks, ATA creation, sequential fill projection.
//   - batch.go: Partition, PlanBatch with byte-driven group splits, bundle length limit, tip payer.
//   - events.go: CreateEvent, TradeEvent, CompleteEvent and SetParamsEvent.
//
// Usage example:
//
//	cfg := pumpfun.GetDefaultConfig()
//	if err := cfg.Setup(logger); err != nil {
//	    log.Fatal(err)
//	}
//
//	builder := pumpfun.NewBuilder(cfg, client, client, collector, logger)
//	res, err := builder.Build(ctx, pumpfun.BuildRequest{
//	    Side:        types.SideBuy,
//	    Mint:        mint,
//	    Orders:      pumpfun.OrdersFor(wallets, 10_000_000),
//	    SlippageBps: 500,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	batch, err := planner.PlanBatch(types.SideBuy, mint, res.Legs, pumpfun.PlanOptions{})
package pumpfun
