package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"routeScope/internal/aggregator"
	"routeScope/internal/chain"
	"routeScope/internal/config"
	"routeScope/internal/dex"
	"routeScope/internal/model"
	"routeScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "aggregator",
		Short:        "DEX swap route aggregator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("cache-path", "./data/pools.json", "pool snapshot file path")
	root.PersistentFlags().Bool("cache-enabled", true, "load/save the pool snapshot automatically")
	root.PersistentFlags().Duration("cache-ttl", 5*time.Minute, "pool staleness threshold")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Discover pools from configured factories and cache them",
		RunE:  runFetch,
	}
	fetchCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	fetchCmd.Flags().StringSlice("factory", nil, "factories as name=0xaddress (comma-separated)")
	fetchCmd.Flags().Int("limit", 0, "max pools per factory, 0 means all")
	fetchCmd.Flags().Int("fetch-concurrency", 8, "concurrent pool reads")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts per read")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().Duration("read-timeout", 10*time.Second, "timeout per pool read")
	fetchCmd.Flags().Duration("fetch-timeout", 10*time.Minute, "timeout for the whole fetch")
	root.AddCommand(fetchCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the best swap routes over the cached pools",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("rpc", "", "Ethereum RPC URL for on-chain token metadata (optional)")
	quoteCmd.Flags().String("token-in", "", "input token address")
	quoteCmd.Flags().String("token-out", "", "output token address")
	quoteCmd.Flags().String("amount", "", "input amount in human units (e.g. 1.5)")
	quoteCmd.Flags().String("strategy", "price", "routing strategy (price, gas, slippage, balanced)")
	quoteCmd.Flags().Int("top", 1, "number of routes to show")
	quoteCmd.Flags().Int("max-hops", 3, "maximum route depth")
	quoteCmd.Flags().Int("explore-cap", 4096, "path search expansion cap")
	quoteCmd.Flags().Uint32("slippage-bps", 50, "slippage tolerance in basis points")
	quoteCmd.Flags().Float64("gas-price-gwei", 20.0, "gas price for cost display")
	root.AddCommand(quoteCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "List cached pools",
		RunE:  runPools,
	}
	poolsCmd.Flags().String("token", "", "only pools containing this token address")
	poolsCmd.Flags().String("address", "", "show a single pool by its address")
	root.AddCommand(poolsCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pool cache statistics",
		RunE:  runStats,
	}
	root.AddCommand(statsCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export cached pools to a snapshot file or Postgres",
		RunE:  runExport,
	}
	exportCmd.Flags().String("out", "", "destination snapshot path (defaults to cache-path)")
	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN to export into instead of a file")
	root.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import pools from a snapshot file or Postgres into the cache",
		RunE:  runImport,
	}
	importCmd.Flags().String("in", "", "source snapshot path")
	importCmd.Flags().String("pg-dsn", "", "Postgres DSN to import from instead of a file")
	root.AddCommand(importCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the pool cache and delete the snapshot file",
		RunE:  runClear,
	}
	root.AddCommand(clearCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	flags := cmd.Flags()
	flags.AddFlagSet(cmd.Root().PersistentFlags())

	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func buildAggregator(cfg config.Config, reader aggregator.PoolReader, logger *zap.Logger) (*aggregator.Aggregator, error) {
	factories, err := cfg.ParseFactories()
	if err != nil {
		return nil, err
	}
	opts := aggregator.Options{
		CacheTTL:         cfg.CacheTTL,
		CachePath:        cfg.CachePath,
		CacheEnabled:     cfg.CacheEnabled,
		MaxHops:          cfg.MaxHops,
		ExploreCap:       cfg.ExploreCap,
		FetchConcurrency: cfg.FetchConcurrency,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
		ReadTimeout:      cfg.ReadTimeout,
		FetchTimeout:     cfg.FetchTimeout,
	}
	for _, f := range factories {
		opts.Factories = append(opts.Factories, aggregator.Factory{Name: f.Name, Address: f.Address})
	}
	return aggregator.New(opts, reader, logger), nil
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(cfg.Factories) == 0 {
		return fmt.Errorf("factory list is required")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	agg, err := buildAggregator(cfg, dex.NewReader(chainClient, logger), logger)
	if err != nil {
		return err
	}

	results, err := agg.FetchAllPools(ctx, limit)
	for _, res := range results {
		fmt.Printf("%s: fetched %d of %d pools (%d skipped)\n",
			res.Factory, res.Fetched, res.Requested, res.Skipped)
	}
	if err != nil {
		return err
	}

	if cfg.CacheEnabled {
		n, err := agg.ExportCache("")
		if err != nil {
			return err
		}
		fmt.Printf("snapshot saved: %d pools -> %s\n", n, cfg.CachePath)
	}
	return nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tokenIn, err := parseAddressFlag(cmd, "token-in")
	if err != nil {
		return err
	}
	tokenOut, err := parseAddressFlag(cmd, "token-out")
	if err != nil {
		return err
	}

	rawAmount, _ := cmd.Flags().GetString("amount")
	if rawAmount == "" {
		return fmt.Errorf("amount is required")
	}
	decimalsIn, decimalsOut := resolveDecimals(cfg, tokenIn, tokenOut, logger)
	amountIn, err := parseAmount(rawAmount, decimalsIn)
	if err != nil {
		return err
	}

	rawStrategy, _ := cmd.Flags().GetString("strategy")
	strategy, err := model.ParseStrategy(rawStrategy)
	if err != nil {
		return err
	}
	top, _ := cmd.Flags().GetInt("top")

	agg, err := buildAggregator(cfg, nil, logger)
	if err != nil {
		return err
	}
	if agg.CacheStats().TotalPools == 0 {
		return fmt.Errorf("pool cache is empty, run fetch or import first")
	}

	quotes, err := agg.TopQuotes(tokenIn, tokenOut, amountIn, strategy, top)
	if err != nil {
		return err
	}

	for i, q := range quotes {
		printQuote(i+1, q, decimalsIn, decimalsOut, cfg.DefaultSlippageBps, cfg.GasPriceGwei)
	}
	return nil
}

// resolveDecimals asks the chain for token decimals when an RPC URL is
// configured, falling back to the known-token table otherwise.
func resolveDecimals(cfg config.Config, tokenIn, tokenOut common.Address, logger *zap.Logger) (uint8, uint8) {
	decimalsIn := tokenDecimals(tokenIn)
	decimalsOut := tokenDecimals(tokenOut)
	if cfg.RPCURL == "" {
		return decimalsIn, decimalsOut
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout)
	defer cancel()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		logger.Warn("token metadata lookup unavailable", zap.Error(err))
		return decimalsIn, decimalsOut
	}
	defer chainClient.Close()

	reader := dex.NewReader(chainClient, logger)
	if meta, err := reader.TokenMeta(ctx, tokenIn); err == nil {
		decimalsIn = meta.Decimals
	} else {
		logger.Warn("token-in metadata lookup failed", zap.Error(err))
	}
	if meta, err := reader.TokenMeta(ctx, tokenOut); err == nil {
		decimalsOut = meta.Decimals
	} else {
		logger.Warn("token-out metadata lookup failed", zap.Error(err))
	}
	return decimalsIn, decimalsOut
}

func printQuote(rank int, q model.RouteQuote, decimalsIn, decimalsOut uint8, slippageBps uint32, gasPriceGwei float64) {
	fmt.Printf("#%d  %s\n", rank, q.Description)
	fmt.Printf("    in:           %s\n", formatAmount(q.AmountIn, decimalsIn))
	fmt.Printf("    out:          %s\n", formatAmount(q.AmountOut, decimalsOut))
	fmt.Printf("    min received: %s (%.2f%% slippage)\n",
		formatAmount(minReceived(q.AmountOut, slippageBps), decimalsOut), float64(slippageBps)/100)
	fmt.Printf("    hops:         %d\n", q.HopCount())
	fmt.Printf("    price impact: %.2f%%\n", float64(q.ImpactBps)/100)
	fmt.Printf("    gas estimate: %d (~%.6f ETH @ %.1f gwei)\n",
		q.GasEstimate, gasCostEther(q.GasEstimate, gasPriceGwei), gasPriceGwei)
	fmt.Printf("    score:        %.4f\n", q.Score)
	for _, hop := range q.Hops {
		fmt.Printf("      %s: %s -> %s via %s (%.2f%% impact)\n",
			hop.Venue, hop.TokenIn.Hex(), hop.TokenOut.Hex(), hop.Pool.Hex(), float64(hop.ImpactBps)/100)
	}
}

func runPools(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	agg, err := buildAggregator(cfg, nil, logger)
	if err != nil {
		return err
	}

	if raw, _ := cmd.Flags().GetString("address"); raw != "" {
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("invalid pool address %q", raw)
		}
		pool, ok := agg.Pool(common.HexToAddress(raw))
		if !ok {
			return fmt.Errorf("pool %s: %w", raw, model.ErrNotFound)
		}
		printPool(pool)
		return nil
	}

	var pools []model.Pool
	if raw, _ := cmd.Flags().GetString("token"); raw != "" {
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("invalid token address %q", raw)
		}
		pools = agg.PoolsWithToken(common.HexToAddress(raw))
	} else {
		pools = agg.Snapshot()
	}

	for _, pool := range pools {
		printPool(pool)
	}
	fmt.Printf("%d pools\n", len(pools))
	return nil
}

func printPool(pool model.Pool) {
	fmt.Printf("%s  %-12s  %s / %s  reserves %s / %s  fee %d bps\n",
		pool.Address.Hex(), pool.Venue,
		pool.Token0.Hex(), pool.Token1.Hex(),
		pool.Reserve0.Dec(), pool.Reserve1.Dec(),
		pool.FeeBps)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	agg, err := buildAggregator(cfg, nil, logger)
	if err != nil {
		return err
	}

	stats := agg.CacheStats()
	fmt.Printf("pools:           %d\n", stats.TotalPools)
	fmt.Printf("distinct tokens: %d\n", stats.DistinctTokens)
	fmt.Printf("stale pools:     %d (ttl %s)\n", stats.StalePools, cfg.CacheTTL)
	for venue, count := range stats.VenueCounts {
		fmt.Printf("  %-12s %d\n", venue, count)
	}
	if stats.TotalPools > 0 {
		fmt.Printf("oldest update:   %s\n", time.Unix(stats.OldestUpdated, 0).UTC().Format(time.RFC3339))
		fmt.Printf("newest update:   %s\n", time.Unix(stats.NewestUpdated, 0).UTC().Format(time.RFC3339))
	}
	fmt.Printf("snapshot:        %s (enabled=%t)\n", stats.SnapshotPath, stats.CacheEnabled)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	agg, err := buildAggregator(cfg, nil, logger)
	if err != nil {
		return err
	}

	if dsn, _ := cmd.Flags().GetString("pg-dsn"); dsn != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		pools := agg.Snapshot()
		if err := store.UpsertPools(ctx, pools); err != nil {
			return fmt.Errorf("export to postgres: %w", err)
		}
		fmt.Printf("exported %d pools to postgres\n", len(pools))
		return nil
	}

	out, _ := cmd.Flags().GetString("out")
	n, err := agg.ExportCache(out)
	if err != nil {
		return err
	}
	if out == "" {
		out = cfg.CachePath
	}
	fmt.Printf("exported %d pools -> %s\n", n, out)
	return nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	agg, err := buildAggregator(cfg, nil, logger)
	if err != nil {
		return err
	}

	if dsn, _ := cmd.Flags().GetString("pg-dsn"); dsn != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		pools, err := store.LoadPools(ctx)
		if err != nil {
			return fmt.Errorf("import from postgres: %w", err)
		}
		agg.Restore(pools)
		fmt.Printf("imported %d pools from postgres\n", len(pools))
	} else {
		in, _ := cmd.Flags().GetString("in")
		if in == "" {
			return fmt.Errorf("either --in or --pg-dsn is required")
		}
		n, err := agg.ImportCache(in)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d pools from %s\n", n, in)
	}

	if cfg.CacheEnabled {
		if _, err := agg.ExportCache(""); err != nil {
			return err
		}
	}
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.CachePath != "" {
		if err := os.Remove(cfg.CachePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot: %w", err)
		}
	}
	fmt.Println("pool cache cleared")
	return nil
}

func parseAddressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
