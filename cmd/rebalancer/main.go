package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/openvault/rebalancer/internal/config"
	"github.com/openvault/rebalancer/internal/keeper"
	"github.com/openvault/rebalancer/internal/logger"
	"github.com/openvault/rebalancer/internal/market"
	"github.com/openvault/rebalancer/internal/pool"
	"github.com/openvault/rebalancer/internal/state"
	"github.com/openvault/rebalancer/internal/strategy"
	"github.com/openvault/rebalancer/internal/web"
)

// main is the entry point for the rebalancing pool keeper.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Rebalancing pool keeper starting...")

	// --- 2. Persistence (optional) ---
	var recorder *state.DBRecorder
	dbEnabled := os.Getenv("DB_ENABLED") == "true"
	if dbEnabled {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		recorder = state.NewDBRecorder()
	} else {
		log.Warn().Msg("DB_ENABLED is not 'true'; swap history will not be persisted.")
	}

	// --- 3. Market Wiring (with Safety Switch) ---
	poolMode := os.Getenv("POOL_MODE")
	if poolMode != "sim" {
		log.Fatal().Msg("POOL_MODE is not set to 'sim'. Halting to prevent accidental execution. Set POOL_MODE=sim to run against the simulated market.")
	}
	log.Info().Msg("Initializing pool in SIM mode against in-process market collaborators.")

	oracle, venue, stableToken, riskToken := buildSimMarket()

	// --- 4. Pool and Strategy ---
	strat, err := buildStrategy(oracle)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build strategy")
	}

	poolCfg := pool.Config{
		Address:              config.PoolAddress,
		Owner:                config.PoolOwner,
		StableDecimals:       config.StableDecimals,
		RiskDecimals:         config.RiskDecimals,
		ShareDecimals:        config.ShareDecimals,
		FeesPerc:             config.FeesPerc,
		FeesPercDecimals:     config.FeesPercDecimals,
		SlippageThresholdBps: config.SlippageThresholdBps,
		UpdateInterval:       config.UpdateInterval,
		MaxPriceAge:          config.MaxPriceAge,
	}

	var opts []pool.Option
	if recorder != nil {
		opts = append(opts, pool.WithRecorder(recorder))
	}

	p, err := pool.New(poolCfg, oracle, venue, stableToken, riskToken, strat, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pool")
	}
	venue.SetCounterparty(config.PoolAddress)

	// --- 5. Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, p, dbEnabled)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting pool web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 6. Keeper Loop ---
	k, err := keeper.NewKeeper(keeper.Config{
		Pool:     p,
		Recorder: recorder,
		Schedule: config.KeeperSchedule,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create keeper")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := k.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Keeper loop failed")
	}
	log.Info().Msg("Shutdown complete.")
}

// buildSimMarket wires the in-process oracle, venue and token ledgers,
// seeds the venue's inventory and keeps the price feed fresh.
func buildSimMarket() (*market.SimOracle, *market.SimVenue, *market.SimToken, *market.SimToken) {
	price := mustDec(os.Getenv("SIM_INITIAL_PRICE"), "2000")

	stableToken := market.NewSimToken(config.StableDenom, nil)
	riskToken := market.NewSimToken(config.RiskDenom, nil)

	oracle := market.NewSimOracle(price, time.Now())
	venue := market.NewSimVenue(oracle, stableToken, riskToken, config.StableDecimals, config.RiskDecimals)

	// Deep venue inventory so swaps never fail on the venue's side.
	stableToken.Mint(venue.Address(), sdkmath.NewInt(1_000_000).Mul(pow10(config.StableDecimals)))
	riskToken.Mint(venue.Address(), sdkmath.NewInt(1_000).Mul(pow10(config.RiskDecimals)))

	// Re-stamp the quote so it never goes stale while the keeper runs.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			quote, err := oracle.LatestPrice()
			if err != nil {
				continue
			}
			oracle.SetPrice(quote.Price, time.Now())
		}
	}()

	return oracle, venue, stableToken, riskToken
}

// buildStrategy constructs the strategy named in the configuration.
func buildStrategy(oracle *market.SimOracle) (strategy.Strategy, error) {
	params := config.LoadStrategyParameters()

	quote, err := oracle.LatestPrice()
	if err != nil {
		return nil, fmt.Errorf("failed to read initial price: %w", err)
	}
	mean := strategy.NewMeanTracker(quote.Price, params.AveragePeriod, params.AverageMinInterval)

	switch config.StrategyName {
	case "fixed_threshold":
		return strategy.NewFixedThreshold(params.TargetRiskPercent, params.ThresholdPercent, config.MaxPriceAge)
	case "trend_following":
		return strategy.NewTrendFollowing(mean, params.MinAllocationPercent, params.SwapPercent, config.MaxPriceAge)
	case "mean_reversion":
		return strategy.NewMeanReversion(mean, params.UpTriggerPercent, params.DownTriggerPercent,
			params.MinAllocationPercent, params.SwapPercent, config.MaxPriceAge)
	default:
		return nil, fmt.Errorf("unknown strategy %q", config.StrategyName)
	}
}

func pow10(decimals int) sdkmath.Int {
	out := sdkmath.OneInt()
	for i := 0; i < decimals; i++ {
		out = out.MulRaw(10)
	}
	return out
}

func mustDec(s, fallback string) sdkmath.LegacyDec {
	if s == "" {
		s = fallback
	}
	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		log.Fatal().Str("value", s).Msg("Invalid decimal value")
	}
	return dec
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
