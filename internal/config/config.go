package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PoolAddress is the pool's own account on the token ledgers.
	PoolAddress string
	// PoolOwner receives collected performance fees.
	PoolOwner string

	// StableDenom and RiskDenom identify the two assets on the ledgers.
	StableDenom string
	RiskDenom   string

	StableDecimals int
	RiskDecimals   int
	ShareDecimals  int

	// FeesPerc scaled by 10^FeesPercDecimals is the performance fee rate.
	FeesPerc         int64
	FeesPercDecimals int

	// SlippageThresholdBps bounds the acceptable shortfall on rebalancing swaps.
	SlippageThresholdBps int64

	// UpdateInterval gates how often the pool will rebalance.
	UpdateInterval time.Duration
	// MaxPriceAge is the oldest oracle quote the pool will act on.
	MaxPriceAge time.Duration

	// KeeperSchedule is the cron expression driving the invest cycle.
	KeeperSchedule string

	// StrategyName selects the rebalancing strategy: "fixed_threshold",
	// "trend_following" or "mean_reversion".
	StrategyName string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolAddress, err = getEnv("POOL_ADDRESS")
	if err != nil {
		return err
	}

	PoolOwner, err = getEnv("POOL_OWNER")
	if err != nil {
		return err
	}

	StableDenom, err = getEnv("STABLE_DENOM")
	if err != nil {
		return err
	}

	RiskDenom, err = getEnv("RISK_DENOM")
	if err != nil {
		return err
	}

	StableDecimals, err = getEnvAsInt("STABLE_DECIMALS")
	if err != nil {
		return err
	}

	RiskDecimals, err = getEnvAsInt("RISK_DECIMALS")
	if err != nil {
		return err
	}

	ShareDecimals, err = getEnvAsInt("SHARE_DECIMALS")
	if err != nil {
		return err
	}

	FeesPerc, err = getEnvAsInt64("FEES_PERC")
	if err != nil {
		return err
	}

	FeesPercDecimals, err = getEnvAsInt("FEES_PERC_DECIMALS")
	if err != nil {
		return err
	}

	SlippageThresholdBps, err = getEnvAsInt64("SLIPPAGE_THRESHOLD_BPS")
	if err != nil {
		return err
	}

	UpdateInterval, err = getEnvAsDuration("UPDATE_INTERVAL")
	if err != nil {
		return err
	}

	MaxPriceAge, err = getEnvAsDuration("MAX_PRICE_AGE")
	if err != nil {
		return err
	}

	KeeperSchedule, err = getEnv("KEEPER_SCHEDULE")
	if err != nil {
		return err
	}

	StrategyName, err = getEnv("STRATEGY")
	if err != nil {
		return err
	}

	log.Debug().
		Str("PoolAddress", PoolAddress).
		Str("Strategy", StrategyName).
		Str("KeeperSchedule", KeeperSchedule).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration ("10m", "1h30m").
func getEnvAsDuration(key string) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
