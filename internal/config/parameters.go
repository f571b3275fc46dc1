/*

Default strategy parameters. These are the values a pool starts with
when no overrides are present in the environment; each can be replaced
per deployment through the corresponding variable.

*/

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// StrategyParameters holds the tunables for all three rebalancing
// strategies. Only the fields relevant to the selected strategy are
// read; the rest are ignored.
type StrategyParameters struct {
	// Fixed threshold: hold the risk asset at TargetRiskPercent of the
	// portfolio, trading only when the deviation exceeds
	// ThresholdPercent of the target.
	TargetRiskPercent int64
	ThresholdPercent  int64

	// Moving average, shared by trend following and mean reversion.
	AveragePeriod      int64
	AverageMinInterval time.Duration

	// MinAllocationPercent keeps both sides of the portfolio above this
	// floor so the strategy can always trade back.
	MinAllocationPercent int64
	// SwapPercent sizes each signal-driven trade as a cut of the side
	// being sold.
	SwapPercent int64

	// Mean reversion trigger bands, as percent offsets from the average.
	UpTriggerPercent   int64
	DownTriggerPercent int64
}

// DefaultStrategyParameters is the baseline tuning.
var DefaultStrategyParameters = StrategyParameters{
	TargetRiskPercent: 60, // majority in the risk asset, classic 60/40
	ThresholdPercent:  2,  // trade only past a 2% drift off target

	AveragePeriod:      10,
	AverageMinInterval: time.Hour, // at most one observation per hour

	MinAllocationPercent: 20, // never let either side drop below 20%
	SwapPercent:          10, // trade 10% of the selling side per signal

	UpTriggerPercent:   10,
	DownTriggerPercent: 10,
}

// LoadStrategyParameters returns the defaults with any environment
// overrides applied.
func LoadStrategyParameters() StrategyParameters {
	params := DefaultStrategyParameters

	overrideInt64(&params.TargetRiskPercent, "TARGET_RISK_PERCENT")
	overrideInt64(&params.ThresholdPercent, "THRESHOLD_PERCENT")
	overrideInt64(&params.AveragePeriod, "AVERAGE_PERIOD")
	overrideDuration(&params.AverageMinInterval, "AVERAGE_MIN_INTERVAL")
	overrideInt64(&params.MinAllocationPercent, "MIN_ALLOCATION_PERCENT")
	overrideInt64(&params.SwapPercent, "SWAP_PERCENT")
	overrideInt64(&params.UpTriggerPercent, "UP_TRIGGER_PERCENT")
	overrideInt64(&params.DownTriggerPercent, "DOWN_TRIGGER_PERCENT")

	return params
}

func overrideInt64(target *int64, key string) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Ignoring invalid parameter override")
		return
	}
	*target = value
}

func overrideDuration(target *time.Duration, key string) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Ignoring invalid parameter override")
		return
	}
	*target = value
}
