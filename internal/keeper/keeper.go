// Package keeper drives the pool's rebalancing cycle on a schedule.
package keeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/openvault/rebalancer/internal/logger"
	"github.com/openvault/rebalancer/internal/pool"
	"github.com/openvault/rebalancer/internal/state"
	"github.com/openvault/rebalancer/internal/types"
)

// Keeper periodically triggers the pool's invest cycle.
type Keeper struct {
	logger   zerolog.Logger
	pool     *pool.Pool
	recorder *state.DBRecorder // nil when persistence is disabled

	schedule string

	cycleCount int
}

// Config holds the configuration for creating a new Keeper instance
type Config struct {
	Pool     *pool.Pool
	Recorder *state.DBRecorder
	Schedule string // cron expression, e.g. "*/10 * * * *"
}

// NewKeeper creates a new Keeper instance with dependency injection
func NewKeeper(cfg Config) (*Keeper, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if cfg.Schedule == "" {
		return nil, fmt.Errorf("schedule cannot be empty")
	}

	k := &Keeper{
		logger:   logger.GetForComponent("keeper"),
		pool:     cfg.Pool,
		recorder: cfg.Recorder,
		schedule: cfg.Schedule,
	}

	k.logger.Info().
		Str("schedule", k.schedule).
		Msg("Keeper instance created successfully")

	return k, nil
}

// Run starts the keeper loop. The first cycle runs immediately, then on
// the configured cron schedule until the context is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	k.logger.Info().Str("schedule", k.schedule).Msg("Starting keeper loop")

	k.RunCycle()

	c := cron.New()
	if _, err := c.AddFunc(k.schedule, k.RunCycle); err != nil {
		return fmt.Errorf("invalid keeper schedule %q: %w", k.schedule, err)
	}
	c.Start()

	<-ctx.Done()
	k.logger.Info().Msg("Keeper loop stopped due to context cancellation")

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// RunCycle executes a single rebalancing cycle.
func (k *Keeper) RunCycle() {
	cycleStartTime := time.Now()
	k.cycleCount++

	// Unique cycle ID for tracing logs and persisted records
	cycleID := uuid.New().String()
	if k.recorder != nil {
		cycleID = k.recorder.BeginRun()
	}
	cycleLogger := k.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Int("cycle", k.cycleCount).Msg("--- Starting rebalance cycle ---")

	decision, err := k.pool.Invest()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: invest failed")
		return
	}

	if decision.Action == types.ActionHold {
		cycleLogger.Info().
			Dur("duration", time.Since(cycleStartTime)).
			Msg("Cycle completed, no trade")
		return
	}

	cycleLogger.Info().
		Str("side", string(decision.Action)).
		Str("amount", decision.Amount.String()).
		Dur("duration", time.Since(cycleStartTime)).
		Msg("Cycle completed")
}
