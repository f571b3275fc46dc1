// ./internal/state/snapshot_store.go
package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openvault/rebalancer/internal/types"
)

// SaveSnapshot persists the post-cycle pool summary under the given run ID.
func SaveSnapshot(runID string, sum types.PoolSummary) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO pool_snapshots (
			run_id, snapshot_timestamp,
			stable_balance, risk_balance, total_value, total_shares,
			fees_accrued, feed_price, swap_count
		) VALUES ($1, CURRENT_TIMESTAMP, $2, $3, $4, $5, $6, $7, $8)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err := DB.QueryRow(
		query,
		runID,
		sum.StableBalance, sum.RiskBalance, sum.TotalValue, sum.TotalShares,
		sum.FeesAccrued, sum.FeedPrice, sum.SwapCount,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Str("run_id", runID).
		Str("total_value", sum.TotalValue).
		Msg("Pool snapshot saved to database")

	return snapshotID, nil
}
