// ./internal/state/swap_store.go
package state

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openvault/rebalancer/internal/types"
)

// SwapRow is one persisted swap log entry.
type SwapRow struct {
	SwapID     int64     `json:"swap_id"`
	RunID      string    `json:"run_id"`
	Side       string    `json:"side"`
	AmountIn   string    `json:"amount_in"`
	AmountOut  string    `json:"amount_out"`
	FeedPrice  string    `json:"feed_price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// SaveSwap persists an executed swap under the given run ID.
func SaveSwap(runID string, rec types.SwapRecord) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO swap_log (run_id, side, amount_in, amount_out, feed_price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING swap_id;
	`

	var swapID int64
	err := DB.QueryRow(
		query,
		runID, string(rec.Side), rec.AmountIn.String(), rec.AmountOut.String(),
		rec.FeedPrice.String(), rec.Timestamp,
	).Scan(&swapID)
	if err != nil {
		return 0, fmt.Errorf("failed to save swap: %w", err)
	}

	log.Info().
		Int64("swap_id", swapID).
		Str("run_id", runID).
		Str("side", string(rec.Side)).
		Msg("Swap saved to database")

	return swapID, nil
}

// ListSwaps returns the most recent persisted swaps, newest first.
func ListSwaps(limit int) ([]SwapRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT swap_id, run_id, side, amount_in, amount_out, feed_price, executed_at
		FROM swap_log
		ORDER BY executed_at DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query swap log: %w", err)
	}
	defer rows.Close()

	var out []SwapRow
	for rows.Next() {
		var row SwapRow
		if err := rows.Scan(&row.SwapID, &row.RunID, &row.Side, &row.AmountIn,
			&row.AmountOut, &row.FeedPrice, &row.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan swap row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
