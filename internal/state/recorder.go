// ./internal/state/recorder.go
package state

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openvault/rebalancer/internal/types"
)

// DBRecorder persists swaps and snapshots emitted by the pool. The
// keeper stamps each cycle with a fresh run ID before triggering it;
// persistence failures are logged and swallowed so they never fail the
// pool operation that produced the record.
type DBRecorder struct {
	mu    sync.Mutex
	runID string
}

// NewDBRecorder creates a recorder with an initial run ID.
func NewDBRecorder() *DBRecorder {
	return &DBRecorder{runID: uuid.New().String()}
}

// BeginRun stamps subsequent records with a fresh run ID and returns it.
func (r *DBRecorder) BeginRun() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runID = uuid.New().String()
	return r.runID
}

func (r *DBRecorder) currentRunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

func (r *DBRecorder) RecordSwap(rec types.SwapRecord) {
	if _, err := SaveSwap(r.currentRunID(), rec); err != nil {
		log.Error().Err(err).Msg("Failed to persist swap record")
	}
}

func (r *DBRecorder) RecordSummary(sum types.PoolSummary) {
	if _, err := SaveSnapshot(r.currentRunID(), sum); err != nil {
		log.Error().Err(err).Msg("Failed to persist pool snapshot")
	}
}
