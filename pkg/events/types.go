// Package events routes ingestion notifications to the components
// that cache derived views of the operational store. The ingest
// webhook writes nothing itself; publishing an event is how the rest
// of the process learns that new rows landed and cached answers may
// be stale.
package events

import (
	"time"

	"github.com/plantops/opsbrief/pkg/models"
)

// Table names the ingestion pipeline reports in event payloads.
const (
	TableDailySummaries = "daily_summaries"
	TableLiveSnapshots  = "live_snapshots"
	TableSafetyEvents   = "safety_events"
	TableShiftTargets   = "shift_targets"
	TableAssets         = "assets"
)

// IngestionEvent describes one batch of rows written by the external
// ingestion pipeline. A zero Date means the batch spans multiple days
// and date-scoped caches should be dropped wholesale. Empty Tables
// means the publisher could not tell what changed and everything is
// treated as touched.
type IngestionEvent struct {
	Date       models.Date `json:"date,omitzero"`
	Tables     []string    `json:"tables"`
	ReceivedAt time.Time   `json:"received_at"`
}

// Touches reports whether the event names the given table. An event
// with no tables is treated as touching everything.
func (e IngestionEvent) Touches(table string) bool {
	if len(e.Tables) == 0 {
		return true
	}
	for _, t := range e.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// Subscriber reacts to one ingestion event. Subscribers must be safe
// for concurrent calls; the publisher does not serialize them across
// Publish invocations.
type Subscriber func(event IngestionEvent) error
