// Package hooks defines the lifecycle contract between the host data store
// and its listeners.
//
// Action notifications arrive after a mutation was persisted. Their
// listeners are best effort: an Outcome is always produced and failures are
// only counted and logged. Filter notifications arrive before a mutation is
// persisted and return the payload that the host should store.
package hooks

import (
	"context"

	"github.com/BRO3886/directus-search-sync/internal/types"
)

// Outcome summarizes how an action notification was handled. It never
// represents a failure of the notification itself.
type Outcome struct {
	Event      types.Event `json:"event"`
	Collection string      `json:"collection"`
	// Skipped is set when the collection is not eligible for indexing.
	Skipped bool `json:"skipped"`
	Total   int  `json:"total"`
	Failed  int  `json:"failed"`
}

// ActionListener receives post-persist notifications, one method per event.
type ActionListener interface {
	RecordCreated(ctx context.Context, collection string, record types.Record) Outcome
	RecordUpdated(ctx context.Context, collection string, record types.Record) Outcome
	RecordDeleted(ctx context.Context, collection string, ref types.Record) Outcome
	BatchCreated(ctx context.Context, collection string, records []types.Record) Outcome
	BatchUpdated(ctx context.Context, collection string, records []types.Record) Outcome
	BatchDeleted(ctx context.Context, collection string, refs []types.Record) Outcome
}

// Filter receives pre-persist notifications and returns the payload to
// persist. Filters must not depend on each other's order.
type Filter interface {
	BeforeCreate(ctx context.Context, collection string, payload types.Record) (types.Record, error)
	BeforeUpdate(ctx context.Context, collection string, payload types.Record) (types.Record, error)
}
