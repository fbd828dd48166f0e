package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Event string

const (
	EventRecordCreated Event = "record-created"
	EventRecordUpdated Event = "record-updated"
	EventRecordDeleted Event = "record-deleted"
	EventBatchCreated  Event = "batch-created"
	EventBatchUpdated  Event = "batch-updated"
	EventBatchDeleted  Event = "batch-deleted"

	EventBeforeCreate Event = "record-about-to-be-created"
	EventBeforeUpdate Event = "record-about-to-be-updated"
)

// IsAction reports whether e is a post-persist notification.
func (e Event) IsAction() bool {
	switch e {
	case EventRecordCreated, EventRecordUpdated, EventRecordDeleted,
		EventBatchCreated, EventBatchUpdated, EventBatchDeleted:
		return true
	}
	return false
}

// IsFilter reports whether e is a pre-persist notification.
func (e Event) IsFilter() bool {
	return e == EventBeforeCreate || e == EventBeforeUpdate
}

// Notification is a single lifecycle notification emitted by the host.
// Single-record events carry Record, batch events carry Records.
type Notification struct {
	Event      Event    `json:"event"`
	Collection string   `json:"collection"`
	Record     Record   `json:"record,omitempty"`
	Records    []Record `json:"records,omitempty"`
	TimeStamp  int64    `json:"ts_ms,omitempty"`
}

// DecodeNotification parses a JSON notification. Numbers are kept as
// json.Number so record identifiers render exactly as the host sent them.
func DecodeNotification(data []byte) (Notification, error) {
	var n Notification
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if err := n.Validate(); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (n Notification) Validate() error {
	if !n.Event.IsAction() && !n.Event.IsFilter() {
		return fmt.Errorf("unknown event %q", n.Event)
	}
	if n.Collection == "" {
		return fmt.Errorf("%s: collection is empty", n.Event)
	}
	return nil
}
