package hooks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/types"
)

// Dispatcher routes decoded notifications to the registered listeners.
type Dispatcher struct {
	actions []ActionListener
	filters []Filter
	log     zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{log: logging.Component(logger, "hooks")}
}

func (d *Dispatcher) OnAction(l ActionListener) {
	d.actions = append(d.actions, l)
}

func (d *Dispatcher) OnFilter(f Filter) {
	d.filters = append(d.filters, f)
}

// Action delivers an action notification to every action listener. An error
// is returned only when n is not an action notification.
func (d *Dispatcher) Action(ctx context.Context, n types.Notification) ([]Outcome, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if !n.Event.IsAction() {
		return nil, fmt.Errorf("%s is not an action event", n.Event)
	}

	outcomes := make([]Outcome, 0, len(d.actions))
	for _, l := range d.actions {
		outcomes = append(outcomes, deliver(ctx, l, n))
	}
	d.log.Debug().
		Str("event", string(n.Event)).
		Str("collection", n.Collection).
		Int("listeners", len(outcomes)).
		Msg("action dispatched")
	return outcomes, nil
}

func deliver(ctx context.Context, l ActionListener, n types.Notification) Outcome {
	switch n.Event {
	case types.EventRecordCreated:
		return l.RecordCreated(ctx, n.Collection, n.Record)
	case types.EventRecordUpdated:
		return l.RecordUpdated(ctx, n.Collection, n.Record)
	case types.EventRecordDeleted:
		return l.RecordDeleted(ctx, n.Collection, n.Record)
	case types.EventBatchCreated:
		return l.BatchCreated(ctx, n.Collection, n.Records)
	case types.EventBatchUpdated:
		return l.BatchUpdated(ctx, n.Collection, n.Records)
	default:
		return l.BatchDeleted(ctx, n.Collection, n.Records)
	}
}

// Filter threads the payload of a filter notification through every filter
// and returns the payload to persist.
func (d *Dispatcher) Filter(ctx context.Context, n types.Notification) (types.Record, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if !n.Event.IsFilter() {
		return nil, fmt.Errorf("%s is not a filter event", n.Event)
	}

	payload := n.Record.Clone()
	for _, f := range d.filters {
		var err error
		if n.Event == types.EventBeforeCreate {
			payload, err = f.BeforeCreate(ctx, n.Collection, payload)
		} else {
			payload, err = f.BeforeUpdate(ctx, n.Collection, payload)
		}
		if err != nil {
			return nil, fmt.Errorf("%s filter on %s: %w", n.Event, n.Collection, err)
		}
	}
	return payload, nil
}
