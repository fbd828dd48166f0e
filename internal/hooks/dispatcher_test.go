package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BRO3886/directus-search-sync/internal/types"
)

type call struct {
	method     string
	collection string
	n          int
}

type recordingListener struct {
	calls []call
}

func (r *recordingListener) record(method, collection string, n int) Outcome {
	r.calls = append(r.calls, call{method, collection, n})
	return Outcome{Collection: collection, Total: n}
}

func (r *recordingListener) RecordCreated(_ context.Context, c string, _ types.Record) Outcome {
	return r.record("RecordCreated", c, 1)
}
func (r *recordingListener) RecordUpdated(_ context.Context, c string, _ types.Record) Outcome {
	return r.record("RecordUpdated", c, 1)
}
func (r *recordingListener) RecordDeleted(_ context.Context, c string, _ types.Record) Outcome {
	return r.record("RecordDeleted", c, 1)
}
func (r *recordingListener) BatchCreated(_ context.Context, c string, rs []types.Record) Outcome {
	return r.record("BatchCreated", c, len(rs))
}
func (r *recordingListener) BatchUpdated(_ context.Context, c string, rs []types.Record) Outcome {
	return r.record("BatchUpdated", c, len(rs))
}
func (r *recordingListener) BatchDeleted(_ context.Context, c string, rs []types.Record) Outcome {
	return r.record("BatchDeleted", c, len(rs))
}

type fieldFilter struct {
	field string
	err   error
}

func (f fieldFilter) BeforeCreate(_ context.Context, _ string, p types.Record) (types.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	p[f.field] = "create"
	return p, nil
}

func (f fieldFilter) BeforeUpdate(_ context.Context, _ string, p types.Record) (types.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	p[f.field] = "update"
	return p, nil
}

func TestActionRoutesEveryEvent(t *testing.T) {
	l := &recordingListener{}
	d := NewDispatcher(zerolog.Nop())
	d.OnAction(l)

	two := []types.Record{{"id": 1}, {"id": 2}}
	notifications := []types.Notification{
		{Event: types.EventRecordCreated, Collection: "articles", Record: types.Record{"id": 1}},
		{Event: types.EventRecordUpdated, Collection: "articles", Record: types.Record{"id": 1}},
		{Event: types.EventRecordDeleted, Collection: "articles", Record: types.Record{"id": 1}},
		{Event: types.EventBatchCreated, Collection: "articles", Records: two},
		{Event: types.EventBatchUpdated, Collection: "articles", Records: two},
		{Event: types.EventBatchDeleted, Collection: "articles", Records: two},
	}
	for _, n := range notifications {
		outcomes, err := d.Action(context.Background(), n)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
	}

	assert.Equal(t, []call{
		{"RecordCreated", "articles", 1},
		{"RecordUpdated", "articles", 1},
		{"RecordDeleted", "articles", 1},
		{"BatchCreated", "articles", 2},
		{"BatchUpdated", "articles", 2},
		{"BatchDeleted", "articles", 2},
	}, l.calls)
}

func TestActionFansOut(t *testing.T) {
	a, b := &recordingListener{}, &recordingListener{}
	d := NewDispatcher(zerolog.Nop())
	d.OnAction(a)
	d.OnAction(b)

	outcomes, err := d.Action(context.Background(), types.Notification{
		Event: types.EventRecordCreated, Collection: "pages", Record: types.Record{"id": "x"},
	})
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	assert.Len(t, a.calls, 1)
	assert.Len(t, b.calls, 1)
}

func TestActionRejects(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	d.OnAction(&recordingListener{})

	_, err := d.Action(context.Background(), types.Notification{Event: types.EventBeforeCreate, Collection: "a"})
	assert.ErrorContains(t, err, "not an action event")

	_, err = d.Action(context.Background(), types.Notification{Event: types.EventRecordCreated})
	assert.ErrorContains(t, err, "collection is empty")
}

func TestFilterThreadsPayload(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	d.OnFilter(fieldFilter{field: "a"})
	d.OnFilter(fieldFilter{field: "b"})

	in := types.Record{"title": "A"}
	out, err := d.Filter(context.Background(), types.Notification{
		Event: types.EventBeforeCreate, Collection: "articles", Record: in,
	})
	require.NoError(t, err)
	assert.Equal(t, types.Record{"title": "A", "a": "create", "b": "create"}, out)
	assert.Equal(t, types.Record{"title": "A"}, in, "input payload must not be mutated")

	out, err = d.Filter(context.Background(), types.Notification{
		Event: types.EventBeforeUpdate, Collection: "articles", Record: types.Record{},
	})
	require.NoError(t, err)
	assert.Equal(t, "update", out["a"])
}

func TestFilterNilRecord(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	d.OnFilter(fieldFilter{field: "a"})

	out, err := d.Filter(context.Background(), types.Notification{Event: types.EventBeforeCreate, Collection: "articles"})
	require.NoError(t, err)
	assert.Equal(t, types.Record{"a": "create"}, out)
}

func TestFilterErrors(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	boom := errors.New("boom")
	d.OnFilter(fieldFilter{err: boom})

	_, err := d.Filter(context.Background(), types.Notification{Event: types.EventBeforeUpdate, Collection: "articles"})
	assert.ErrorIs(t, err, boom)

	_, err = d.Filter(context.Background(), types.Notification{Event: types.EventRecordCreated, Collection: "articles"})
	assert.ErrorContains(t, err, "not a filter event")
}
