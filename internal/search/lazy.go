package search

import (
	"context"
	"sync"
)

// Factory builds an Engine. It succeeds at most once per Lazy handle; a
// failed build is attempted again on the next call.
type Factory func() (Engine, error)

// Lazy is a shared Engine handle that connects on first use. Concurrent
// first callers all observe the same instance. A failed construction is
// retried by the next call.
type Lazy struct {
	factory Factory

	mu     sync.Mutex
	engine Engine
}

func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

func (l *Lazy) get() (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine != nil {
		return l.engine, nil
	}
	e, err := l.factory()
	if err != nil {
		return nil, err
	}
	l.engine = e
	return e, nil
}

func (l *Lazy) Info(ctx context.Context) (ClusterInfo, error) {
	e, err := l.get()
	if err != nil {
		return ClusterInfo{}, err
	}
	return e.Info(ctx)
}

func (l *Lazy) IndexExists(ctx context.Context, index string) (bool, error) {
	e, err := l.get()
	if err != nil {
		return false, err
	}
	return e.IndexExists(ctx, index)
}

func (l *Lazy) CreateIndex(ctx context.Context, index string, body []byte) error {
	e, err := l.get()
	if err != nil {
		return err
	}
	return e.CreateIndex(ctx, index, body)
}

func (l *Lazy) Put(ctx context.Context, index, id string, doc Document) error {
	e, err := l.get()
	if err != nil {
		return err
	}
	return e.Put(ctx, index, id, doc)
}

func (l *Lazy) Delete(ctx context.Context, index, id string) error {
	e, err := l.get()
	if err != nil {
		return err
	}
	return e.Delete(ctx, index, id)
}
