package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/BRO3886/directus-search-sync/internal/search"
)

// fakeEngine is an in-memory search.Engine that records every call.
type fakeEngine struct {
	mu      sync.Mutex
	indexes map[string][]byte
	docs    map[string]search.Document
	calls   []string

	infoErr   error
	existsErr error
	createErr error
	deleteErr error
	putErrFor map[string]error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		indexes:   make(map[string][]byte),
		docs:      make(map[string]search.Document),
		putErrFor: make(map[string]error),
	}
}

func (f *fakeEngine) track(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) Doc(id string) (search.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	return d, ok
}

func (f *fakeEngine) Info(context.Context) (search.ClusterInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track("info")
	if f.infoErr != nil {
		return search.ClusterInfo{}, f.infoErr
	}
	return search.ClusterInfo{Name: "fake", Version: "2.11.0", Distribution: "opensearch"}, nil
}

func (f *fakeEngine) IndexExists(_ context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track("exists %s", index)
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.indexes[index]
	return ok, nil
}

func (f *fakeEngine) CreateIndex(_ context.Context, index string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track("create %s", index)
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.indexes[index]; ok {
		return search.ErrIndexExists
	}
	f.indexes[index] = body
	return nil
}

func (f *fakeEngine) Put(_ context.Context, index, id string, doc search.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track("put %s %s", index, id)
	if err := f.putErrFor[id]; err != nil {
		return err
	}
	f.docs[id] = doc
	return nil
}

func (f *fakeEngine) Delete(_ context.Context, index, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.track("delete %s %s", index, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.docs[id]; !ok {
		return fmt.Errorf("%s: %w", id, search.ErrNotFound)
	}
	delete(f.docs, id)
	return nil
}
