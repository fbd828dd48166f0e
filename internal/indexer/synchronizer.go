// Package indexer mirrors host record changes into a search index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BRO3886/directus-search-sync/internal/hooks"
	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/search"
	"github.com/BRO3886/directus-search-sync/internal/types"
)

type Options struct {
	Index       string
	AllowList   AllowList
	IDField     string
	Concurrency int // batch workers, 1 keeps input order
	Now         func() time.Time
	Logger      zerolog.Logger
}

// Synchronizer keeps the search index consistent with host collections.
// Every failure is logged and swallowed: indexing must never fail the
// mutation that triggered it.
type Synchronizer struct {
	engine      search.Engine
	index       string
	allow       AllowList
	idField     string
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

var _ hooks.ActionListener = (*Synchronizer)(nil)

func New(engine search.Engine, opts Options) *Synchronizer {
	if opts.IDField == "" {
		opts.IDField = "id"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Synchronizer{
		engine:      engine,
		index:       opts.Index,
		allow:       opts.AllowList,
		idField:     opts.IDField,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		log:         logging.Component(opts.Logger, "indexer"),
	}
}

func (s *Synchronizer) RecordCreated(ctx context.Context, collection string, record types.Record) hooks.Outcome {
	return s.single(ctx, types.EventRecordCreated, collection, record, s.upsert)
}

func (s *Synchronizer) RecordUpdated(ctx context.Context, collection string, record types.Record) hooks.Outcome {
	return s.single(ctx, types.EventRecordUpdated, collection, record, s.upsert)
}

func (s *Synchronizer) RecordDeleted(ctx context.Context, collection string, ref types.Record) hooks.Outcome {
	return s.single(ctx, types.EventRecordDeleted, collection, ref, s.remove)
}

func (s *Synchronizer) BatchCreated(ctx context.Context, collection string, records []types.Record) hooks.Outcome {
	return s.batch(ctx, types.EventBatchCreated, collection, records, s.upsert)
}

func (s *Synchronizer) BatchUpdated(ctx context.Context, collection string, records []types.Record) hooks.Outcome {
	return s.batch(ctx, types.EventBatchUpdated, collection, records, s.upsert)
}

func (s *Synchronizer) BatchDeleted(ctx context.Context, collection string, refs []types.Record) hooks.Outcome {
	return s.batch(ctx, types.EventBatchDeleted, collection, refs, s.remove)
}

type op func(ctx context.Context, collection string, record types.Record) error

func (s *Synchronizer) single(ctx context.Context, event types.Event, collection string, record types.Record, apply op) hooks.Outcome {
	out := hooks.Outcome{Event: event, Collection: collection, Total: 1}
	if !s.allow.Allows(collection) {
		out.Skipped = true
		return out
	}
	if err := apply(ctx, collection, record); err != nil {
		out.Failed = 1
	}
	return out
}

func (s *Synchronizer) batch(ctx context.Context, event types.Event, collection string, records []types.Record, apply op) hooks.Outcome {
	out := hooks.Outcome{Event: event, Collection: collection, Total: len(records)}
	if !s.allow.Allows(collection) {
		out.Skipped = true
		return out
	}

	s.log.Info().
		Str("event", string(event)).
		Str("collection", collection).
		Int("items", len(records)).
		Msg("batch")

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	if s.concurrency == 1 {
		for _, r := range records {
			if err := apply(ctx, collection, r); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, r := range records {
			g.Go(func() error {
				if err := apply(gctx, collection, r); err != nil {
					mu.Lock()
					errs = multierror.Append(errs, err)
					mu.Unlock()
				}
				// a failed record must not cancel its siblings
				return nil
			})
		}
		_ = g.Wait()
	}

	if errs != nil {
		out.Failed = errs.Len()
		s.log.Warn().
			Err(errs.ErrorOrNil()).
			Str("event", string(event)).
			Str("collection", collection).
			Int("failed", out.Failed).
			Int("items", out.Total).
			Msg("batch finished with failures")
	}
	return out
}

// upsert writes the full document for record, replacing any previous
// version. It returns the failure only so callers can count it.
func (s *Synchronizer) upsert(ctx context.Context, collection string, record types.Record) error {
	id, ok := record.ID(s.idField)
	if !ok {
		err := fmt.Errorf("%s: record has no %q field", collection, s.idField)
		s.log.Warn().Str("collection", collection).Msg("skipping record without identifier")
		return err
	}

	if err := s.ensureIndex(ctx); err != nil {
		s.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("error indexing")
		return err
	}

	doc := types.GetIndexableDoc(collection, record[s.idField], record, s.now())
	if err := s.engine.Put(ctx, s.index, doc.Id, doc.Data); err != nil {
		s.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("error indexing")
		return fmt.Errorf("%s/%s: %w", collection, id, err)
	}

	s.log.Info().Str("collection", collection).Str("id", id).Msg("indexed")
	return nil
}

// remove deletes the document for ref. A missing document counts as removed.
func (s *Synchronizer) remove(ctx context.Context, collection string, ref types.Record) error {
	id, ok := ref.ID(s.idField)
	if !ok {
		s.log.Warn().Str("collection", collection).Msg("skipping delete without identifier")
		return fmt.Errorf("%s: reference has no %q field", collection, s.idField)
	}

	err := s.engine.Delete(ctx, s.index, types.DocumentID(collection, id))
	switch {
	case err == nil:
		s.log.Info().Str("collection", collection).Str("id", id).Msg("deleted")
	case errors.Is(err, search.ErrNotFound):
		s.log.Debug().Str("collection", collection).Str("id", id).Msg("already absent")
	default:
		s.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("error deleting")
		return fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	return nil
}

// ensureIndex provisions the index on first use. Losing a creation race to
// another writer is fine.
func (s *Synchronizer) ensureIndex(ctx context.Context) error {
	exists, err := s.engine.IndexExists(ctx, s.index)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", s.index, err)
	}
	if exists {
		return nil
	}
	err = s.engine.CreateIndex(ctx, s.index, search.IndexDefinition())
	if err != nil && !errors.Is(err, search.ErrIndexExists) {
		return fmt.Errorf("creating index %s: %w", s.index, err)
	}
	return nil
}
