// Package stamp enriches payloads with creation and modification times
// before the host persists them.
package stamp

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BRO3886/directus-search-sync/internal/hooks"
	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/types"
)

const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Allower decides which collections are stamped.
type Allower interface {
	Allows(collection string) bool
}

type Stamper struct {
	allow Allower
	now   func() time.Time
	log   zerolog.Logger
}

var _ hooks.Filter = (*Stamper)(nil)

func New(allow Allower, now func() time.Time, logger zerolog.Logger) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{allow: allow, now: now, log: logging.Component(logger, "stamp")}
}

// BeforeCreate sets created_at unless the payload already carries one.
func (s *Stamper) BeforeCreate(_ context.Context, collection string, payload types.Record) (types.Record, error) {
	if !s.allow.Allows(collection) {
		return payload, nil
	}
	if v, ok := payload[FieldCreatedAt]; ok && v != nil && v != "" {
		return payload, nil
	}
	out := payload.Clone()
	out[FieldCreatedAt] = s.timestamp()
	s.log.Debug().Str("collection", collection).Msg("stamped created_at")
	return out, nil
}

// BeforeUpdate always overwrites updated_at.
func (s *Stamper) BeforeUpdate(_ context.Context, collection string, payload types.Record) (types.Record, error) {
	if !s.allow.Allows(collection) {
		return payload, nil
	}
	out := payload.Clone()
	out[FieldUpdatedAt] = s.timestamp()
	s.log.Debug().Str("collection", collection).Msg("stamped updated_at")
	return out, nil
}

func (s *Stamper) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
