package indexer

import (
	"context"
	"strings"
)

// Probe checks connectivity once and reports the result to the log. It never
// fails the caller.
func (s *Synchronizer) Probe(ctx context.Context) bool {
	info, err := s.engine.Info(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("connection failed")
		return false
	}
	s.log.Info().
		Str("version", info.Version).
		Str("distribution", info.Distribution).
		Str("cluster", info.Name).
		Msg("connected")
	return true
}

// LogSettings reports the index and eligible collections.
func (s *Synchronizer) LogSettings() {
	collections := "all"
	if !s.allow.All() {
		collections = strings.Join(s.allow.Names(), ", ")
	}
	s.log.Info().
		Str("index", s.index).
		Str("collections", collections).
		Str("id_field", s.idField).
		Int("batch_concurrency", s.concurrency).
		Msg("index synchronizer loaded")
}
