package search

import (
	"context"
	"errors"
	"net/url"
)

var (
	// ErrNotFound is returned by Delete when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrIndexExists is returned by CreateIndex when another caller created
	// the index first.
	ErrIndexExists = errors.New("index already exists")
)

type Document map[string]any

// ClusterInfo is the subset of the cluster info response that is reported
// on startup.
type ClusterInfo struct {
	Name         string
	Version      string
	Distribution string
}

// Engine is the set of document-index RPCs the synchronizer consumes.
type Engine interface {
	Info(ctx context.Context) (ClusterInfo, error)
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, body []byte) error
	// Put writes doc under id, replacing any previous version in full.
	Put(ctx context.Context, index, id string, doc Document) error
	Delete(ctx context.Context, index, id string) error
}

// EscapeID encodes id as a single URL path segment. Neither client escapes
// document ids, so "/", "?", "#" and "%" would otherwise change the request.
func EscapeID(id string) string {
	return url.PathEscape(id)
}
