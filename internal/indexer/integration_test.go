package indexer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BRO3886/directus-search-sync/internal/config"
	"github.com/BRO3886/directus-search-sync/internal/elasticsearch"
	"github.com/BRO3886/directus-search-sync/internal/opensearch"
	"github.com/BRO3886/directus-search-sync/internal/search"
	"github.com/BRO3886/directus-search-sync/internal/search/searchtest"
	"github.com/BRO3886/directus-search-sync/internal/types"
)

func TestSyncAgainstClusters(t *testing.T) {
	backends := []struct {
		name   string
		flavor searchtest.Flavor
		build  func(*config.Config) (search.Engine, error)
	}{
		{"opensearch", searchtest.OpenSearch, func(c *config.Config) (search.Engine, error) {
			return opensearch.New(c, zerolog.Nop())
		}},
		{"elasticsearch", searchtest.Elasticsearch, func(c *config.Config) (search.Engine, error) {
			return elasticsearch.New(c, zerolog.Nop())
		}},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			cluster := searchtest.NewCluster(t, b.flavor)
			cfg := &config.Config{}
			cfg.Search.URLs = []string{cluster.URL}
			cfg.Search.RequestTimeout = 5 * time.Second

			var built int
			lazy := search.NewLazy(func() (search.Engine, error) {
				built++
				return b.build(cfg)
			})
			s := newSync(lazy)
			ctx := context.Background()

			record, err := types.DecodeNotification([]byte(`{"event":"record-created","collection":"articles","record":{"id":42,"title":"A"}}`))
			require.NoError(t, err)

			out := s.RecordCreated(ctx, record.Collection, record.Record)
			require.Zero(t, out.Failed)

			doc, ok := cluster.Doc(testIndex, "articles_42")
			require.True(t, ok)
			assert.Equal(t, map[string]any{
				"id":         float64(42),
				"collection": "articles",
				"item_id":    float64(42),
				"title":      "A",
				"indexed_at": "2026-05-04T10:00:00Z",
			}, doc)

			def, ok := cluster.IndexDefinition(testIndex)
			require.True(t, ok)
			assert.JSONEq(t, string(search.IndexDefinition()), string(def))

			out = s.RecordUpdated(ctx, "articles", types.Record{"id": json.Number("42"), "title": "B"})
			require.Zero(t, out.Failed)
			doc, _ = cluster.Doc(testIndex, "articles_42")
			assert.Equal(t, "B", doc["title"])
			assert.Equal(t, 1, cluster.DocCount(testIndex))

			require.Zero(t, s.RecordDeleted(ctx, "articles", types.Record{"id": 42}).Failed)
			require.Zero(t, s.RecordDeleted(ctx, "articles", types.Record{"id": 42}).Failed)
			assert.Equal(t, 0, cluster.DocCount(testIndex))

			assert.True(t, s.Probe(ctx))
			assert.Equal(t, 1, built)
		})
	}
}

func TestSyncSurvivesOutage(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.OpenSearch)
	cluster.FailPuts(true)
	cfg := &config.Config{}
	cfg.Search.URLs = []string{cluster.URL}
	cfg.Search.RequestTimeout = 5 * time.Second
	engine, err := opensearch.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	s := newSync(engine)
	out := s.BatchUpdated(context.Background(), "articles", []types.Record{{"id": 1}, {"id": 2}})
	assert.Equal(t, 2, out.Failed)
	assert.Equal(t, 0, cluster.DocCount(testIndex))
}

func TestStringKeysStayDistinct(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.OpenSearch)
	cfg := &config.Config{}
	cfg.Search.URLs = []string{cluster.URL}
	cfg.Search.RequestTimeout = 5 * time.Second
	engine, err := opensearch.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	s := newSync(engine)
	ctx := context.Background()
	keys := []types.Record{{"id": "a?b"}, {"id": "a?c"}, {"id": "x#1"}, {"id": "50%"}}
	out := s.BatchCreated(ctx, "pages", keys)
	require.Zero(t, out.Failed)
	assert.Equal(t, len(keys), cluster.DocCount(testIndex))
	for _, k := range keys {
		doc, ok := cluster.Doc(testIndex, "pages_"+k["id"].(string))
		require.True(t, ok, k["id"])
		assert.Equal(t, k["id"], doc["item_id"])
	}

	out = s.BatchDeleted(ctx, "pages", keys)
	require.Zero(t, out.Failed)
	assert.Equal(t, 0, cluster.DocCount(testIndex))
}
