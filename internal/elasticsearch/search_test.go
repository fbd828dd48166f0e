package elasticsearch

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BRO3886/directus-search-sync/internal/config"
	"github.com/BRO3886/directus-search-sync/internal/search"
	"github.com/BRO3886/directus-search-sync/internal/search/searchtest"
)

func newTestEngine(t *testing.T, cluster *searchtest.Cluster, mutate ...func(*config.Config)) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Search.URLs = []string{cluster.URL}
	cfg.Search.VerifyTLS = true
	cfg.Search.RequestTimeout = 5 * time.Second
	for _, m := range mutate {
		m(cfg)
	}
	engine, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return engine
}

func TestInfo(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	engine := newTestEngine(t, cluster)

	info, err := engine.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9.1.0", info.Version)
	assert.Equal(t, "elasticsearch", info.Distribution)
	assert.Equal(t, "test-cluster", info.Name)
}

func TestCreateIndexAndExists(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	engine := newTestEngine(t, cluster)
	ctx := context.Background()

	ok, err := engine.IndexExists(ctx, "items")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, engine.CreateIndex(ctx, "items", search.IndexDefinition()))

	def, ok := cluster.IndexDefinition("items")
	require.True(t, ok)
	assert.JSONEq(t, string(search.IndexDefinition()), string(def))

	ok, err = engine.IndexExists(ctx, "items")
	require.NoError(t, err)
	assert.True(t, ok)

	err = engine.CreateIndex(ctx, "items", search.IndexDefinition())
	assert.ErrorIs(t, err, search.ErrIndexExists)
}

func TestPutReplacesDocument(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	engine := newTestEngine(t, cluster)
	ctx := context.Background()

	require.NoError(t, engine.Put(ctx, "items", "articles_42", search.Document{"title": "A", "draft": true}))
	require.NoError(t, engine.Put(ctx, "items", "articles_42", search.Document{"title": "B"}))

	doc, ok := cluster.Doc("items", "articles_42")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"title": "B"}, doc)

	reqs := cluster.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/items/_doc/articles_42", reqs[0].Path)
}

func TestPutFailure(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	cluster.FailPuts(true)
	engine := newTestEngine(t, cluster)

	err := engine.Put(context.Background(), "items", "articles_1", search.Document{"title": "A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index document")
}

func TestDelete(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	engine := newTestEngine(t, cluster)
	ctx := context.Background()

	require.NoError(t, engine.Put(ctx, "items", "articles_42", search.Document{"title": "A"}))
	require.NoError(t, engine.Delete(ctx, "items", "articles_42"))
	assert.Equal(t, 0, cluster.DocCount("items"))

	err := engine.Delete(ctx, "items", "articles_42")
	assert.ErrorIs(t, err, search.ErrNotFound)
}

func TestBasicAuth(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	cluster.RequireBasicAuth("admin", "secret")

	anonymous := newTestEngine(t, cluster)
	_, err := anonymous.Info(context.Background())
	assert.Error(t, err)

	authed := newTestEngine(t, cluster, func(c *config.Config) {
		c.Search.Username = "admin"
		c.Search.Password = "secret"
	})
	_, err = authed.Info(context.Background())
	assert.NoError(t, err)
}

func TestUnreachable(t *testing.T) {
	cfg := &config.Config{}
	cfg.Search.URLs = []string{"http://127.0.0.1:1"}
	cfg.Search.RequestTimeout = time.Second
	engine, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = engine.Info(context.Background())
	assert.Error(t, err)
}

func TestDocumentIDWithSlash(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	engine := newTestEngine(t, cluster)
	ctx := context.Background()

	require.NoError(t, engine.Put(ctx, "items", "files_a/b", search.Document{"name": "x"}))
	_, ok := cluster.Doc("items", "files_a/b")
	assert.True(t, ok)

	require.NoError(t, engine.Delete(ctx, "items", "files_a/b"))
	assert.Equal(t, 0, cluster.DocCount("items"))
}

func TestDocumentIDsWithURLSyntax(t *testing.T) {
	cluster := searchtest.NewCluster(t, searchtest.Elasticsearch)
	engine := newTestEngine(t, cluster)
	ctx := context.Background()

	ids := []string{"articles_a?b", "articles_a?c", "articles_x#1", "articles_50%", "articles_a b"}
	for _, id := range ids {
		require.NoError(t, engine.Put(ctx, "items", id, search.Document{"id": id}), id)
	}
	require.Equal(t, len(ids), cluster.DocCount("items"))
	for _, id := range ids {
		doc, ok := cluster.Doc("items", id)
		require.True(t, ok, id)
		assert.Equal(t, id, doc["id"])
	}

	for _, id := range ids {
		require.NoError(t, engine.Delete(ctx, "items", id), id)
	}
	assert.Equal(t, 0, cluster.DocCount("items"))
}
