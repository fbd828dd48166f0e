// Package searchtest provides an in-memory stand-in for the document-index
// REST API shared by OpenSearch and Elasticsearch.
package searchtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

type Flavor int

const (
	OpenSearch Flavor = iota
	Elasticsearch
)

type Request struct {
	Method string
	Path   string
	Body   string
}

type Cluster struct {
	URL string

	flavor Flavor
	srv    *httptest.Server

	mu       sync.Mutex
	indexes  map[string][]byte
	docs     map[string]map[string]map[string]any
	requests []Request
	failPuts bool
	username string
	password string
}

func NewCluster(t *testing.T, flavor Flavor) *Cluster {
	t.Helper()
	c := &Cluster{
		flavor:  flavor,
		indexes: make(map[string][]byte),
		docs:    make(map[string]map[string]map[string]any),
	}
	c.srv = httptest.NewServer(http.HandlerFunc(c.serve))
	c.URL = c.srv.URL
	t.Cleanup(c.srv.Close)
	return c
}

// RequireBasicAuth makes every request without these credentials fail with 401.
func (c *Cluster) RequireBasicAuth(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username, c.password = username, password
}

// FailPuts makes every document write fail with 500.
func (c *Cluster) FailPuts(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failPuts = fail
}

// CreateIndex provisions index out of band.
func (c *Cluster) CreateIndex(index string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[index] = []byte(`{}`)
}

func (c *Cluster) IndexDefinition(index string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.indexes[index]
	return def, ok
}

func (c *Cluster) Doc(index, id string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[index][id]
	return doc, ok
}

func (c *Cluster) DocCount(index string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs[index])
}

// Requests returns every request except cluster info lookups.
func (c *Cluster) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.requests))
	copy(out, c.requests)
	return out
}

func (c *Cluster) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	c.mu.Lock()
	defer c.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if c.flavor == Elasticsearch {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
	}

	if c.username != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != c.username || p != c.password {
			writeError(w, http.StatusUnauthorized, "security_exception")
			return
		}
	}

	parts := strings.Split(strings.Trim(r.URL.EscapedPath(), "/"), "/")
	for i, part := range parts {
		if unescaped, err := url.PathUnescape(part); err == nil {
			parts[i] = unescaped
		}
	}
	if r.URL.Path == "/" {
		c.info(w)
		return
	}
	c.requests = append(c.requests, Request{Method: r.Method, Path: r.URL.Path, Body: string(body)})

	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if _, ok := c.indexes[parts[0]]; ok {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		if _, ok := c.indexes[parts[0]]; ok {
			writeError(w, http.StatusBadRequest, "resource_already_exists_exception")
			return
		}
		c.indexes[parts[0]] = body
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": parts[0]})
	case len(parts) == 3 && parts[1] == "_doc" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		if c.failPuts {
			writeError(w, http.StatusInternalServerError, "internal_server_error")
			return
		}
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			writeError(w, http.StatusBadRequest, "mapper_parsing_exception")
			return
		}
		if c.docs[parts[0]] == nil {
			c.docs[parts[0]] = make(map[string]map[string]any)
		}
		// dynamic index creation, as the real engines do
		if _, ok := c.indexes[parts[0]]; !ok {
			c.indexes[parts[0]] = []byte(`{}`)
		}
		result := "created"
		if _, ok := c.docs[parts[0]][parts[2]]; ok {
			result = "updated"
		}
		c.docs[parts[0]][parts[2]] = doc
		writeJSON(w, http.StatusOK, map[string]any{"_index": parts[0], "_id": parts[2], "result": result})
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := c.docs[parts[0]][parts[2]]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": parts[0], "_id": parts[2], "result": "not_found"})
			return
		}
		delete(c.docs[parts[0]], parts[2])
		writeJSON(w, http.StatusOK, map[string]any{"_index": parts[0], "_id": parts[2], "result": "deleted"})
	default:
		writeError(w, http.StatusBadRequest, "unsupported_operation_exception")
	}
}

func (c *Cluster) info(w http.ResponseWriter) {
	version := map[string]any{"number": "2.11.0", "distribution": "opensearch"}
	tagline := "The OpenSearch Project: https://opensearch.org/"
	if c.flavor == Elasticsearch {
		version = map[string]any{"number": "9.1.0", "build_flavor": "default"}
		tagline = "You Know, for Search"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         "node-1",
		"cluster_name": "test-cluster",
		"version":      version,
		"tagline":      tagline,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string) {
	writeJSON(w, status, map[string]any{
		"error":  map[string]any{"type": kind, "reason": kind},
		"status": status,
	})
}
