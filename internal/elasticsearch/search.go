// Package elasticsearch implements search.Engine for Elasticsearch clusters.
package elasticsearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	esv9 "github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/BRO3886/directus-search-sync/internal/config"
	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/search"
)

type Client struct {
	es      *esv9.Client
	timeout time.Duration
	log     zerolog.Logger
}

var _ search.Engine = (*Client)(nil)

func New(c *config.Config, logger zerolog.Logger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !c.Search.VerifyTLS}

	esCfg := esv9.Config{
		Addresses:    c.Search.URLs,
		Transport:    transport,
		DisableRetry: true,
	}
	if c.HasCredentials() {
		esCfg.Username = c.Search.Username
		esCfg.Password = c.Search.Password
	}

	es, err := esv9.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Client{
		es:      es,
		timeout: c.Search.RequestTimeout,
		log:     logging.Component(logger, "elasticsearch"),
	}, nil
}

func (c *Client) Info(ctx context.Context) (search.ClusterInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := esapi.InfoRequest{}.Do(ctx, c.es)
	if err != nil {
		return search.ClusterInfo{}, fmt.Errorf("elasticsearch: info call failed: %w", err)
	}
	body, err := readBody(res)
	if err != nil {
		return search.ClusterInfo{}, err
	}
	if res.IsError() {
		return search.ClusterInfo{}, fmt.Errorf("elasticsearch: info call returned error status: %s", res.Status())
	}

	parsed := gjson.ParseBytes(body)
	return search.ClusterInfo{
		Name:         parsed.Get("cluster_name").String(),
		Version:      parsed.Get("version.number").String(),
		Distribution: "elasticsearch",
	}, nil
}

func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, c.es)
	if err != nil {
		return false, fmt.Errorf("elasticsearch: exists %s: %w", index, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, fmt.Errorf("elasticsearch: exists %s: %s", index, res.Status())
}

func (c *Client) CreateIndex(ctx context.Context, index string, definition []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := esapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(definition),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch: create index %s: %w", index, err)
	}
	body, err := readBody(res)
	if err != nil {
		return err
	}
	if res.IsError() {
		if gjson.GetBytes(body, "error.type").String() == "resource_already_exists_exception" {
			return search.ErrIndexExists
		}
		return fmt.Errorf("elasticsearch: create index %s: %s %s", index, res.Status(), body)
	}

	c.log.Info().Str("index", index).Msg("index created")
	return nil
}

func (c *Client) Put(ctx context.Context, index, id string, doc search.Document) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch: marshal %s: %w", id, err)
	}

	res, err := esapi.IndexRequest{
		Index:      index,
		DocumentID: search.EscapeID(id),
		Body:       bytes.NewReader(payload),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch: index %s: %w", id, err)
	}
	body, err := readBody(res)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch: index %s: %s %s", id, res.Status(), body)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, index, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := esapi.DeleteRequest{
		Index:      index,
		DocumentID: search.EscapeID(id),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elasticsearch: delete %s: %w", id, err)
	}
	body, err := readBody(res)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("elasticsearch: delete %s: %w", id, search.ErrNotFound)
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch: delete %s: %s %s", id, res.Status(), body)
	}
	return nil
}

func readBody(res *esapi.Response) ([]byte, error) {
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}
