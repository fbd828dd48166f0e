package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BRO3886/directus-search-sync/internal/config"
	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/search"
	external "github.com/opensearch-project/opensearch-go/v2"
	api "github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

type openSearchClient struct {
	client  *external.Client
	timeout time.Duration
	log     zerolog.Logger
}

func New(c *config.Config, logger zerolog.Logger) (search.Engine, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !c.Search.VerifyTLS}

	cfg := external.Config{
		Transport:    transport,
		Addresses:    c.Search.URLs,
		DisableRetry: true,
	}
	if c.HasCredentials() {
		cfg.Username = c.Search.Username
		cfg.Password = c.Search.Password
	}

	client, err := external.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating opensearch client: %w", err)
	}

	return &openSearchClient{
		client:  client,
		timeout: c.Search.RequestTimeout,
		log:     logging.Component(logger, "opensearch"),
	}, nil
}

func (s *openSearchClient) Info(ctx context.Context) (search.ClusterInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := api.InfoRequest{}.Do(ctx, s.client)
	if err != nil {
		return search.ClusterInfo{}, err
	}
	body, err := readBody(resp)
	if err != nil {
		return search.ClusterInfo{}, err
	}
	if resp.IsError() {
		return search.ClusterInfo{}, fmt.Errorf("failed to get cluster info: %s %s", resp.Status(), string(body))
	}

	parsed := gjson.ParseBytes(body)
	return search.ClusterInfo{
		Name:         parsed.Get("cluster_name").String(),
		Version:      parsed.Get("version.number").String(),
		Distribution: parsed.Get("version.distribution").String(),
	}, nil
}

func (s *openSearchClient) IndexExists(ctx context.Context, index string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := api.IndicesExistsRequest{Index: []string{index}}.Do(ctx, s.client)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("failed to check index %s: %s", index, resp.Status())
	}
}

func (s *openSearchClient) CreateIndex(ctx context.Context, index string, definition []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := api.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader(definition),
	}

	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.IsError() {
		if gjson.GetBytes(body, "error.type").String() == "resource_already_exists_exception" {
			return search.ErrIndexExists
		}
		return fmt.Errorf("failed to create index: %s %s", resp.Status(), string(body))
	}

	if resp.HasWarnings() {
		s.log.Warn().Strs("warnings", resp.Warnings()).Msg("create index returned warnings")
	}

	s.log.Info().Str("index", index).Msg("index created")

	return nil
}

func (s *openSearchClient) Put(ctx context.Context, index, id string, doc search.Document) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	req := api.IndexRequest{
		Index:      index,
		DocumentID: search.EscapeID(id),
		Body:       bytes.NewReader(jsonData),
	}

	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("failed to index document: %s %s", resp.Status(), string(body))
	}

	return nil
}

func (s *openSearchClient) Delete(ctx context.Context, index, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := api.DeleteRequest{
		Index:      index,
		DocumentID: search.EscapeID(id),
	}

	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", id, search.ErrNotFound)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to delete document: %s %s", resp.Status(), string(body))
	}

	return nil
}

func readBody(resp *api.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
