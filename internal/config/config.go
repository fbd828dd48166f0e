package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const DefaultPath = "configs/config.yaml"

const (
	EngineOpenSearch    = "opensearch"
	EngineElasticsearch = "elasticsearch"
)

type Config struct {
	Search struct {
		Engine         string        `koanf:"engine"`
		URLs           []string      `koanf:"urls"`
		Username       string        `koanf:"username"`
		Password       string        `koanf:"password"`
		VerifyTLS      bool          `koanf:"verify_tls"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
		Index          struct {
			Name string `koanf:"name"`
		} `koanf:"index"`
	} `koanf:"search"`
	Sync struct {
		Collections      []string `koanf:"collections"`
		IDField          string   `koanf:"id_field"`
		BatchConcurrency int      `koanf:"batch_concurrency"`
	} `koanf:"sync"`
	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   struct {
			Name string `koanf:"name"`
		} `koanf:"topic"`
		ConsumerGroup string `koanf:"consumer_group"`
		Retry         struct {
			Max     int `koanf:"max"`
			Backoff int `koanf:"backoff"`
		} `koanf:"retry"`
	} `koanf:"kafka"`
	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`
	Log struct {
		Level      string `koanf:"level"`
		Format     string `koanf:"format"`
		File       string `koanf:"file"`
		MaxSizeMB  int    `koanf:"max_size_mb"`
		MaxBackups int    `koanf:"max_backups"`
	} `koanf:"log"`
}

// HasCredentials reports whether basic auth should be sent. Both halves must
// be present.
func (c *Config) HasCredentials() bool {
	return c.Search.Username != "" && c.Search.Password != ""
}

var defaults = map[string]any{
	"search.engine":          EngineOpenSearch,
	"search.urls":            []string{"http://localhost:9200"},
	"search.verify_tls":      true,
	"search.request_timeout": "30s",
	"search.index.name":      "directus_items",
	"sync.collections":       []string{},
	"sync.id_field":          "id",
	"sync.batch_concurrency": 1,
	"kafka.brokers":          []string{"localhost:9092"},
	"kafka.topic.name":       "directus-hooks",
	"kafka.consumer_group":   "search-sync",
	"kafka.retry.max":        3,
	"kafka.retry.backoff":    250,
	"http.addr":              ":8080",
	"log.level":              "info",
	"log.format":             "console",
	"log.max_size_mb":        10,
	"log.max_backups":        5,
}

// envKeys maps the deployment's environment variables onto config keys.
var envKeys = map[string]string{
	"SEARCH_ENGINE":                 "search.engine",
	"ELASTICSEARCH_NODE":            "search.urls",
	"ELASTICSEARCH_USERNAME":        "search.username",
	"ELASTICSEARCH_PASSWORD":        "search.password",
	"ELASTICSEARCH_INDEX":           "search.index.name",
	"ELASTICSEARCH_VERIFY_SSL":      "search.verify_tls",
	"ELASTICSEARCH_REQUEST_TIMEOUT": "search.request_timeout",
	"INDEXED_COLLECTIONS":           "sync.collections",
	"SYNC_ID_FIELD":                 "sync.id_field",
	"SYNC_BATCH_CONCURRENCY":        "sync.batch_concurrency",
	"KAFKA_BROKERS":                 "kafka.brokers",
	"KAFKA_TOPIC":                   "kafka.topic.name",
	"KAFKA_CONSUMER_GROUP":          "kafka.consumer_group",
	"HTTP_ADDR":                     "http.addr",
	"LOG_LEVEL":                     "log.level",
	"LOG_FORMAT":                    "log.format",
	"LOG_FILE":                      "log.file",
}

// Load reads defaults, then the yaml file at path (skipped when missing),
// then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Search.URLs = cleanList(cfg.Search.URLs)
	cfg.Sync.Collections = cleanList(cfg.Sync.Collections)
	cfg.Kafka.Brokers = cleanList(cfg.Kafka.Brokers)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envValue(key, value string) (string, any) {
	name, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	switch name {
	case "search.urls", "sync.collections", "kafka.brokers":
		return name, strings.Split(value, ",")
	case "search.verify_tls":
		// anything but an explicit "false" keeps verification on
		return name, !strings.EqualFold(strings.TrimSpace(value), "false")
	}
	return name, value
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Search.Engine {
	case EngineOpenSearch, EngineElasticsearch:
	default:
		return fmt.Errorf("invalid search.engine %q: want %s or %s", c.Search.Engine, EngineOpenSearch, EngineElasticsearch)
	}
	if len(c.Search.URLs) == 0 {
		return errors.New("search.urls is empty")
	}
	if c.Search.Index.Name == "" {
		return errors.New("search.index.name is empty")
	}
	if c.Search.RequestTimeout <= 0 {
		return fmt.Errorf("invalid search.request_timeout %s", c.Search.RequestTimeout)
	}
	if c.Sync.IDField == "" {
		return errors.New("sync.id_field is empty")
	}
	if c.Sync.BatchConcurrency < 1 {
		return fmt.Errorf("invalid sync.batch_concurrency %d: must be at least 1", c.Sync.BatchConcurrency)
	}
	return nil
}
