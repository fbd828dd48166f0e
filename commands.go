package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BRO3886/directus-search-sync/internal/config"
	"github.com/BRO3886/directus-search-sync/internal/elasticsearch"
	"github.com/BRO3886/directus-search-sync/internal/hooks"
	"github.com/BRO3886/directus-search-sync/internal/indexer"
	"github.com/BRO3886/directus-search-sync/internal/kafka"
	"github.com/BRO3886/directus-search-sync/internal/logging"
	"github.com/BRO3886/directus-search-sync/internal/opensearch"
	"github.com/BRO3886/directus-search-sync/internal/queue"
	"github.com/BRO3886/directus-search-sync/internal/search"
	"github.com/BRO3886/directus-search-sync/internal/stamp"
	"github.com/BRO3886/directus-search-sync/internal/types"
	"github.com/BRO3886/directus-search-sync/internal/webhook"
)

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	closer io.Closer
}

func loadRuntime() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: logger, closer: closer}, nil
}

// engineFactory picks the client for the configured engine. The client is
// built on first use and shared for the life of the process.
func engineFactory(cfg *config.Config, logger zerolog.Logger) search.Factory {
	return func() (search.Engine, error) {
		if cfg.Search.Engine == config.EngineElasticsearch {
			return elasticsearch.New(cfg, logger)
		}
		return opensearch.New(cfg, logger)
	}
}

// newDispatcher wires the synchronizer and the timestamp filter, then runs
// the startup probe. A failed probe is reported but not fatal.
func newDispatcher(ctx context.Context, rt *app) (*hooks.Dispatcher, *indexer.Synchronizer) {
	allow := indexer.NewAllowList(rt.cfg.Sync.Collections...)
	engine := search.NewLazy(engineFactory(rt.cfg, rt.log))

	syncer := indexer.New(engine, indexer.Options{
		Index:       rt.cfg.Search.Index.Name,
		AllowList:   allow,
		IDField:     rt.cfg.Sync.IDField,
		Concurrency: rt.cfg.Sync.BatchConcurrency,
		Logger:      rt.log,
	})
	syncer.Probe(ctx)

	d := hooks.NewDispatcher(rt.log)
	d.OnAction(syncer)
	d.OnFilter(stamp.New(allow, nil, rt.log))

	syncer.LogSettings()
	rt.log.Info().
		Str("engine", rt.cfg.Search.Engine).
		Strs("urls", rt.cfg.Search.URLs).
		Bool("verify_tls", rt.cfg.Search.VerifyTLS).
		Msg("search engine configured")
	return d, syncer
}

func kafkaConfig(cfg *config.Config) (*kafka.Config, error) {
	return kafka.NewConfig(
		cfg.Kafka.Brokers,
		kafka.Consumer(cfg.Kafka.ConsumerGroup, true),
		kafka.Retries(
			cfg.Kafka.Retry.Max,
			time.Duration(cfg.Kafka.Retry.Backoff)*time.Millisecond,
		),
	)
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Consume notifications from Kafka and apply them to the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.closer.Close()

			ctx := cmd.Context()
			dispatcher, _ := newDispatcher(ctx, rt)

			kcfg, err := kafkaConfig(rt.cfg)
			if err != nil {
				return err
			}
			dequeuer, err := kafka.NewDequeuer(kcfg, rt.log)
			if err != nil {
				return fmt.Errorf("error starting kafka dequeuer: %w", err)
			}
			defer dequeuer.Close()

			rt.log.Info().Str("topic", rt.cfg.Kafka.Topic.Name).Msg("started indexing")
			return dequeuer.Dequeue(ctx, rt.cfg.Kafka.Topic.Name, notificationHandler(dispatcher, rt.log))
		},
	}
}

// notificationHandler applies queued action notifications. Filter
// notifications cannot change an already persisted payload and are dropped.
func notificationHandler(d *hooks.Dispatcher, logger zerolog.Logger) queue.MessageHandler {
	return func(ctx context.Context, data []byte) error {
		n, err := types.DecodeNotification(data)
		if err != nil {
			return err
		}
		if n.Event.IsFilter() {
			logger.Warn().Str("event", string(n.Event)).Str("collection", n.Collection).Msg("filter event on queue ignored")
			return nil
		}
		_, err = d.Action(ctx, n)
		return err
	}
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive notifications over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.closer.Close()

			if addr == "" {
				addr = rt.cfg.HTTP.Addr
			}
			dispatcher, syncer := newDispatcher(cmd.Context(), rt)
			return webhook.NewServer(dispatcher, syncer, rt.log).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func newPublishCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a JSONL file of notifications to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.closer.Close()

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to read stream file: %w", err)
			}
			defer f.Close()

			kcfg, err := kafkaConfig(rt.cfg)
			if err != nil {
				return err
			}
			enqueuer, err := kafka.NewEnqueuer(kcfg, rt.log)
			if err != nil {
				return fmt.Errorf("error starting kafka enqueuer: %w", err)
			}
			defer enqueuer.Close()

			sent, err := publish(cmd.Context(), f, enqueuer, rt.cfg.Kafka.Topic.Name, time.Now, rt.log)
			rt.log.Info().Int("sent", sent).Msg("publishing completed")
			return err
		},
	}
	cmd.Flags().StringVar(&path, "file", "notifications.jsonl", "JSONL file with one notification per line")
	return cmd
}

// publish enqueues every valid line of r keyed by collection, so a
// collection's notifications stay ordered. Invalid lines are logged and
// skipped.
func publish(ctx context.Context, r io.Reader, enqueuer queue.Enqueuer, topic string, now func() time.Time, logger zerolog.Logger) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)

	sent, line := 0, 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		n, err := types.DecodeNotification(raw)
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("skipping notification")
			continue
		}
		if n.TimeStamp > 0 && time.UnixMilli(n.TimeStamp).After(now()) {
			logger.Warn().Int("line", line).Msg("notification is in the future")
			continue
		}
		if err := enqueuer.Enqueue(ctx, topic, []byte(n.Collection), raw); err != nil {
			if errors.Is(err, context.Canceled) {
				return sent, err
			}
			logger.Error().Err(err).Int("line", line).Msg("error enqueuing notification")
			continue
		}
		sent++
	}
	return sent, scanner.Err()
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check connectivity to the search engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.closer.Close()

			engine, err := engineFactory(rt.cfg, rt.log)()
			if err != nil {
				return err
			}
			syncer := indexer.New(engine, indexer.Options{Index: rt.cfg.Search.Index.Name, Logger: rt.log})
			if !syncer.Probe(cmd.Context()) {
				return errors.New("search engine unreachable")
			}
			return nil
		},
	}
}
