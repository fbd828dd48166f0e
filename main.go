package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directus-search-sync",
		Short: "Mirror Directus collection changes into a search index",
		Long: `directus-search-sync keeps an OpenSearch or Elasticsearch index consistent
with the collections of a Directus instance. Lifecycle notifications arrive
over Kafka (sync) or HTTP (serve) and are applied as upserts and deletes.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to the config file")

	cmd.AddCommand(
		newSyncCmd(),
		newServeCmd(),
		newPublishCmd(),
		newProbeCmd(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
