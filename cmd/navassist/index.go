package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var rebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus and store the vectors",
	Long: `Build the index for the configured corpus. With a snapshot store configured,
the vectors are saved so later runs skip embedding. --rebuild ignores any
existing snapshot and re-embeds every document.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		c, err := openIndex(cfg, slog.Default())
		if err != nil {
			fatal("failed to load corpus", err)
		}
		defer c.Close()
		c.builder.SkipSnapshot = rebuild

		start := time.Now()
		ix, err := c.cache.GetOrBuild(ctx, c.corpus)
		if err != nil {
			fatal("failed to build index", err)
		}
		fmt.Printf("indexed %d documents from %s\n", ix.Len(), c.corpus.Source())
		fmt.Printf("fingerprint: %s\nembedder: %s\nsnapshot: %s\ntook: %s\n",
			ix.Fingerprint(), ix.EmbedderName(), cfg.Snapshot.Type, time.Since(start).Round(time.Millisecond))
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&rebuild, "rebuild", false, "Ignore stored snapshots and re-embed every document")
}
