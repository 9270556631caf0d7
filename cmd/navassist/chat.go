package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"navassist/internal/corpus"
	"navassist/internal/tui"
	"navassist/internal/watch"
)

var logFile string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long: `Start a chat session in the terminal. Logs go to --log-file, or nowhere,
so they do not garble the screen. With corpus.watch enabled the CSV is
reloaded when it changes on disk.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var out io.Writer = io.Discard
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				fatal("failed to open log file", err)
			}
			defer f.Close()
			out = f
		}
		setupLogging(out)
		log := slog.Default()

		cfg := loadConfig()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fmt.Println("Indexando a base de conhecimento...")
		a, c, err := newAssistant(ctx, cfg, log)
		if err != nil {
			fatal("failed to start", err)
		}
		defer c.Close()

		if cfg.Corpus.Watch {
			w, err := watch.NewCorpusWatcher(cfg.Corpus.Path, c.corpus.Fingerprint(), func(ctx context.Context, next *corpus.Corpus) error {
				return a.Reload(ctx, next)
			})
			if err == nil {
				w.Logger = log
				err = w.Start(ctx)
			}
			if err != nil {
				log.Warn("corpus watch disabled", "error", err)
			}
		}

		summary := fmt.Sprintf("%d documentos de %s", c.corpus.Len(), c.corpus.Source())
		m := tui.New(ctx, a.NewSession(), summary)
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			fatal("chat failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of discarding them")
}
