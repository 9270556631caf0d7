package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"navassist/internal/config"
)

var (
	verbose bool
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "navassist",
	Short: "Maritime procurement assistant answering from a CSV knowledge base",
	Long: `navassist answers buyers' questions using the rows of a CSV knowledge base
as context. When no row has anything to offer it falls back to web search
links, and a language model writes the reply.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		setupLogging(os.Stderr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (default ./config.yaml, then ~/.config/navassist/config.yaml)")
}

func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func loadConfig() *config.AppConfig {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		var path string
		cfg, path, err = config.LoadDefault()
		if err == nil {
			slog.Debug("config loaded", "path", path)
		}
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fatal("failed to load config", err)
	}
	return cfg
}
