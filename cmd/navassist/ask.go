package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"navassist/internal/service"
)

var askJSON bool

type askOutput struct {
	Answer   string   `json:"answer"`
	Source   string   `json:"source"`
	Context  []string `json:"context"`
	Warnings []string `json:"warnings,omitempty"`
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Long:  `Answer one question with a fresh session. Prints the answer by default, or a JSON object with --json.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		open := func(ctx context.Context) (*service.Assistant, *components, error) {
			return newAssistant(ctx, cfg, slog.Default())
		}
		err := runAsk(ctx, open, strings.Join(args, " "), askJSON, os.Stdout, os.Stderr)
		var ge *service.GenerationError
		switch {
		case errors.As(err, &ge):
			slog.Error("generation failed", "error", ge.Err)
			fmt.Fprintln(os.Stderr, ge.Error())
			stop()
			os.Exit(1)
		case err != nil:
			stop()
			fatal("failed to answer", err)
		}
	},
}

type assistantOpener func(ctx context.Context) (*service.Assistant, *components, error)

// runAsk answers one question and releases every opened resource before
// returning, so callers may exit right after it.
func runAsk(ctx context.Context, open assistantOpener, question string, asJSON bool, stdout, stderr io.Writer) error {
	a, c, err := open(ctx)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer c.Close()

	res, err := a.NewSession().Ask(ctx, question)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(stderr, "warning:", w)
	}

	if asJSON {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		out := askOutput{Answer: res.Answer, Source: res.Source.String(), Context: res.Context, Warnings: res.Warnings}
		if err := encoder.Encode(out); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprintln(stdout, res.Answer)
	return err
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Output in JSON format")
}
