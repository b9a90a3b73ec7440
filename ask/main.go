// Command ask answers terminal questions with a local language model.
// The conversation is kept in a transcript file so follow-up questions see
// earlier answers; "ask clear" starts over.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	askai "github.com/Paranoid-AF/askai"
	"github.com/Paranoid-AF/askai/generate"
	"github.com/Paranoid-AF/askai/model"
	"github.com/Paranoid-AF/askai/model/inference"
	"github.com/Paranoid-AF/askai/session"
)

const usage = "Usage: ask <your question>"

// openModelFunc opens the inference engine for a question.
type openModelFunc func(ctx context.Context, cfg *askai.Config) (inference.Engine, error)

type app struct {
	cfg       *askai.Config
	con       *console
	openModel openModelFunc
}

func main() {
	cfg, cfgErr := askai.LoadConfig()
	if cfgErr != nil {
		cfg = askai.DefaultConfig()
	}
	setupLogger(cfg)

	if cfgErr != nil {
		slog.Warn("failed to load config, using defaults", "path", askai.ConfigPath(), "error", cfgErr)
	}
	for _, w := range askai.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}

	a := &app{cfg: cfg, con: newConsole(os.Stdout), openModel: model.Open}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		a.con.Errorf("An error occurred: %v", err)
	}
}

func setupLogger(cfg *askai.Config) {
	level := slog.LevelWarn
	if askai.Verbose(cfg) {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("run_id", uuid.NewString()))
}

func newRootCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <your question>",
		Short: "Ask a local language model about terminal commands",
		Args:  cobra.ArbitraryArgs,
		// Every argument is part of the question, including ones that look like flags.
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		// Without subcommands, "ask completion bash" stays a question.
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			a.run(cmd.Context(), args)
			return nil
		},
	}
}

// run dispatches one invocation. Failures are reported on the console; the
// process always exits 0.
func (a *app) run(ctx context.Context, args []string) {
	if len(args) == 0 {
		a.con.Println(usage)
		return
	}

	path := askai.ResolveContextPath(a.cfg)
	store := session.NewStore(path)
	opts := generate.OptionsFromConfig(a.cfg)
	opts.Warn = a.con.Warnf

	if len(args) == 1 && strings.ToLower(args[0]) == "clear" {
		generate.NewEngine(store, nil, a.con, opts).Clear()
		slog.Debug("transcript cleared", "path", path)
		a.con.Println("Context cleared.")
		return
	}

	question := strings.Join(args, " ")
	if err := a.ask(ctx, store, opts, question); err != nil {
		a.con.Errorf("An error occurred: %v", err)
	}
}

func (a *app) ask(ctx context.Context, store generate.Store, opts generate.Options, question string) error {
	m, err := a.openModel(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open model: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			slog.Debug("failed to close model", "error", err)
		}
	}()

	res, err := generate.NewEngine(store, m, a.con, opts).Ask(ctx, question)
	a.con.EndAnswer()
	if err != nil {
		return err
	}
	slog.Debug("question answered",
		"prompt_tokens", res.PromptTokens,
		"answer_bytes", len(res.Answer),
		"backend", askai.ResolveBackend(a.cfg),
	)
	return nil
}
