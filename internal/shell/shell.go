// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     shell
// Description: Interactive line-oriented query shell
// Author:      Mike Stoffels
// Created:     2026-03-20
// License:     MIT
// ============================================================================

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/msto63/ecsq/foundation/query"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
	"github.com/msto63/ecsq/pkg/core/logging"
	"github.com/peterh/liner"
)

// DefaultPrompt is shown when no prompt is configured
const DefaultPrompt = "query> "

// LineReader reads one line of input per call
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Config configures a Shell
type Config struct {
	Prompt         string
	HistoryFile    string
	HistoryEnabled bool
	MaxListed      int
	Logger         *logging.Logger
	Output         io.Writer
}

// DefaultConfig returns default shell configuration
func DefaultConfig() Config {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".ecsq_history")
	}
	return Config{
		Prompt:         DefaultPrompt,
		HistoryFile:    history,
		HistoryEnabled: true,
		MaxListed:      DefaultMaxListed,
	}
}

// Shell reads queries and prints their outcomes
type Shell struct {
	engine    *query.Engine
	config    Config
	formatter Formatter
	out       io.Writer
	logger    *logging.Logger
}

// New creates a shell for engine
func New(engine *query.Engine, cfg Config) *Shell {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("shell")
	}
	return &Shell{
		engine:    engine,
		config:    cfg,
		formatter: Formatter{Styles: NewStyles(out), MaxListed: cfg.MaxListed},
		out:       out,
		logger:    logger,
	}
}

// SetPrompt replaces the prompt. An empty prompt restores the default.
func (s *Shell) SetPrompt(prompt string) {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	s.config.Prompt = prompt
}

// Prompt returns the current prompt
func (s *Shell) Prompt() string {
	return s.config.Prompt
}

// SetHistoryEnabled toggles recording of entered lines
func (s *Shell) SetHistoryEnabled(enabled bool) {
	s.config.HistoryEnabled = enabled
}

// Run starts a terminal session with line editing and persistent history
func (s *Shell) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if s.config.HistoryEnabled && s.config.HistoryFile != "" {
		if f, err := os.Open(s.config.HistoryFile); err == nil {
			if _, err := line.ReadHistory(f); err != nil {
				s.logger.Warn("Failed to read history", "file", s.config.HistoryFile, "error", err)
			}
			f.Close()
		}
		defer s.saveHistory(line)
	}

	return s.RunWith(ctx, line)
}

func (s *Shell) saveHistory(line *liner.State) {
	if err := os.MkdirAll(filepath.Dir(s.config.HistoryFile), 0o755); err != nil {
		s.logger.Warn("Failed to create history directory", "error", err)
		return
	}
	f, err := os.Create(s.config.HistoryFile)
	if err != nil {
		s.logger.Warn("Failed to write history", "file", s.config.HistoryFile, "error", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		s.logger.Warn("Failed to write history", "file", s.config.HistoryFile, "error", err)
	}
}

// RunWith runs the read-eval-print loop on reader until EXIT, end of
// input or cancellation of ctx
func (s *Shell) RunWith(ctx context.Context, reader LineReader) error {
	s.banner()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := reader.Prompt(s.config.Prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if s.config.HistoryEnabled {
			reader.AppendHistory(input)
		}

		if exit := s.Handle(ctx, input); exit {
			return nil
		}
	}
}

// Handle processes one input line and reports whether the shell should
// exit
func (s *Shell) Handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	switch input {
	case "":
		return false
	case "EXIT", "exit":
		fmt.Fprintln(s.out, s.formatter.Styles.Muted.Render("Goodbye!"))
		return true
	case "HELP", "help":
		fmt.Fprint(s.out, HelpText())
		return false
	}

	start := time.Now()
	status, result, err := s.run(ctx, input)
	s.logger.Debug("Shell query", "status", status.String(), "duration", time.Since(start))

	fmt.Fprint(s.out, s.formatter.Format(status, result, err))
	return false
}

// run parses and executes input, warning about component names a set
// query will ignore
func (s *Shell) run(ctx context.Context, input string) (query.Status, *query.Result, error) {
	stmt, err := s.engine.Parse(input)
	if err != nil {
		return query.StatusOf(err), nil, err
	}

	if mdwast.PredicateOf(stmt) != nil {
		if unknown := s.engine.UnknownComponents(stmt); len(unknown) > 0 {
			fmt.Fprintln(s.out, s.formatter.Styles.Muted.Render("Ignoring unknown components: "+strings.Join(unknown, ", ")))
		}
	}
	return s.engine.ExecuteStatement(ctx, stmt)
}

func (s *Shell) banner() {
	fmt.Fprintln(s.out, s.formatter.Styles.Title.Render("ecsq query shell"))
	fmt.Fprintln(s.out, s.formatter.Styles.Muted.Render("Type 'HELP' for commands, 'EXIT' to quit"))
}
