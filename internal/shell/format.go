// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     shell
// Description: Human-readable rendering of query outcomes
// Author:      Mike Stoffels
// Created:     2026-03-20
// License:     MIT
// ============================================================================

package shell

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/msto63/ecsq/foundation/query"
	mdwast "github.com/msto63/ecsq/foundation/query/ast"
)

// DefaultMaxListed is the number of entities listed before truncation
const DefaultMaxListed = 10

// Colors
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
)

// Styles groups the lipgloss styles used for shell output
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles creates styles bound to out's color profile. Writers that are
// not terminals get plain text.
func NewStyles(out io.Writer) Styles {
	r := lipgloss.NewRenderer(out)
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(colorPrimary),
		Success: r.NewStyle().Foreground(colorSecondary),
		Error:   r.NewStyle().Foreground(colorError),
		Muted:   r.NewStyle().Foreground(colorMuted),
	}
}

// PlainStyles returns styles that render text unchanged
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Title: plain, Success: plain, Error: plain, Muted: plain}
}

// Formatter renders query outcomes
type Formatter struct {
	Styles    Styles
	MaxListed int
}

// Format renders one outcome. err is reported with its status; otherwise
// the result is described by kind.
func (f Formatter) Format(status query.Status, result *query.Result, err error) string {
	var b strings.Builder

	if err != nil || status != query.StatusSuccess {
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		b.WriteString(f.Styles.Error.Render(fmt.Sprintf("Query error (%s): %s", status, msg)))
		b.WriteString("\n")
		return b.String()
	}

	maxListed := f.MaxListed
	if maxListed <= 0 {
		maxListed = DefaultMaxListed
	}

	switch {
	case result.HasPayload():
		b.WriteString(f.Styles.Success.Render(fmt.Sprintf("Component data retrieved (size: %d bytes)", len(result.Payload))))
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(hex.Dump(result.Payload), "\n"), "\n") {
			b.WriteString("  ")
			b.WriteString(f.Styles.Muted.Render(line))
			b.WriteString("\n")
		}

	case result.Kind == mdwast.StatementShow:
		b.WriteString(f.Styles.Success.Render(fmt.Sprintf("Entity has %d components", result.Count)))
		b.WriteString("\n")

	case result.Count > 0:
		b.WriteString(f.Styles.Success.Render(fmt.Sprintf("Found %d entities", result.Count)))
		b.WriteString("\n")
		for i, id := range result.Entities {
			if i == maxListed {
				b.WriteString(f.Styles.Muted.Render(fmt.Sprintf("  ... and %d more", len(result.Entities)-maxListed)))
				b.WriteString("\n")
				break
			}
			fmt.Fprintf(&b, "  Entity: %s\n", id)
		}

	default:
		b.WriteString(f.Styles.Muted.Render("No entities found"))
		b.WriteString("\n")
	}

	return b.String()
}

// HelpText lists the query forms and built-in commands
func HelpText() string {
	return `Query Language Commands:
  SELECT ENTITIES WHERE HAS(ComponentName1, ComponentName2)
  SELECT ENTITIES WHERE HAS_ANY(ComponentName1, ComponentName2)
  SELECT ENTITIES WHERE NOT_HAS(ComponentName)
  COUNT ENTITIES WHERE HAS(ComponentName)
  SHOW ComponentName OF ENTITY <high>:<low>
  SHOW ALL OF ENTITY <high>:<low>
  HELP - Show this help
  EXIT - Exit shell

Keywords are case-insensitive; component names are not.
`
}
