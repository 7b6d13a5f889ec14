package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/japaniel/glosser/pkg/app"
	"github.com/japaniel/glosser/pkg/config"
	"github.com/japaniel/glosser/pkg/document"
	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/persist"
	"github.com/japaniel/glosser/pkg/view"
)

// session is the state for one command invocation.
type session struct {
	state     *app.State
	persister persist.Persister
}

func openPersister(c *config.Config) (persist.Persister, error) {
	switch c.Storage.Backend {
	case "sqlite":
		p, err := persist.OpenSQLite(c.Storage.Path, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "json":
		return persist.OpenFile(c.Storage.Path, logger), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
}

// documentPaths lists the configured documents in load order.
func documentPaths(c *config.Config) []struct {
	kind document.Kind
	path string
} {
	return []struct {
		kind document.Kind
		path string
	}{
		{document.KindAlignments, c.Documents.Alignments},
		{document.KindGlossary, c.Documents.Glossary},
		{document.KindRules, c.Documents.Rules},
	}
}

// openSession loads persisted patches and whichever documents are readable.
// A document that is missing or malformed is left absent. A patch store that
// cannot be opened leaves the session running in memory only.
func openSession(ctx context.Context) (*session, error) {
	var p persist.Persister
	opened, err := openPersister(cfg)
	if err != nil {
		logger.Warn("patch store unavailable, edits will not be saved",
			zap.String("backend", cfg.Storage.Backend), zap.String("path", cfg.Storage.Path), zap.Error(err))
	} else {
		p = opened
	}
	s := &session{state: app.NewState(ctx, p, logger), persister: p}
	for _, d := range documentPaths(cfg) {
		if d.path == "" {
			continue
		}
		if err := s.state.LoadFile(d.kind, d.path); err != nil {
			logger.Warn("document not loaded", zap.String("kind", string(d.kind)), zap.Error(err))
		}
	}
	return s, nil
}

// Close flushes pending patch writes.
func (s *session) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

// sorter collates in the configured language, falling back to the
// alignment document's target language.
func (s *session) sorter() *view.Sorter {
	lang := cfg.View.Language
	if lang == "" {
		lang = s.state.TargetLanguage()
	}
	return view.NewSorter(lang)
}

// parseWordRef parses "line:index".
func parseWordRef(ref string) (int, int, error) {
	l, i, ok := strings.Cut(ref, ":")
	if !ok {
		return 0, 0, fmt.Errorf("word reference %q: want line:index", ref)
	}
	line, err := strconv.Atoi(l)
	if err != nil {
		return 0, 0, fmt.Errorf("word reference %q: bad line: %w", ref, err)
	}
	idx, err := strconv.Atoi(i)
	if err != nil {
		return 0, 0, fmt.Errorf("word reference %q: bad index: %w", ref, err)
	}
	return line, idx, nil
}

func parseIndex(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}

var (
	statusStyles = map[model.Status]lipgloss.Style{
		model.StatusKnown:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		model.StatusPatched: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		model.StatusMixed:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.StatusUnknown: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
	editedStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func renderStatus(s model.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

func editedMark(edited bool) string {
	if edited {
		return editedStyle.Render("*")
	}
	return " "
}
