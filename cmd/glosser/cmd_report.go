package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/glosser/pkg/document"
	"github.com/japaniel/glosser/pkg/hints"
	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/report"
)

var (
	reportLines bool

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Summarize word statuses across the whole document",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}

	hintsCmd = &cobra.Command{
		Use:   "hints <line> <index>",
		Short: "Suggest analyses for a word's unknown morphemes (Japanese targets)",
		Args:  cobra.ExactArgs(2),
		RunE:  runHints,
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Reload documents when they change and print the updated summary",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
)

func init() {
	reportCmd.Flags().BoolVar(&reportLines, "lines", false, "print per-line counts")
	rootCmd.AddCommand(reportCmd, hintsCmd, watchCmd)
}

func printTotals(w io.Writer, sum *report.Summary) {
	parts := make([]string, 0, len(model.Statuses))
	for _, st := range model.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", renderStatus(st), sum.Totals[st]))
	}
	fmt.Fprintf(w, "%d words: %s\n", sum.Words, strings.Join(parts, ", "))
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.state.Alignments() == nil {
		return fmt.Errorf("no alignments loaded")
	}
	sum, err := report.Summarize(ctx, s.state.Engine(), s.state.Alignments(), cfg.Report.Workers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportLines {
		for _, line := range sum.Lines {
			glosses := make([]string, 0, len(line.Words))
			for _, w := range line.Words {
				glosses = append(glosses, w.Gloss)
			}
			fmt.Fprintf(out, "[%d] known %d, patched %d, mixed %d, unknown %d  %s\n", line.Index,
				line.Counts[model.StatusKnown], line.Counts[model.StatusPatched],
				line.Counts[model.StatusMixed], line.Counts[model.StatusUnknown],
				dimStyle.Render(strings.Join(glosses, " | ")))
		}
	}
	printTotals(out, sum)
	return nil
}

func runHints(cmd *cobra.Command, args []string) error {
	line, err := parseIndex("line", args[0])
	if err != nil {
		return err
	}
	idx, err := parseIndex("index", args[1])
	if err != nil {
		return err
	}

	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	if lang := s.state.TargetLanguage(); !hints.Applicable(lang) {
		return fmt.Errorf("hints are only available for Japanese targets (target language %q)", lang)
	}
	w, ok := s.state.Word(line, idx)
	if !ok {
		return fmt.Errorf("no word at %d:%d", line, idx)
	}

	analyzer, err := hints.NewAnalyzer()
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	if cfg.Hints.Dictionary != "" {
		dict, err := hints.LoadDictionary(cfg.Hints.Dictionary)
		if err != nil {
			logger.Warn("dictionary not loaded, continuing without definitions", zap.String("path", cfg.Hints.Dictionary), zap.Error(err))
		} else {
			analyzer.WithDictionary(dict)
		}
	}
	e := s.state.Engine()
	out := cmd.OutOrStdout()
	found := false
	for _, m := range w.Morphemes {
		if !m.IsUnknown() {
			continue
		}
		found = true
		fmt.Fprintf(out, "%s  (current: %s)\n", m.Form, e.ResolveUnknown(line, m).Gloss)
		for _, h := range analyzer.Suggest(m.Form) {
			fmt.Fprintf(out, "  %-8s %-8s %-10s %s\n", h.Surface, h.BaseForm, hints.ToHiragana(h.Reading), h.Gloss())
			for _, d := range h.Definitions {
				fmt.Fprintf(out, "    %s\n", dimStyle.Render(strings.Join(d.Senses, "; ")))
			}
		}
	}
	if !found {
		fmt.Fprintln(out, "no unknown morphemes")
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	paths := make(map[document.Kind]string)
	for _, d := range documentPaths(cfg) {
		paths[d.kind] = d.path
	}
	w, err := document.NewWatcher(document.WatcherConfig{Paths: paths, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	out := cmd.OutOrStdout()
	summarize := func() {
		if s.state.Alignments() == nil {
			return
		}
		sum, err := report.Summarize(ctx, s.state.Engine(), s.state.Alignments(), cfg.Report.Workers)
		if err != nil {
			logger.Warn("summary failed", zap.Error(err))
			return
		}
		printTotals(out, sum)
	}
	summarize()

	for change := range w.Changes() {
		if err := s.state.LoadFile(change.Kind, change.Path); err != nil {
			logger.Warn("document reload failed, keeping previous", zap.String("kind", string(change.Kind)), zap.Error(err))
			continue
		}
		logger.Info("document reloaded", zap.String("kind", string(change.Kind)), zap.String("path", change.Path))
		summarize()
	}
	return nil
}
