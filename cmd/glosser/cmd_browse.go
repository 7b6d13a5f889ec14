package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/overlay"
	"github.com/japaniel/glosser/pkg/view"
)

var (
	viewQuery string
	viewWord  string

	linesCmd = &cobra.Command{
		Use:   "lines [query]",
		Short: "List alignment lines, optionally filtered by a substring",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLines,
	}

	wordCmd = &cobra.Command{
		Use:   "word <line> <index>",
		Short: "Show a word's morphemes, their resolved entries and the word status",
		Args:  cobra.ExactArgs(2),
		RunE:  runWord,
	}

	glossaryCmd = &cobra.Command{
		Use:   "glossary",
		Short: "List glossary entries with local edits applied",
		Long: `Lists the glossary with patches applied, sorted by form.

With --word the list is restricted to entries referenced by that word.
At most 50 entries are shown.`,
		Args: cobra.NoArgs,
		RunE: runGlossary,
	}

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "List rules with local edits applied",
		Args:  cobra.NoArgs,
		RunE:  runRules,
	}
)

func init() {
	for _, c := range []*cobra.Command{glossaryCmd, rulesCmd} {
		c.Flags().StringVarP(&viewQuery, "query", "q", "", "case-insensitive substring filter")
		c.Flags().StringVarP(&viewWord, "word", "w", "", "scope to the word at line:index")
	}
	rootCmd.AddCommand(linesCmd, wordCmd, glossaryCmd, rulesCmd)
}

func runLines(cmd *cobra.Command, args []string) error {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	e := s.state.Engine()
	out := cmd.OutOrStdout()
	for _, il := range view.Alignments(s.state.Alignments(), query) {
		fmt.Fprintf(out, "[%d] %s\n", il.Index, il.Line.TargetLine)
		fmt.Fprintf(out, "    %s\n", dimStyle.Render(il.Line.SourceLine))
		for i, w := range il.Line.Words {
			fmt.Fprintf(out, "    %d %-16s %-8s %s\n", i, w.Word, renderStatus(e.Classify(il.Index, w)), e.AggregateGloss(il.Index, w))
		}
	}
	return nil
}

func runWord(cmd *cobra.Command, args []string) error {
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

	w, ok := s.state.Word(line, idx)
	if !ok {
		return fmt.Errorf("no word at %d:%d", line, idx)
	}
	e := s.state.Engine()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", w.Word, renderStatus(e.Classify(line, w)))
	fmt.Fprintf(out, "gloss: %s\n", e.AggregateGloss(line, w))
	for _, r := range e.ResolveMorphemes(w) {
		fmt.Fprintln(out, describeMorpheme(e, line, r))
	}
	return nil
}

func describeMorpheme(e *overlay.Engine, line int, r overlay.ResolvedMorpheme) string {
	switch r.Kind {
	case model.KindGlossary:
		g := r.Glossary
		return fmt.Sprintf("  %s %-10s glossary:%s  %s (%s)", editedMark(e.HasEdit(model.KindGlossary, g.Original.ID)),
			r.Morpheme.Form, g.Original.ID, g.Effective.Gloss, g.Effective.POS)
	case model.KindRule:
		rl := r.Rule
		return fmt.Sprintf("  %s %-10s rule:%s  %s (%s)", editedMark(e.HasEdit(model.KindRule, rl.Original.ID)),
			r.Morpheme.Form, rl.Original.ID, rl.Effective.Gloss, rl.Effective.Type)
	}
	eff := e.ResolveUnknown(line, r.Morpheme)
	note := ""
	if src, id, _ := danglingRef(r.Morpheme); id != "" {
		note = dimStyle.Render(fmt.Sprintf("  (missing %s %s)", src, id))
	}
	return fmt.Sprintf("  %s %-10s unknown  %s%s", editedMark(e.HasUnknownEdit(line, r.Morpheme.Form)),
		r.Morpheme.Form, eff.Gloss, note)
}

// danglingRef returns the reference a known morpheme carried even though it
// resolved to nothing.
func danglingRef(m model.Morpheme) (model.SourceType, string, bool) {
	if m.IsUnknown() || m.SourceID == nil {
		return "", "", false
	}
	return m.SourceType, *m.SourceID, true
}

func viewQueryFor(s *session) (view.Query, error) {
	q := view.Query{Text: viewQuery}
	if viewWord == "" {
		return q, nil
	}
	line, idx, err := parseWordRef(viewWord)
	if err != nil {
		return q, err
	}
	w, ok := s.state.Word(line, idx)
	if !ok {
		return q, fmt.Errorf("no word at %s", viewWord)
	}
	q.Selected = &w
	return q, nil
}

func runGlossary(cmd *cobra.Command, args []string) error {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := viewQueryFor(s)
	if err != nil {
		return err
	}
	if s.state.Glossary() == nil {
		return fmt.Errorf("no glossary loaded")
	}
	out := cmd.OutOrStdout()
	for _, row := range view.Glossary(s.state.Engine(), q, s.sorter()) {
		fmt.Fprintf(out, "%s %-8s %-16s %-24s %s\n", editedMark(row.Edited),
			row.Original.ID, row.Effective.Form, row.Effective.Gloss, row.Effective.POS)
	}
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := viewQueryFor(s)
	if err != nil {
		return err
	}
	if s.state.Rules() == nil {
		return fmt.Errorf("no rules loaded")
	}
	out := cmd.OutOrStdout()
	for _, row := range view.Rules(s.state.Engine(), q, s.sorter()) {
		line := fmt.Sprintf("%s %-8s %-12s %-16s %s", editedMark(row.Edited),
			row.Original.ID, row.Effective.Form, row.Effective.Gloss, row.Effective.Type)
		if d := model.FieldText(row.Effective, "description"); d != "" {
			line += "  " + dimStyle.Render(d)
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	return nil
}
