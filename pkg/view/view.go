// Package view builds the filtered, scoped and sorted listings shown to the
// user over the alignment, glossary and rule collections.
package view

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/overlay"
)

// GlossaryLimit caps the glossary view after filtering and sorting.
const GlossaryLimit = 50

// IndexedLine is an alignment line with its position in the document.
type IndexedLine struct {
	Index int
	Line  model.AlignmentLine
}

// Alignments returns the lines whose source or target text contains query,
// case-insensitively, keeping document order and original indices.
func Alignments(doc *model.AlignmentDocument, query string) []IndexedLine {
	if doc == nil {
		return nil
	}
	q := strings.ToLower(query)
	var out []IndexedLine
	for i, line := range doc.Alignments {
		if q == "" || contains(line.SourceLine, q) || contains(line.TargetLine, q) {
			out = append(out, IndexedLine{Index: i, Line: line})
		}
	}
	return out
}

// contains expects needle to already be lower-cased.
func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// Query is the search state shared by the glossary and rule views.
type Query struct {
	// Text is a case-insensitive substring; empty matches everything.
	Text string
	// Selected scopes the view to the records referenced by this word's
	// morphemes. nil means no scoping.
	Selected *model.Word
}

// GlossaryRow is one glossary entry in a view.
type GlossaryRow struct {
	Original  model.GlossaryEntry
	Effective model.GlossaryEntry
	Edited    bool
}

// RuleRow is one rule in a view.
type RuleRow struct {
	Original  model.Rule
	Effective model.Rule
	Edited    bool
}

// Sorter orders effective forms. It wraps a collator, which is not safe for
// concurrent use.
type Sorter struct {
	c *collate.Collator
}

// NewSorter builds a locale-aware sorter for a BCP-47 tag. An empty or
// unparseable tag falls back to the root collation order.
func NewSorter(lang string) *Sorter {
	tag := language.Und
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			tag = t
		}
	}
	return &Sorter{c: collate.New(tag)}
}

// Less reports whether a sorts before b.
func (s *Sorter) Less(a, b string) bool {
	return s.c.CompareString(a, b) < 0
}

// referenced collects the ids w's morphemes point at in the given collection,
// using the original ids; patches never change identity.
func referenced(w *model.Word, source model.SourceType) map[string]bool {
	ids := make(map[string]bool)
	for _, m := range w.Morphemes {
		if st, id, ok := m.Reference(); ok && st == source {
			ids[id] = true
		}
	}
	return ids
}

// Glossary scopes, searches, sorts and truncates the glossary.
func Glossary(e *overlay.Engine, q Query, s *Sorter) []GlossaryRow {
	if e.Glossary == nil {
		return nil
	}
	if s == nil {
		s = NewSorter("")
	}
	var scope map[string]bool
	if q.Selected != nil {
		scope = referenced(q.Selected, model.SourceGlossary)
	}
	needle := strings.ToLower(q.Text)

	var rows []GlossaryRow
	for _, entry := range e.Glossary.Entries {
		if scope != nil && !scope[entry.ID] {
			continue
		}
		eff := e.ResolveGlossary(entry)
		if needle != "" && !contains(eff.Form, needle) && !contains(eff.Gloss, needle) {
			continue
		}
		rows = append(rows, GlossaryRow{
			Original:  entry,
			Effective: eff,
			Edited:    e.HasEdit(model.KindGlossary, entry.ID),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return s.Less(rows[i].Effective.Form, rows[j].Effective.Form)
	})
	if len(rows) > GlossaryLimit {
		rows = rows[:GlossaryLimit]
	}
	return rows
}

// Rules scopes, searches and sorts the rule set. The query also matches the
// effective description. Rules are never truncated.
func Rules(e *overlay.Engine, q Query, s *Sorter) []RuleRow {
	if e.Rules == nil {
		return nil
	}
	if s == nil {
		s = NewSorter("")
	}
	var scope map[string]bool
	if q.Selected != nil {
		scope = referenced(q.Selected, model.SourceRule)
	}
	needle := strings.ToLower(q.Text)

	var rows []RuleRow
	for _, rule := range e.Rules.Rules {
		if scope != nil && !scope[rule.ID] {
			continue
		}
		eff := e.ResolveRule(rule)
		if needle != "" && !contains(eff.Form, needle) && !contains(eff.Gloss, needle) &&
			!contains(model.FieldText(eff, "description"), needle) {
			continue
		}
		rows = append(rows, RuleRow{
			Original:  rule,
			Effective: eff,
			Edited:    e.HasEdit(model.KindRule, rule.ID),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return s.Less(rows[i].Effective.Form, rows[j].Effective.Form)
	})
	return rows
}
