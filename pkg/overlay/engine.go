// Package overlay answers "what does this morpheme mean after local edits?"
// by layering the patch store over the base glossary and rule documents.
//
// Every method is a pure function of the engine's inputs: nothing derived is
// cached, so results always reflect the store as it is at call time.
package overlay

import (
	"strings"

	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/patch"
)

// GlossSeparator joins per-morpheme glosses into a word gloss.
const GlossSeparator = " + "

// NoLine marks a lookup made without an alignment-line context.
const NoLine = -1

// Engine resolves records against a patch store. Either document may be nil,
// in which case every reference into it dangles.
type Engine struct {
	Glossary *model.GlossaryDocument
	Rules    *model.RuleDocument
	Store    *patch.Store
}

// New returns an engine over the given inputs.
func New(glossary *model.GlossaryDocument, rules *model.RuleDocument, store *patch.Store) *Engine {
	if store == nil {
		store = patch.NewStore()
	}
	return &Engine{Glossary: glossary, Rules: rules, Store: store}
}

// ResolveGlossary returns the effective glossary entry.
func (e *Engine) ResolveGlossary(entry model.GlossaryEntry) model.GlossaryEntry {
	p, ok := e.Store.Get(patch.GlossaryKey(entry.ID))
	if !ok {
		return entry
	}
	for field, value := range p {
		entry = entry.With(field, value)
	}
	return entry
}

// ResolveRule returns the effective rule.
func (e *Engine) ResolveRule(rule model.Rule) model.Rule {
	p, ok := e.Store.Get(patch.RuleKey(rule.ID))
	if !ok {
		return rule
	}
	for field, value := range p {
		rule = rule.With(field, value)
	}
	return rule
}

// ResolveUnknown returns the effective unknown morpheme. A patch scoped to
// line takes precedence over the form-only patch.
func (e *Engine) ResolveUnknown(line int, m model.Morpheme) model.Morpheme {
	p, ok := e.unknownPatch(line, m.Form)
	if !ok {
		return m
	}
	for field, value := range p {
		m = m.With(field, value)
	}
	return m
}

func (e *Engine) unknownPatch(line int, form string) (patch.Patch, bool) {
	if line >= 0 {
		if p, ok := e.Store.Get(patch.ScopedUnknownKey(form, line)); ok {
			return p, true
		}
	}
	return e.Store.Get(patch.UnknownKey(form))
}

// HasEdit reports whether a non-empty patch exists for (kind, id).
func (e *Engine) HasEdit(kind model.Kind, id string) bool {
	return e.Store.Has(patch.Key{Kind: kind, ID: id})
}

// HasUnknownEdit reports whether the unknown morpheme form has a patch that
// applies on line.
func (e *Engine) HasUnknownEdit(line int, form string) bool {
	_, ok := e.unknownPatch(line, form)
	return ok
}

// ResolvedMorpheme is a morpheme together with the record it was resolved to.
// Exactly one of Glossary or Rule is set unless Kind is unknown.
type ResolvedMorpheme struct {
	Kind     model.Kind
	Morpheme model.Morpheme
	Glossary *Resolved[model.GlossaryEntry]
	Rule     *Resolved[model.Rule]
}

// Resolved pairs a base record with its effective form.
type Resolved[T any] struct {
	Original  T
	Effective T
}

// Gloss is the gloss shown for the morpheme once edits are applied.
func (r ResolvedMorpheme) Gloss() string {
	switch {
	case r.Glossary != nil:
		return r.Glossary.Effective.Gloss
	case r.Rule != nil:
		return r.Rule.Effective.Gloss
	}
	return r.Morpheme.Gloss
}

// ResolveMorpheme follows a single morpheme's cross-reference. A reference to
// an id missing from its document degrades to unknown.
func (e *Engine) ResolveMorpheme(m model.Morpheme) ResolvedMorpheme {
	source, id, ok := m.Reference()
	if !ok {
		return ResolvedMorpheme{Kind: model.KindUnknown, Morpheme: m}
	}
	switch source {
	case model.SourceGlossary:
		if entry, found := e.Glossary.Lookup(id); found {
			return ResolvedMorpheme{
				Kind:     model.KindGlossary,
				Morpheme: m,
				Glossary: &Resolved[model.GlossaryEntry]{Original: entry, Effective: e.ResolveGlossary(entry)},
			}
		}
	case model.SourceRule:
		if rule, found := e.Rules.Lookup(id); found {
			return ResolvedMorpheme{
				Kind:     model.KindRule,
				Morpheme: m,
				Rule:     &Resolved[model.Rule]{Original: rule, Effective: e.ResolveRule(rule)},
			}
		}
	}
	return ResolvedMorpheme{Kind: model.KindUnknown, Morpheme: m}
}

// ResolveMorphemes resolves every morpheme of w, preserving order.
func (e *Engine) ResolveMorphemes(w model.Word) []ResolvedMorpheme {
	out := make([]ResolvedMorpheme, 0, len(w.Morphemes))
	for _, m := range w.Morphemes {
		out = append(out, e.ResolveMorpheme(m))
	}
	return out
}

// unknownResolved reports whether an edit gave the unknown morpheme a
// non-empty gloss different from its generated one.
func (e *Engine) unknownResolved(line int, m model.Morpheme) bool {
	effective := e.ResolveUnknown(line, m)
	return effective.Gloss != "" && effective.Gloss != m.Gloss
}

// Classify derives the word's status from its morphemes and the current
// patch state. line scopes unknown-morpheme lookups; pass NoLine for none.
func (e *Engine) Classify(line int, w model.Word) model.Status {
	var hasKnown, hasResolvedUnknown, hasUnresolvedUnknown bool
	for _, m := range w.Morphemes {
		if !m.IsUnknown() {
			hasKnown = true
			continue
		}
		if e.unknownResolved(line, m) {
			hasResolvedUnknown = true
		} else {
			hasUnresolvedUnknown = true
		}
	}

	switch {
	case hasUnresolvedUnknown && (hasKnown || hasResolvedUnknown):
		return model.StatusMixed
	case hasUnresolvedUnknown:
		return model.StatusUnknown
	case hasResolvedUnknown:
		return model.StatusPatched
	default:
		return model.StatusKnown
	}
}

// MorphemeGloss is the display gloss of one morpheme on line.
func (e *Engine) MorphemeGloss(line int, m model.Morpheme) string {
	r := e.ResolveMorpheme(m)
	if r.Kind != model.KindUnknown {
		return r.Gloss()
	}
	if p, ok := e.unknownPatch(line, m.Form); ok {
		if g, set := p["gloss"]; set && g != m.Gloss {
			return g
		}
	}
	return m.Gloss
}

// AggregateGloss joins the display glosses of w's morphemes in order.
func (e *Engine) AggregateGloss(line int, w model.Word) string {
	parts := make([]string, 0, len(w.Morphemes))
	for _, m := range w.Morphemes {
		parts = append(parts, e.MorphemeGloss(line, m))
	}
	return strings.Join(parts, GlossSeparator)
}
