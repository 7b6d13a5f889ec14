// Package app owns the loaded documents and the patch store. It is the only
// place the store is mutated; every derived view is computed from it on
// demand.
package app

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/japaniel/glosser/pkg/document"
	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/overlay"
	"github.com/japaniel/glosser/pkg/patch"
	"github.com/japaniel/glosser/pkg/persist"
)

// State is the application state. It is not safe for concurrent use; the
// caller serialises access.
type State struct {
	alignments *model.AlignmentDocument
	glossary   *model.GlossaryDocument
	rules      *model.RuleDocument
	store      *patch.Store

	persister persist.Persister
	logger    *zap.Logger
}

// NewState loads persisted patches through p. A nil persister keeps patches
// in memory only.
func NewState(ctx context.Context, p persist.Persister, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &State{persister: p, logger: logger, store: patch.NewStore()}
	if p == nil {
		return s
	}
	store, skipped := patch.FromMapping(p.Load(ctx))
	if len(skipped) > 0 {
		logger.Debug("dropped malformed persisted patches", zap.Strings("keys", skipped))
	}
	s.store = store
	logger.Debug("patch store loaded", zap.Int("patches", store.Len()))
	return s
}

// SetAlignments replaces the alignment document. On a parse error the
// previous document is kept.
func (s *State) SetAlignments(raw []byte) error {
	doc, err := document.ParseAlignments(raw)
	if err != nil {
		return err
	}
	s.alignments = doc
	return nil
}

// SetGlossary replaces the glossary. On a parse error the previous document
// is kept.
func (s *State) SetGlossary(raw []byte) error {
	doc, err := document.ParseGlossary(raw)
	if err != nil {
		return err
	}
	s.glossary = doc
	return nil
}

// SetRules replaces the rule set. On a parse error the previous document is
// kept.
func (s *State) SetRules(raw []byte) error {
	doc, err := document.ParseRules(raw)
	if err != nil {
		return err
	}
	s.rules = doc
	return nil
}

// LoadFile reads path and hands it to the setter for kind. Provenance is
// recorded when the persister supports it.
func (s *State) LoadFile(kind document.Kind, path string) error {
	raw, sum, err := document.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", kind, err)
	}
	switch kind {
	case document.KindAlignments:
		err = s.SetAlignments(raw)
	case document.KindGlossary:
		err = s.SetGlossary(raw)
	case document.KindRules:
		err = s.SetRules(raw)
	default:
		return fmt.Errorf("unknown document kind %q", kind)
	}
	if err != nil {
		return err
	}
	if rec, ok := s.persister.(persist.DocumentRecorder); ok {
		if err := rec.RecordDocument(string(kind), path, sum); err != nil {
			s.logger.Warn("failed to record document provenance", zap.String("path", path), zap.Error(err))
		}
	}
	s.logger.Debug("document loaded", zap.String("kind", string(kind)), zap.String("path", path), zap.String("sha256", sum))
	return nil
}

// Alignments returns the alignment document, or nil if none is loaded.
func (s *State) Alignments() *model.AlignmentDocument { return s.alignments }

// Glossary returns the glossary, or nil if none is loaded.
func (s *State) Glossary() *model.GlossaryDocument { return s.glossary }

// Rules returns the rule set, or nil if none is loaded.
func (s *State) Rules() *model.RuleDocument { return s.rules }

// Store returns the live patch store. Callers must not mutate it directly.
func (s *State) Store() *patch.Store { return s.store }

// Engine returns a resolver over the current documents and store.
func (s *State) Engine() *overlay.Engine {
	return overlay.New(s.glossary, s.rules, s.store)
}

// TargetLanguage is the alignment document's target language, if loaded.
func (s *State) TargetLanguage() string {
	if s.alignments == nil {
		return ""
	}
	return s.alignments.TargetLanguage
}

// Word returns the word at (line, idx).
func (s *State) Word(line, idx int) (model.Word, bool) {
	return s.alignments.Word(line, idx)
}

// Edit is a user correction to one entity.
type Edit struct {
	Kind model.Kind
	// ID is the glossary/rule id, or the unknown morpheme's surface form.
	ID     string
	Fields map[string]string

	// Line, when >= 0, is the alignment line the unknown morpheme was edited
	// on. Scoped stores the patch for that line only instead of for every
	// occurrence of the form.
	Line   int
	Scoped bool
}

// ApplyEdit is the single mutation path. It reports whether the store
// changed; only then is the store persisted.
func (s *State) ApplyEdit(e Edit) (bool, error) {
	key, original, err := s.target(e)
	if err != nil {
		return false, err
	}
	if !s.store.Apply(key, e.Fields, original) {
		s.logger.Debug("edit matches base record, skipped", zap.String("key", key.String()))
		return false, nil
	}
	s.logger.Info("patch saved", zap.String("key", key.String()), zap.Uint64("version", s.store.Version()))
	if s.persister != nil {
		s.persister.Save(s.store.Mapping())
	}
	return true, nil
}

// target finds the key and base record an edit diffs against.
func (s *State) target(e Edit) (patch.Key, model.Record, error) {
	switch e.Kind {
	case model.KindGlossary:
		entry, ok := s.glossary.Lookup(e.ID)
		if !ok {
			return patch.Key{}, nil, fmt.Errorf("glossary entry %q not found", e.ID)
		}
		return patch.GlossaryKey(e.ID), entry, nil
	case model.KindRule:
		rule, ok := s.rules.Lookup(e.ID)
		if !ok {
			return patch.Key{}, nil, fmt.Errorf("rule %q not found", e.ID)
		}
		return patch.RuleKey(e.ID), rule, nil
	case model.KindUnknown:
		if e.ID == "" {
			return patch.Key{}, nil, fmt.Errorf("unknown morpheme form is empty")
		}
		m := s.unknownMorpheme(e.ID, e.Line)
		if e.Scoped && e.Line >= 0 {
			return patch.ScopedUnknownKey(e.ID, e.Line), m, nil
		}
		return patch.UnknownKey(e.ID), m, nil
	}
	return patch.Key{}, nil, fmt.Errorf("unknown entity kind %q", e.Kind)
}

// unknownMorpheme finds the base record for an unknown form, preferring an
// occurrence on line. A form not present in the document diffs against a
// bare morpheme.
func (s *State) unknownMorpheme(form string, line int) model.Morpheme {
	var first *model.Morpheme
	if s.alignments != nil {
		for i, al := range s.alignments.Alignments {
			for _, w := range al.Words {
				for _, m := range w.Morphemes {
					if !m.IsUnknown() || m.Form != form {
						continue
					}
					if i == line {
						return m
					}
					if first == nil {
						found := m
						first = &found
					}
				}
			}
		}
	}
	if first != nil {
		return *first
	}
	return model.Morpheme{Form: form, Type: model.MorphemeUnknown}
}

// ImportPatches replays a persisted mapping through ApplyEdit, so imported
// fields are diffed against the loaded documents like any other edit.
// Entries that cannot be applied are skipped and returned.
func (s *State) ImportPatches(mapping map[string]map[string]string) (applied int, skipped []string) {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		key, err := patch.ParseKey(raw)
		if err != nil {
			skipped = append(skipped, raw)
			continue
		}
		edit := Edit{Kind: key.Kind, ID: key.ID, Fields: mapping[raw], Line: overlay.NoLine}
		if key.Scoped {
			edit.Line, edit.Scoped = key.Line, true
		}
		changed, err := s.ApplyEdit(edit)
		if err != nil {
			s.logger.Warn("patch not imported", zap.String("key", raw), zap.Error(err))
			skipped = append(skipped, raw)
			continue
		}
		if changed {
			applied++
		}
	}
	return applied, skipped
}
