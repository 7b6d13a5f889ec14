package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/glosser/pkg/document"
	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/overlay"
	"github.com/japaniel/glosser/pkg/patch"
)

type fakePersister struct {
	initial map[string]map[string]string
	saves   []map[string]map[string]string
	docs    []string
}

func (f *fakePersister) Load(ctx context.Context) map[string]map[string]string {
	return f.initial
}

func (f *fakePersister) Save(mapping map[string]map[string]string) {
	f.saves = append(f.saves, mapping)
}

func (f *fakePersister) Close() error { return nil }

func (f *fakePersister) RecordDocument(kind, path, sum string) error {
	f.docs = append(f.docs, kind+" "+sum)
	return nil
}

const alignmentsJSON = `{
  "project": "demo",
  "source_language": "en",
  "target_language": "tr",
  "alignments": [
    {
      "source_line": "I loved",
      "target_line": "amadı",
      "words": [
        {"word": "amadı", "morphemes": [
          {"form": "ama", "gloss": "love", "type": "known", "source_type": "glossary", "source_id": "g1"},
          {"form": "dı", "gloss": "?", "type": "unknown"}
        ]}
      ]
    },
    {
      "source_line": "books",
      "target_line": "kitaplar",
      "words": [
        {"word": "kitaplar", "morphemes": [
          {"form": "kitap", "gloss": "book", "type": "known", "source_type": "glossary", "source_id": "g2"},
          {"form": "lar", "gloss": "PL", "type": "known", "source_type": "rule", "source_id": "r99"}
        ]}
      ]
    }
  ]
}`

const glossaryJSON = `{"entries": [
  {"id": "g1", "form": "ama", "gloss": "love", "pos": "v"},
  {"id": "g2", "form": "kitap", "gloss": "book", "pos": "n"}
]}`

const rulesJSON = `[{"id": "r1", "form": "lAr", "gloss": "PL", "type": "suffix"}]`

func loaded(t *testing.T, p *fakePersister) *State {
	t.Helper()
	s := NewState(context.Background(), p, nil)
	require.NoError(t, s.SetAlignments([]byte(alignmentsJSON)))
	require.NoError(t, s.SetGlossary([]byte(glossaryJSON)))
	require.NoError(t, s.SetRules([]byte(rulesJSON)))
	return s
}

func TestApplyEditGlossaryGloss(t *testing.T) {
	p := &fakePersister{}
	s := loaded(t, p)

	changed, err := s.ApplyEdit(Edit{Kind: model.KindGlossary, ID: "g1", Fields: map[string]string{"gloss": "love (intr.)"}, Line: overlay.NoLine})
	require.NoError(t, err)
	assert.True(t, changed)

	entry, _ := s.Glossary().Lookup("g1")
	assert.Equal(t, "love (intr.)", s.Engine().ResolveGlossary(entry).Gloss)
	assert.Equal(t, "love", entry.Gloss)

	require.Len(t, p.saves, 1)
	assert.Equal(t, map[string]map[string]string{"glossary:g1": {"gloss": "love (intr.)"}}, p.saves[0])
}

func TestApplyEditNoOpDoesNotPersist(t *testing.T) {
	p := &fakePersister{}
	s := loaded(t, p)

	changed, err := s.ApplyEdit(Edit{Kind: model.KindGlossary, ID: "g1", Fields: map[string]string{"gloss": "love", "form": "ama"}, Line: overlay.NoLine})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, p.saves)
	assert.Zero(t, s.Store().Len())

	_, err = s.ApplyEdit(Edit{Kind: model.KindRule, ID: "r1", Fields: map[string]string{"gloss": "PLURAL"}, Line: overlay.NoLine})
	require.NoError(t, err)
	changed, err = s.ApplyEdit(Edit{Kind: model.KindRule, ID: "r1", Fields: map[string]string{"gloss": "PLURAL"}, Line: overlay.NoLine})
	require.NoError(t, err)
	assert.False(t, changed, "repeating an applied edit changes nothing")
	assert.Len(t, p.saves, 1)
}

func TestApplyEditMissingTarget(t *testing.T) {
	p := &fakePersister{}
	s := loaded(t, p)

	for _, e := range []Edit{
		{Kind: model.KindGlossary, ID: "g404", Fields: map[string]string{"gloss": "x"}},
		{Kind: model.KindRule, ID: "r99", Fields: map[string]string{"gloss": "x"}},
		{Kind: model.Kind("phrase"), ID: "p1", Fields: map[string]string{"gloss": "x"}},
		{Kind: model.KindUnknown, ID: "", Fields: map[string]string{"gloss": "x"}},
	} {
		changed, err := s.ApplyEdit(e)
		assert.Error(t, err, e.ID)
		assert.False(t, changed)
	}
	assert.Zero(t, s.Store().Len())
	assert.Empty(t, p.saves)
}

func TestUnknownEditMovesWordFromMixedToPatched(t *testing.T) {
	s := loaded(t, &fakePersister{})
	w, ok := s.Word(0, 0)
	require.True(t, ok)
	assert.Equal(t, model.StatusMixed, s.Engine().Classify(0, w))

	changed, err := s.ApplyEdit(Edit{Kind: model.KindUnknown, ID: "dı", Fields: map[string]string{"gloss": "PAST"}, Line: 0})
	require.NoError(t, err)
	require.True(t, changed)

	assert.Equal(t, model.StatusPatched, s.Engine().Classify(0, w))
	assert.Equal(t, "love + PAST", s.Engine().AggregateGloss(0, w))
	assert.True(t, s.Store().Has(patch.UnknownKey("dı")))
}

func TestScopedUnknownEdit(t *testing.T) {
	s := loaded(t, &fakePersister{})

	_, err := s.ApplyEdit(Edit{Kind: model.KindUnknown, ID: "dı", Fields: map[string]string{"gloss": "PAST"}, Line: 0, Scoped: true})
	require.NoError(t, err)

	assert.True(t, s.Store().Has(patch.ScopedUnknownKey("dı", 0)))
	assert.False(t, s.Store().Has(patch.UnknownKey("dı")))

	m := model.Morpheme{Form: "dı", Gloss: "?", Type: model.MorphemeUnknown}
	assert.Equal(t, "PAST", s.Engine().ResolveUnknown(0, m).Gloss)
	assert.Equal(t, "?", s.Engine().ResolveUnknown(1, m).Gloss)
}

func TestDanglingRuleReference(t *testing.T) {
	s := loaded(t, &fakePersister{})
	w, ok := s.Word(1, 0)
	require.True(t, ok)

	resolved := s.Engine().ResolveMorphemes(w)
	require.Len(t, resolved, 2)
	assert.Equal(t, model.KindGlossary, resolved[0].Kind)
	assert.Equal(t, model.KindUnknown, resolved[1].Kind)
	assert.Equal(t, "book + PL", s.Engine().AggregateGloss(1, w))
}

func TestParseFailureKeepsPreviousDocument(t *testing.T) {
	s := loaded(t, &fakePersister{})

	assert.Error(t, s.SetGlossary([]byte(`{"entries": [`)))
	assert.Error(t, s.SetRules([]byte(`not json`)))
	assert.Error(t, s.SetAlignments([]byte(`{"alignments": 3}`)))

	_, ok := s.Glossary().Lookup("g1")
	assert.True(t, ok)
	_, ok = s.Rules().Lookup("r1")
	assert.True(t, ok)
	assert.Equal(t, "tr", s.TargetLanguage())
}

func TestNewStateLoadsPersistedPatches(t *testing.T) {
	p := &fakePersister{initial: map[string]map[string]string{
		"glossary:g1": {"gloss": "adore"},
		"bogus":       {"gloss": "x"},
	}}
	s := loaded(t, p)

	assert.Equal(t, 1, s.Store().Len())
	entry, _ := s.Glossary().Lookup("g1")
	assert.Equal(t, "adore", s.Engine().ResolveGlossary(entry).Gloss)
}

func TestNewStateWithoutPersister(t *testing.T) {
	s := NewState(context.Background(), nil, nil)
	assert.Nil(t, s.Alignments())
	_, ok := s.Word(0, 0)
	assert.False(t, ok)
	assert.Equal(t, "", s.TargetLanguage())

	changed, err := s.ApplyEdit(Edit{Kind: model.KindUnknown, ID: "dı", Fields: map[string]string{"gloss": "PAST"}, Line: overlay.NoLine})
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestImportPatches(t *testing.T) {
	p := &fakePersister{}
	s := loaded(t, p)

	applied, skipped := s.ImportPatches(map[string]map[string]string{
		"glossary:g1":  {"gloss": "love (intr.)"},
		"glossary:g2":  {"gloss": "book"},
		"rule:missing": {"gloss": "x"},
		"nonsense":     {"gloss": "x"},
		"unknown:dı":   {"gloss": "PAST"},
	})
	assert.Equal(t, 2, applied)
	assert.Equal(t, []string{"nonsense", "rule:missing"}, skipped)
	assert.Len(t, p.saves, 2)
	assert.False(t, s.Store().Has(patch.GlossaryKey("g2")))
}

func TestImportPatchesKeepsScope(t *testing.T) {
	s := loaded(t, &fakePersister{})

	applied, skipped := s.ImportPatches(map[string]map[string]string{
		"unknown@0:dı": {"gloss": "EVID"},
	})
	assert.Equal(t, 1, applied)
	assert.Empty(t, skipped)
	assert.True(t, s.Store().Has(patch.ScopedUnknownKey("dı", 0)))
	assert.False(t, s.Store().Has(patch.UnknownKey("dı")))
	assert.Equal(t, "EVID", s.Engine().ResolveUnknown(0, model.Morpheme{Form: "dı", Gloss: "?", Type: model.MorphemeUnknown}).Gloss)
	assert.Equal(t, "?", s.Engine().ResolveUnknown(1, model.Morpheme{Form: "dı", Gloss: "?", Type: model.MorphemeUnknown}).Gloss)
}

func TestLoadFileRecordsProvenance(t *testing.T) {
	p := &fakePersister{}
	s := NewState(context.Background(), p, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "glossary.json")
	require.NoError(t, os.WriteFile(path, []byte(glossaryJSON), 0644))

	require.NoError(t, s.LoadFile(document.KindGlossary, path))
	_, sum, err := document.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"glossary " + sum}, p.docs)

	assert.Error(t, s.LoadFile(document.KindRules, filepath.Join(dir, "missing.json")))
	assert.Len(t, p.docs, 1)
}
