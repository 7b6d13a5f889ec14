package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlignments(t *testing.T) {
	doc, err := ParseAlignments([]byte(`{
	  "project": "demo", "source_language": "en", "target_language": "tr",
	  "alignments": [{"source_line": "I loved", "target_line": "amadı", "words": [
	    {"word": "amadı", "morphemes": [
	      {"form": "ama", "gloss": "love", "type": "known", "source_type": "glossary", "source_id": "g1"},
	      {"form": "dı", "gloss": "?", "type": "unknown", "source_type": "none", "source_id": null}
	    ]}
	  ]}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "tr", doc.TargetLanguage)

	w, ok := doc.Word(0, 0)
	require.True(t, ok)
	require.Len(t, w.Morphemes, 2)
	assert.Equal(t, "g1", *w.Morphemes[0].SourceID)
	assert.Nil(t, w.Morphemes[1].SourceID)
	assert.True(t, w.Morphemes[1].IsUnknown())
}

func TestParseGlossaryShapes(t *testing.T) {
	wrapped, err := ParseGlossary([]byte(`{"entries": [{"id": "g1", "form": "ama", "gloss": "love", "pos": "v"}]}`))
	require.NoError(t, err)
	bare, err := ParseGlossary([]byte("  \n[{\"id\": \"g1\", \"form\": \"ama\", \"gloss\": \"love\", \"pos\": \"v\"}]"))
	require.NoError(t, err)
	assert.Equal(t, wrapped.Entries, bare.Entries)

	e, ok := bare.Lookup("g1")
	require.True(t, ok)
	assert.Nil(t, e.Notes)
}

func TestParseRulesShapes(t *testing.T) {
	wrapped, err := ParseRules([]byte(`{"rules": [{"id": "r1", "form": "lAr", "gloss": "PL", "type": "suffix", "description": "plural"}]}`))
	require.NoError(t, err)
	bare, err := ParseRules([]byte(`[{"id": "r1", "form": "lAr", "gloss": "PL", "type": "suffix", "description": "plural"}]`))
	require.NoError(t, err)
	assert.Equal(t, wrapped.Rules, bare.Rules)

	r, ok := wrapped.Lookup("r1")
	require.True(t, ok)
	assert.Equal(t, "plural", *r.Description)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]byte) error
		raw   string
	}{
		{"empty glossary", glossaryErr, ""},
		{"truncated glossary", glossaryErr, `{"entries": [`},
		{"trailing data", glossaryErr, `[] []`},
		{"wrong type", rulesErr, `{"rules": {"id": "r1"}}`},
		{"not json", rulesErr, `rules`},
		{"alignments wrong type", alignmentsErr, `{"alignments": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.parse([]byte(tt.raw)))
		})
	}
}

func glossaryErr(raw []byte) error {
	_, err := ParseGlossary(raw)
	return err
}

func rulesErr(raw []byte) error {
	_, err := ParseRules(raw)
	return err
}

func alignmentsErr(raw []byte) error {
	_, err := ParseAlignments(raw)
	return err
}

func TestDuplicateIDsFirstWins(t *testing.T) {
	doc, err := ParseGlossary([]byte(`[{"id": "g1", "gloss": "first"}, {"id": "g1", "gloss": "second"}]`))
	require.NoError(t, err)
	e, ok := doc.Lookup("g1")
	require.True(t, ok)
	assert.Equal(t, "first", e.Gloss)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	raw, sum, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(raw))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestWatcherEmitsDebouncedChange(t *testing.T) {
	dir := t.TempDir()
	glossary := filepath.Join(dir, "glossary.json")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(glossary, []byte("[]"), 0644))

	w, err := NewWatcher(WatcherConfig{
		Paths:         map[Kind]string{KindGlossary: glossary, KindRules: ""},
		DebounceDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(glossary, []byte(`[{"id": "g1"}]`), 0644))
	}

	select {
	case c := <-w.Changes():
		assert.Equal(t, KindGlossary, c.Kind)
		assert.Equal(t, glossary, c.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event")
	}

	cancel()
	for range w.Changes() {
	}
	assert.NoError(t, w.Close())
}

func TestWatcherWaitsForQuietPeriod(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rules, []byte("[]"), 0644))

	w, err := NewWatcher(WatcherConfig{
		Paths:         map[Kind]string{KindRules: rules},
		DebounceDelay: 150 * time.Millisecond,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// Writes closer together than the delay keep postponing the change.
	for i := 0; i < 8; i++ {
		require.NoError(t, os.WriteFile(rules, []byte(`[{"id": "r1"}]`), 0644))
		select {
		case c := <-w.Changes():
			t.Fatalf("change %v emitted while writes were still arriving", c)
		case <-time.After(40 * time.Millisecond):
		}
	}

	select {
	case c := <-w.Changes():
		assert.Equal(t, KindRules, c.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event after writes stopped")
	}
	select {
	case c := <-w.Changes():
		t.Fatalf("writes in one burst produced a second change %v", c)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	for range w.Changes() {
	}
	assert.NoError(t, w.Close())
}
