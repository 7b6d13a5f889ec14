package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorphemeReference(t *testing.T) {
	tests := []struct {
		name   string
		m      Morpheme
		source SourceType
		id     string
		ok     bool
	}{
		{"glossary", Morpheme{Type: MorphemeKnown, SourceType: SourceGlossary, SourceID: StringPtr("g1")}, SourceGlossary, "g1", true},
		{"rule", Morpheme{Type: MorphemeKnown, SourceType: SourceRule, SourceID: StringPtr("r1")}, SourceRule, "r1", true},
		{"unknown", Morpheme{Type: MorphemeUnknown, SourceType: SourceRule, SourceID: StringPtr("r1")}, SourceNone, "", false},
		{"nil id", Morpheme{Type: MorphemeKnown, SourceType: SourceRule}, SourceNone, "", false},
		{"none", Morpheme{Type: MorphemeKnown, SourceType: SourceNone, SourceID: StringPtr("x")}, SourceNone, "", false},
	}
	for _, tt := range tests {
		source, id, ok := tt.m.Reference()
		assert.Equal(t, tt.source, source, tt.name)
		assert.Equal(t, tt.id, id, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
}

func TestRecordFields(t *testing.T) {
	e := GlossaryEntry{ID: "g1", Form: "ama", Gloss: "love", POS: "v"}
	_, ok := e.Field("notes")
	assert.False(t, ok)
	assert.Equal(t, "", FieldText(e, "notes"))
	assert.Equal(t, "", FieldText(nil, "gloss"))

	edited := e.With("notes", "archaic").With("id", "g9").With("color", "red")
	assert.Equal(t, "g1", edited.ID)
	assert.Equal(t, "archaic", FieldText(edited, "notes"))
	assert.Nil(t, e.Notes)

	r := Rule{ID: "r1", Form: "lAr", Gloss: "PL", Type: "suffix"}.With("description", "plural")
	assert.Equal(t, "plural", FieldText(r, "description"))

	m := Morpheme{Form: "dı", Gloss: "?", Type: MorphemeUnknown}
	m2 := m.With("gloss", "PAST").With("form", "di").With("type", "known")
	assert.Equal(t, "dı", m2.Form)
	assert.Equal(t, "PAST", m2.Gloss)
	assert.False(t, m2.IsUnknown())
	_, ok = m.Field("source_id")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	indexed := NewRuleDocument([]Rule{{ID: "r1", Gloss: "PL"}, {ID: "r1", Gloss: "dup"}})
	unindexed := &RuleDocument{Rules: []Rule{{ID: "r1", Gloss: "PL"}}}
	for _, d := range []*RuleDocument{indexed, unindexed} {
		r, ok := d.Lookup("r1")
		require.True(t, ok)
		assert.Equal(t, "PL", r.Gloss)
		_, ok = d.Lookup("r2")
		assert.False(t, ok)
	}

	var nilDoc *GlossaryDocument
	_, ok := nilDoc.Lookup("g1")
	assert.False(t, ok)
}

func TestAlignmentWordBounds(t *testing.T) {
	doc := &AlignmentDocument{Alignments: []AlignmentLine{{Words: []Word{{Word: "ev"}}}}}
	w, ok := doc.Word(0, 0)
	require.True(t, ok)
	assert.Equal(t, "ev", w.Word)

	for _, pos := range [][2]int{{-1, 0}, {1, 0}, {0, 1}, {0, -1}} {
		_, ok := doc.Word(pos[0], pos[1])
		assert.False(t, ok, pos)
	}
	var nilDoc *AlignmentDocument
	_, ok = nilDoc.Word(0, 0)
	assert.False(t, ok)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindGlossary.Valid())
	assert.True(t, KindRule.Valid())
	assert.True(t, KindUnknown.Valid())
	assert.False(t, Kind("phrase").Valid())
}
