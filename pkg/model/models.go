package model

// AlignmentDocument is the set of source→target sentence alignments for a project.
type AlignmentDocument struct {
	Project        string          `json:"project"`
	SourceLanguage string          `json:"source_language"`
	TargetLanguage string          `json:"target_language"`
	Alignments     []AlignmentLine `json:"alignments"`
}

// AlignmentLine pairs a source sentence with its target sentence and the
// morphological breakdown of each target word.
type AlignmentLine struct {
	SourceLine string `json:"source_line"`
	TargetLine string `json:"target_line"`
	Words      []Word `json:"words"`
}

// Word is a target word and its morphemes in linear decomposition order.
type Word struct {
	Word      string     `json:"word"`
	Morphemes []Morpheme `json:"morphemes"`
}

// MorphemeType is the analysis state the generator assigned to a morpheme.
// Values other than the named ones are carried through untouched.
type MorphemeType string

const (
	MorphemeKnown   MorphemeType = "known"
	MorphemeUnknown MorphemeType = "unknown"
)

// SourceType names the base collection a morpheme was analysed from.
type SourceType string

const (
	SourceGlossary SourceType = "glossary"
	SourceRule     SourceType = "rule"
	SourceNone     SourceType = "none"
)

// Morpheme is one segment of a word.
type Morpheme struct {
	Form       string       `json:"form"`
	Gloss      string       `json:"gloss"`
	Type       MorphemeType `json:"type"`
	SourceType SourceType   `json:"source_type,omitempty"`
	SourceID   *string      `json:"source_id,omitempty"`
}

// IsUnknown reports whether the morpheme has no resolved analysis.
func (m Morpheme) IsUnknown() bool { return m.Type == MorphemeUnknown }

// Reference returns the collection and id the morpheme points at. Unknown
// morphemes and morphemes without an id never reference anything.
func (m Morpheme) Reference() (SourceType, string, bool) {
	if m.IsUnknown() || m.SourceID == nil {
		return SourceNone, "", false
	}
	switch m.SourceType {
	case SourceGlossary, SourceRule:
		return m.SourceType, *m.SourceID, true
	}
	return SourceNone, "", false
}

// GlossaryEntry is a known morpheme.
type GlossaryEntry struct {
	ID    string  `json:"id"`
	Form  string  `json:"form"`
	Gloss string  `json:"gloss"`
	POS   string  `json:"pos"`
	Notes *string `json:"notes,omitempty"`
}

// Rule is a productive morphological rule.
type Rule struct {
	ID          string  `json:"id"`
	Form        string  `json:"form"`
	Gloss       string  `json:"gloss"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
}

// Kind is the entity kind half of a patch key.
type Kind string

const (
	KindGlossary Kind = "glossary"
	KindRule     Kind = "rule"
	KindUnknown  Kind = "unknown"
)

// Valid reports whether k is one of the three patchable kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindGlossary, KindRule, KindUnknown:
		return true
	}
	return false
}

// Status summarises how far a word has been analysed.
type Status string

const (
	StatusKnown   Status = "known"
	StatusPatched Status = "patched"
	StatusUnknown Status = "unknown"
	StatusMixed   Status = "mixed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusKnown, StatusPatched, StatusMixed, StatusUnknown}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
