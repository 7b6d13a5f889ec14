package model

// GlossaryDocument is the collection of known morphemes.
type GlossaryDocument struct {
	Entries []GlossaryEntry `json:"entries"`

	index map[string]int
}

// NewGlossaryDocument builds an indexed document.
func NewGlossaryDocument(entries []GlossaryEntry) *GlossaryDocument {
	d := &GlossaryDocument{Entries: entries}
	d.Reindex()
	return d
}

// Reindex rebuilds the id index. Call once after the entries are loaded; the
// document is read-only afterwards.
func (d *GlossaryDocument) Reindex() {
	d.index = make(map[string]int, len(d.Entries))
	for i, e := range d.Entries {
		if _, dup := d.index[e.ID]; !dup {
			d.index[e.ID] = i
		}
	}
}

// Lookup finds the entry with the given id.
func (d *GlossaryDocument) Lookup(id string) (GlossaryEntry, bool) {
	if d == nil {
		return GlossaryEntry{}, false
	}
	if d.index != nil {
		i, ok := d.index[id]
		if !ok {
			return GlossaryEntry{}, false
		}
		return d.Entries[i], true
	}
	for _, e := range d.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return GlossaryEntry{}, false
}

// RuleDocument is the collection of productive morphology rules.
type RuleDocument struct {
	Rules []Rule `json:"rules"`

	index map[string]int
}

// NewRuleDocument builds an indexed document.
func NewRuleDocument(rules []Rule) *RuleDocument {
	d := &RuleDocument{Rules: rules}
	d.Reindex()
	return d
}

// Reindex rebuilds the id index.
func (d *RuleDocument) Reindex() {
	d.index = make(map[string]int, len(d.Rules))
	for i, r := range d.Rules {
		if _, dup := d.index[r.ID]; !dup {
			d.index[r.ID] = i
		}
	}
}

// Lookup finds the rule with the given id.
func (d *RuleDocument) Lookup(id string) (Rule, bool) {
	if d == nil {
		return Rule{}, false
	}
	if d.index != nil {
		i, ok := d.index[id]
		if !ok {
			return Rule{}, false
		}
		return d.Rules[i], true
	}
	for _, r := range d.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Word returns the word at (line, idx) if both are in range.
func (d *AlignmentDocument) Word(line, idx int) (Word, bool) {
	if d == nil || line < 0 || line >= len(d.Alignments) {
		return Word{}, false
	}
	words := d.Alignments[line].Words
	if idx < 0 || idx >= len(words) {
		return Word{}, false
	}
	return words[idx], true
}
