package hints

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Entry matches the structure of jmdict-simplified entries.
type Entry struct {
	ID    string    `json:"id"`
	Kanji []Element `json:"kanji"`
	Kana  []Element `json:"kana"`
	Sense []Sense   `json:"sense"`
}

type Element struct {
	Text   string `json:"text"`
	Common bool   `json:"common"`
}

type Sense struct {
	PartOfSpeech []string    `json:"partOfSpeech"`
	Gloss        []SenseGloss `json:"gloss"`
}

type SenseGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// Definition is the flattened form of one matched entry.
type Definition struct {
	EntryID string
	Senses  []string
	POS     []string
}

// Dictionary indexes entries by every kanji and kana writing.
// It is read-only after construction.
type Dictionary struct {
	index map[string][]Entry
}

// NewDictionary builds the lookup index.
func NewDictionary(entries []Entry) *Dictionary {
	idx := make(map[string][]Entry)
	for _, e := range entries {
		for _, k := range e.Kanji {
			idx[k.Text] = append(idx[k.Text], e)
		}
		for _, k := range e.Kana {
			idx[k.Text] = append(idx[k.Text], e)
		}
	}
	return &Dictionary{index: idx}
}

// LoadDictionary reads a jmdict-simplified JSON file, either the release
// object {"words": [...]} or a bare array of entries.
func LoadDictionary(path string) (*Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Words []Entry `json:"words"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Words) > 0 {
		return NewDictionary(wrapper.Words), nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return NewDictionary(entries), nil
}

// Lookup finds entries written as surface or base whose kana includes
// reading. An empty reading matches on text alone. Results are ordered by
// entry id.
func (d *Dictionary) Lookup(surface, base, reading string) []Definition {
	if d == nil {
		return nil
	}
	candidates := make(map[string]Entry)
	for _, term := range []string{surface, base} {
		if term == "" {
			continue
		}
		for _, e := range d.index[term] {
			candidates[e.ID] = e
		}
	}

	var matches []Entry
	for _, e := range candidates {
		if hasReading(e, reading) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	defs := make([]Definition, 0, len(matches))
	for _, e := range matches {
		def := Definition{EntryID: e.ID}
		for _, s := range e.Sense {
			for _, g := range s.Gloss {
				def.Senses = append(def.Senses, g.Text)
			}
			def.POS = append(def.POS, s.PartOfSpeech...)
		}
		defs = append(defs, def)
	}
	return defs
}

func hasReading(e Entry, reading string) bool {
	if reading == "" {
		return true
	}
	want := ToHiragana(reading)
	for _, k := range e.Kana {
		if ToHiragana(k.Text) == want {
			return true
		}
	}
	return false
}
