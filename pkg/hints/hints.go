// Package hints proposes analyses for unknown morphemes of Japanese targets
// using the kagome morphological analyzer.
package hints

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"golang.org/x/text/language"
)

// Hint is one analyzed unit of a morpheme's surface form.
type Hint struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // The pronunciation (katakana, e.g. "イッ")
	PartsOfSpeech []string // Kagome IPA POS labels
	PrimaryPOS    string

	// Definitions are dictionary matches, when a dictionary is attached.
	Definitions []Definition
}

// Gloss renders the hint as a candidate gloss: the first dictionary sense if
// there is one, otherwise base form and POS, e.g. "行く.動詞".
func (h Hint) Gloss() string {
	for _, d := range h.Definitions {
		if len(d.Senses) > 0 {
			return d.Senses[0]
		}
	}
	if h.PrimaryPOS == "" {
		return h.BaseForm
	}
	return h.BaseForm + "." + h.PrimaryPOS
}

// Applicable reports whether hints make sense for a target language tag.
func Applicable(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "ja"
}

// Analyzer wraps a kagome tokenizer and an optional dictionary.
type Analyzer struct {
	t    *tokenizer.Tokenizer
	dict *Dictionary
}

// NewAnalyzer creates a tokenizer over the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// WithDictionary attaches d so hints carry English definitions.
func (a *Analyzer) WithDictionary(d *Dictionary) *Analyzer {
	a.dict = d
	return a
}

// Suggest tokenizes form and returns one hint per non-blank token.
func (a *Analyzer) Suggest(form string) []Hint {
	var out []Hint
	for _, token := range a.t.Tokenize(form) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: 0-3 POS levels, 4-5 conjugation, 6 base form,
		// 7 reading, 8 pronunciation.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		// The reading belongs to the inflected surface, so it only narrows
		// dictionary matches for uninflected tokens.
		lookupReading := reading
		if base != token.Surface {
			lookupReading = ""
		}

		out = append(out, Hint{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
			Definitions:   a.dict.Lookup(token.Surface, base, lookupReading),
		})
	}
	return out
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
