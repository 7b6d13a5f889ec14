// Package document parses the three base documents. A parse either yields a
// complete document or an error; callers never see a partial document.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/japaniel/glosser/pkg/model"
)

// Kind names one of the three base documents.
type Kind string

const (
	KindAlignments Kind = "alignments"
	KindGlossary   Kind = "glossary"
	KindRules      Kind = "rules"
)

// ParseAlignments decodes an alignment document.
func ParseAlignments(raw []byte) (*model.AlignmentDocument, error) {
	var doc model.AlignmentDocument
	if err := strictDecode(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse alignments: %w", err)
	}
	return &doc, nil
}

// ParseGlossary decodes a glossary, accepting either {"entries": [...]} or a
// bare array of entries.
func ParseGlossary(raw []byte) (*model.GlossaryDocument, error) {
	var wrapper struct {
		Entries []model.GlossaryEntry `json:"entries"`
	}
	entries, err := decodeWrappedOrArray(raw, &wrapper, func() []model.GlossaryEntry { return wrapper.Entries })
	if err != nil {
		return nil, fmt.Errorf("parse glossary: %w", err)
	}
	return model.NewGlossaryDocument(entries), nil
}

// ParseRules decodes a rule set, accepting either {"rules": [...]} or a bare
// array of rules.
func ParseRules(raw []byte) (*model.RuleDocument, error) {
	var wrapper struct {
		Rules []model.Rule `json:"rules"`
	}
	rules, err := decodeWrappedOrArray(raw, &wrapper, func() []model.Rule { return wrapper.Rules })
	if err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return model.NewRuleDocument(rules), nil
}

// decodeWrappedOrArray decodes either the object wrapper or a bare array,
// chosen by the first non-space byte.
func decodeWrappedOrArray[T any](raw []byte, wrapper any, items func() []T) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if trimmed[0] == '[' {
		var out []T
		if err := strictDecode(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := strictDecode(trimmed, wrapper); err != nil {
		return nil, err
	}
	return items(), nil
}

// strictDecode decodes exactly one JSON value and rejects trailing data.
func strictDecode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after document")
	}
	return nil
}

// ReadFile reads a document and returns its bytes with a hex sha256 sum.
func ReadFile(path string) ([]byte, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(raw)
	return raw, hex.EncodeToString(sum[:]), nil
}
