// Package patch holds sparse local edits layered over the immutable base
// documents.
package patch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/japaniel/glosser/pkg/model"
)

// Patch maps a field name to its new value. It only ever holds fields that
// differ from the base record.
type Patch map[string]string

// Clone returns an independent copy.
func (p Patch) Clone() Patch {
	if p == nil {
		return nil
	}
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Key identifies the entity a patch belongs to. Scoped keys exist only for
// unknown morphemes and pin the patch to one alignment line.
type Key struct {
	Kind   model.Kind
	ID     string
	Line   int
	Scoped bool
}

// String renders the persisted form "<kind>:<identifier>", or
// "unknown@<line>:<form>" for a scoped key. The line lives in the kind
// segment so no form can render to a scoped key.
func (k Key) String() string {
	if k.Scoped {
		return string(k.Kind) + scopeSep + strconv.Itoa(k.Line) + ":" + k.ID
	}
	return string(k.Kind) + ":" + k.ID
}

const scopeSep = "@"

// GlossaryKey, RuleKey and UnknownKey build keys for each kind.
func GlossaryKey(id string) Key { return Key{Kind: model.KindGlossary, ID: id} }
func RuleKey(id string) Key { return Key{Kind: model.KindRule, ID: id} }
func UnknownKey(form string) Key { return Key{Kind: model.KindUnknown, ID: form} }

// ScopedUnknownKey identifies an unknown morpheme by surface form and the
// alignment line it occurs on.
func ScopedUnknownKey(form string, line int) Key {
	return Key{Kind: model.KindUnknown, ID: form, Line: line, Scoped: true}
}

// ParseKey parses the persisted key form. The identifier is everything after
// the first colon and may itself contain colons.
func ParseKey(s string) (Key, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("patch key %q: missing kind separator", s)
	}
	k := Key{Kind: model.Kind(kind), ID: id}
	if base, scope, scoped := strings.Cut(kind, scopeSep); scoped {
		line, err := strconv.Atoi(scope)
		if err != nil || line < 0 {
			return Key{}, fmt.Errorf("patch key %q: bad line %q", s, scope)
		}
		if model.Kind(base) != model.KindUnknown {
			return Key{}, fmt.Errorf("patch key %q: only unknown morphemes can be scoped", s)
		}
		k = Key{Kind: model.KindUnknown, ID: id, Line: line, Scoped: true}
	}
	if !k.Kind.Valid() {
		return Key{}, fmt.Errorf("patch key %q: unknown kind %q", s, kind)
	}
	if id == "" {
		return Key{}, fmt.Errorf("patch key %q: empty identifier", s)
	}
	return k, nil
}

// Store is the mapping from key to patch. It has a single mutation path,
// Apply, and is not safe for concurrent mutation; use Clone to hand a
// read-only snapshot to other goroutines.
type Store struct {
	patches map[Key]Patch
	version uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{patches: make(map[Key]Patch)}
}

// FromMapping builds a store from the persisted flat mapping. Malformed keys
// and empty patches are dropped; the returned slice names what was skipped.
func FromMapping(m map[string]map[string]string) (*Store, []string) {
	s := NewStore()
	var skipped []string
	for raw, fields := range m {
		k, err := ParseKey(raw)
		if err != nil || len(fields) == 0 {
			skipped = append(skipped, raw)
			continue
		}
		s.patches[k] = Patch(fields).Clone()
	}
	sort.Strings(skipped)
	return s, skipped
}

// Get returns a copy of the patch stored for k.
func (s *Store) Get(k Key) (Patch, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.patches[k]
	if !ok || len(p) == 0 {
		return nil, false
	}
	return p.Clone(), true
}

// Has reports whether a non-empty patch exists for k.
func (s *Store) Has(k Key) bool {
	if s == nil {
		return false
	}
	return len(s.patches[k]) > 0
}

// Apply diffs edits against original and merges the differing fields over
// any existing patch for k. It reports whether the store changed; when it
// returns false nothing was written and nothing needs persisting.
func (s *Store) Apply(k Key, edits map[string]string, original model.Record) bool {
	diff := make(Patch)
	for field, value := range edits {
		if value != model.FieldText(original, field) {
			diff[field] = value
		}
	}
	if len(diff) == 0 {
		return false
	}

	merged := s.patches[k].Clone()
	if merged == nil {
		merged = make(Patch, len(diff))
	}
	changed := false
	for field, value := range diff {
		if old, ok := merged[field]; !ok || old != value {
			merged[field] = value
			changed = true
		}
	}
	if !changed {
		return false
	}
	s.patches[k] = merged
	s.version++
	return true
}

// Mapping returns the persisted flat shape.
func (s *Store) Mapping() map[string]map[string]string {
	out := make(map[string]map[string]string, len(s.patches))
	for k, p := range s.patches {
		out[k.String()] = p.Clone()
	}
	return out
}

// Keys returns every key in persisted-string order.
func (s *Store) Keys() []Key {
	keys := make([]Key, 0, len(s.patches))
	for k := range s.patches {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Clone returns a deep copy sharing no maps with s.
func (s *Store) Clone() *Store {
	c := &Store{patches: make(map[Key]Patch, len(s.patches)), version: s.version}
	for k, p := range s.patches {
		c.patches[k] = p.Clone()
	}
	return c
}

// Version increments on every effective Apply.
func (s *Store) Version() uint64 { return s.version }

// Len returns the number of patched keys.
func (s *Store) Len() int { return len(s.patches) }
