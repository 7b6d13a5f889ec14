package model

// Record is a base record a patch can be diffed against. Fields are addressed
// by their JSON name; an absent optional field reports ok=false.
type Record interface {
	Field(name string) (string, bool)
}

// FieldText returns the field value, treating an absent field as empty text.
func FieldText(r Record, name string) string {
	if r == nil {
		return ""
	}
	v, _ := r.Field(name)
	return v
}

func optional(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

func (e GlossaryEntry) Field(name string) (string, bool) {
	switch name {
	case "id":
		return e.ID, true
	case "form":
		return e.Form, true
	case "gloss":
		return e.Gloss, true
	case "pos":
		return e.POS, true
	case "notes":
		return optional(e.Notes)
	}
	return "", false
}

// With returns a copy of e with the named field set. Names outside the
// glossary schema are ignored. The id is identity and never changes.
func (e GlossaryEntry) With(name, value string) GlossaryEntry {
	switch name {
	case "form":
		e.Form = value
	case "gloss":
		e.Gloss = value
	case "pos":
		e.POS = value
	case "notes":
		e.Notes = StringPtr(value)
	}
	return e
}

func (r Rule) Field(name string) (string, bool) {
	switch name {
	case "id":
		return r.ID, true
	case "form":
		return r.Form, true
	case "gloss":
		return r.Gloss, true
	case "type":
		return r.Type, true
	case "description":
		return optional(r.Description)
	}
	return "", false
}

// With returns a copy of r with the named field set.
func (r Rule) With(name, value string) Rule {
	switch name {
	case "form":
		r.Form = value
	case "gloss":
		r.Gloss = value
	case "type":
		r.Type = value
	case "description":
		r.Description = StringPtr(value)
	}
	return r
}

func (m Morpheme) Field(name string) (string, bool) {
	switch name {
	case "form":
		return m.Form, true
	case "gloss":
		return m.Gloss, true
	case "type":
		return string(m.Type), true
	case "source_type":
		if m.SourceType == "" {
			return "", false
		}
		return string(m.SourceType), true
	case "source_id":
		return optional(m.SourceID)
	}
	return "", false
}

// With returns a copy of m with the named field set. Only the analysis
// fields (gloss, type) are editable; form is the unknown-morpheme identity.
func (m Morpheme) With(name, value string) Morpheme {
	switch name {
	case "gloss":
		m.Gloss = value
	case "type":
		m.Type = MorphemeType(value)
	}
	return m
}
