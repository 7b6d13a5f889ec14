package db

import "time"

// PatchRow is one persisted patch.
type PatchRow struct {
	Key        string
	Kind       string
	Identifier string
	Fields     map[string]string
	UpdatedAt  time.Time
}

// DocumentRecord is a provenance record for a base document that was loaded.
type DocumentRecord struct {
	ID       int64
	Kind     string
	Path     string
	SHA256   string
	LoadedAt time.Time
}
