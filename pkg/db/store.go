package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// UpsertPatch stores the full field set for key, replacing any previous row.
// key must be in "<kind>:<identifier>" form.
func UpsertPatch(db DBExecutor, key string, fields map[string]string) error {
	kind, identifier, ok := strings.Cut(key, ":")
	if !ok || kind == "" || identifier == "" {
		return fmt.Errorf("malformed patch key %q", key)
	}
	if len(fields) == 0 {
		return fmt.Errorf("patch %q has no fields", key)
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch %q: %w", key, err)
	}
	_, err = db.Exec(`INSERT INTO patches (key, kind, identifier, fields, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
	  fields = excluded.fields,
	  updated_at = excluded.updated_at`,
		key, kind, identifier, string(encoded), time.Now())
	if err != nil {
		return fmt.Errorf("upsert patch %q: %w", key, err)
	}
	return nil
}

// LoadPatches returns every stored patch. Rows whose fields column does not
// decode are skipped and their keys returned in skipped.
func LoadPatches(db DBExecutor) (rows []PatchRow, skipped []string, err error) {
	rs, err := db.Query(`SELECT key, kind, identifier, fields, updated_at FROM patches ORDER BY key`)
	if err != nil {
		return nil, nil, err
	}
	defer rs.Close()
	for rs.Next() {
		var r PatchRow
		var raw string
		if err := rs.Scan(&r.Key, &r.Kind, &r.Identifier, &raw, &r.UpdatedAt); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(raw), &r.Fields); err != nil || len(r.Fields) == 0 {
			skipped = append(skipped, r.Key)
			continue
		}
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, nil, err
	}
	return rows, skipped, nil
}

// RecordDocument returns the existing provenance id for (kind, path, sum) or
// inserts a new record.
func RecordDocument(db DBExecutor, kind, path, sum string) (int64, error) {
	if strings.TrimSpace(kind) == "" {
		return 0, fmt.Errorf("kind must be non-empty")
	}
	var id int64
	err := db.QueryRow(`INSERT INTO documents (kind, path, sha256, loaded_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(kind, path, sha256) DO UPDATE SET loaded_at = excluded.loaded_at
	RETURNING id`, kind, path, sum, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record document: %w", err)
	}
	return id, nil
}

// ListDocuments returns provenance records, most recently loaded first.
func ListDocuments(db DBExecutor) ([]DocumentRecord, error) {
	rows, err := db.Query(`SELECT id, kind, path, sha256, loaded_at FROM documents ORDER BY loaded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DocumentRecord
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.ID, &d.Kind, &d.Path, &d.SHA256, &d.LoadedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
