package persist

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestExportImportRoundTripShape(t *testing.T) {
	mapping := map[string]map[string]string{
		"glossary:g1": {"gloss": "love (intr.)"},
		"unknown:dı":  {"gloss": "PAST"},
	}
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, mapping))
	assert.Contains(t, buf.String(), `"glossary:g1"`)
	assert.Contains(t, buf.String(), `"gloss": "love (intr.)"`)

	got, err := ImportJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, mapping, got)
}

func TestImportJSONRejectsGarbage(t *testing.T) {
	_, err := ImportJSON(bytes.NewReader([]byte(`{"glossary:g1": "not an object"}`)))
	assert.Error(t, err)
}

func TestFilePersisterLoadMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()

	missing := OpenFile(filepath.Join(dir, "none.json"), nil)
	defer missing.Close()
	assert.Empty(t, missing.Load(context.Background()))

	corruptPath := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{oops"), 0644))
	corrupt := OpenFile(corruptPath, nil)
	defer corrupt.Close()
	assert.Empty(t, corrupt.Load(context.Background()))
}

func TestFilePersisterSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "patches.json")
	p := OpenFile(path, nil)

	p.Save(map[string]map[string]string{"rule:r1": {"gloss": "PL"}})
	p.Save(map[string]map[string]string{"rule:r1": {"gloss": "PL"}, "unknown:dı": {"gloss": "PAST"}})
	require.NoError(t, p.Close())

	reopened := OpenFile(path, nil)
	defer reopened.Close()
	got := reopened.Load(context.Background())
	assert.Equal(t, map[string]map[string]string{
		"rule:r1":    {"gloss": "PL"},
		"unknown:dı": {"gloss": "PAST"},
	}, got)
}

func TestFilePersisterSaveDoesNotAliasCallerMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patches.json")
	p := OpenFile(path, nil)
	m := map[string]map[string]string{"rule:r1": {"gloss": "PL"}}
	p.Save(m)
	m["rule:r1"]["gloss"] = "mutated"
	require.NoError(t, p.Close())

	reopened := OpenFile(path, nil)
	defer reopened.Close()
	assert.Equal(t, "PL", reopened.Load(context.Background())["rule:r1"]["gloss"])
}

func TestSQLitePersisterSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glosser.db")
	p, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	assert.Empty(t, p.Load(context.Background()))

	p.Save(map[string]map[string]string{"glossary:g1": {"gloss": "love (intr.)"}})
	p.Save(map[string]map[string]string{
		"glossary:g1": {"gloss": "love (intr.)"},
		"rule:r1":     {"gloss": "PL", "description": "plural"},
	})
	require.NoError(t, p.RecordDocument("glossary", "/data/glossary.json", "abc"))
	require.NoError(t, p.Close())

	reopened, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, map[string]map[string]string{
		"glossary:g1": {"gloss": "love (intr.)"},
		"rule:r1":     {"gloss": "PL", "description": "plural"},
	}, reopened.Load(context.Background()))

	docs, err := reopened.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "abc", docs[0].SHA256)
}

func TestOpenSQLiteMovesCorruptFileAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glosser.db")
	garbage := bytes.Repeat([]byte("not a database "), 300)
	require.NoError(t, os.WriteFile(path, garbage, 0644))

	core, logs := observer.New(zap.WarnLevel)
	p, err := OpenSQLite(path, zap.New(core))
	require.NoError(t, err)
	assert.Empty(t, p.Load(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("patch store corrupt, moving aside and starting empty").Len())

	p.Save(map[string]map[string]string{"rule:r1": {"gloss": "PL"}})
	require.NoError(t, p.Close())

	moved, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	raw, err := os.ReadFile(moved[0])
	require.NoError(t, err)
	assert.Equal(t, garbage, raw)

	reopened, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, map[string]map[string]string{"rule:r1": {"gloss": "PL"}}, reopened.Load(context.Background()))
}

func TestSQLitePersisterRetriesFailedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glosser.db")
	core, logs := observer.New(zap.DebugLevel)
	p, err := OpenSQLite(path, zap.New(core))
	require.NoError(t, err)

	// The malformed key makes the whole batch roll back.
	p.Save(map[string]map[string]string{
		"glossary:g1": {"gloss": "love (intr.)"},
		"malformed":   {"gloss": "x"},
	})
	require.Eventually(t, func() bool {
		return logs.FilterMessage("patches will be retried on next save").Len() > 0
	}, 5*time.Second, 10*time.Millisecond)

	p.Save(map[string]map[string]string{"glossary:g1": {"gloss": "love (intr.)"}})
	assert.Error(t, p.Close(), "the first failed batch is still reported")

	reopened, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, map[string]map[string]string{"glossary:g1": {"gloss": "love (intr.)"}}, reopened.Load(context.Background()))
}
