package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ankiCall struct {
	Action string
	Params map[string]any
}

// fakeAnki is an empty collection that accepts new notes.
type fakeAnki struct {
	mu     sync.Mutex
	calls  []ankiCall
	nextID int64
}

func (f *fakeAnki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string         `json:"action"`
		Params map[string]any `json:"params"`
	}
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.calls = append(f.calls, ankiCall{Action: req.Action, Params: req.Params})
	var result any
	switch req.Action {
	case "version":
		result = 6
	case "findNotes", "findCards":
		result = []int64{}
	case "addNote":
		f.nextID++
		result = f.nextID
	}
	f.mu.Unlock()

	resp := map[string]any{"result": result, "error": nil}
	if result == nil {
		resp["error"] = "unsupported action " + req.Action
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeAnki) added() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var notes []map[string]any
	for _, c := range f.calls {
		if c.Action == "addNote" {
			notes = append(notes, c.Params["note"].(map[string]any))
		}
	}
	return notes
}

func newFakeAnki(t *testing.T) (*fakeAnki, string) {
	t.Helper()
	fake := &fakeAnki{}
	r := chi.NewRouter()
	r.Post("/", fake.ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

// writeConfig writes a config file into a fresh directory and returns the
// directory and file path.
func writeConfig(t *testing.T, ankiURL, driver string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kanjigate.yaml")
	doc := fmt.Sprintf(`log_level: error
anki:
  url: %s
enrich:
  enabled: false
cache:
  driver: %s
  dsn: %s
data:
  observed_path: %s
`, ankiURL, driver, filepath.Join(dir, "cache.db"), filepath.Join(dir, "observed.txt"))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return dir, path
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, logLevel, verbose = "", "", false
		addTier, addKnown = "", false
		syncTargetsPath, syncAudit = "", false
		decomposeTable = ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddCreatesCardsAndRecordsRun(t *testing.T) {
	fake, url := newFakeAnki(t)
	dir, cfgPath := writeConfig(t, url, "sqlite")

	out, err := execute(t, "--config", cfgPath, "add", "水")
	require.NoError(t, err)
	assert.Contains(t, out, "materialize")
	assert.Contains(t, out, "sync finished")

	notes := fake.added()
	require.Len(t, notes, 1)
	assert.Equal(t, "Japanese Radicals", notes[0]["modelName"])
	assert.Equal(t, "水", notes[0]["fields"].(map[string]any)["Character"])
	assert.Contains(t, notes[0]["tags"], "new")

	observed, err := os.ReadFile(filepath.Join(dir, "observed.txt"))
	require.NoError(t, err)
	assert.Equal(t, "水\n", string(observed))

	out, err = execute(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "materialize +1/!0")
}

func TestSyncFailsWhenAnkiIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, cfgPath := writeConfig(t, url, "none")

	_, err := execute(t, "--config", cfgPath, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AnkiConnect is not reachable")
}

func TestHistoryNeedsCache(t *testing.T) {
	_, cfgPath := writeConfig(t, "http://localhost:8765", "none")

	_, err := execute(t, "--config", cfgPath, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.driver is none")
}

func TestInvalidLogLevelOverride(t *testing.T) {
	_, cfgPath := writeConfig(t, "http://localhost:8765", "none")

	_, err := execute(t, "--config", cfgPath, "--log-level", "loud", "decompose", "水")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --log-level")
}

func TestKradfileAndDecompose(t *testing.T) {
	dir, cfgPath := writeConfig(t, "http://localhost:8765", "none")
	src := filepath.Join(dir, "kradfile")
	dst := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(src, []byte("# sample\n語 : 言 口 五\n学 : 子 冖\n"), 0o644))

	out, err := execute(t, "kradfile", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries written")

	out, err = execute(t, "--config", cfgPath, "decompose", "--table", dst, "語学です")
	require.NoError(t, err)
	assert.Contains(t, out, "語 学")
	assert.Contains(t, out, "言 口 五")
	assert.Contains(t, out, "components")
	assert.Contains(t, out, "五 冖 口 子 言")
}
