package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"constserv/constants"
)

// mockReloadable records every snapshot handed to it.
type mockReloadable struct {
	tables chan *constants.Table
}

func (m *mockReloadable) Reload(table *constants.Table) {
	m.tables <- table
}

// writeAtomic replaces path in one step so the watcher never sees a half-written file.
func writeAtomic(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func startWatcher(t *testing.T, path string) *mockReloadable {
	t.Helper()
	target := &mockReloadable{tables: make(chan *constants.Table, 8)}

	w, err := NewWatcher(path, target, zap.NewNop())
	require.NoError(t, err)
	w.delay = 50 * time.Millisecond
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	// Give the watcher a moment to start
	time.Sleep(100 * time.Millisecond)
	return target
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.csv")
	require.NoError(t, os.WriteFile(path, []byte("c,299792458,m s^-1\n"), 0o644))
	target := startWatcher(t, path)

	writeAtomic(t, path, "c,299792458,m s^-1\nh,6.62607015e-34,J Hz^-1\n")

	select {
	case table := <-target.tables:
		assert.Equal(t, 2, table.Len())
		_, ok := table.Lookup("h")
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("Expected dataset to be reloaded, but it wasn't")
	}
}

func TestWatcher_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "constants.csv")
	target := startWatcher(t, path)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	writeAtomic(t, path, "g,9.80665,m s^-2\n")

	select {
	case table := <-target.tables:
		_, ok := table.Lookup("g")
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("Expected dataset written after start to be loaded")
	}
}

func TestWatcher_KeepsSnapshotOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.csv")
	require.NoError(t, os.WriteFile(path, []byte("c,299792458,m s^-1\n"), 0o644))
	target := startWatcher(t, path)

	writeAtomic(t, path, "c,not-a-number,m\n")

	select {
	case <-target.tables:
		t.Fatal("invalid dataset must not replace the snapshot")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "constants.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	target := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x,1\n"), 0o644))

	select {
	case <-target.tables:
		t.Fatal("unrelated file must not trigger a reload")
	case <-time.After(500 * time.Millisecond):
	}
}
