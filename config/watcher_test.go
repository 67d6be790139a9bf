package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloads(t *testing.T) {
	path := writeFile(t, "tray.yaml", "tooltip: one\n")

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("tooltip: two\n"), 0o644))

	select {
	case f := <-w.Changes():
		assert.Equal(t, "two", f.Tooltip)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatcherSkipsInvalidFile(t *testing.T) {
	path := writeFile(t, "tray.yaml", "tooltip: one\n")

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("menu: ["), 0o644))

	select {
	case f := <-w.Changes():
		t.Fatalf("unexpected reload: %+v", f)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("tooltip: three\n"), 0o644))

	select {
	case f := <-w.Changes():
		assert.Equal(t, "three", f.Tooltip)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	path := writeFile(t, "tray.yaml", "tooltip: one\n")

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path+".bak", []byte("tooltip: x\n"), 0o644))

	select {
	case f := <-w.Changes():
		t.Fatalf("unexpected reload: %+v", f)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := NewWatcher(writeFile(t, "tray.yaml", "tooltip: one\n"))
	require.NoError(t, err)

	assert.NoError(t, w.Close())
}
