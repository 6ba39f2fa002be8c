package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokensDedupAndAccounting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.txt")
	content := "alpha\n  beta  \n\nalpha\ngamma\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	list, err := LoadTokens(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, list.Tokens)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 1, list.DuplicatesRemoved)
}

func TestLoadTokensMissingFile(t *testing.T) {
	_, err := LoadTokens(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestValidWriterAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valid.txt")

	w, err := NewValidWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append("one"))
	require.NoError(t, w.Append("two"))
	require.NoError(t, w.Close())

	// Reopening appends instead of rewriting, so prior results survive.
	w, err = NewValidWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append("three"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", string(data))
	assert.Equal(t, 3, CountLines(path))
}
