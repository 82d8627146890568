package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "community.json")

	assert.False(t, Exists(""))
	assert.False(t, Exists(path))
	assert.True(t, Exists(dir))

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	assert.True(t, Exists(path))

	b, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}
