package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- ip: 203.0.113.7
  reason: card testing
- ip: 2001:db8::1
`), 0o600))

	entries, err := loadEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, seedEntry{IP: "203.0.113.7", Reason: "card testing"}, entries[0])
	assert.Equal(t, "2001:db8::1", entries[1].IP)

	require.NoError(t, os.WriteFile(path, []byte("ip: [unterminated"), 0o600))
	_, err = loadEntries(path)
	assert.Error(t, err)
}
