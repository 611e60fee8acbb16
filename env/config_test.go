package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "#!/usr/bin/env bash\n" +
		"export LOG_LEVEL=debug\n" +
		"\n" +
		"RELAYS = wss://a.example|r,wss://b.example\n" +
		"NSEC=\"nsec1abc\"\n" +
		"garbage\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	e, err := GetEnv(path)
	require.NoError(t, err)
	assert.Len(t, e, 3)
	v, ok := e.LookupEnv("LOG_LEVEL")
	assert.True(t, ok)
	assert.Equal(t, "debug", v)
	v, _ = e.LookupEnv("RELAYS")
	assert.Equal(t, "wss://a.example|r,wss://b.example", v)
	v, _ = e.LookupEnv("NSEC")
	assert.Equal(t, "nsec1abc", v)
	_, ok = e.LookupEnv("MISSING")
	assert.False(t, ok)
}

func TestGetEnvMissingFile(t *testing.T) {
	_, err := GetEnv(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
