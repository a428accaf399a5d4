package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_assertFunc(t *testing.T) {
	assert.NotPanics(t, func() { AssertFunc(true) })
	assert.Panics(t, func() { AssertFunc(false) })
}

func Test_pair(t *testing.T) {
	p := Pair[string, int]{First: "rows", Second: 42}
	assert.Equal(t, "rows", p.First)
	assert.Equal(t, 42, p.Second)
}

func Test_fileIsValid(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, FileIsValid(dir))
	assert.False(t, FileIsValid(filepath.Join(dir, "missing")))

	fpath := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(fpath, []byte("x"), 0o644))
	assert.True(t, FileIsValid(fpath))
}
