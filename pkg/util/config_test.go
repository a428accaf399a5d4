package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCfg = `
[bench]
rows = 100000
columns = 2
kind = "int64"
nullPct = 10
seed = 7

[run]
threads = [1, 4]
descending = true
groups = true

[debug]
printResult = true
maxOutputRows = 20
`

func Test_loadConfig(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "tester.toml")
	require.NoError(t, os.WriteFile(fpath, []byte(testCfg), 0o644))

	cfg, err := LoadConfig(fpath)
	require.NoError(t, err)
	assert.Equal(t, 100000, cfg.Bench.Rows)
	assert.Equal(t, 2, cfg.Bench.Columns)
	assert.Equal(t, "int64", cfg.Bench.Kind)
	assert.Equal(t, 10, cfg.Bench.NullPct)
	assert.Equal(t, int64(7), cfg.Bench.Seed)
	assert.Equal(t, []int{1, 4}, cfg.Run.Threads)
	assert.True(t, cfg.Run.Descending)
	assert.True(t, cfg.Run.Groups)
	assert.True(t, cfg.Debug.PrintResult)
	assert.False(t, cfg.Debug.PrintProgress)
	assert.Equal(t, 20, cfg.Debug.MaxOutputRows)
}

func Test_loadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
