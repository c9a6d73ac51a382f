package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	defer SetVersion("dev", "", "")
	SetVersion("1.0.0", "abc123", "2024-01-01")

	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, "abc123", commit)
	assert.Equal(t, "2024-01-01", date)
}

func TestVersionCommand(t *testing.T) {
	defer SetVersion("dev", "", "")
	SetVersion("1.2.3", "deadbeef", "2024-05-01")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "canvas 1.2.3")
	assert.Contains(t, out.String(), "commit: deadbeef")
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["mcp"])
	assert.True(t, names["version"])

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestGlobalOptions_VerboseForcesDebug(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"error\"\n"), 0o644))

	opts := &globalOptions{configPath: path, verbose: true}
	cfg, logger, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NotNil(t, logger)

	opts.verbose = false
	cfg, _, err = opts.load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestServeCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.ini")
	require.NoError(t, os.WriteFile(path, []byte("addr=:1\n"), 0o644))

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--config", path})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestServeCommand_StopsWithContext(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "canvas.db")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := NewRootCommand()
	root.SetArgs([]string{"serve", "--addr", "127.0.0.1:0", "--dsn", dsn})
	assert.NoError(t, root.ExecuteContext(ctx))

	_, err := os.Stat(dsn)
	assert.NoError(t, err)
}
