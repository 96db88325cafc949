package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand(&out, &out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "featurestore v"+version)
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"create", "append", "register", "register-table", "dump", "status", "read", "versions", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("FEATURESTORE_DISPATCH", "local")

	root := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	a := &app{v: viper.New()}
	require.NoError(t, a.bindFlags(root.PersistentFlags()))
	require.NoError(t, root.PersistentFlags().Set("log-level", "debug"))

	cfg, err := a.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "local", cfg.Dispatch.Mode)
	assert.Equal(t, "data-lake", cfg.Storage.Bucket)
}

func TestReadInputCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,ts\na,1704153600\nb,1704240000\n"), 0o600))

	rec, err := readInput(context.Background(), path)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, arrow.INT64, rec.Schema().Field(1).Type.ID())
}

func TestReadInputRejectsUnknownFormat(t *testing.T) {
	_, err := readInput(context.Background(), "batch.xlsx")
	assert.Error(t, err)
}
