package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmrzaf/sdcatalog/internal/config"
	"github.com/mmrzaf/sdcatalog/internal/domain"
)

func run(t *testing.T, dbPath string, stdin string, args ...string) (string, error) {
	t.Helper()

	cfg := &config.Config{
		DBDriver:       config.DriverPostgres,
		DBMaxOpenConns: 1,
		LogLevel:       "error",
		DefaultStatus:  domain.TaskStatusRunning,
	}
	root := newRootCmd(cfg)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--driver", "sqlite", "--db", dbPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestDatasetCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.sqlite")

	_, err := run(t, db, "", "dataset", "add", "NODE1", "./NODE1", "AML")
	require.NoError(t, err)

	out, err := run(t, db, "", "dataset", "find", "NODE1", "AML")
	require.NoError(t, err)
	assert.Equal(t, "./NODE1\n", out)

	out, err = run(t, db, "", "dataset", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NODE")
	assert.Contains(t, out, "./NODE1")

	out, err = run(t, db, "", "dataset", "list", "--format", "json")
	require.NoError(t, err)
	var list []domain.Dataset
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "AML", list[0].Disease)

	_, err = run(t, db, "", "dataset", "list", "--format", "xml")
	assert.Error(t, err)

	_, err = run(t, db, "", "dataset", "rm", "NODE1", "AML", "./NODE1")
	require.NoError(t, err)
	_, err = run(t, db, "", "dataset", "rm", "NODE1", "AML", "./NODE1")
	assert.ErrorContains(t, err, "not found")
}

func TestDatasetImportAndYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.sqlite")
	manifest := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
datasets:
  - node: NODE1
    path: ./NODE1
    disease: AML
  - node: NODE2
    path: ./NODE2
    disease: CLL
`), 0o644))

	out, err := run(t, db, "", "dataset", "import", manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2")

	out, err = run(t, db, "", "dataset", "list", "--format", "yaml")
	require.NoError(t, err)
	exported := filepath.Join(dir, "exported.yaml")
	require.NoError(t, os.WriteFile(exported, []byte(out), 0o644))

	other := filepath.Join(dir, "other.sqlite")
	out, err = run(t, other, "", "dataset", "import", exported)
	require.NoError(t, err, "exported yaml should import cleanly")
	assert.Contains(t, out, "Imported 2")
}

func TestDatasetPurgeAsksFirst(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.sqlite")
	_, err := run(t, db, "", "dataset", "add", "NODE1", "./NODE1", "AML")
	require.NoError(t, err)

	out, err := run(t, db, "", "dataset", "count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = run(t, db, "n\n", "dataset", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Delete ALL 1 dataset records?")
	assert.Contains(t, out, "Aborted")

	out, err = run(t, db, "", "dataset", "purge", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1")

	out, err = run(t, db, "", "dataset", "count")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestTaskCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.sqlite")

	out, err := run(t, db, "", "task", "register", "--username", "u", "--model", "ctgan", "--n-sample", "100", "--disease", "AML")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), "\t")
	require.Len(t, fields, 3)
	id := fields[0]
	assert.Equal(t, "running", fields[1])

	_, err = run(t, db, "", "task", "set-status", id, "success")
	require.NoError(t, err)

	out, err = run(t, db, "", "task", "status", id)
	require.NoError(t, err)
	assert.Equal(t, "success\n", out)

	_, err = run(t, db, "", "task", "set-status", id, "running", "--strict")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = run(t, db, "", "task", "set-status", id, "exploded")
	assert.True(t, domain.IsValidation(err))

	out, err = run(t, db, "", "task", "list", "--status", "success", "--since", "-1h", "--format", "json")
	require.NoError(t, err)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
}

func TestTaskRegisterRequiresNSample(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.sqlite")

	_, err := run(t, db, "", "task", "register", "--username", "u", "--model", "ctgan", "--disease", "AML")
	assert.ErrorContains(t, err, "n-sample")

	out, err := run(t, db, "", "task", "list", "--format", "json")
	require.NoError(t, err)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	assert.Empty(t, tasks)
}

func TestMigrateReportsVersion(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.sqlite")

	out, err := run(t, db, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema at version 3 (latest 3)")
}
