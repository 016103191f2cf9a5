package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesrr39/workspace-backup-app/backupstore/excludesmatcher"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, workspacePath string, args ...string) (string, error) {
	stdout := bytes.NewBuffer(nil)
	setupApp(stdout, bytes.NewBuffer(nil))

	_, err := app.Parse(append([]string{"-C", workspacePath}, args...))
	return stdout.String(), err
}

func writeWorkspaceFile(t *testing.T, workspacePath, relativePath, contents string) {
	filePath := filepath.Join(workspacePath, filepath.FromSlash(relativePath))
	require.Nil(t, os.MkdirAll(filepath.Dir(filePath), 0700))
	require.Nil(t, os.WriteFile(filePath, []byte(contents), 0600))
}

func Test_Commands(t *testing.T) {
	workspacePath := t.TempDir()
	writeWorkspaceFile(t, workspacePath, "src/main.go", "package main")
	writeWorkspaceFile(t, workspacePath, "node_modules/pkg/index.js", "module.exports = 1")
	writeWorkspaceFile(t, workspacePath, ".git/config", "[core]")
	writeWorkspaceFile(t, workspacePath, "scratch/notes.txt", "notes")

	output, err := runApp(t, workspacePath, "exclude", "node_modules/**")
	require.Nil(t, err)
	assert.Equal(t, "Exclusion rule added: node_modules/** (wildcard)\n", output)

	_, err = runApp(t, workspacePath, "exclude", "a/**/**", "--type", "exact")
	require.NotNil(t, err)
	assert.IsType(t, &excludesmatcher.InvalidPatternError{}, err)

	_, err = runApp(t, workspacePath, "exclude", "a/**", "--type", "regex")
	require.NotNil(t, err)

	output, err = runApp(t, workspacePath, "excludes")
	require.Nil(t, err)
	assert.Equal(t, ".* (wildcard) [built-in]\nbackup/** (wildcard) [built-in]\nnode_modules/** (wildcard)\n", output)

	excludeFromPath := filepath.Join(t.TempDir(), "extra-excludes.txt")
	require.Nil(t, os.WriteFile(excludeFromPath, []byte("# session only\nexact:scratch/**\n"), 0600))

	output, err = runApp(t, workspacePath, "create", "first", "--exclude-from", excludeFromPath)
	require.Nil(t, err)
	require.True(t, strings.HasPrefix(output, "Backup created: "), output)
	snapshotPath := strings.TrimSpace(strings.TrimPrefix(output, "Backup created: "))
	assert.True(t, strings.HasSuffix(snapshotPath, "-first.tar.gz"))
	_, err = os.Stat(snapshotPath)
	require.Nil(t, err)

	output, err = runApp(t, workspacePath, "list")
	require.Nil(t, err)
	assert.Contains(t, output, "first | ")
	assert.Contains(t, output, filepath.Base(snapshotPath))

	output, err = runApp(t, workspacePath, "list", "sec*")
	require.Nil(t, err)
	assert.NotContains(t, output, "first | ")

	output, err = runApp(t, workspacePath, "get_hash", "first")
	require.Nil(t, err)
	hash := strings.TrimSpace(output)
	assert.Len(t, hash, 64)

	output, err = runApp(t, workspacePath, "verify", "first", strings.ToUpper(hash))
	require.Nil(t, err)
	assert.Equal(t, "Backup verified: first\n", output)

	_, err = runApp(t, workspacePath, "verify", "first", "00")
	require.NotNil(t, err)
	assert.Equal(t, ErrVerificationFailed, errors.Cause(err))

	output, err = runApp(t, workspacePath, "extract", "first")
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(output, "Extracted 1 files into "), output)
	extractedDir := strings.TrimSuffix(snapshotPath, ".tar.gz")

	b, err := os.ReadFile(filepath.Join(extractedDir, "src", "main.go"))
	require.Nil(t, err)
	assert.Equal(t, "package main", string(b))

	for _, excludedPath := range []string{"node_modules", ".git", "scratch"} {
		_, err = os.Stat(filepath.Join(extractedDir, excludedPath))
		assert.True(t, os.IsNotExist(err), excludedPath)
	}

	output, err = runApp(t, workspacePath, "delete", "first")
	require.Nil(t, err)
	assert.Equal(t, "Backup deleted: "+filepath.Base(snapshotPath)+"\n", output)

	_, err = runApp(t, workspacePath, "get_hash", "first")
	require.NotNil(t, err)
}

func Test_IndexFlag(t *testing.T) {
	workspacePath := t.TempDir()
	writeWorkspaceFile(t, workspacePath, "a.txt", "a")

	_, err := runApp(t, workspacePath, "create", "twin")
	require.Nil(t, err)

	// a second snapshot with the same name, written by hand with a different timestamp
	snapshotsDir := filepath.Join(workspacePath, ".backup_data", "snapshots")
	entries, err := os.ReadDir(snapshotsDir)
	require.Nil(t, err)
	require.Len(t, entries, 1)
	b, err := os.ReadFile(filepath.Join(snapshotsDir, entries[0].Name()))
	require.Nil(t, err)
	require.Nil(t, os.WriteFile(filepath.Join(snapshotsDir, "1999-01-01-00-00-00-twin.tar.gz"), b, 0600))

	_, err = runApp(t, workspacePath, "get_hash", "twin")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "0: 1999-01-01-00-00-00-twin.tar.gz")

	output, err := runApp(t, workspacePath, "delete", "twin", "-i", "0")
	require.Nil(t, err)
	assert.Equal(t, "Backup deleted: 1999-01-01-00-00-00-twin.tar.gz\n", output)

	_, err = runApp(t, workspacePath, "get_hash", "twin", "--index", "3")
	require.NotNil(t, err)

	_, err = runApp(t, workspacePath, "get_hash", "twin")
	require.Nil(t, err)
}
