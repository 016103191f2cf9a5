package storetest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// WorkspacePath is where NewWorkspaceFs puts the workspace
const WorkspacePath = "/test-workspace"

func MockNowProvider() time.Time {
	return time.Date(2000, 1, 2, 3, 4, 5, 6, time.UTC)
}

// NewTestLogger returns a logger that discards everything
func NewTestLogger() *logpkg.Logger {
	return logpkg.NewLogger(ioutil.Discard, logpkg.LogLevelDebug)
}

// NewWorkspaceFs creates an in-memory filesystem with an empty workspace directory at WorkspacePath
func NewWorkspaceFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()

	err := fs.Mkdir(WorkspacePath, 0700)
	require.Nil(t, err)

	return fs
}

// CreateFiles writes files into the workspace. Keys are "/"-separated paths relative to the workspace.
func CreateFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	for relativePath, contents := range files {
		filePath := filepath.Join(WorkspacePath, filepath.FromSlash(relativePath))

		err := fs.MkdirAll(filepath.Dir(filePath), 0700)
		require.Nil(t, err)

		err = afero.WriteFile(fs, filePath, []byte(contents), 0600)
		require.Nil(t, err)
	}
}

// ReadFiles returns the contents of every regular file under dirPath, keyed by "/"-separated relative path
func ReadFiles(t *testing.T, fs afero.Fs, dirPath string) map[string]string {
	files := make(map[string]string)
	err := afero.Walk(fs, dirPath, func(path string, fileInfo os.FileInfo, err error) error {
		if nil != err {
			return err
		}

		if !fileInfo.Mode().IsRegular() {
			return nil
		}

		relativePath, err := filepath.Rel(dirPath, path)
		if nil != err {
			return err
		}

		b, err := afero.ReadFile(fs, path)
		if nil != err {
			return err
		}

		files[filepath.ToSlash(relativePath)] = string(b)
		return nil
	})
	require.Nil(t, err)

	return files
}
