package dal

import (
	"path/filepath"
	"testing"

	"github.com/jamesrr39/workspace-backup-app/backupstore/storetest"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewStoreDALWithFs(t *testing.T) {
	fs := storetest.NewWorkspaceFs(t)

	store, err := NewStoreDALWithFs(storetest.WorkspacePath, storetest.MockNowProvider, fs, storetest.NewTestLogger())
	require.Nil(t, err)
	assert.Equal(t, storetest.WorkspacePath, store.WorkspacePath)
	assert.Equal(t, filepath.Join(storetest.WorkspacePath, ".backup_data", "snapshots"), store.SnapshotsDirPath())

	for _, dirPath := range []string{store.SnapshotsDirPath(), filepath.Join(storetest.WorkspacePath, ".backup_data", "locks")} {
		fileInfo, err := fs.Stat(dirPath)
		require.Nil(t, err)
		assert.True(t, fileInfo.IsDir())
	}

	// connecting again to an existing store is fine
	_, err = NewStoreDALWithFs(storetest.WorkspacePath, storetest.MockNowProvider, fs, storetest.NewTestLogger())
	require.Nil(t, err)
}

func Test_NewStoreDALWithFs_BadWorkspace(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := NewStoreDALWithFs("/does-not-exist", storetest.MockNowProvider, fs, storetest.NewTestLogger())
	require.NotNil(t, err)

	require.Nil(t, afero.WriteFile(fs, "/a-file", []byte("x"), 0600))
	_, err = NewStoreDALWithFs("/a-file", storetest.MockNowProvider, fs, storetest.NewTestLogger())
	require.NotNil(t, err)
	assert.Equal(t, ErrWorkspaceNotDirectory, errors.Cause(err))
}
