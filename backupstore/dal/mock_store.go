package dal

import (
	"testing"
	"time"

	"github.com/jamesrr39/workspace-backup-app/backupstore/storetest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	Store *StoreDAL
	Path  string
	Fs    afero.Fs
}

// NewMockStore creates a store for an in-memory workspace at storetest.WorkspacePath, containing files
func NewMockStore(t *testing.T, nowFunc nowProvider, files map[string]string) *MockStore {
	fs := storetest.NewWorkspaceFs(t)
	storetest.CreateFiles(t, fs, files)

	store, err := NewStoreDALWithFs(storetest.WorkspacePath, nowFunc, fs, storetest.NewTestLogger())
	require.Nil(t, err)

	return &MockStore{store, storetest.WorkspacePath, fs}
}

// IncrementingNowProvider returns a clock that starts at storetest.MockNowProvider and moves forward a second per call
func IncrementingNowProvider() nowProvider {
	now := storetest.MockNowProvider()
	return func() time.Time {
		t := now
		now = now.Add(time.Second)
		return t
	}
}
