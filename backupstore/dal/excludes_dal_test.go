package dal

import (
	"path/filepath"
	"testing"

	"github.com/jamesrr39/workspace-backup-app/backupstore/excludesmatcher"
	"github.com/jamesrr39/workspace-backup-app/backupstore/storetest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var excludesTestPaths = []string{
	".git/config",
	"backup/a.tar.gz",
	"node_modules",
	"node_modules/pkg/index.js",
	"src/index.js",
	"a.log",
	"src/a.log",
	"build/out.o",
	"build/sub/out.o",
	"README.md",
}

func Test_ExcludesDAL_LoadEmpty(t *testing.T) {
	store := NewMockStore(t, storetest.MockNowProvider, nil)

	matcher, err := store.Store.ExcludesDAL.Load()
	require.Nil(t, err)

	assert.Len(t, matcher.Rules(), 2)
	assert.Len(t, matcher.UserRules(), 0)
	assert.True(t, matcher.ShouldExclude(".git/config"))
	assert.True(t, matcher.ShouldExclude("backup/a.tar.gz"))
}

func Test_ExcludesDAL_SaveLoadRoundTrip(t *testing.T) {
	store := NewMockStore(t, storetest.MockNowProvider, nil)

	matcher := excludesmatcher.NewExcludesMatcher()
	require.Nil(t, matcher.AddRule("node_modules/**", excludesmatcher.MatchKindWildcard))
	require.Nil(t, matcher.AddRule("*.log", excludesmatcher.MatchKindExact))
	require.Nil(t, matcher.AddRule("build/*.o", excludesmatcher.MatchKindWildcard))

	err := store.Store.ExcludesDAL.Save(matcher)
	require.Nil(t, err)

	loaded, err := store.Store.ExcludesDAL.Load()
	require.Nil(t, err)

	require.Len(t, loaded.Rules(), len(matcher.Rules()))
	for i, rule := range matcher.UserRules() {
		assert.Equal(t, rule.Pattern(), loaded.UserRules()[i].Pattern())
		assert.Equal(t, rule.Kind(), loaded.UserRules()[i].Kind())
	}

	for _, path := range excludesTestPaths {
		assert.Equal(t, matcher.ShouldExclude(path), loaded.ShouldExclude(path), path)
	}

	b, err := afero.ReadFile(store.Fs, filepath.Join(store.Store.dataDirPath(), excludesFileName))
	require.Nil(t, err)
	assert.Contains(t, string(b), "node_modules/**")
	assert.NotContains(t, string(b), "backup/**", "built-in rules should not be saved")
}

func Test_ExcludesDAL_SaveReplaces(t *testing.T) {
	store := NewMockStore(t, storetest.MockNowProvider, nil)

	matcher := excludesmatcher.NewExcludesMatcher()
	require.Nil(t, matcher.AddRule("a/**", excludesmatcher.MatchKindWildcard))
	require.Nil(t, store.Store.ExcludesDAL.Save(matcher))
	require.Nil(t, store.Store.ExcludesDAL.Save(matcher))

	loaded, err := store.Store.ExcludesDAL.Load()
	require.Nil(t, err)
	assert.Len(t, loaded.UserRules(), 1)
}

func Test_ExcludesDAL_AddRule(t *testing.T) {
	store := NewMockStore(t, storetest.MockNowProvider, nil)

	_, err := store.Store.ExcludesDAL.AddRule("dist/**", excludesmatcher.MatchKindWildcard)
	require.Nil(t, err)

	matcher, err := store.Store.ExcludesDAL.AddRule("*.tmp", excludesmatcher.MatchKindExact)
	require.Nil(t, err)
	assert.Len(t, matcher.UserRules(), 2)

	_, err = store.Store.ExcludesDAL.AddRule("x/**/**", excludesmatcher.MatchKindWildcard)
	require.NotNil(t, err)
	assert.IsType(t, &excludesmatcher.InvalidPatternError{}, err)

	loaded, err := store.Store.ExcludesDAL.Load()
	require.Nil(t, err)
	require.Len(t, loaded.UserRules(), 2, "the invalid rule must not be saved")
	assert.Equal(t, "dist/**", loaded.UserRules()[0].Pattern())
	assert.Equal(t, excludesmatcher.MatchKindExact, loaded.UserRules()[1].Kind())

	lock, err := store.Store.LockDAL.GetLockInformation()
	require.Nil(t, err)
	assert.Nil(t, lock)
}

func Test_ExcludesDAL_LoadInvalidFile(t *testing.T) {
	store := NewMockStore(t, storetest.MockNowProvider, nil)
	excludesFilePath := filepath.Join(store.Store.dataDirPath(), excludesFileName)

	require.Nil(t, afero.WriteFile(store.Fs, excludesFilePath, []byte("rules:\n  - pattern: a/**/**\n    kind: wildcard\n"), 0600))
	_, err := store.Store.ExcludesDAL.Load()
	require.NotNil(t, err)
	assert.IsType(t, &excludesmatcher.InvalidPatternError{}, err)

	require.Nil(t, afero.WriteFile(store.Fs, excludesFilePath, []byte("rules:\n  - pattern: a/**\n    kind: regex\n"), 0600))
	_, err = store.Store.ExcludesDAL.Load()
	require.NotNil(t, err)

	require.Nil(t, afero.WriteFile(store.Fs, excludesFilePath, []byte("rules: [[["), 0600))
	_, err = store.Store.ExcludesDAL.Load()
	require.NotNil(t, err)
}
