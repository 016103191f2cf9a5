package fswalker

import (
	"os"
	"path/filepath"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/workspace-backup-app/backupstore/domain"
	"github.com/spf13/afero"
)

// Excluder decides whether a path, relative to the walk root, is left out of the walk
type Excluder interface {
	ShouldExclude(relativePath string) bool
}

// WalkFunc is called for every non-directory entry that was not excluded.
// path is the full path on the filesystem.
type WalkFunc func(path string, relativePath domain.RelativePath, fileInfo os.FileInfo) error

type walkerType struct {
	fs       afero.Fs
	basePath string
	excluder Excluder
	walkFunc WalkFunc
}

// Walk walks the tree under rootPath, one entry at a time.
//
// Every entry is tested against the excluder by its relative path before anything else is done with it.
// An excluded directory is not descended into, so nothing below it is visited or tested.
// The walk stops at the first error, from either listing a directory or the walkFunc.
// Entries are visited in the order afero.ReadDir returns them.
func Walk(fs afero.Fs, rootPath string, excluder Excluder, walkFunc WalkFunc) errorsx.Error {
	wt := &walkerType{
		fs:       fs,
		basePath: rootPath,
		excluder: excluder,
		walkFunc: walkFunc,
	}

	return wt.walkDir(rootPath)
}

func (wt *walkerType) walkDir(dirPath string) errorsx.Error {
	dirEntryInfos, err := afero.ReadDir(wt.fs, dirPath)
	if nil != err {
		return errorsx.Wrap(err, "path", dirPath)
	}

	for _, dirEntryInfo := range dirEntryInfos {
		childPath := filepath.Join(dirPath, dirEntryInfo.Name())

		relativePath, err := domain.NewRelativePathFromRoot(wt.basePath, childPath)
		if nil != err {
			return errorsx.Wrap(err, "path", childPath)
		}

		if wt.excluder != nil && wt.excluder.ShouldExclude(string(relativePath)) {
			continue
		}

		if dirEntryInfo.IsDir() {
			walkErr := wt.walkDir(childPath)
			if nil != walkErr {
				return walkErr
			}
			continue
		}

		err = wt.walkFunc(childPath, relativePath, dirEntryInfo)
		if nil != err {
			return errorsx.Wrap(err, "path", childPath)
		}
	}

	return nil
}
