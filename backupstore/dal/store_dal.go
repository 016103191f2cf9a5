package dal

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// DataDirName is the directory, directly under the workspace root, holding everything the store writes
	DataDirName = ".backup_data"

	snapshotsDirName = "snapshots"
	locksDirName     = "locks"
	excludesFileName = "excludes.yaml"
)

var ErrWorkspaceNotDirectory = errors.New("workspace path is not a directory")

type nowProvider func() time.Time

func prodNowProvider() time.Time {
	return time.Now()
}

// StoreDAL represents the object to interact with the snapshots, exclusion rules and lock of a workspace
type StoreDAL struct {
	WorkspacePath string
	nowProvider
	fs          afero.Fs
	logger      *logpkg.Logger
	SnapshotDAL *SnapshotDAL
	ExcludesDAL *ExcludesDAL
	LockDAL     *LockDAL
}

// NewStoreDAL connects to the store of the workspace at workspacePath, creating the store folders if they don't exist yet
func NewStoreDAL(workspacePath string, logger *logpkg.Logger) (*StoreDAL, error) {
	absWorkspacePath, err := filepath.Abs(workspacePath)
	if nil != err {
		return nil, err
	}

	return NewStoreDALWithFs(absWorkspacePath, prodNowProvider, afero.NewOsFs(), logger)
}

func NewStoreDALWithFs(workspacePath string, nowFunc nowProvider, fs afero.Fs, logger *logpkg.Logger) (*StoreDAL, error) {
	err := createStoreFolders(workspacePath, fs)
	if err != nil {
		return nil, err
	}

	storeDAL := &StoreDAL{
		WorkspacePath: workspacePath,
		nowProvider:   nowFunc,
		fs:            fs,
		logger:        logger,
	}

	storeDAL.LockDAL = &LockDAL{storeDAL}
	storeDAL.SnapshotDAL = &SnapshotDAL{storeDAL}
	storeDAL.ExcludesDAL = &ExcludesDAL{storeDAL}
	return storeDAL, nil
}

func createStoreFolders(workspacePath string, fs afero.Fs) error {
	fileInfo, err := fs.Stat(workspacePath)
	if nil != err {
		return fmt.Errorf("couldn't open the workspace at '%s'. Error: '%s'", workspacePath, err)
	}

	if !fileInfo.IsDir() {
		return errors.Wrapf(ErrWorkspaceNotDirectory, "'%s'", workspacePath)
	}

	for _, dirName := range []string{snapshotsDirName, locksDirName} {
		dirPath := filepath.Join(workspacePath, DataDirName, dirName)
		err = fs.MkdirAll(dirPath, 0700)
		if nil != err {
			return errors.Wrapf(err, "couldn't create store folder at '%s'", dirPath)
		}
	}

	return nil
}

func (s *StoreDAL) dataDirPath() string {
	return filepath.Join(s.WorkspacePath, DataDirName)
}

// SnapshotsDirPath is the directory the snapshot archives are written to
func (s *StoreDAL) SnapshotsDirPath() string {
	return filepath.Join(s.dataDirPath(), snapshotsDirName)
}
