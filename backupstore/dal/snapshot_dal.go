package dal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/workspace-backup-app/backupstore/archive"
	"github.com/jamesrr39/workspace-backup-app/backupstore/domain"
	"github.com/jamesrr39/workspace-backup-app/backupstore/fswalker"
	"github.com/pkg/errors"
)

// NoIndex is passed as the index when the caller didn't pick one of several snapshots with the same name
const NoIndex = -1

const tempFileExtension = ".tmp"

var ErrSnapshotNotFound = errors.New("snapshot not found")

// AmbiguousSnapshotError is returned when more than one snapshot has the requested name and no index was given
type AmbiguousSnapshotError struct {
	Name      string
	Snapshots []*domain.Snapshot
}

func (e *AmbiguousSnapshotError) Error() string {
	var options []string
	for i, snapshot := range e.Snapshots {
		options = append(options, fmt.Sprintf("%d: %s", i, snapshot.FileName()))
	}
	return fmt.Sprintf("there are %d snapshots named %q, an index must be specified. Available options:\n%s",
		len(e.Snapshots),
		e.Name,
		strings.Join(options, "\n"),
	)
}

// SnapshotDAL is the Data Access Layer used to deal with Snapshots.
type SnapshotDAL struct {
	storeDAL *StoreDAL
}

// storeExcluder keeps the store's own data directory out of every snapshot, whatever rules the caller passes in
type storeExcluder struct {
	excluder fswalker.Excluder
	logger   *logpkg.Logger
}

func (e storeExcluder) ShouldExclude(relativePath string) bool {
	if relativePath == DataDirName || strings.HasPrefix(relativePath, DataDirName+"/") {
		return true
	}

	if e.excluder == nil || !e.excluder.ShouldExclude(relativePath) {
		return false
	}

	e.logger.Debug("excluding %q", relativePath)
	return true
}

// Create archives the workspace into a new snapshot, leaving out every path the excluder excludes.
// The archive is written to a temporary file and only renamed to its final name once complete;
// any I/O error aborts the snapshot and removes the temporary file.
func (dal *SnapshotDAL) Create(name string, excluder fswalker.Excluder) (*domain.Snapshot, error) {
	snapshot, err := domain.NewSnapshot(name, dal.storeDAL.nowProvider())
	if nil != err {
		return nil, err
	}

	err = dal.storeDAL.LockDAL.withStoreLock(fmt.Sprintf("creating snapshot %q", snapshot.Name), func() error {
		return dal.writeSnapshot(snapshot, excluder)
	})
	if nil != err {
		return nil, err
	}

	return snapshot, nil
}

func (dal *SnapshotDAL) writeSnapshot(snapshot *domain.Snapshot, excluder fswalker.Excluder) error {
	startTime := time.Now()
	logger := dal.storeDAL.logger
	fs := dal.storeDAL.fs

	finalPath := dal.snapshotPath(snapshot)
	_, err := fs.Stat(finalPath)
	if nil == err {
		return errors.Errorf("a snapshot already exists at '%s'", finalPath)
	}

	tempPath := finalPath + tempFileExtension
	tempFile, err := fs.Create(tempPath)
	if nil != err {
		return errorsx.Wrap(err)
	}

	fileCount := 0
	writer := archive.NewTarGzWriter(fs, tempFile)
	walkErr := fswalker.Walk(fs, dal.storeDAL.WorkspacePath, storeExcluder{excluder, logger}, func(path string, relativePath domain.RelativePath, fileInfo os.FileInfo) error {
		logger.Debug("adding %q", relativePath)
		err := writer.WriteEntry(path, relativePath, fileInfo)
		if nil != err {
			if errors.Cause(err) == archive.ErrUnsupportedEntryType {
				logger.Warn("skipping %q: %s", relativePath, err)
				return nil
			}
			return err
		}

		fileCount++
		return nil
	})

	err = writer.Close()
	closeErr := tempFile.Close()
	if nil == err {
		err = closeErr
	}
	if nil != walkErr {
		err = walkErr
	}

	if nil != err {
		removeErr := fs.Remove(tempPath)
		if nil != removeErr {
			logger.Error("couldn't remove the incomplete snapshot file %q. Error: %s", tempPath, removeErr)
		}
		return errors.Wrapf(err, "couldn't create snapshot %q", snapshot.Name)
	}

	err = fs.Rename(tempPath, finalPath)
	if nil != err {
		return errorsx.Wrap(err)
	}

	logger.Info("snapshot %q: backed up %d files in %f seconds", snapshot.FileName(), fileCount, time.Since(startTime).Seconds())

	return nil
}

// List returns every snapshot in the store, oldest first.
// Files in the snapshots directory that don't look like snapshots are ignored.
func (dal *SnapshotDAL) List() ([]*domain.Snapshot, error) {
	snapshotsDir, err := dal.storeDAL.fs.Open(dal.storeDAL.SnapshotsDirPath())
	if nil != err {
		return nil, errorsx.Wrap(err)
	}
	defer snapshotsDir.Close()

	dirEntries, err := snapshotsDir.Readdir(-1)
	if nil != err {
		return nil, errorsx.Wrap(err)
	}

	var snapshots []*domain.Snapshot
	for _, dirEntry := range dirEntries {
		if !dirEntry.Mode().IsRegular() {
			continue
		}

		snapshot, err := domain.ParseSnapshotFileName(dirEntry.Name())
		if nil != err {
			dal.storeDAL.logger.Debug("ignoring %q in the snapshots directory: %s", dirEntry.Name(), err)
			continue
		}

		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].Name < snapshots[j].Name
		}
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})

	return snapshots, nil
}

// ListMatching returns the snapshots whose name matches the glob pattern, oldest first
func (dal *SnapshotDAL) ListMatching(namePattern string) ([]*domain.Snapshot, error) {
	nameGlob, err := glob.Compile(namePattern)
	if nil != err {
		return nil, errors.Wrapf(err, "couldn't compile snapshot name pattern %q", namePattern)
	}

	snapshots, err := dal.List()
	if nil != err {
		return nil, err
	}

	var matching []*domain.Snapshot
	for _, snapshot := range snapshots {
		if nameGlob.Match(snapshot.Name) {
			matching = append(matching, snapshot)
		}
	}

	return matching, nil
}

// Find returns the snapshot with the given name.
// When several snapshots share the name, index picks one of them, oldest first;
// with NoIndex an *AmbiguousSnapshotError is returned.
func (dal *SnapshotDAL) Find(name string, index int) (*domain.Snapshot, error) {
	snapshots, err := dal.List()
	if nil != err {
		return nil, err
	}

	sanitisedName := domain.SanitiseSnapshotName(name)

	var matched []*domain.Snapshot
	for _, snapshot := range snapshots {
		if snapshot.Name == sanitisedName {
			matched = append(matched, snapshot)
		}
	}

	if len(matched) == 0 {
		return nil, errors.Wrapf(ErrSnapshotNotFound, "name %q", name)
	}

	if index == NoIndex {
		if len(matched) > 1 {
			return nil, &AmbiguousSnapshotError{sanitisedName, matched}
		}
		return matched[0], nil
	}

	if index < 0 || index >= len(matched) {
		return nil, errors.Errorf("index %d is out of range: there are %d snapshots named %q", index, len(matched), sanitisedName)
	}

	return matched[index], nil
}

// Delete removes a snapshot archive from the store
func (dal *SnapshotDAL) Delete(name string, index int) (*domain.Snapshot, error) {
	var snapshot *domain.Snapshot
	err := dal.storeDAL.LockDAL.withStoreLock(fmt.Sprintf("deleting snapshot %q", name), func() error {
		var err error
		snapshot, err = dal.Find(name, index)
		if nil != err {
			return err
		}

		return dal.storeDAL.fs.Remove(dal.snapshotPath(snapshot))
	})
	if nil != err {
		return nil, err
	}

	return snapshot, nil
}

// Extract unpacks a snapshot into a directory next to the archive, named after the archive without its extension.
// It returns the directory and the number of files written.
func (dal *SnapshotDAL) Extract(name string, index int) (string, int, error) {
	snapshot, err := dal.Find(name, index)
	if nil != err {
		return "", 0, err
	}

	file, err := dal.storeDAL.fs.Open(dal.snapshotPath(snapshot))
	if nil != err {
		return "", 0, errorsx.Wrap(err)
	}
	defer file.Close()

	destDir := filepath.Join(dal.storeDAL.SnapshotsDirPath(), snapshot.BaseName())
	fileCount, err := archive.ExtractTarGz(dal.storeDAL.fs, file, destDir)
	if nil != err {
		return "", fileCount, errors.Wrapf(err, "couldn't extract snapshot %q", snapshot.FileName())
	}

	return destDir, fileCount, nil
}

// GetHash returns the SHA-256 hash of a snapshot archive
func (dal *SnapshotDAL) GetHash(name string, index int) (domain.Hash, error) {
	snapshot, err := dal.Find(name, index)
	if nil != err {
		return "", err
	}

	file, err := dal.storeDAL.fs.Open(dal.snapshotPath(snapshot))
	if nil != err {
		return "", errorsx.Wrap(err)
	}
	defer file.Close()

	return domain.NewHash(file)
}

// Verify reports whether the SHA-256 hash of a snapshot archive is expectedHash (hex, any case)
func (dal *SnapshotDAL) Verify(name, expectedHash string, index int) (bool, error) {
	hash, err := dal.GetHash(name, index)
	if nil != err {
		return false, err
	}

	return hash.EqualsHex(expectedHash), nil
}

func (dal *SnapshotDAL) snapshotPath(snapshot *domain.Snapshot) string {
	return filepath.Join(dal.storeDAL.SnapshotsDirPath(), snapshot.FileName())
}
