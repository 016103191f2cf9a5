package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jamesrr39/goutil/dirtraversal"
	"github.com/pkg/errors"
)

const (
	SnapshotFileExtension = ".tar.gz"
	// SnapshotTimestampLayout is the layout of the UTC creation time at the start of a snapshot file name
	SnapshotTimestampLayout = "2006-01-02-15-04-05"
)

var (
	ErrSnapshotRequiresAName     = errors.New("snapshot requires a name")
	ErrSnapshotNameTooLong       = errors.New("snapshot name must be a maximum of 100 characters")
	ErrIllegalDirectoryTraversal = errors.New("snapshot name is trying to traverse up the directory tree")
)

var unsafeSnapshotNameCharsRegexp = regexp.MustCompile(`[\\/*?:"<>|]`)

// Snapshot is a compressed archive of the workspace, taken at CreatedAt
type Snapshot struct {
	Name      string
	CreatedAt time.Time
}

// NewSnapshot creates a Snapshot with the name sanitised and the creation time truncated to the second, in UTC
func NewSnapshot(name string, createdAt time.Time) (*Snapshot, error) {
	name = SanitiseSnapshotName(name)

	err := isValidSnapshotName(name)
	if nil != err {
		return nil, err
	}

	return &Snapshot{
		Name:      name,
		CreatedAt: createdAt.UTC().Truncate(time.Second),
	}, nil
}

// SanitiseSnapshotName replaces characters that can't be used in a file name with "_"
func SanitiseSnapshotName(name string) string {
	return unsafeSnapshotNameCharsRegexp.ReplaceAllString(strings.TrimSpace(name), "_")
}

func isValidSnapshotName(name string) error {
	if "" == name {
		return ErrSnapshotRequiresAName
	}

	if len(name) > 100 {
		return ErrSnapshotNameTooLong
	}

	if dirtraversal.IsTryingToTraverseUp(name) {
		return ErrIllegalDirectoryTraversal
	}

	return nil
}

// ParseSnapshotFileName reads a snapshot back from a file name produced by FileName
func ParseSnapshotFileName(fileName string) (*Snapshot, error) {
	if !strings.HasSuffix(fileName, SnapshotFileExtension) {
		return nil, fmt.Errorf("%q is not a snapshot file: missing %q extension", fileName, SnapshotFileExtension)
	}

	stem := strings.TrimSuffix(fileName, SnapshotFileExtension)
	if len(stem) < len(SnapshotTimestampLayout)+2 || stem[len(SnapshotTimestampLayout)] != '-' {
		return nil, fmt.Errorf("%q is not a snapshot file: expected '<timestamp>-<name>%s'", fileName, SnapshotFileExtension)
	}

	createdAt, err := time.ParseInLocation(SnapshotTimestampLayout, stem[:len(SnapshotTimestampLayout)], time.UTC)
	if nil != err {
		return nil, errors.Wrapf(err, "couldn't parse the timestamp of snapshot file %q", fileName)
	}

	return &Snapshot{
		Name:      stem[len(SnapshotTimestampLayout)+1:],
		CreatedAt: createdAt,
	}, nil
}

// BaseName is the file name without the extension: "<timestamp>-<name>"
func (s *Snapshot) BaseName() string {
	return s.CreatedAt.UTC().Format(SnapshotTimestampLayout) + "-" + s.Name
}

// FileName is "<timestamp>-<name>.tar.gz"
func (s *Snapshot) FileName() string {
	return s.BaseName() + SnapshotFileExtension
}
