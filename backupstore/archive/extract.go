package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesrr39/goutil/dirtraversal"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var ErrIllegalDirectoryTraversal = errors.New("archive entry is trying to traverse out of the extract directory")

// ExtractTarGz extracts a gzip-compressed tar stream into destDir, creating destDir if needed.
// It returns the number of files and symlinks written.
func ExtractTarGz(fs afero.Fs, reader io.Reader, destDir string) (int, error) {
	gzipReader, err := gzip.NewReader(reader)
	if nil != err {
		return 0, errors.Wrap(err, "couldn't read gzip stream")
	}
	defer gzipReader.Close()

	err = fs.MkdirAll(destDir, 0700)
	if nil != err {
		return 0, err
	}

	tarReader := tar.NewReader(gzipReader)
	fileCount := 0
	for {
		header, err := tarReader.Next()
		if nil != err {
			if err == io.EOF {
				break
			}
			return fileCount, errors.Wrap(err, "couldn't read the next archive entry")
		}

		targetPath, err := entryTargetPath(destDir, header.Name)
		if nil != err {
			return fileCount, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			err = fs.MkdirAll(targetPath, 0700)
			if nil != err {
				return fileCount, err
			}
			continue
		case tar.TypeReg:
			err = writeRegularFile(fs, targetPath, header.FileInfo().Mode().Perm(), tarReader)
		case tar.TypeSymlink:
			err = writeSymlink(fs, targetPath, header.Linkname)
		default:
			err = fmt.Errorf("couldn't extract %q: unsupported entry type %q", header.Name, string(header.Typeflag))
		}
		if nil != err {
			return fileCount, err
		}

		fileCount++
	}

	return fileCount, nil
}

func entryTargetPath(destDir, entryName string) (string, error) {
	if dirtraversal.IsTryingToTraverseUp(entryName) || strings.HasPrefix(entryName, "/") {
		return "", errors.Wrapf(ErrIllegalDirectoryTraversal, "entry %q", entryName)
	}

	targetPath := filepath.Join(destDir, filepath.FromSlash(entryName))

	relativePath, err := filepath.Rel(destDir, targetPath)
	if nil != err {
		return "", err
	}

	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrIllegalDirectoryTraversal, "entry %q", entryName)
	}

	return targetPath, nil
}

func writeRegularFile(fs afero.Fs, targetPath string, perm os.FileMode, reader io.Reader) error {
	err := fs.MkdirAll(filepath.Dir(targetPath), 0700)
	if nil != err {
		return err
	}

	file, err := fs.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if nil != err {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, reader)
	if nil != err {
		return err
	}

	return file.Close()
}

func writeSymlink(fs afero.Fs, targetPath, linkTarget string) error {
	linker, ok := fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("couldn't create symlink %q: filesystem doesn't support symlinks", targetPath)
	}

	err := fs.MkdirAll(filepath.Dir(targetPath), 0700)
	if nil != err {
		return err
	}

	return linker.SymlinkIfPossible(linkTarget, targetPath)
}
