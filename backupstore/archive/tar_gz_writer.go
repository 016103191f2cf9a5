package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/jamesrr39/workspace-backup-app/backupstore/domain"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrUnsupportedEntryType is returned for entries that can't be stored in the archive (sockets, named pipes)
var ErrUnsupportedEntryType = errors.New("unsupported file type for archive entry")

// TarGzWriter writes files from a filesystem into a gzip-compressed tar stream
type TarGzWriter struct {
	fs         afero.Fs
	gzipWriter *gzip.Writer
	tarWriter  *tar.Writer
}

func NewTarGzWriter(fs afero.Fs, writer io.Writer) *TarGzWriter {
	gzipWriter := gzip.NewWriter(writer)
	return &TarGzWriter{
		fs:         fs,
		gzipWriter: gzipWriter,
		tarWriter:  tar.NewWriter(gzipWriter),
	}
}

// WriteEntry appends the file at sourcePath to the archive, under the name archiveName.
// Regular files are written with their contents; symlinks are stored as links if the filesystem can read them.
func (w *TarGzWriter) WriteEntry(sourcePath string, archiveName domain.RelativePath, fileInfo os.FileInfo) error {
	var linkTarget string
	switch {
	case fileInfo.Mode().IsRegular():
	case fileInfo.Mode()&os.ModeSymlink != 0:
		linkReader, ok := w.fs.(afero.LinkReader)
		if !ok {
			return errors.Wrapf(ErrUnsupportedEntryType, "couldn't read symlink %q: filesystem doesn't support reading links", sourcePath)
		}

		var err error
		linkTarget, err = linkReader.ReadlinkIfPossible(sourcePath)
		if nil != err {
			return err
		}
	default:
		return errors.Wrapf(ErrUnsupportedEntryType, "%q has mode %s", sourcePath, fileInfo.Mode())
	}

	header, err := tar.FileInfoHeader(fileInfo, linkTarget)
	if nil != err {
		return errors.Wrapf(err, "couldn't create archive header for %q", sourcePath)
	}
	header.Name = string(archiveName)

	err = w.tarWriter.WriteHeader(header)
	if nil != err {
		return err
	}

	if !fileInfo.Mode().IsRegular() {
		return nil
	}

	file, err := w.fs.Open(sourcePath)
	if nil != err {
		return err
	}
	defer file.Close()

	written, err := io.Copy(w.tarWriter, file)
	if nil != err {
		return errors.Wrapf(err, "couldn't write %q to the archive", sourcePath)
	}

	if written != header.Size {
		return fmt.Errorf("%q changed size while being archived (expected %d bytes, wrote %d)", sourcePath, header.Size, written)
	}

	return nil
}

// Close flushes the tar and gzip streams. It does not close the underlying writer.
func (w *TarGzWriter) Close() error {
	err := w.tarWriter.Close()
	if nil != err {
		return err
	}

	return w.gzipWriter.Close()
}
