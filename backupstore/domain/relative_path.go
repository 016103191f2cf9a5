package domain

import (
	"path/filepath"
	"strings"
)

// RelativePath is a path relative to the workspace root, using "/" as the separator and without a leading "/"
type RelativePath string

const RelativePathSep = '/'

func NewRelativePath(path string) RelativePath {
	if filepath.Separator != RelativePathSep {
		path = strings.Replace(path, string(filepath.Separator), string(RelativePathSep), -1)
	}

	return RelativePath(strings.TrimLeft(path, string(RelativePathSep)))
}

// NewRelativePathFromRoot returns the path of fullPath relative to rootPath
func NewRelativePathFromRoot(rootPath, fullPath string) (RelativePath, error) {
	relativePath, err := filepath.Rel(rootPath, fullPath)
	if nil != err {
		return "", err
	}

	return NewRelativePath(filepath.ToSlash(relativePath)), nil
}
