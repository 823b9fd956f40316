// Package walk implements the directory-walker collaborator: a trivial
// depth-first traversal that turns a filesystem tree into the list of
// regular files BuildFromDirectory packs, with paths joined using `\`
// to match the archive's own path convention.
package walk

import (
	"os"
	"path/filepath"
	"strings"
)

// File is one regular file discovered under a directory root.
type File struct {
	// Path is the file's location relative to root, with components
	// joined by `\` regardless of the host OS path separator.
	Path string
	// AbsPath is the file's real filesystem path, usable to open it.
	AbsPath string
}

// Directory walks root depth-first and returns every regular file found,
// in the order the underlying filesystem traversal visits them — callers
// that need a specific order (the builder sorts by Path) must sort the
// result themselves.
func Directory(root string) ([]File, error) {
	var files []File

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, File{
			Path:    strings.ReplaceAll(rel, string(filepath.Separator), `\`),
			AbsPath: path,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
