package packfile

import (
	"bytes"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

// BuildFile is the path-based convenience over Build: it serialises the
// archive in memory, then publishes it atomically at path so readers
// never observe a partially-written file. A sibling lock file guards
// against two builders racing on the same path.
func BuildFile(path string, entries []*Entry, packFileNames []string, version Version, flags Flags, fileType FileType, timestamp uint32) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return ErrIO
	}
	defer lock.Unlock() //nolint:errcheck

	var buf bytes.Buffer

	if err := Build(entries, packFileNames, &buf, version, flags, fileType, timestamp); err != nil {
		return err
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return ErrIO
	}

	return nil
}

// BuildFromDirectoryFile is the path-based convenience over
// BuildFromDirectory, with the same atomic-publish guarantee as
// BuildFile.
func BuildFromDirectoryFile(root, path string, version Version, flags Flags, fileType FileType, timestamp uint32) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return ErrIO
	}
	defer lock.Unlock() //nolint:errcheck

	var buf bytes.Buffer

	if err := BuildFromDirectory(root, &buf, version, flags, fileType, timestamp); err != nil {
		return err
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return ErrIO
	}

	return nil
}
