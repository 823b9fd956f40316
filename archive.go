package packfile

import (
	"fmt"

	"github.com/totalwar/packfile/internal/fileview"
)

// Archive is a parsed PackFile: a validated header, the pack-file-name
// (dependency) index, and an on-demand iterator over packed-file
// entries. It is cheaply cloned — Clone shares the underlying file view.
type Archive struct {
	view fileview.View

	version  Version
	flags    Flags
	fileType FileType
	timestamp uint32

	packFileNames []string

	layout layout
	count  uint32
}

// Version returns the archive's detected version.
func (a *Archive) Version() Version {
	return a.version
}

// FileType returns the archive's declared type.
func (a *Archive) FileType() FileType {
	return a.fileType
}

// Flags returns the archive's flag bitfield (type bits excluded).
func (a *Archive) Flags() Flags {
	return a.flags
}

// Timestamp returns the archive's header timestamp. V5 BIG_HEADER files
// carry no timestamp field; Timestamp returns 0 for them.
func (a *Archive) Timestamp() uint32 {
	return a.timestamp
}

// PackFileNames returns the dependency index: other PackFiles this
// archive references, in on-disk order.
func (a *Archive) PackFileNames() []string {
	return a.packFileNames
}

// Len returns the number of packed-file entries, per the header count.
func (a *Archive) Len() uint32 {
	return a.count
}

// Iter returns a fresh, independent cursor over the archive's entries
// in stored order. Multiple iterators over the same archive do not
// interfere with each other.
func (a *Archive) Iter() *EntryIterator {
	return &EntryIterator{
		archive:       a,
		remaining:     a.count,
		indexCursor:   a.layout.packedFileIndexBase,
		contentCursor: a.layout.contentBase,
	}
}

// Clone returns a second handle on the same archive that shares its file
// view. Each handle must be closed independently.
func (a *Archive) Clone() *Archive {
	cp := *a
	cp.view = a.view.Clone()

	return &cp
}

// Close releases the archive's share of the underlying file view.
func (a *Archive) Close() error {
	return a.view.Close()
}

func (a *Archive) String() string {
	return fmt.Sprintf("Archive{version: %v, type: %v, flags: %v, entries: %d}", a.version, a.fileType, a.flags, a.count)
}
