// Package fileview implements the cheaply-clonable, range-addressable
// handle over an opened archive file described by the PackFile file-view
// contract: Length() and Read(start, end) that serve arbitrary byte
// ranges, shareable across goroutines, with the underlying file closing
// only when the last shared handle drops.
package fileview

import "errors"

// ErrOutOfRange is returned by Read when the requested range extends
// past the end of the file.
var ErrOutOfRange = errors.New("fileview: read out of range")

// View is a cheaply-clonable handle over a byte-range-addressable file.
// Implementations may memory-map the file or cache reads in memory; both
// must be safe for concurrent use by multiple goroutines holding clones.
type View interface {
	// Length returns the total size of the underlying file in bytes.
	Length() uint64
	// Read returns the bytes in [start, end). It returns ErrOutOfRange
	// if end exceeds Length().
	Read(start, end uint64) ([]byte, error)
	// Clone returns a new handle sharing the same underlying resource.
	// The clone must be closed independently.
	Clone() View
	// Close releases this handle's share of the underlying resource.
	// The file itself is closed when the last clone's Close runs.
	Close() error
}
