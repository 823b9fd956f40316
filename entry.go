package packfile

import (
	"fmt"
	"sync"

	"github.com/totalwar/packfile/internal/cipher"
	"github.com/totalwar/packfile/internal/fileview"
)

// lazySource is the not-yet-resolved half of an Entry's data: a range
// inside a shared file view, plus whether that range is obfuscated
// content that must be decrypted on resolution.
type lazySource struct {
	view      fileview.View
	start     uint64
	end       uint64 // unpadded: end-start is always data_length
	encrypted bool
}

// Entry is one packed file's value: an optional timestamp, a path, and a
// data source that is either an eager byte buffer or a lazy view+range.
// The lazy-to-eager upgrade happens at most once and is guarded so that
// concurrent callers resolving the same Entry each observe the eager
// result after exactly one resolve.
type Entry struct {
	mu sync.Mutex

	timestamp    uint32
	hasTimestamp bool
	path         string

	isEager bool
	eager   []byte
	lazy    lazySource
}

// NewEntry builds an eagerly-backed Entry, matching Entry::new in the
// abstract API (§6): optional timestamp, path, owned bytes.
func NewEntry(timestamp *uint32, path string, data []byte) *Entry {
	e := &Entry{path: path, isEager: true, eager: data}

	if timestamp != nil {
		e.timestamp = *timestamp
		e.hasTimestamp = true
	}

	return e
}

func newLazyEntry(timestamp *uint32, path string, view fileview.View, start, end uint64, encrypted bool) *Entry {
	e := &Entry{
		path: path,
		lazy: lazySource{view: view, start: start, end: end, encrypted: encrypted},
	}

	if timestamp != nil {
		e.timestamp = *timestamp
		e.hasTimestamp = true
	}

	return e
}

// Path returns the entry's path, using `\` as the component separator.
func (e *Entry) Path() string {
	return e.path
}

// Timestamp returns the entry's timestamp, if the archive's
// INDEX_WITH_TIMESTAMPS flag was set.
func (e *Entry) Timestamp() (uint32, bool) {
	return e.timestamp, e.hasTimestamp
}

// Data resolves and returns the entry's plaintext bytes. The first
// successful resolution upgrades the entry to an eager, O(1) read for
// all subsequent callers and clones; the caller must not mutate the
// returned slice in place (use SetData to replace it).
func (e *Entry) Data() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isEager {
		return e.eager, nil
	}

	raw, err := e.lazy.view.Read(e.lazy.start, e.lazy.end)
	if err != nil {
		return nil, ErrIO
	}

	data := raw
	if e.lazy.encrypted {
		data = cipher.DecryptContent(raw, int(e.lazy.end-e.lazy.start))
	}

	e.eager = data
	e.isEager = true

	// the view is no longer needed once we hold the plaintext.
	e.lazy.view.Close() //nolint:errcheck
	e.lazy = lazySource{}

	return e.eager, nil
}

// SetData replaces the entry's data with an eagerly-owned buffer,
// discarding any unresolved lazy source.
func (e *Entry) SetData(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isEager && e.lazy.view != nil {
		e.lazy.view.Close() //nolint:errcheck
	}

	e.eager = data
	e.isEager = true
	e.lazy = lazySource{}
}

// Clone returns an independent Entry holding its own copy of the data,
// forcing resolution first so the clone never races the original's
// lazy-to-eager upgrade (mirrors original_source/src/lib.rs's
// impl Clone for PackedFile).
func (e *Entry) Clone() (*Entry, error) {
	data, err := e.Data()
	if err != nil {
		return nil, err
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	var ts *uint32
	if t, ok := e.Timestamp(); ok {
		ts = &t
	}

	return NewEntry(ts, e.path, cp), nil
}

// Close releases any file-view resources this entry still holds. It is
// a no-op once the entry has been resolved or was constructed eagerly.
func (e *Entry) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isEager || e.lazy.view == nil {
		return nil
	}

	err := e.lazy.view.Close()
	e.lazy = lazySource{}

	return err
}

func (e *Entry) String() string {
	ts, ok := e.Timestamp()
	if !ok {
		return fmt.Sprintf("Entry{timestamp: none, path: %q}", e.path)
	}

	return fmt.Sprintf("Entry{timestamp: %d, path: %q}", ts, e.path)
}
