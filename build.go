package packfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/totalwar/packfile/internal/logging"
	"github.com/totalwar/packfile/internal/metrics"
	"github.com/totalwar/packfile/internal/walk"
)

var buildLog = logging.Module("build")

type builderEntry struct {
	path      string
	timestamp *uint32
	data      []byte
}

// Builder accumulates packed files and pack-file-name dependencies and
// writes them out in the on-disk layout a Parse call accepts. Add and
// AddPackFileName may be called in any order; Build sorts entries by
// path before writing.
type Builder struct {
	version   Version
	flags     Flags
	fileType  FileType
	timestamp uint32

	packFileNames []string
	entries       []builderEntry
}

// NewBuilder starts a Builder for the given header fields.
func NewBuilder(version Version, flags Flags, fileType FileType, timestamp uint32) *Builder {
	return &Builder{version: version, flags: flags, fileType: fileType, timestamp: timestamp}
}

// AddPackFileName appends a dependency name, written in the order added.
func (b *Builder) AddPackFileName(name string) {
	b.packFileNames = append(b.packFileNames, name)
}

// Add appends a packed file. timestamp may be nil when the archive does
// not carry INDEX_WITH_TIMESTAMPS, or to write a bare 0 when it does.
func (b *Builder) Add(path string, timestamp *uint32, data []byte) {
	b.entries = append(b.entries, builderEntry{path: path, timestamp: timestamp, data: data})
}

// Build writes the accumulated archive to w. Builder never emits
// obfuscated indexes or content; a caller asking for ENCRYPTED_INDEX or
// ENCRYPTED_CONTENT gets ErrInvalidFlags rather than a file whose flags
// silently lie about its encoding.
func (b *Builder) Build(w io.Writer) (err error) {
	if b.flags.Has(FlagEncryptedIndex) || b.flags.Has(FlagEncryptedContent) {
		return ErrInvalidFlags
	}

	start := time.Now()

	defer func() {
		metrics.BuildDuration.Observe(time.Since(start).Seconds())

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}

		metrics.ArchivesBuilt.WithLabelValues(outcome).Inc()
	}()

	return b.write(w)
}

func (b *Builder) write(dst io.Writer) error {
	sorted := make([]builderEntry, len(b.entries))
	copy(sorted, b.entries)

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].path < sorted[j].path })

	var packFileIndexSize uint32
	for _, name := range b.packFileNames {
		packFileIndexSize += uint32(len(name)) + 1
	}

	var packedFileIndexSize uint32
	var contentSize uint64
	for _, e := range sorted {
		packedFileIndexSize += indexEntrySize(b.version, b.flags, len(e.path))
		contentSize += uint64(len(e.data))
	}

	buildLog.Debugf("building archive: version=%v entries=%d content_size=%s", b.version, len(sorted), humanize.Bytes(contentSize))

	bw := bufio.NewWriter(dst)
	ew := &errWriter{w: bw}

	ew.u32(b.version.preamble())
	ew.u32(flagsWord(b.flags, b.fileType))
	ew.u32(uint32(len(b.packFileNames)))
	ew.u32(packFileIndexSize)
	ew.u32(uint32(len(sorted)))
	ew.u32(packedFileIndexSize)

	if b.version == V5 && b.flags.Has(FlagBigHeader) {
		for i := 0; i < 6; i++ {
			ew.u32(0)
		}
	} else {
		ew.u32(b.timestamp)
	}

	for _, name := range b.packFileNames {
		ew.bytes([]byte(name))
		ew.byte(0)
	}

	withSeparator := hasSeparatorByte(b.version, b.flags)
	withTimestamps := b.flags.Has(FlagIndexWithTimestamps)

	for _, e := range sorted {
		ew.u32(uint32(len(e.data)))

		if withTimestamps {
			if e.timestamp != nil {
				ew.u32(*e.timestamp)
			} else {
				ew.u32(0)
			}
		}

		if withSeparator {
			ew.byte(0)
		}

		ew.bytes([]byte(e.path))
		ew.byte(0)
	}

	for _, e := range sorted {
		ew.bytes(e.data)
	}

	if ew.err != nil {
		buildLog.Errorf("write failed: %v", ew.err)

		return ErrIO
	}

	if err := bw.Flush(); err != nil {
		buildLog.Errorf("flush failed: %v", err)

		return ErrIO
	}

	return nil
}

// errWriter collapses the repeated error-check dance of writing dozens
// of small fields: every method after the first failure becomes a no-op.
type errWriter struct {
	w   *bufio.Writer
	err error
}

func (ew *errWriter) u32(v uint32) {
	if ew.err != nil {
		return
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, ew.err = ew.w.Write(buf[:])
}

func (ew *errWriter) byte(v byte) {
	if ew.err != nil {
		return
	}

	ew.err = ew.w.WriteByte(v)
}

func (ew *errWriter) bytes(b []byte) {
	if ew.err != nil {
		return
	}

	_, ew.err = ew.w.Write(b)
}

// Build is the package-level convenience matching the abstract API:
// build(entries, pack_file_names, sink, version, flags, type, timestamp).
// Every entry's Data is read (forcing resolution of lazy entries) before
// any bytes are written.
func Build(entries []*Entry, packFileNames []string, w io.Writer, version Version, flags Flags, fileType FileType, timestamp uint32) error {
	b := NewBuilder(version, flags, fileType, timestamp)

	for _, name := range packFileNames {
		b.AddPackFileName(name)
	}

	for _, e := range entries {
		data, err := e.Data()
		if err != nil {
			return err
		}

		var ts *uint32
		if t, ok := e.Timestamp(); ok {
			ts = &t
		}

		b.Add(e.Path(), ts, data)
	}

	return b.Build(w)
}

// BuildFromDirectory walks root depth-first and packs every regular file
// found, using its root-relative path (joined with `\`) and no
// timestamp, then calls Build. It returns ErrEmptyDirectory if root
// contains no regular files.
func BuildFromDirectory(root string, w io.Writer, version Version, flags Flags, fileType FileType, timestamp uint32) error {
	files, err := walk.Directory(root)
	if err != nil {
		return ErrIO
	}

	if len(files) == 0 {
		return ErrEmptyDirectory
	}

	entries := make([]*Entry, 0, len(files))

	for _, f := range files {
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return ErrIO
		}

		entries = append(entries, NewEntry(nil, f.Path, data))
	}

	return Build(entries, nil, w, version, flags, fileType, timestamp)
}
