package packfile

import (
	"encoding/binary"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/totalwar/packfile/internal/cipher"
	"github.com/totalwar/packfile/internal/fileview"
	"github.com/totalwar/packfile/internal/logging"
	"github.com/totalwar/packfile/internal/metrics"
)

var parseLog = logging.Module("parse")

// Parse validates header bytes in data and returns a handle over an
// in-memory archive. When eager is true, every entry's plaintext is
// materialised before Parse returns and any read failure is surfaced
// immediately rather than on first access to that entry.
func Parse(data []byte, eager bool) (*Archive, error) {
	return parseView(fileview.FromBytes(data), eager)
}

// ParseFile opens path and parses it, memory-mapping the file. The
// returned Archive owns the mapping; call Close when done with it.
func ParseFile(path string, eager bool) (*Archive, error) {
	view, err := fileview.Open(path, fileview.Mmap)
	if err != nil {
		return nil, ErrIO
	}

	a, err := parseView(view, eager)
	if err != nil {
		view.Close() //nolint:errcheck

		return nil, err
	}

	return a, nil
}

func parseView(view fileview.View, eager bool) (a *Archive, err error) {
	start := time.Now()

	defer func() {
		metrics.ParseDuration.Observe(time.Since(start).Seconds())

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}

		metrics.ArchivesParsed.WithLabelValues(outcome).Inc()
	}()

	a, err = parseHeader(view)
	if err != nil {
		return nil, err
	}

	parseLog.Debugf("parsed header: version=%v entries=%d file_size=%s", a.version, a.count, humanize.Bytes(view.Length()))

	if !eager {
		return a, nil
	}

	if err := resolveAll(a); err != nil {
		return nil, err
	}

	return a, nil
}

func readU32LE(view fileview.View, offset uint64) (uint32, error) {
	b, err := view.Read(offset, offset+4)
	if err != nil {
		return 0, errors.Wrap(err, "read u32")
	}

	return binary.LittleEndian.Uint32(b), nil
}

// parseHeader implements the validation order from §4.3 step by step.
func parseHeader(view fileview.View) (*Archive, error) {
	length := view.Length()

	// 1. length >= 4; first 4 bytes are a u32 preamble.
	if length < 4 {
		return nil, ErrInvalidFile
	}

	rawPreamble, err := readU32LE(view, 0)
	if err != nil {
		return nil, ErrInvalidFile
	}

	version, known := versionFromPreamble(rawPreamble)
	if !known {
		return nil, ErrInvalidHeader
	}

	// 2. legacy preamble -> UnsupportedPackFile.
	if version == VersionUnsupported {
		return nil, ErrUnsupportedPackFile
	}
	// 3. preamble not in {V4, V5} is handled by versionFromPreamble above.

	if length < 8 {
		return nil, ErrInvalidFile
	}

	rawFlags, err := readU32LE(view, 4)
	if err != nil {
		return nil, ErrInvalidFile
	}

	flags, fileType := splitFlagsWord(rawFlags)

	// 6. type_value > 4 -> InvalidHeader (checked before layout math since
	// it only needs the flags word we already have).
	if fileType > FileTypeMovie {
		return nil, ErrInvalidHeader
	}

	shs := staticHeaderSize(version, flags)

	// 4. length >= static_header_size.
	if length < uint64(shs) {
		return nil, ErrInvalidFile
	}

	packFileIndexCount, err := readU32LE(view, 0x08)
	if err != nil {
		return nil, ErrInvalidFile
	}

	packFileIndexSize, err := readU32LE(view, 0x0C)
	if err != nil {
		return nil, ErrInvalidFile
	}

	packedFileCount, err := readU32LE(view, 0x10)
	if err != nil {
		return nil, ErrInvalidFile
	}

	packedFileIndexSize, err := readU32LE(view, 0x14)
	if err != nil {
		return nil, ErrInvalidFile
	}

	// 5. length >= static_header_size + pack_file_index_size.
	if length < uint64(shs)+uint64(packFileIndexSize) {
		return nil, ErrInvalidFile
	}

	// layout requires the packed-file-index region to fit too, even
	// though the spec's validation order only names the two checks above
	// explicitly; without this the iterator could read past EOF.
	if length < uint64(shs)+uint64(packFileIndexSize)+uint64(packedFileIndexSize) {
		return nil, ErrInvalidFile
	}

	// 7. reserved flag bits: non-fatal warning.
	if reserved := uint32(flags) &^ knownFlagsMask; reserved != 0 {
		parseLog.Warnf("reserved flag bits set: 0x%x", reserved)
	}

	var timestamp uint32
	if version == V4 || !flags.Has(FlagBigHeader) {
		timestamp, err = readU32LE(view, 0x18)
		if err != nil {
			return nil, ErrInvalidFile
		}
	}

	packFileNames, err := readPackFileNames(view, uint64(shs), packFileIndexSize, packFileIndexCount)
	if err != nil {
		return nil, err
	}

	l := computeLayout(version, flags, packFileIndexSize, packedFileIndexSize)

	return &Archive{
		view:          view,
		version:       version,
		flags:         flags,
		fileType:      fileType,
		timestamp:     timestamp,
		packFileNames: packFileNames,
		layout:        l,
		count:         packedFileCount,
	}, nil
}

func readPackFileNames(view fileview.View, base uint64, size, count uint32) ([]string, error) {
	if size == 0 {
		return nil, nil
	}

	raw, err := view.Read(base, base+uint64(size))
	if err != nil {
		return nil, ErrInvalidFile
	}

	names := make([]string, 0, count)

	pos := 0
	for i := uint32(0); i < count; i++ {
		nul := indexOfZero(raw[pos:])
		if nul < 0 {
			return nil, ErrInvalidFile
		}

		names = append(names, string(raw[pos:pos+nul]))
		pos += nul + 1
	}

	return names, nil
}

func indexOfZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}

	return -1
}

// EntryIterator walks an Archive's packed-file index, yielding entries
// in stored order. Each iterator owns independent cursor state; several
// iterators may run concurrently over the same Archive. Next follows
// the bufio.Scanner convention: it returns false both at a clean end
// and on a failure, distinguishable via Err.
type EntryIterator struct {
	archive *Archive

	remaining     uint32
	indexCursor   uint64
	contentCursor uint64

	done bool
	err  error
}

// Err returns the failure that caused Next to stop early, or nil if
// iteration ran to completion or has not yet been exhausted.
func (it *EntryIterator) Err() error {
	return it.err
}

func (it *EntryIterator) fail(err error) (*Entry, bool) {
	it.done = true
	it.err = err

	return nil, false
}

// Next advances the cursor and returns the next entry, or (nil, false)
// once the archive is exhausted. Any internal read or decode failure
// also yields (nil, false); callers that must distinguish a truncated
// file from a clean end should check Err after Next returns false.
func (it *EntryIterator) Next() (*Entry, bool) {
	if it.done {
		return nil, false
	}

	if it.remaining == 0 {
		it.done = true

		return nil, false
	}

	a := it.archive

	it.remaining--
	entryIndexFromEnd := it.remaining

	idxBase := a.layout.packedFileIndexBase
	idxEnd := idxBase + uint64(a.layout.packedFileIndexSize)

	if it.indexCursor > idxEnd {
		return it.fail(ErrIndexIterator)
	}

	rawLength, err := readU32LE(a.view, it.indexCursor)
	if err != nil {
		return it.fail(ErrIndexIterator)
	}

	it.indexCursor += 4

	dataLength := rawLength
	if a.flags.Has(FlagEncryptedIndex) {
		dataLength = cipher.DecryptLength(entryIndexFromEnd, rawLength)
	}

	var timestamp uint32
	var hasTimestamp bool

	if a.flags.Has(FlagIndexWithTimestamps) {
		rawStamp, err := readU32LE(a.view, it.indexCursor)
		if err != nil {
			return it.fail(ErrIndexIterator)
		}

		it.indexCursor += 4

		timestamp = rawStamp
		if a.flags.Has(FlagEncryptedIndex) {
			timestamp = cipher.DecryptLength(entryIndexFromEnd, rawStamp)
		}

		hasTimestamp = true
	}

	if a.version == V5 && !a.flags.Has(FlagBigHeader) {
		it.indexCursor++
	}

	if it.indexCursor > idxEnd {
		return it.fail(ErrIndexIterator)
	}

	remainingIndex := idxEnd - it.indexCursor

	rawPath, err := a.view.Read(it.indexCursor, it.indexCursor+remainingIndex)
	if err != nil {
		return it.fail(ErrIndexIterator)
	}

	var path string
	var consumed int

	if a.flags.Has(FlagEncryptedIndex) {
		key := byte(dataLength & 0xFF)

		plaintext, n, ok := cipher.DecryptFilename(rawPath, key)
		if !ok {
			return it.fail(ErrInvalidFile)
		}

		path = string(plaintext)
		consumed = n
	} else {
		nul := indexOfZero(rawPath)
		if nul < 0 {
			return it.fail(ErrInvalidFile)
		}

		path = string(rawPath[:nul])
		consumed = nul + 1
	}

	if !utf8.ValidString(path) {
		return it.fail(ErrIndexIterator)
	}

	it.indexCursor += uint64(consumed)

	entryEncrypted := a.flags.Has(FlagEncryptedContent)

	contentStart := it.contentCursor
	contentEnd := contentStart + uint64(dataLength)

	entry := newLazyEntry(optionalTimestamp(timestamp, hasTimestamp), path, a.view.Clone(), contentStart, contentEnd, entryEncrypted)

	padded := uint64(dataLength)
	if entryEncrypted {
		padded = (uint64(dataLength) + 7) &^ 7
	}

	if a.version == V5 && entryEncrypted {
		it.contentCursor += padded
	} else {
		it.contentCursor += uint64(dataLength)
	}

	metrics.EntriesIterated.Inc()

	return entry, true
}

func optionalTimestamp(v uint32, ok bool) *uint32 {
	if !ok {
		return nil
	}

	return &v
}

// eagerResolveConcurrency bounds how many entries are resolved at once
// during eager Parse, mirroring the teacher's fetchIndexBlobs worker
// pool rather than spawning one goroutine per entry.
const eagerResolveConcurrency = 16

func resolveAll(a *Archive) error {
	it := a.Iter()

	var entries []*Entry

	for {
		entry, ok := it.Next()
		if !ok {
			break
		}

		entries = append(entries, entry)
	}

	if it.Err() != nil {
		return ErrIndexIterator
	}

	var g errgroup.Group

	sem := make(chan struct{}, eagerResolveConcurrency)

	for _, entry := range entries {
		entry := entry
		sem <- struct{}{}

		g.Go(func() error {
			defer func() { <-sem }()

			_, err := entry.Data()

			return err
		})
	}

	return g.Wait()
}
