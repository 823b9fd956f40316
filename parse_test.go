package packfile

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// entrySnapshot is the comparable projection of an Entry used by go-cmp
// in round-trip tests — path, timestamp, and resolved bytes, per P1's
// "entry-for-entry (path, timestamp, bytes)" definition of equivalence.
type entrySnapshot struct {
	Path      string
	Timestamp uint32
	HasStamp  bool
	Data      string
}

func snapshot(t *testing.T, e *Entry) entrySnapshot {
	t.Helper()

	data, err := e.Data()
	require.NoError(t, err)

	ts, ok := e.Timestamp()

	return entrySnapshot{Path: e.Path(), Timestamp: ts, HasStamp: ok, Data: string(data)}
}

// scenario 1: V5 mod round-trip.
func TestV5ModRoundTrip(t *testing.T) {
	entries := []*Entry{
		NewEntry(nil, "a", []byte("hi")),
		NewEntry(nil, `b\c`, []byte("")),
	}

	var buf bytes.Buffer
	require.NoError(t, Build(entries, nil, &buf, V5, FlagBigHeader, FileTypeMod, 0))

	a, err := Parse(buf.Bytes(), true)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, V5, a.Version())
	require.Equal(t, FileTypeMod, a.FileType())
	require.Equal(t, FlagBigHeader, a.Flags())
	require.EqualValues(t, 2, a.Len())

	it := a.Iter()

	e1, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "a", e1.Path())
	d1, err := e1.Data()
	require.NoError(t, err)
	require.Equal(t, "hi", string(d1))

	e2, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, `b\c`, e2.Path())
	d2, err := e2.Data()
	require.NoError(t, err)
	require.Empty(t, d2)

	_, ok = it.Next()
	require.False(t, ok)
	require.NoError(t, it.Err())
}

// scenario 2: dependency index round-trip.
func TestDependencyIndexRoundTrip(t *testing.T) {
	names := []string{"dep1.pack", "dep2.pack"}

	var buf bytes.Buffer
	require.NoError(t, Build(nil, names, &buf, V5, 0, FileTypeBoot, 42))

	a, err := Parse(buf.Bytes(), false)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, names, a.PackFileNames())
	require.EqualValues(t, 0, a.Len())
	require.EqualValues(t, 42, a.Timestamp())

	_, ok := a.Iter().Next()
	require.False(t, ok)
}

// scenario 6: V4 with timestamped index.
func TestV4TimestampedIndex(t *testing.T) {
	ts := uint32(7)
	entries := []*Entry{NewEntry(&ts, "unit.xml", []byte("data"))}

	var buf bytes.Buffer
	require.NoError(t, Build(entries, nil, &buf, V4, FlagIndexWithTimestamps, FileTypeRelease, 0))

	a, err := Parse(buf.Bytes(), true)
	require.NoError(t, err)
	defer a.Close()

	e, ok := a.Iter().Next()
	require.True(t, ok)

	stamp, has := e.Timestamp()
	require.True(t, has)
	require.EqualValues(t, 7, stamp)
}

func TestParseRejectsLegacyPreamble(t *testing.T) {
	data := make([]byte, 0x1C)
	putU32LE(data, 0, 0x30484650) // PFH0
	_, err := Parse(data, false)
	require.Equal(t, ErrUnsupportedPackFile, err)
}

func TestParseRejectsUnknownPreamble(t *testing.T) {
	data := make([]byte, 0x1C)
	putU32LE(data, 0, 0xDEADBEEF)
	_, err := Parse(data, false)
	require.Equal(t, ErrInvalidHeader, err)
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	data := make([]byte, 3)
	_, err := Parse(data, false)
	require.Equal(t, ErrInvalidFile, err)
}

func TestParseRejectsInvalidFileType(t *testing.T) {
	data := make([]byte, 0x1C)
	putU32LE(data, 0, preambleV4)
	putU32LE(data, 4, 5) // type_value = 5, out of {0..4}
	_, err := Parse(data, false)
	require.Equal(t, ErrInvalidHeader, err)
}

// boundary: empty packed-file set, both V4 and V5/both header sizes.
func TestEmptyPackedFileSet(t *testing.T) {
	cases := []struct {
		name    string
		version Version
		flags   Flags
	}{
		{"v4", V4, 0},
		{"v5-small", V5, 0},
		{"v5-big", V5, FlagBigHeader},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Build(nil, nil, &buf, tc.version, tc.flags, FileTypeBoot, 0))

			a, err := Parse(buf.Bytes(), true)
			require.NoError(t, err)
			defer a.Close()

			require.EqualValues(t, 0, a.Len())
			_, ok := a.Iter().Next()
			require.False(t, ok)
		})
	}
}

// boundary: single zero-length entry, plain only. The builder never
// writes encrypted output, and the hand-built encrypted fixture in
// fixture_test.go uses a 2-byte entry, so no test covers an encrypted
// zero-length entry.
func TestSingleZeroLengthEntry(t *testing.T) {
	entries := []*Entry{NewEntry(nil, "empty.txt", []byte{})}

	var buf bytes.Buffer
	require.NoError(t, Build(entries, nil, &buf, V5, 0, FileTypeMod, 0))

	a, err := Parse(buf.Bytes(), true)
	require.NoError(t, err)
	defer a.Close()

	e, ok := a.Iter().Next()
	require.True(t, ok)

	data, err := e.Data()
	require.NoError(t, err)
	require.Empty(t, data)
}

// boundary: path lengths 1, 63, 64, 65 (the filename cipher's key-wrap
// boundary), round-tripped in plaintext through the builder/parser.
func TestPathLengthBoundaries(t *testing.T) {
	for _, n := range []int{1, 63, 64, 65} {
		path := bytes.Repeat([]byte("p"), n)

		entries := []*Entry{NewEntry(nil, string(path), []byte("x"))}

		var buf bytes.Buffer
		require.NoError(t, Build(entries, nil, &buf, V5, 0, FileTypeMod, 0))

		a, err := Parse(buf.Bytes(), true)
		require.NoError(t, err)

		e, ok := a.Iter().Next()
		require.True(t, ok)
		require.Equal(t, string(path), e.Path())

		require.NoError(t, a.Close())
	}
}

// P1: build(parse(A)) round-trips entry-for-entry for an unencrypted
// archive with one dependency name, and rebuilding from the parsed
// entries reproduces the original bytes exactly.
func TestBuildParseRoundTripProperty(t *testing.T) {
	orig := []*Entry{
		NewEntry(nil, "z.txt", []byte("last")),
		NewEntry(nil, "a.txt", []byte("first")),
		NewEntry(nil, "m.txt", []byte("middle")),
	}

	var buf bytes.Buffer
	require.NoError(t, Build(orig, []string{"dep.pack"}, &buf, V5, FlagBigHeader, FileTypeMod, 99))

	a, err := Parse(buf.Bytes(), true)
	require.NoError(t, err)

	var rebuilt []*Entry

	it := a.Iter()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		rebuilt = append(rebuilt, e)
	}
	require.NoError(t, it.Err())
	require.Len(t, rebuilt, 3)

	wantSnaps := []entrySnapshot{
		snapshot(t, NewEntry(nil, "a.txt", []byte("first"))),
		snapshot(t, NewEntry(nil, "m.txt", []byte("middle"))),
		snapshot(t, NewEntry(nil, "z.txt", []byte("last"))),
	}

	gotSnaps := make([]entrySnapshot, len(rebuilt))
	for i, e := range rebuilt {
		gotSnaps[i] = snapshot(t, e)
	}

	if diff := cmp.Diff(wantSnaps, gotSnaps); diff != "" {
		t.Fatalf("entry mismatch after round-trip (-want +got):\n%s", diff)
	}

	var buf2 bytes.Buffer
	require.NoError(t, Build(rebuilt, a.PackFileNames(), &buf2, a.Version(), a.Flags(), a.FileType(), a.Timestamp()))

	require.True(t, bytes.Equal(buf.Bytes(), buf2.Bytes()))

	require.NoError(t, a.Close())
}

// P6: flag bits set on read equal flag bits set on write for unchanged
// flags (checked across every documented combination the builder
// accepts).
func TestFlagsPreservedProperty(t *testing.T) {
	combos := []Flags{
		0,
		FlagBigHeader,
		FlagIndexWithTimestamps,
		FlagBigHeader | FlagIndexWithTimestamps,
	}

	for _, flags := range combos {
		var buf bytes.Buffer
		require.NoError(t, Build(nil, nil, &buf, V5, flags, FileTypeBoot, 0))

		a, err := Parse(buf.Bytes(), false)
		require.NoError(t, err)
		require.Equal(t, flags, a.Flags())
		require.NoError(t, a.Close())
	}
}

func putU32LE(b []byte, offset int, v uint32) {
	b[offset] = byte(v)
	b[offset+1] = byte(v >> 8)
	b[offset+2] = byte(v >> 16)
	b[offset+3] = byte(v >> 24)
}
