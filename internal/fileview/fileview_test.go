package fileview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archive.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestFromBytesRead(t *testing.T) {
	v := FromBytes([]byte("hello world"))
	require.EqualValues(t, 11, v.Length())

	got, err := v.Read(6, 11)
	require.NoError(t, err)
	require.Equal(t, "world", string(got))

	_, err = v.Read(0, 12)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestMmapViewReadAndClone(t *testing.T) {
	data := make([]byte, 200_000)
	for i := range data {
		data[i] = byte(i)
	}

	path := writeTemp(t, data)

	v, err := OpenMmap(path)
	require.NoError(t, err)

	require.EqualValues(t, len(data), v.Length())

	got, err := v.Read(10, 20)
	require.NoError(t, err)
	require.Equal(t, data[10:20], got)

	clone := v.Clone()

	got2, err := clone.Read(100_000, 100_010)
	require.NoError(t, err)
	require.Equal(t, data[100_000:100_010], got2)

	require.NoError(t, clone.Close())

	// original handle still usable after the clone closes.
	_, err = v.Read(0, 10)
	require.NoError(t, err)

	require.NoError(t, v.Close())
}

func TestMmapViewEmptyFile(t *testing.T) {
	path := writeTemp(t, nil)

	v, err := OpenMmap(path)
	require.NoError(t, err)
	require.EqualValues(t, 0, v.Length())
	require.NoError(t, v.Close())
}

func TestCachedViewReadSpansBlocks(t *testing.T) {
	data := make([]byte, blockSize*3+17)
	for i := range data {
		data[i] = byte(i * 3)
	}

	path := writeTemp(t, data)

	v, err := OpenCached(path)
	require.NoError(t, err)
	defer v.Close() //nolint:errcheck

	got, err := v.Read(blockSize-5, blockSize+10)
	require.NoError(t, err)
	require.Equal(t, data[blockSize-5:blockSize+10], got)

	got, err = v.Read(0, uint64(len(data)))
	require.NoError(t, err)
	require.Equal(t, data, got)

	_, err = v.Read(0, uint64(len(data))+1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestOpenStrategies(t *testing.T) {
	path := writeTemp(t, []byte("abcdef"))

	mv, err := Open(path, Mmap)
	require.NoError(t, err)
	defer mv.Close() //nolint:errcheck

	cv, err := Open(path, Cached)
	require.NoError(t, err)
	defer cv.Close() //nolint:errcheck

	mb, err := mv.Read(0, 6)
	require.NoError(t, err)

	cb, err := cv.Read(0, 6)
	require.NoError(t, err)

	require.Equal(t, mb, cb)
}
