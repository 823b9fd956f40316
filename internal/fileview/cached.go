package fileview

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/google/readahead"

	"github.com/totalwar/packfile/internal/logging"
)

var cachedLog = logging.Module("fileview.cached")

// blockSize is the granularity of the cachedView's LRU block cache.
const blockSize = 64 * 1024

// cachedBlocks is how many blocks are kept resident per archive; plenty
// for the sequential scans a parse/build pass over a PackFile performs.
const cachedBlocks = 256

type cachedShared struct {
	f      *os.File
	size   int64
	blocks *lru.Cache
	refs   int32
	mu     sync.Mutex
}

func (s *cachedShared) close() error {
	if atomic.AddInt32(&s.refs, -1) > 0 {
		return nil
	}

	cachedLog.Debugf("closing cached file view")

	return s.f.Close()
}

func (s *cachedShared) block(idx int64) ([]byte, error) {
	if v, ok := s.blocks.Get(idx); ok {
		return v.([]byte), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.blocks.Get(idx); ok {
		return v.([]byte), nil
	}

	offset := idx * blockSize
	want := blockSize

	if remaining := s.size - offset; remaining < int64(want) {
		want = int(remaining)
	}

	buf := make([]byte, want)
	if _, err := s.f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, err
	}

	s.blocks.Add(idx, buf)

	// Prime the next block in the background: most callers of this
	// view scan the archive's index and content regions sequentially.
	if next := idx + 1; next*blockSize < s.size {
		go s.prefetch(next)
	}

	return buf, nil
}

func (s *cachedShared) prefetch(idx int64) {
	if _, ok := s.blocks.Get(idx); ok {
		return
	}

	offset := idx * blockSize
	sr := io.NewSectionReader(s.f, offset, blockSize)
	rr := readahead.NewReader(sr)

	defer rr.Close() //nolint:errcheck

	buf, err := io.ReadAll(rr)
	if err != nil && len(buf) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks.Get(idx); !ok {
		s.blocks.Add(idx, buf)
	}
}

// cachedView is a View backed by a plain *os.File plus an LRU block
// cache, for platforms or callers that prefer not to memory-map.
type cachedView struct {
	s *cachedShared
}

// OpenCached opens path and returns a View backed by an LRU block cache
// over ordinary ReadAt calls, with background sequential prefetch.
func OpenCached(path string) (View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck

		return nil, err
	}

	blocks, err := lru.New(cachedBlocks)
	if err != nil {
		f.Close() //nolint:errcheck

		return nil, err
	}

	return &cachedView{s: &cachedShared{f: f, size: fi.Size(), blocks: blocks, refs: 1}}, nil
}

func (v *cachedView) Length() uint64 {
	return uint64(v.s.size)
}

func (v *cachedView) Read(start, end uint64) ([]byte, error) {
	if end < start || int64(end) > v.s.size {
		return nil, ErrOutOfRange
	}

	out := make([]byte, 0, end-start)

	for pos := start; pos < end; {
		idx := int64(pos) / blockSize
		blockStart := uint64(idx * blockSize)

		block, err := v.s.block(idx)
		if err != nil {
			return nil, err
		}

		from := pos - blockStart
		to := uint64(len(block))

		if blockEnd := blockStart + uint64(len(block)); end < blockEnd {
			to = end - blockStart
		}

		if from >= to {
			break
		}

		out = append(out, block[from:to]...)
		pos = blockStart + to
	}

	return out, nil
}

func (v *cachedView) Clone() View {
	atomic.AddInt32(&v.s.refs, 1)
	return &cachedView{s: v.s}
}

func (v *cachedView) Close() error {
	return v.s.close()
}
