package fileview

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/totalwar/packfile/internal/logging"
)

var mmapLog = logging.Module("fileview.mmap")

// shared is the refcounted state behind every clone of an mmapView.
type shared struct {
	f    *os.File
	m    mmap.MMap
	refs int32
	mu   sync.Mutex
}

func (s *shared) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if atomic.AddInt32(&s.refs, -1) > 0 {
		return nil
	}

	mmapLog.Debugf("unmapping and closing file")

	unmapErr := s.m.Unmap()
	closeErr := s.f.Close()

	if unmapErr != nil {
		return unmapErr
	}

	return closeErr
}

// mmapView is a View backed by a memory-mapped file, shared (ref-counted)
// across clones.
type mmapView struct {
	s *shared
}

// OpenMmap memory-maps path read-only and returns a View over it.
func OpenMmap(path string) (View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck

		return nil, err
	}

	if fi.Size() == 0 {
		// mmap.Map refuses to map a zero-length file; serve it from a
		// trivial empty in-memory view instead.
		f.Close() //nolint:errcheck

		return FromBytes(nil), nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close() //nolint:errcheck

		return nil, err
	}

	return &mmapView{s: &shared{f: f, m: m, refs: 1}}, nil
}

func (v *mmapView) Length() uint64 {
	return uint64(len(v.s.m))
}

func (v *mmapView) Read(start, end uint64) ([]byte, error) {
	if end < start || end > uint64(len(v.s.m)) {
		return nil, ErrOutOfRange
	}

	out := make([]byte, end-start)
	copy(out, v.s.m[start:end])

	return out, nil
}

func (v *mmapView) Clone() View {
	atomic.AddInt32(&v.s.refs, 1)
	return &mmapView{s: v.s}
}

func (v *mmapView) Close() error {
	return v.s.close()
}
