package fileview

// Strategy selects which View backend Open uses.
type Strategy int

const (
	// Mmap memory-maps the file (the default).
	Mmap Strategy = iota
	// Cached serves reads through an LRU block cache with background
	// sequential prefetch, for callers avoiding mmap.
	Cached
)

// Open opens path as a View using the requested backend.
func Open(path string, strategy Strategy) (View, error) {
	switch strategy {
	case Cached:
		return OpenCached(path)
	default:
		return OpenMmap(path)
	}
}
