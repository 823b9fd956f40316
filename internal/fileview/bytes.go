package fileview

// bytesView is a trivial in-memory View used by tests that want to
// exercise the parser/builder without touching a real file.
type bytesView struct {
	data []byte
}

// FromBytes wraps data in a View. Clone/Close are no-ops: there is no
// underlying resource to share or release.
func FromBytes(data []byte) View {
	return &bytesView{data: data}
}

func (v *bytesView) Length() uint64 {
	return uint64(len(v.data))
}

func (v *bytesView) Read(start, end uint64) ([]byte, error) {
	if end < start || end > uint64(len(v.data)) {
		return nil, ErrOutOfRange
	}

	out := make([]byte, end-start)
	copy(out, v.data[start:end])

	return out, nil
}

func (v *bytesView) Clone() View {
	return v
}

func (v *bytesView) Close() error {
	return nil
}
