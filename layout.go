package packfile

// staticHeaderSize implements the static-header size rule (spec.md §3):
// V4 is always 0x1C; V5 is 0x30 with FlagBigHeader set, else 0x1C.
func staticHeaderSize(version Version, flags Flags) uint32 {
	if version == V5 && flags.Has(FlagBigHeader) {
		return 0x30
	}

	return 0x1C
}

// hasSeparatorByte reports whether each packed-file index entry carries
// the single ignored separator byte between the optional timestamp and
// the path (V5 without BIG_HEADER only).
func hasSeparatorByte(version Version, flags Flags) bool {
	return version == V5 && !flags.Has(FlagBigHeader)
}

// hasContentPadding reports whether content slots are padded up to a
// multiple of 8 bytes (V5 with ENCRYPTED_CONTENT only).
func hasContentPadding(version Version, flags Flags) bool {
	return version == V5 && flags.Has(FlagEncryptedContent)
}

// layout is the set of derived, flag-dependent offsets and sizes needed
// to locate the two indexes and the content region.
type layout struct {
	staticHeaderSize    uint32
	packFileIndexSize   uint32
	packedFileIndexSize uint32

	packFileIndexBase   uint64 // start of the pack-file-name index
	packedFileIndexBase uint64 // start of the packed-file index
	contentBase         uint64 // start of the content region
}

// computeLayout derives offsets from the header fields already read from
// the static header (pack-file-index size, packed-file-index size).
func computeLayout(version Version, flags Flags, packFileIndexSize, packedFileIndexSize uint32) layout {
	shs := staticHeaderSize(version, flags)

	l := layout{
		staticHeaderSize:    shs,
		packFileIndexSize:   packFileIndexSize,
		packedFileIndexSize: packedFileIndexSize,
		packFileIndexBase:   uint64(shs),
		packedFileIndexBase: uint64(shs) + uint64(packFileIndexSize),
	}

	contentBaseUnpadded := l.packedFileIndexBase + uint64(packedFileIndexSize)

	if hasContentPadding(version, flags) {
		l.contentBase = roundUp8(contentBaseUnpadded)
	} else {
		l.contentBase = contentBaseUnpadded
	}

	return l
}

func roundUp8(n uint64) uint64 {
	if r := n % 8; r != 0 {
		return n + (8 - r)
	}

	return n
}

// indexEntrySize computes the on-disk size of one packed-file index
// entry given its path length, used by the builder to precompute the
// packed-file-index size before writing.
func indexEntrySize(version Version, flags Flags, pathLen int) uint32 {
	n := uint32(4) // data_length

	if flags.Has(FlagIndexWithTimestamps) {
		n += 4
	}

	if hasSeparatorByte(version, flags) {
		n++
	}

	n += uint32(pathLen) + 1 // path + NUL

	return n
}
