package packfile

import "fmt"

// Version identifies the on-disk layout of a PackFile, selected by its
// 32-bit preamble.
type Version int

const (
	// VersionUnsupported covers the three legacy preambles (PFH0, PFH2,
	// PFH3) that this library detects but does not parse.
	VersionUnsupported Version = iota
	// V4 is preamble PFH4 (0x34484650).
	V4
	// V5 is preamble PFH5 (0x35484650).
	V5
)

func (v Version) String() string {
	switch v {
	case V4:
		return "V4"
	case V5:
		return "V5"
	default:
		return "Unsupported"
	}
}

const (
	preambleV4 uint32 = 0x34484650
	preambleV5 uint32 = 0x35484650

	preambleLegacyPFH0 uint32 = 0x30484650
	preambleLegacyPFH2 uint32 = 0x32484650
	preambleLegacyPFH3 uint32 = 0x33484650
)

func versionFromPreamble(preamble uint32) (Version, bool) {
	switch preamble {
	case preambleV4:
		return V4, true
	case preambleV5:
		return V5, true
	case preambleLegacyPFH0, preambleLegacyPFH2, preambleLegacyPFH3:
		return VersionUnsupported, true
	default:
		return VersionUnsupported, false
	}
}

func (v Version) preamble() uint32 {
	switch v {
	case V4:
		return preambleV4
	case V5:
		return preambleV5
	default:
		panic(fmt.Sprintf("packfile: no preamble for version %v", v))
	}
}

// FileType is the archive's declared purpose, carried in the low 4 bits
// of the header's flags word. Parse rejects values 5 and above with
// ErrInvalidHeader; String reports any such value as Other(n).
type FileType uint32

const (
	FileTypeBoot    FileType = 0
	FileTypeRelease FileType = 1
	FileTypePatch   FileType = 2
	FileTypeMod     FileType = 3
	FileTypeMovie   FileType = 4
)

func (t FileType) String() string {
	switch t {
	case FileTypeBoot:
		return "Boot"
	case FileTypeRelease:
		return "Release"
	case FileTypePatch:
		return "Patch"
	case FileTypeMod:
		return "Mod"
	case FileTypeMovie:
		return "Movie"
	default:
		return fmt.Sprintf("Other(%d)", uint32(t))
	}
}

// Flags is the set of documented high bits of the header's flags word.
// The low 4 bits (FileType) are never part of Flags.
type Flags uint32

const (
	// FlagBigHeader selects the 0x30-byte static header (V5 only).
	FlagBigHeader Flags = 0x0100
	// FlagEncryptedIndex marks the packed-file index as obfuscated.
	FlagEncryptedIndex Flags = 0x0080
	// FlagIndexWithTimestamps adds a 4-byte timestamp to each index entry.
	FlagIndexWithTimestamps Flags = 0x0040
	// FlagEncryptedContent marks content blocks as obfuscated; on V5
	// this also forces 8-byte content padding.
	FlagEncryptedContent Flags = 0x0010
)

const typeMask uint32 = 0xF
const knownFlagsMask uint32 = uint32(FlagBigHeader | FlagEncryptedIndex | FlagIndexWithTimestamps | FlagEncryptedContent)

// Has reports whether all bits of want are set in f.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}

	var s string

	add := func(bit Flags, name string) {
		if f.Has(bit) {
			if s != "" {
				s += "|"
			}

			s += name
		}
	}

	add(FlagBigHeader, "BIG_HEADER")
	add(FlagEncryptedIndex, "ENCRYPTED_INDEX")
	add(FlagIndexWithTimestamps, "INDEX_WITH_TIMESTAMPS")
	add(FlagEncryptedContent, "ENCRYPTED_CONTENT")

	if reserved := uint32(f) &^ knownFlagsMask; reserved != 0 {
		s += fmt.Sprintf("|reserved(0x%x)", reserved)
	}

	return s
}

func flagsWord(flags Flags, fileType FileType) uint32 {
	return uint32(flags) | (uint32(fileType) & typeMask)
}

func splitFlagsWord(word uint32) (Flags, FileType) {
	return Flags(word &^ typeMask), FileType(word & typeMask)
}
