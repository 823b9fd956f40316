// Package cipher implements the two small obfuscation primitives used by
// encrypted PackFile indexes and content, ported from
// original_source/src/crypto.rs. They are game-engine obfuscation, not
// cryptographic security.
package cipher

import "encoding/binary"

// IndexKey is the fixed 64-byte literal used to roll the filename XOR key.
const IndexKey = "L2{B3dPL7L*v&+Q3ZsusUhy[BGQn(Uq$f>JQdnvdlf{-K:>OssVDr#TlYU|13B}r"

// lengthXORConstant is XORed into every obfuscated index length word.
const lengthXORConstant uint32 = 0x15091984

// contentFileKey is the 64-bit multiplier driving the content block cipher.
const contentFileKey uint64 = 0x8FEB2A6740A6920E

func keyAt(pos int) byte {
	return IndexKey[pos%len(IndexKey)]
}

// DecryptLength recovers a packed-file's plaintext data_length from its
// on-disk ciphertext word. entryIndexFromEnd is the zero-based index
// counting down from count-1 to 0 as entries are produced in order —
// the obfuscator keys by decreasing index.
//
// The operation is its own inverse: EncryptLength is the same function.
func DecryptLength(entryIndexFromEnd uint32, ciphertext uint32) uint32 {
	return entryIndexFromEnd ^ ciphertext ^ lengthXORConstant
}

// EncryptLength is the XOR-symmetric inverse of DecryptLength, used to
// build encrypted test fixtures (the builder itself never encrypts).
func EncryptLength(entryIndexFromEnd uint32, plaintext uint32) uint32 {
	return DecryptLength(entryIndexFromEnd, plaintext)
}

// DecryptFilename decodes a NUL-terminated path from ciphertext starting
// at offset 0, using the session key derived from the entry's decrypted
// length (data_length & 0xFF). It returns the plaintext without its
// trailing NUL and the number of ciphertext bytes consumed, including
// the terminator.
//
// ok is false if ciphertext is exhausted before a terminating byte is
// produced; the caller must treat that as a truncated/invalid file.
func DecryptFilename(ciphertext []byte, key byte) (plaintext []byte, consumed int, ok bool) {
	for i, c := range ciphertext {
		p := c ^ key ^ keyAt(i)
		if p == 0 {
			return plaintext, i + 1, true
		}

		plaintext = append(plaintext, p)
	}

	return nil, 0, false
}

// EncryptFilename is the inverse of DecryptFilename: it appends the
// terminating NUL to plain and XOR-encodes the result, producing the
// ciphertext DecryptFilename(result, key) would decode back to plain.
func EncryptFilename(plain []byte, key byte) []byte {
	out := make([]byte, len(plain)+1)

	for i := range plain {
		out[i] = plain[i] ^ key ^ keyAt(i)
	}

	out[len(plain)] = 0 ^ key ^ keyAt(len(plain))

	return out
}

// DecryptContent decrypts an 8-byte-block ciphertext (zero-padding any
// final partial block, per spec) and truncates the result to
// declaredLen. declaredLen must be <= len(ciphertext) rounded up to 8.
func DecryptContent(ciphertext []byte, declaredLen int) []byte {
	return cryptBlocks(ciphertext, declaredLen)
}

// EncryptContent is the XOR-symmetric inverse of DecryptContent: encoding
// plaintext with this function produces ciphertext that DecryptContent
// decodes back to plaintext (truncated to its own length).
func EncryptContent(plaintext []byte) []byte {
	return cryptBlocks(plaintext, len(plaintext))
}

// cryptBlocks implements the shared block transform: for each 8-byte
// block i (edi = 8*i), mask = contentFileKey * ^edi (64-bit wrapping),
// split into two little-endian u32 halves, and XOR them against the
// corresponding input words (zero-padding reads past the end of data).
func cryptBlocks(data []byte, truncateTo int) []byte {
	blockCount := (len(data) + 7) / 8
	out := make([]byte, 0, blockCount*8)

	var edi uint32

	for i := 0; i < blockCount; i++ {
		mask := contentFileKey * uint64(^edi)
		maskLo := uint32(mask & 0xFFFFFFFF)
		maskHi := uint32(mask >> 32)

		lo := readPaddedU32(data, 8*i)
		hi := readPaddedU32(data, 8*i+4)

		var word [8]byte
		binary.LittleEndian.PutUint32(word[0:4], maskLo^lo)
		binary.LittleEndian.PutUint32(word[4:8], maskHi^hi)
		out = append(out, word[:]...)

		edi += 8
	}

	if truncateTo < len(out) {
		out = out[:truncateTo]
	} else if truncateTo > len(out) {
		// declaredLen claims more than the supplied ciphertext can
		// produce; the caller is expected to have sized ciphertext
		// correctly, but pad rather than panic.
		padded := make([]byte, truncateTo)
		copy(padded, out)
		out = padded
	}

	return out
}

// readPaddedU32 reads a little-endian u32 at offset, treating any bytes
// beyond len(data) as zero.
func readPaddedU32(data []byte, offset int) uint32 {
	if offset+4 <= len(data) {
		return binary.LittleEndian.Uint32(data[offset : offset+4])
	}

	var buf [4]byte

	if offset < len(data) {
		copy(buf[:], data[offset:])
	}

	return binary.LittleEndian.Uint32(buf[:])
}
