// Package packfile reads and writes PackFile container archives used by
// the Total War family of strategy game engines.
//
// A PackFile bundles many logically-named inner files ("packed files")
// into one monolithic binary with a structured header, a pack-file-name
// (dependency) index, a packed-file index, and a content region. Some
// variants carry an obfuscated index and/or obfuscated content using a
// small custom cipher; see internal/cipher.
//
// A non-eager parse reads only the header and the pack-file-name index:
// packed-file bytes are resolved lazily through a shared,
// range-addressable file view (internal/fileview) the first time a
// caller asks for an Entry's data. An eager parse reads every entry's
// data before returning.
package packfile
