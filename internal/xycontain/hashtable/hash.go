package hashtable

import (
	"encoding/binary"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Hasher maps a key to a 64-bit hash. Spec.md §6 places only one contract
// on it: determinism within a process run. H1 (the probe group) and H2
// (the in-group tag) are both derived from its result by the table, not
// by the Hasher itself.
type Hasher[K comparable] func(key K) uint64

// keyBytes views key's in-memory representation as a byte slice. It is
// only valid for fixed-size, pointer-free key types (integers, bools,
// arrays/structs built of those): such keys have no indirection, so
// hashing their raw bytes is equivalent to hashing their value. Keys with
// indirection (strings, slices, pointers, interfaces) must use a
// dedicated Hasher such as StringHash64 instead.
func keyBytes[K comparable](key K) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&key)), int(unsafe.Sizeof(key)))
}

// XXHash64 is the default Hasher, grounded on xxhash — already a direct
// teacher dependency (restic hashes pack headers with it) — repurposed
// here as the table's fast default mix.
func XXHash64[K comparable](key K) uint64 {
	return xxhash.Sum64(keyBytes(key))
}

// StringHash64 hashes a string key's content directly, for tables keyed
// by string (whose in-memory representation is a pointer+length header,
// not suitable for XXHash64's raw-bytes approach).
func StringHash64(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Blake2b64 is an alternate, higher-quality (not merely fast) Hasher for
// keys drawn from an adversarial source, taking the leading 8 bytes of a
// blake2b-256 digest. golang.org/x/crypto/blake2b is a teacher dependency
// previously used only for restic's repository KDF; xylu repurposes it as
// a pluggable table hasher, the same way restic offers alternate KDF
// parameters.
func Blake2b64[K comparable](key K) uint64 {
	sum := blake2b.Sum256(keyBytes(key))
	return binary.LittleEndian.Uint64(sum[:8])
}
