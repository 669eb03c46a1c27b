// Package fasthash contains the djb2 string hash used as the key space of the
// lookup tables.
package fasthash

// seed is the initial value of the djb2 hash.
const seed uint32 = 5381

// String implements the djb2 hash algorithm for a string.  The hash of an
// empty string is the seed.
func String(str string) (hash uint32) {
	return Range(str, 0, len(str))
}

// Range returns the djb2 hash of str[start:end] without allocating the
// substring.  String(str[start:end]) and Range(str, start, end) are always
// equal.  start and end must be valid bounds of str.
func Range(str string, start, end int) (hash uint32) {
	hash = seed
	for i := start; i < end; i++ {
		hash = (hash * 33) ^ uint32(str[i])
	}

	return hash
}
