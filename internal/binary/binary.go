// Package binary augments the standard library's encoding/binary package for
// the big-endian, variable-width unsigned integers that wire formats such as
// BER-TLV carry, using generics.
package binary

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Uint decodes b as a big-endian unsigned integer of any width up to 8 bytes.
// An empty slice decodes to 0.
func Uint[T constraints.Unsigned](b []byte) T {
	if len(b) > 8 {
		panic(fmt.Sprintf("binary.Uint() cannot decode %d bytes, 8 is the maximum integer width", len(b)))
	}
	var v T
	for _, c := range b {
		v = T(uint64(v)<<8) | T(c)
	}
	return v
}

// PutUint encodes v big-endian into b, using all of len(b) bytes. It panics
// if v does not fit in len(b) bytes.
func PutUint[T constraints.Unsigned](b []byte, v T) {
	if w := Width(uint64(v)); w > len(b) {
		panic(fmt.Sprintf("binary.PutUint() value needs %d bytes, have %d", w, len(b)))
	}
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v = T(uint64(v) >> 8)
	}
}

// AppendUint appends the minimal big-endian encoding of v to dst. Zero
// encodes as a single 0x00 byte.
func AppendUint(dst []byte, v uint64) []byte {
	w := Width(v)
	for i := w - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// Width reports the minimal number of bytes needed to encode v, at least 1.
func Width(v uint64) int {
	w := 1
	for v > 0xFF {
		v >>= 8
		w++
	}
	return w
}
