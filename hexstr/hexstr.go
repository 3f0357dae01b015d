// Package hexstr converts between raw bytes and the whitespace-separated
// hexadecimal octet notation that wire-format documentation is written in,
// such as "07 03 99 AF 00". The table engine itself only ever consumes and
// produces raw bytes; this package is the boundary to the textual notation.
package hexstr

import (
	"fmt"
	"strings"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/wiretable/errors"
)

// Parse converts hexadecimal octet notation to raw bytes. Spaces, tabs and
// newlines between digits are ignored, so "9F5B 07", "9F 5B 07" and "9F5B07"
// all decode to the same three bytes. An odd number of digits is left-padded
// with a zero nibble, matching how the notation treats "7 03" as "07 03".
func Parse(s string) ([]byte, error) {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			continue
		case c >= '0' && c <= '9':
			digits = append(digits, c-'0')
		case c >= 'a' && c <= 'f':
			digits = append(digits, c-'a'+10)
		case c >= 'A' && c <= 'F':
			digits = append(digits, c-'A'+10)
		default:
			return nil, errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
				fmt.Errorf("position %d: %q is not a hexadecimal digit", i, c))
		}
	}
	if len(digits) == 0 {
		return nil, nil
	}
	if len(digits)%2 == 1 {
		digits = append([]byte{0}, digits...)
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = digits[2*i]<<4 | digits[2*i+1]
	}
	return out, nil
}

// MustParse is Parse but panics on bad notation. Meant for fixed declarations
// and tests.
func MustParse(s string) []byte {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Format renders b as uppercase hexadecimal octets separated by single
// spaces. An empty slice renders as the empty string.
func Format(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	const hexDigits = "0123456789ABCDEF"
	sb := strings.Builder{}
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0F])
	}
	return sb.String()
}
