package table

// cursor is a read cursor over a byte buffer. It tracks the current offset
// and hands out sub-slices of the underlying buffer; callers that retain a
// slice must copy it.
type cursor struct {
	buf []byte
	off int
}

func newCursor(b []byte) *cursor {
	return &cursor{buf: b}
}

// remaining reports how many bytes have not been consumed.
func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

// peek returns up to n unconsumed bytes without advancing the offset.
func (c *cursor) peek(n int) []byte {
	if n < 0 {
		return nil
	}
	if r := c.remaining(); n > r {
		n = r
	}
	return c.buf[c.off : c.off+n]
}

// take consumes n bytes and returns them. It reports false without advancing
// when fewer than n bytes remain.
func (c *cursor) take(n int) ([]byte, bool) {
	if n < 0 || n > c.remaining() {
		return nil, false
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, true
}
