// Package tlv provides size resolvers, update functions and prebuilt tables
// for BER-style tag-length-value records.
//
// Tags are one byte unless the low five bits of the first byte are all set,
// in which case the tag continues into a second byte. Lengths use the short
// form (one byte, values below 0x80) or the long form (a prefix byte with
// the high bit set whose low nibble counts the big-endian length bytes that
// follow).
package tlv

import (
	"fmt"
	"math"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/wiretable/errors"
	"github.com/bearlytools/wiretable/field"
	"github.com/bearlytools/wiretable/internal/binary"
	"github.com/bearlytools/wiretable/table"
)

// TagSize resolves the width of a BER tag by peeking at the next byte.
// When no input remains it resolves to 1 so that constructed records get
// a one-byte tag.
func TagSize(ctx field.Context) (int, error) {
	b := ctx.Peek(1)
	if len(b) == 0 {
		return 1, nil
	}
	if b[0]&0x1F == 0x1F {
		return 2, nil
	}
	return 1, nil
}

// LenSize resolves the width of a BER length by peeking at the next byte.
// A high bit means the long form: the low nibble counts the length bytes
// that follow the prefix.
func LenSize(ctx field.Context) (int, error) {
	b := ctx.Peek(1)
	if len(b) == 0 {
		return 1, nil
	}
	if b[0]&0x80 == 0x80 {
		return 1 + int(b[0]&0x0F), nil
	}
	return 1, nil
}

// ValueSize returns a resolver that reads the value width out of an earlier
// length field named lenField.
func ValueSize(lenField string) field.Sizer {
	return func(ctx field.Context) (int, error) {
		l, err := ctx.Field(lenField)
		if err != nil {
			return 0, err
		}
		switch {
		case len(l) == 0:
			return 0, nil
		case l[0]&0x80 == 0x80:
			if len(l) == 1 {
				return 0, fmt.Errorf("length field %q: long form prefix with no length bytes", lenField)
			}
			if len(l)-1 > 8 {
				return 0, fmt.Errorf("length field %q: %d length bytes exceeds the 8 byte integer width", lenField, len(l)-1)
			}
			n := binary.Uint[uint64](l[1:])
			if n > math.MaxInt32 {
				return 0, fmt.Errorf("length field %q: %d overflows", lenField, n)
			}
			return int(n), nil
		default:
			return int(l[0]), nil
		}
	}
}

// UpdateLen encodes the byte count of source as a BER length. Counts below
// 0x80 use the short form; everything else gets a long form prefix over the
// minimal big-endian encoding, so a 0x80 byte value encodes as "81 80".
func UpdateLen(source []byte) ([]byte, error) {
	n := len(source)
	if n < 0x80 {
		return []byte{byte(n)}, nil
	}
	k := binary.AppendUint(nil, uint64(n))
	if len(k) > 0x0F {
		return nil, fmt.Errorf("length %d needs %d length bytes, the long form carries at most 15", n, len(k))
	}
	out := make([]byte, 0, 1+len(k))
	out = append(out, 0x80|byte(len(k)))
	return append(out, k...), nil
}

// FixedLen returns an update encoding the byte count of the source as a
// big-endian integer of exactly width bytes, for formats whose length field
// has a fixed width instead of the BER short/long split.
func FixedLen(width int) field.Update {
	return func(source []byte) ([]byte, error) {
		if width <= 0 || width > 8 {
			return nil, fmt.Errorf("fixed length width must be 1 to 8 bytes, got %d", width)
		}
		n := uint64(len(source))
		if binary.Width(n) > width {
			return nil, fmt.Errorf("value of %d bytes does not fit a %d byte length", len(source), width)
		}
		out := make([]byte, width)
		binary.PutUint(out, n)
		return out, nil
	}
}

func mustAdd(b *table.Builder, name string, size field.Sizer, options ...table.AddOption) {
	if err := b.Add(name, size, options...); err != nil {
		panic(err)
	}
}

func mustDone(b *table.Builder) *table.Table {
	t, err := b.Done()
	if err != nil {
		panic(err)
	}
	return t
}

// New returns the full tag-length-value table. Len is bound to Value, so
// setting Value rewrites Len.
func New() *table.Table {
	b := table.NewBuilder("TLV")
	mustAdd(b, "Tag", TagSize, table.WithDefault([]byte{0x00}))
	mustAdd(b, "Len", LenSize, table.WithBinding("Value", UpdateLen))
	mustAdd(b, "Value", ValueSize("Len"), table.WithDefault([]byte{0x00}))
	return mustDone(b)
}

// NewLV returns the length-value table: a TLV without the tag.
func NewLV() *table.Table {
	b := table.NewBuilder("LV")
	mustAdd(b, "Len", LenSize, table.WithBinding("Value", UpdateLen))
	mustAdd(b, "Value", ValueSize("Len"), table.WithDefault([]byte{0x00}))
	return mustDone(b)
}

// NewTL returns the tag-length table used for data object lists, where a
// length is declared but no value bytes follow. Len is unbound here since
// there is no value to track.
func NewTL() *table.Table {
	b := table.NewBuilder("TL")
	mustAdd(b, "Tag", TagSize, table.WithDefault([]byte{0x00}))
	mustAdd(b, "Len", LenSize, table.WithDefault([]byte{0x00}))
	return mustDone(b)
}

// NewList returns a repeater over the TLV table.
func NewList(options ...table.RepeatOption) *table.Repeater {
	return table.NewRepeater(New(), options...)
}

// NewLVList returns a repeater over the LV table.
func NewLVList(options ...table.RepeatOption) *table.Repeater {
	return table.NewRepeater(NewLV(), options...)
}

// NewTLList returns a repeater over the TL table.
func NewTLList(options ...table.RepeatOption) *table.Repeater {
	return table.NewRepeater(NewTL(), options...)
}

// ParseWithDOL splits data according to a data object list: a sequence of
// tag-length instances whose lengths dictate how many bytes each output
// value takes. The result pairs each DOL entry's tag with the bytes it
// claims, as full TLV instances.
func ParseWithDOL(data []byte, dol []*table.Instance) ([]*table.Instance, error) {
	ctx := context.Background()
	t := New()
	out := make([]*table.Instance, 0, len(dol))
	off := 0
	for i, tl := range dol {
		tag, err := tl.Get("Tag")
		if err != nil {
			return nil, fmt.Errorf("data object list entry %d: %w", i, err)
		}
		l, err := tl.Get("Len")
		if err != nil {
			return nil, fmt.Errorf("data object list entry %d: %w", i, err)
		}
		size, err := ValueSize("Len")(dolContext{l})
		if err != nil {
			return nil, fmt.Errorf("data object list entry %d: %w", i, err)
		}
		if off+size > len(data) {
			return nil, errors.E(ctx, errors.CatUser, errors.TypeTruncatedInput,
				fmt.Errorf("data object list entry %d wants %d bytes at offset %d, %d remain: %w",
					i, size, off, len(data)-off, errors.ErrTruncatedInput))
		}
		inst, err := t.Construct(map[string][]byte{
			"Tag":   tag,
			"Value": data[off : off+size],
		})
		if err != nil {
			return nil, fmt.Errorf("data object list entry %d: %w", i, err)
		}
		out = append(out, inst)
		off += size
	}
	if off != len(data) {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter,
			fmt.Errorf("data object list consumed %d of %d bytes", off, len(data)))
	}
	return out, nil
}

// dolContext adapts a bare length value to field.Context so ValueSize can
// decode it outside a parse.
type dolContext struct {
	l []byte
}

func (d dolContext) Field(name string) ([]byte, error) { return d.l, nil }
func (d dolContext) Remaining() int                    { return 0 }
func (d dolContext) Peek(n int) []byte                 { return nil }
