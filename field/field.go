// Package field describes the declarations that make up a table: how many
// bytes a field occupies on the wire, what value it starts with and how its
// value derives from other fields.
package field

import (
	"fmt"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/wiretable/errors"
)

// Kind represents the kind of a field declaration.
type Kind uint8

const (
	KindUnknown Kind = 0
	// KindValue is a field whose bytes stand on their own: parse input, an
	// override or its declared default.
	KindValue Kind = 1
	// KindBound is a field whose value derives from another field through an
	// Update function.
	KindBound Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "Value"
	case KindBound:
		return "Bound"
	}
	return "Unknown"
}

// Context is the view a Sizer gets of an in-progress parse pass.
type Context interface {
	// Field returns the value of a field resolved earlier in the same pass.
	// Asking for a field that has not been resolved yet is a size-resolution
	// error; asking for a name the table does not declare is an
	// unknown-field error.
	Field(name string) ([]byte, error)

	// Remaining reports how many bytes of the input have not been consumed.
	Remaining() int

	// Peek returns up to n unconsumed bytes without consuming them. Fewer
	// bytes than asked for, including none, means the input is shorter.
	Peek(n int) []byte
}

// Sizer reports how many bytes the next field occupies. It may read fields
// resolved earlier in the pass and look at the unconsumed input, but it must
// be a deterministic function of those. A Sizer may report a size larger than
// the remaining input; the table reports that as truncation.
type Sizer func(ctx Context) (int, error)

// Fixed returns a Sizer that always reports n bytes.
func Fixed(n int) Sizer {
	return func(ctx Context) (int, error) {
		if n < 0 {
			return 0, errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
				fmt.Errorf("Fixed() size cannot be negative, got %d", n))
		}
		return n, nil
	}
}

// Rest returns a Sizer that consumes everything left in the input except
// reserve bytes, which are left for the fields declared after this one.
func Rest(reserve int) Sizer {
	return func(ctx Context) (int, error) {
		if reserve < 0 {
			return 0, errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
				fmt.Errorf("Rest() reserve cannot be negative, got %d", reserve))
		}
		r := ctx.Remaining() - reserve
		if r < 0 {
			return 0, fmt.Errorf("%d bytes remain, %d reserved for later fields: %w",
				ctx.Remaining(), reserve, errors.ErrTruncatedInput)
		}
		return r, nil
	}
}

// Update derives a bound field's value from its source field's value.
type Update func(source []byte) ([]byte, error)

// Binding ties a field's value to another field in the same table: whenever
// Source changes, the bound field is recomputed through Update.
type Binding struct {
	// Source is the name of the field this binding derives from.
	Source string
	// Update computes the bound field's value from Source's value.
	Update Update
}

// Descr describes a single field within a table.
type Descr struct {
	// Name is the field's unique name within its table.
	Name string
	// Kind is the kind of the field.
	Kind Kind
	// Size resolves the field's byte length during parsing.
	Size Sizer
	// Default holds the bytes used when neither parse input, a binding nor an
	// override supplies a value. Only meaningful when Kind == KindValue.
	Default []byte
	// Binding is set when Kind == KindBound.
	Binding *Binding
}
