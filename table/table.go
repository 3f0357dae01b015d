// Package table implements declarative definitions of variable-length binary
// record formats and the engine that parses raw bytes into typed field values
// and unparses them back.
//
// A Table is an ordered, immutable set of field declarations built with a
// Builder. Each declaration carries a size resolver that decides, field by
// field, how many bytes the field occupies during a parse, possibly as a
// function of fields parsed before it. A declaration may instead bind its
// value to another field, so that mutating the source recomputes the bound
// field. Parsing a buffer against a Table produces an Instance; unparsing an
// Instance concatenates its field values in declaration order, and the two
// operations are mutual inverses on the bytes a parse consumed.
//
// Tables are immutable after Done and safe to share across goroutines.
// Instances are owned by their creator and must not be mutated concurrently.
package table

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/wiretable/errors"
	"github.com/bearlytools/wiretable/field"
)

// Table is an ordered, immutable definition of the fields composing one
// record shape.
type Table struct {
	name   string
	fields []field.Descr
	index  map[string]int

	// dependents[i] lists the fields bound to field i, in declaration order.
	dependents [][]int
}

// Name returns the table's name.
func (t *Table) Name() string {
	return t.name
}

// Len reports the number of field declarations.
func (t *Table) Len() int {
	return len(t.fields)
}

// Fields returns a copy of the table's field declarations in order.
func (t *Table) Fields() []field.Descr {
	return slices.Clone(t.fields)
}

// Has reports whether the table declares a field with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Parse walks the field declarations in order, resolving each field's size
// and slicing that many bytes off the front of data. Trailing bytes beyond
// the last field are left unused; Len() of the returned Instance reports how
// much was consumed. Parse never returns a partially filled Instance: if any
// field's resolved size exceeds what remains, the whole parse fails with an
// error wrapping errors.ErrTruncatedInput.
func (t *Table) Parse(data []byte) (*Instance, error) {
	ctx := context.Background()

	cur := newCursor(data)
	inst := &Instance{table: t, values: make([][]byte, len(t.fields))}

	for i, d := range t.fields {
		pc := parseContext{t: t, inst: inst, resolved: i, cur: cur}
		size, err := d.Size(pc)
		if err != nil {
			return nil, errors.E(ctx, errors.CatUser, errors.TypeSizeResolution,
				fmt.Errorf("table %q: field %q at offset %d: %w", t.name, d.Name, cur.off, err))
		}
		if size < 0 {
			return nil, errors.E(ctx, errors.CatUser, errors.TypeSizeResolution,
				fmt.Errorf("table %q: field %q at offset %d: resolver returned negative size %d: %w",
					t.name, d.Name, cur.off, size, errors.ErrSizeResolution))
		}
		raw, ok := cur.take(size)
		if !ok {
			return nil, errors.E(ctx, errors.CatUser, errors.TypeTruncatedInput,
				fmt.Errorf("table %q: field %q at offset %d: need %d bytes, %d remain: %w",
					t.name, d.Name, cur.off, size, cur.remaining(), errors.ErrTruncatedInput))
		}
		inst.values[i] = bytes.Clone(raw)
	}

	return inst, nil
}

// Unparse concatenates the instance's field values in declaration order. It
// is a pure projection of whatever the Instance currently holds: no length
// recomputation occurs.
func (t *Table) Unparse(i *Instance) ([]byte, error) {
	if i == nil || i.table != t {
		return nil, errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
			fmt.Errorf("table %q: instance does not belong to this table", t.name))
	}
	return i.Bytes(), nil
}

// Construct builds an Instance from explicit field values. Fields named in
// overrides take the given bytes; absent bound fields are derived from their
// source's settled value; everything else takes its declared default. Giving
// an explicit value for a bound field wins over derivation until the next
// mutation of its source.
func (t *Table) Construct(overrides map[string][]byte) (*Instance, error) {
	ctx := context.Background()

	for name := range overrides {
		if _, ok := t.index[name]; !ok {
			return nil, errors.E(ctx, errors.CatUser, errors.TypeUnknownField,
				fmt.Errorf("table %q: field %q: %w", t.name, name, errors.ErrUnknownField))
		}
	}

	inst := &Instance{table: t, values: make([][]byte, len(t.fields))}
	settled := make([]bool, len(t.fields))

	// Free fields first: overrides and defaults. An override settles a bound
	// field too.
	for i, d := range t.fields {
		if v, ok := overrides[d.Name]; ok {
			inst.values[i] = bytes.Clone(v)
			settled[i] = true
			continue
		}
		if d.Binding == nil {
			inst.values[i] = bytes.Clone(d.Default)
			settled[i] = true
		}
	}

	// Remaining bound fields derive from their source's settled value. Source
	// chains are acyclic (checked at Done), so the recursion terminates.
	var derive func(i int) error
	derive = func(i int) error {
		if settled[i] {
			return nil
		}
		d := t.fields[i]
		src := t.index[d.Binding.Source]
		if err := derive(src); err != nil {
			return err
		}
		v, err := d.Binding.Update(inst.values[src])
		if err != nil {
			return errors.E(ctx, errors.CatUser, errors.TypeParameter,
				fmt.Errorf("table %q: deriving field %q from %q: %w", t.name, d.Name, d.Binding.Source, err))
		}
		inst.values[i] = v
		settled[i] = true
		return nil
	}
	for i := range t.fields {
		if t.fields[i].Binding != nil {
			if err := derive(i); err != nil {
				return nil, err
			}
		}
	}

	return inst, nil
}

// parseContext is the field.Context handed to size resolvers during Parse.
// Fields with a declaration index below resolved have values.
type parseContext struct {
	t        *Table
	inst     *Instance
	resolved int
	cur      *cursor
}

func (p parseContext) Field(name string) ([]byte, error) {
	ctx := context.Background()

	i, ok := p.t.index[name]
	if !ok {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeUnknownField,
			fmt.Errorf("table %q: field %q: %w", p.t.name, name, errors.ErrUnknownField))
	}
	if i >= p.resolved {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeSizeResolution,
			fmt.Errorf("table %q: field %q is not resolved at this point in the parse: %w",
				p.t.name, name, errors.ErrSizeResolution))
	}
	// A copy, like Instance.Get: a sizer cannot corrupt parsed values.
	return bytes.Clone(p.inst.values[i]), nil
}

func (p parseContext) Remaining() int {
	return p.cur.remaining()
}

func (p parseContext) Peek(n int) []byte {
	return p.cur.peek(n)
}
