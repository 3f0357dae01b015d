package table

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/wiretable/errors"
)

// Instance is a concrete realization of a Table: every declared field holds a
// byte value. An Instance is owned by its creator. Mutation through Set is a
// local, synchronous operation; do not share an Instance across goroutines
// that mutate it.
type Instance struct {
	table  *Table
	values [][]byte
}

// Table returns the definition this Instance realizes.
func (i *Instance) Table() *Table {
	return i.table
}

// Get returns a copy of the named field's current value.
func (i *Instance) Get(name string) ([]byte, error) {
	idx, ok := i.table.index[name]
	if !ok {
		return nil, errors.E(context.Background(), errors.CatUser, errors.TypeUnknownField,
			fmt.Errorf("table %q: field %q: %w", i.table.name, name, errors.ErrUnknownField))
	}
	return bytes.Clone(i.values[idx]), nil
}

// Set replaces the named field's value, then recomputes every field whose
// binding depends on it, directly or transitively, in one synchronous pass.
// Setting a bound field directly overrides its derived value; the override
// holds until the next mutation of the field's source.
func (i *Instance) Set(name string, v []byte) error {
	idx, ok := i.table.index[name]
	if !ok {
		return errors.E(context.Background(), errors.CatUser, errors.TypeUnknownField,
			fmt.Errorf("table %q: field %q: %w", i.table.name, name, errors.ErrUnknownField))
	}
	i.values[idx] = bytes.Clone(v)
	return i.propagate(idx, nil)
}

// propagate recomputes the fields bound to idx and recurses through their own
// dependents. Fields in skip were explicitly overridden in the same operation
// and keep their value; their dependents are settled by their own propagate
// call.
func (i *Instance) propagate(idx int, skip map[int]bool) error {
	for _, d := range i.table.dependents[idx] {
		if skip[d] {
			continue
		}
		fd := i.table.fields[d]
		v, err := fd.Binding.Update(i.values[idx])
		if err != nil {
			return errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
				fmt.Errorf("table %q: recomputing field %q from %q: %w",
					i.table.name, fd.Name, fd.Binding.Source, err))
		}
		i.values[d] = v
		if err := i.propagate(d, skip); err != nil {
			return err
		}
	}
	return nil
}

// WithOverrides returns a new, independent Instance with the named fields
// replaced and their dependents recomputed, equivalent to Construct with the
// receiver's current values merged under overrides. The receiver is never
// mutated.
func (i *Instance) WithOverrides(overrides map[string][]byte) (*Instance, error) {
	skip := make(map[int]bool, len(overrides))
	for name := range overrides {
		idx, ok := i.table.index[name]
		if !ok {
			return nil, errors.E(context.Background(), errors.CatUser, errors.TypeUnknownField,
				fmt.Errorf("table %q: field %q: %w", i.table.name, name, errors.ErrUnknownField))
		}
		skip[idx] = true
	}

	n := i.clone()
	for name, v := range overrides {
		n.values[i.table.index[name]] = bytes.Clone(v)
	}
	// Each bound field has a single source, so propagation from the
	// overridden fields settles everything in any order.
	for idx := range skip {
		if err := n.propagate(idx, skip); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Bytes concatenates every field's current value in declaration order. This
// is the unparse of the Instance.
func (i *Instance) Bytes() []byte {
	n := 0
	for _, v := range i.values {
		n += len(v)
	}
	out := make([]byte, 0, n)
	for _, v := range i.values {
		out = append(out, v...)
	}
	return out
}

// Len reports the encoded length of the Instance in bytes.
func (i *Instance) Len() int {
	n := 0
	for _, v := range i.values {
		n += len(v)
	}
	return n
}

func (i *Instance) clone() *Instance {
	n := &Instance{table: i.table, values: slices.Clone(i.values)}
	for k, v := range n.values {
		n.values[k] = bytes.Clone(v)
	}
	return n
}
