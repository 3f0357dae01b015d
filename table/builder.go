package table

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/wiretable/errors"
	"github.com/bearlytools/wiretable/field"
)

// Builder assembles a Table one field declaration at a time. Declaration
// order is significant: it is both the parse order and the unparse order.
// A Builder is not safe for concurrent use.
type Builder struct {
	name   string
	fields []field.Descr
	index  map[string]int
}

// NewBuilder returns a Builder for a table with the given name. The name is
// only used in renderings and error messages.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:  name,
		index: map[string]int{},
	}
}

// Name returns the table name the Builder was created with.
func (b *Builder) Name() string {
	return b.name
}

// AddOption customizes a field declaration made with Add.
type AddOption func(d *field.Descr) error

// WithDefault sets the bytes the field holds when neither parse input nor an
// override supplies a value. A bound field cannot carry a default: its value
// is always derived unless explicitly overridden.
func WithDefault(b []byte) AddOption {
	return func(d *field.Descr) error {
		if d.Binding != nil {
			return fmt.Errorf("field %q: a bound field cannot carry a default", d.Name)
		}
		d.Default = bytes.Clone(b)
		return nil
	}
}

// WithBinding derives the field's value from the named source field through
// update: at construction when no explicit value is given, and again whenever
// the source field is mutated. The source may be declared before or after
// this field, but must exist by the time Done is called and must not form a
// cycle.
func WithBinding(source string, update field.Update) AddOption {
	return func(d *field.Descr) error {
		if source == "" {
			return fmt.Errorf("field %q: binding source cannot be empty", d.Name)
		}
		if update == nil {
			return fmt.Errorf("field %q: binding update cannot be nil", d.Name)
		}
		if d.Default != nil {
			return fmt.Errorf("field %q: a bound field cannot carry a default", d.Name)
		}
		d.Kind = field.KindBound
		d.Binding = &field.Binding{Source: source, Update: update}
		return nil
	}
}

// Add appends a field declaration with the given name and size resolver.
func (b *Builder) Add(name string, size field.Sizer, options ...AddOption) error {
	ctx := context.Background()

	if name == "" {
		return errors.E(ctx, errors.CatUser, errors.TypeParameter,
			fmt.Errorf("table %q: field name cannot be empty", b.name))
	}
	if size == nil {
		return errors.E(ctx, errors.CatUser, errors.TypeParameter,
			fmt.Errorf("table %q: field %q: size resolver cannot be nil", b.name, name))
	}
	if _, ok := b.index[name]; ok {
		return errors.E(ctx, errors.CatUser, errors.TypeDuplicateField,
			fmt.Errorf("table %q: field %q: %w", b.name, name, errors.ErrDuplicateField))
	}

	d := field.Descr{Name: name, Kind: field.KindValue, Size: size}
	for _, o := range options {
		if err := o(&d); err != nil {
			return errors.E(ctx, errors.CatUser, errors.TypeParameter, err)
		}
	}

	if d.Binding != nil && d.Binding.Source == name {
		return errors.E(ctx, errors.CatUser, errors.TypeBindingReference,
			fmt.Errorf("table %q: field %q binds to itself: %w", b.name, name, errors.ErrBindingReference))
	}

	b.index[name] = len(b.fields)
	b.fields = append(b.fields, d)
	return nil
}

// Done returns the immutable Table described by the Add calls so far. Done
// verifies every binding: the source must be a declared field and following
// source chains must never revisit a field. The Builder can keep being used
// afterwards; the returned Table is unaffected.
func (b *Builder) Done() (*Table, error) {
	ctx := context.Background()

	if len(b.fields) == 0 {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter,
			fmt.Errorf("table %q has no fields", b.name))
	}

	t := &Table{
		name:       b.name,
		fields:     slices.Clone(b.fields),
		index:      maps.Clone(b.index),
		dependents: make([][]int, len(b.fields)),
	}

	for i, d := range t.fields {
		if d.Binding == nil {
			continue
		}
		src, ok := t.index[d.Binding.Source]
		if !ok {
			return nil, errors.E(ctx, errors.CatUser, errors.TypeBindingReference,
				fmt.Errorf("table %q: field %q binds to undeclared field %q: %w",
					b.name, d.Name, d.Binding.Source, errors.ErrBindingReference))
		}
		t.dependents[src] = append(t.dependents[src], i)
	}

	// Each bound field has exactly one source, so the binding graph is a
	// forest unless a source chain loops back on itself.
	for i, d := range t.fields {
		if d.Binding == nil {
			continue
		}
		cur := i
		for hops := 0; hops <= len(t.fields); hops++ {
			fd := t.fields[cur]
			if fd.Binding == nil {
				break
			}
			cur = t.index[fd.Binding.Source]
			if cur == i {
				return nil, errors.E(ctx, errors.CatUser, errors.TypeBindingReference,
					fmt.Errorf("table %q: field %q is part of a binding cycle: %w",
						b.name, d.Name, errors.ErrBindingReference))
			}
		}
	}

	return t, nil
}
