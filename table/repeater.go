package table

import (
	"fmt"
	"iter"
	"math"

	"github.com/gostdlib/base/context"

	"github.com/bearlytools/wiretable/errors"
)

// Repeater parses and unparses homogeneous sequences of one Table's records:
// a buffer that is a concatenation of encodings of the wrapped table yields
// an ordered sequence of Instances, and the inverse concatenates.
type Repeater struct {
	t        *Table
	min, max int
}

// RepeatOption customizes a Repeater.
type RepeatOption func(*Repeater)

// WithMin sets the minimum number of records a Parse must produce. The
// default is 1.
func WithMin(n int) RepeatOption {
	return func(r *Repeater) {
		r.min = n
	}
}

// WithMax sets the maximum number of records a Parse may produce. The default
// is unbounded.
func WithMax(n int) RepeatOption {
	return func(r *Repeater) {
		r.max = n
	}
}

// NewRepeater returns a Repeater over t.
func NewRepeater(t *Table, options ...RepeatOption) *Repeater {
	r := &Repeater{t: t, min: 1, max: math.MaxInt}
	for _, o := range options {
		o(r)
	}
	return r
}

// Table returns the wrapped table definition.
func (r *Repeater) Table() *Table {
	return r.t
}

// Parse repeatedly applies the wrapped table's Parse to the remaining tail of
// data until the buffer is exhausted. A partial trailing record fails the
// whole Parse with an error wrapping errors.ErrTruncatedInput; the engine
// never returns a truncated sequence.
func (r *Repeater) Parse(data []byte) ([]*Instance, error) {
	var out []*Instance
	for inst, err := range r.Records(data) {
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Records iterates the records in data lazily, in order. The sequence is
// finite and restartable: ranging again re-parses from the start of data.
// Iteration stops after yielding the first error.
func (r *Repeater) Records(data []byte) iter.Seq2[*Instance, error] {
	return func(yield func(*Instance, error) bool) {
		ctx := context.Background()

		rest := data
		off := 0
		count := 0
		for len(rest) > 0 {
			if count == r.max {
				yield(nil, errors.E(ctx, errors.CatUser, errors.TypeParameter,
					fmt.Errorf("repeater over table %q: %d bytes remain after maximum of %d records",
						r.t.name, len(rest), r.max)))
				return
			}
			inst, err := r.t.Parse(rest)
			if err != nil {
				// The table's error already carries its kind; just add the
				// record number and offset.
				yield(nil, fmt.Errorf("repeater over table %q: record %d at offset %d: %w",
					r.t.name, count, off, err))
				return
			}
			n := inst.Len()
			if n == 0 {
				// A zero-byte record would repeat forever.
				yield(nil, errors.E(ctx, errors.CatUser, errors.TypeParameter,
					fmt.Errorf("repeater over table %q: record %d at offset %d consumed no bytes",
						r.t.name, count, off)))
				return
			}
			count++
			if !yield(inst, nil) {
				return
			}
			rest = rest[n:]
			off += n
		}
		if count < r.min {
			yield(nil, errors.E(ctx, errors.CatUser, errors.TypeTruncatedInput,
				fmt.Errorf("repeater over table %q: got %d records, minimum is %d: %w",
					r.t.name, count, r.min, errors.ErrTruncatedInput)))
		}
	}
}

// Unparse concatenates each instance's bytes in sequence order. Every
// instance must realize the wrapped table.
func (r *Repeater) Unparse(instances []*Instance) ([]byte, error) {
	n := 0
	for k, inst := range instances {
		if inst == nil || inst.table != r.t {
			return nil, errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
				fmt.Errorf("repeater over table %q: instance %d does not belong to this table", r.t.name, k))
		}
		n += inst.Len()
	}
	out := make([]byte, 0, n)
	for _, inst := range instances {
		out = append(out, inst.Bytes()...)
	}
	return out, nil
}
