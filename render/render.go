// Package render turns parsed instances into human-readable text and JSON.
//
// The text form is a header line with the table name followed by one
// indented line per field, values in hexadecimal octet notation. Bound
// fields are marked with a leading "$" so a reader can tell which values
// are derived rather than free:
//
//	TLV:
//	    Tag: 07
//	    $Len: 03
//	    Value: 99 AF 00
package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/values/sizes"

	"github.com/bearlytools/wiretable/field"
	"github.com/bearlytools/wiretable/hexstr"
	"github.com/bearlytools/wiretable/table"
)

var renderPool = &bufferPool{
	pool: sync.NewPool[*bytes.Buffer](
		context.Background(),
		"render.bufferPool",
		func() *bytes.Buffer {
			b := &bytes.Buffer{}
			b.Grow(256)
			return b
		},
	),
}

// Buffer is a bytes.Buffer with a Release method to return it to the pool.
type Buffer struct {
	*bytes.Buffer
}

// Release returns the Buffer to the pool. Only use this once you are done with it.
func (b Buffer) Release(ctx context.Context) {
	renderPool.put(ctx, b.Buffer)
}

type bufferPool struct {
	pool *sync.Pool[*bytes.Buffer]
}

func (p *bufferPool) get(ctx context.Context) *bytes.Buffer {
	return p.pool.Get(ctx)
}

func (p *bufferPool) put(ctx context.Context, b *bytes.Buffer) {
	if b.Cap() > 10*sizes.MiB {
		return
	}
	b.Reset()
	p.pool.Put(ctx, b)
}

type textOptions struct {
	Indent int
}

// TextOption provides options for rendering instances as text.
type TextOption func(textOptions) (textOptions, error)

// WithIndent sets the number of spaces field lines are indented by.
// The default is 4.
func WithIndent(n int) TextOption {
	return func(t textOptions) (textOptions, error) {
		if n < 0 {
			return t, fmt.Errorf("indent cannot be negative, got %d", n)
		}
		t.Indent = n
		return t, nil
	}
}

// Text renders an instance as text.
func Text(ctx context.Context, inst *table.Instance, options ...TextOption) (Buffer, error) {
	buf := renderPool.get(ctx)
	if err := TextWriter(ctx, inst, buf, options...); err != nil {
		renderPool.put(ctx, buf)
		return Buffer{}, err
	}
	return Buffer{buf}, nil
}

// TextWriter renders an instance as text, writing to the provided io.Writer.
func TextWriter(ctx context.Context, inst *table.Instance, w io.Writer, options ...TextOption) error {
	opts := textOptions{Indent: 4}
	for _, opt := range options {
		var err error
		opts, err = opt(opts)
		if err != nil {
			return err
		}
	}
	return writeText(inst, w, opts)
}

// TextSeq renders a sequence of instances, one after another.
func TextSeq(ctx context.Context, insts []*table.Instance, options ...TextOption) (Buffer, error) {
	buf := renderPool.get(ctx)
	for _, inst := range insts {
		if err := TextWriter(ctx, inst, buf, options...); err != nil {
			renderPool.put(ctx, buf)
			return Buffer{}, err
		}
	}
	return Buffer{buf}, nil
}

func writeText(inst *table.Instance, w io.Writer, opts textOptions) error {
	t := inst.Table()
	if _, err := fmt.Fprintf(w, "%s:\n", t.Name()); err != nil {
		return err
	}
	pad := bytes.Repeat([]byte{' '}, opts.Indent)
	for _, d := range t.Fields() {
		v, err := inst.Get(d.Name)
		if err != nil {
			return err
		}
		mark := ""
		if d.Kind == field.KindBound {
			mark = "$"
		}
		if _, err := fmt.Fprintf(w, "%s%s%s: %s\n", pad, mark, d.Name, hexstr.Format(v)); err != nil {
			return err
		}
	}
	return nil
}

// JSON renders an instance as a JSON object, field names to octet notation
// strings, in declaration order.
func JSON(ctx context.Context, inst *table.Instance) ([]byte, error) {
	var buf bytes.Buffer
	if err := JSONWriter(ctx, inst, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSONWriter renders an instance as JSON, writing to the provided io.Writer.
func JSONWriter(ctx context.Context, inst *table.Instance, w io.Writer) error {
	enc := jsontext.NewEncoder(w)
	return writeJSON(inst, enc)
}

// JSONSeq renders a sequence of instances as a JSON array.
func JSONSeq(ctx context.Context, insts []*table.Instance) ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return nil, err
	}
	for _, inst := range insts {
		if err := writeJSON(inst, enc); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(inst *table.Instance, enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for _, d := range inst.Table().Fields() {
		v, err := inst.Get(d.Name)
		if err != nil {
			return err
		}
		if err := enc.WriteToken(jsontext.String(d.Name)); err != nil {
			return err
		}
		if err := enc.WriteToken(jsontext.String(hexstr.Format(v))); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}
