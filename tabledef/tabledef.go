// Package tabledef parses a textual definition language for tables, so that
// record layouts can live in configuration instead of Go code.
//
// A definition file holds one or more table blocks:
//
//	// Classic tag-length-value.
//	table TLV {
//	    Tag size=tag default=00
//	    Len size=len bind=Value update=berlen
//	    Value size=valueOfLen default=00
//	}
//
// Each field line names the field, gives its size resolver and optionally a
// default or a binding. Sizers and updates are looked up by name in a
// Registry; fixed(N) and rest(N) are built in. Default values are written
// as hexadecimal octets without spaces.
package tabledef

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gostdlib/base/context"
	"github.com/johnsiilver/halfpike"

	"github.com/bearlytools/wiretable/errors"
	"github.com/bearlytools/wiretable/field"
	"github.com/bearlytools/wiretable/hexstr"
	"github.com/bearlytools/wiretable/table"
)

// Registry resolves sizer and update names that definitions refer to.
type Registry struct {
	sizers  map[string]field.Sizer
	updates map[string]field.Update
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sizers:  map[string]field.Sizer{},
		updates: map[string]field.Update{},
	}
}

// RegisterSizer makes a size resolver available to definitions under name.
func (r *Registry) RegisterSizer(name string, s field.Sizer) error {
	if name == "" || s == nil {
		return errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
			fmt.Errorf("RegisterSizer requires a name and a non-nil sizer"))
	}
	if _, ok := r.sizers[name]; ok {
		return errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
			fmt.Errorf("sizer %q is already registered", name))
	}
	r.sizers[name] = s
	return nil
}

// RegisterUpdate makes an update function available to definitions under name.
func (r *Registry) RegisterUpdate(name string, u field.Update) error {
	if name == "" || u == nil {
		return errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
			fmt.Errorf("RegisterUpdate requires a name and a non-nil update"))
	}
	if _, ok := r.updates[name]; ok {
		return errors.E(context.Background(), errors.CatUser, errors.TypeParameter,
			fmt.Errorf("update %q is already registered", name))
	}
	r.updates[name] = u
	return nil
}

func (r *Registry) sizer(name string) (field.Sizer, error) {
	if inner, ok := strings.CutPrefix(name, "fixed("); ok {
		return builtinArg(name, inner, field.Fixed)
	}
	if inner, ok := strings.CutPrefix(name, "rest("); ok {
		return builtinArg(name, inner, field.Rest)
	}
	if r != nil {
		if s, ok := r.sizers[name]; ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown sizer %q", name)
}

func (r *Registry) update(name string) (field.Update, error) {
	if r != nil {
		if u, ok := r.updates[name]; ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("unknown update %q", name)
}

func builtinArg(full, inner string, f func(int) field.Sizer) (field.Sizer, error) {
	arg, ok := strings.CutSuffix(inner, ")")
	if !ok {
		return nil, fmt.Errorf("sizer %q: missing closing parenthesis", full)
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("sizer %q: %q is not an integer", full, arg)
	}
	return f(n), nil
}

// Parse parses table definitions, resolving names through reg. The returned
// map is keyed by table name.
func Parse(ctx context.Context, input string, reg *Registry) (map[string]*table.Table, error) {
	p := &defParser{reg: reg, tables: map[string]*table.Table{}}
	if err := halfpike.Parse(ctx, input, p); err != nil {
		return nil, err
	}
	return p.tables, nil
}

// defParser holds the state for parsing table definitions.
type defParser struct {
	reg    *Registry
	tables map[string]*table.Table

	builder *table.Builder
	err     error
}

// Validate implements halfpike.Validator.
func (p *defParser) Validate() error {
	return p.err
}

// Start is the entry point for halfpike parsing.
func (p *defParser) Start(_ context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	return p.parseTop
}

// parseTop expects "table NAME {" lines between blocks.
func (p *defParser) parseTop(_ context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	p.skipCommentsAndWhitespace(hp)

	line := hp.Next()
	if hp.EOF(line) {
		return nil
	}

	items := lineVals(line)
	if len(items) != 3 || items[0] != "table" || items[2] != "{" {
		p.err = fmt.Errorf("[Line %d]: expected 'table NAME {', got %q", line.LineNum, strings.TrimSpace(line.Raw))
		return nil
	}
	name := items[1]
	if _, ok := p.tables[name]; ok {
		p.err = fmt.Errorf("[Line %d]: table %q is defined twice", line.LineNum, name)
		return nil
	}
	p.builder = table.NewBuilder(name)
	return p.parseFields
}

// parseFields parses field lines until the closing brace.
func (p *defParser) parseFields(ctx context.Context, hp *halfpike.Parser) halfpike.ParseFn {
	for {
		p.skipCommentsAndWhitespace(hp)

		line := hp.Next()
		if hp.EOF(line) {
			p.err = fmt.Errorf("[Line %d]: unexpected end of input inside table %q", line.LineNum, p.builder.Name())
			return nil
		}

		items := lineVals(line)
		if len(items) == 1 && items[0] == "}" {
			t, err := p.builder.Done()
			if err != nil {
				p.err = fmt.Errorf("[Line %d]: %w", line.LineNum, err)
				return nil
			}
			p.tables[t.Name()] = t
			p.builder = nil
			return p.parseTop
		}

		if err := p.parseField(line.LineNum, items); err != nil {
			p.err = err
			return nil
		}
	}
}

// parseField handles "Name size=SIZER [default=HEX | bind=Field update=NAME]".
func (p *defParser) parseField(lineNum int, items []string) error {
	if len(items) < 2 {
		return fmt.Errorf("[Line %d]: a field needs at least a name and size=", lineNum)
	}
	name := items[0]

	var sizer field.Sizer
	var options []table.AddOption
	var bindSource string
	var bindUpdate field.Update

	for _, item := range items[1:] {
		key, val, ok := strings.Cut(item, "=")
		if !ok || val == "" {
			return fmt.Errorf("[Line %d]: field %q: expected key=value, got %q", lineNum, name, item)
		}
		switch key {
		case "size":
			s, err := p.reg.sizer(val)
			if err != nil {
				return fmt.Errorf("[Line %d]: field %q: %w", lineNum, name, err)
			}
			sizer = s
		case "default":
			b, err := hexstr.Parse(val)
			if err != nil {
				return fmt.Errorf("[Line %d]: field %q: bad default: %w", lineNum, name, err)
			}
			options = append(options, table.WithDefault(b))
		case "bind":
			bindSource = val
		case "update":
			u, err := p.reg.update(val)
			if err != nil {
				return fmt.Errorf("[Line %d]: field %q: %w", lineNum, name, err)
			}
			bindUpdate = u
		default:
			return fmt.Errorf("[Line %d]: field %q: unknown key %q", lineNum, name, key)
		}
	}

	if sizer == nil {
		return fmt.Errorf("[Line %d]: field %q has no size=", lineNum, name)
	}
	if (bindSource == "") != (bindUpdate == nil) {
		return fmt.Errorf("[Line %d]: field %q: bind= and update= go together", lineNum, name)
	}
	if bindSource != "" {
		options = append(options, table.WithBinding(bindSource, bindUpdate))
	}

	if err := p.builder.Add(name, sizer, options...); err != nil {
		return fmt.Errorf("[Line %d]: %w", lineNum, err)
	}
	return nil
}

// skipCommentsAndWhitespace skips comment lines and empty lines.
func (p *defParser) skipCommentsAndWhitespace(hp *halfpike.Parser) {
	for {
		line := hp.Next()
		if hp.EOF(line) {
			hp.Backup()
			return
		}
		if len(line.Items) == 0 || (len(line.Items) == 1 && line.Items[0].Val == "\n") {
			continue
		}
		if strings.HasPrefix(line.Items[0].Val, "//") {
			continue
		}
		hp.Backup()
		return
	}
}

// lineVals returns the line's item values without the trailing newline token.
func lineVals(line halfpike.Line) []string {
	out := make([]string, 0, len(line.Items))
	for _, item := range line.Items {
		if item.Val == "\n" || item.Val == "" {
			continue
		}
		out = append(out, item.Val)
	}
	return out
}
