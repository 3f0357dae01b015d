package field

import (
	"testing"

	"github.com/bearlytools/wiretable/errors"
)

// fakeContext is a minimal Context for exercising Sizers outside a parse.
type fakeContext struct {
	fields    map[string][]byte
	remaining int
	input     []byte
}

func (f fakeContext) Field(name string) ([]byte, error) {
	if v, ok := f.fields[name]; ok {
		return v, nil
	}
	return nil, errors.ErrUnknownField
}

func (f fakeContext) Remaining() int { return f.remaining }

func (f fakeContext) Peek(n int) []byte {
	if n > len(f.input) {
		n = len(f.input)
	}
	return f.input[:n]
}

func TestFixed(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
		err  bool
	}{
		{name: "Success: zero", n: 0, want: 0},
		{name: "Success: positive", n: 4, want: 4},
		{name: "Error: negative", n: -1, err: true},
	}

	for _, test := range tests {
		got, err := Fixed(test.n)(fakeContext{})
		switch {
		case err == nil && test.err:
			t.Errorf("TestFixed(%s): got err == nil, want err != nil", test.name)
			continue
		case err != nil && !test.err:
			t.Errorf("TestFixed(%s): got err == %s, want err == nil", test.name, err)
			continue
		case err != nil:
			continue
		}
		if got != test.want {
			t.Errorf("TestFixed(%s): got %d, want %d", test.name, got, test.want)
		}
	}
}

func TestRest(t *testing.T) {
	tests := []struct {
		name      string
		reserve   int
		remaining int
		want      int
		err       bool
		truncated bool
	}{
		{name: "Success: everything", reserve: 0, remaining: 10, want: 10},
		{name: "Success: reserve some", reserve: 3, remaining: 10, want: 7},
		{name: "Success: reserve exactly all", reserve: 10, remaining: 10, want: 0},
		{name: "Error: reserve exceeds input", reserve: 11, remaining: 10, err: true, truncated: true},
		{name: "Error: negative reserve", reserve: -1, remaining: 10, err: true},
	}

	for _, test := range tests {
		got, err := Rest(test.reserve)(fakeContext{remaining: test.remaining})
		switch {
		case err == nil && test.err:
			t.Errorf("TestRest(%s): got err == nil, want err != nil", test.name)
			continue
		case err != nil && !test.err:
			t.Errorf("TestRest(%s): got err == %s, want err == nil", test.name, err)
			continue
		case err != nil:
			if test.truncated && !errors.Is(err, errors.ErrTruncatedInput) {
				t.Errorf("TestRest(%s): got err == %s, want it to wrap ErrTruncatedInput", test.name, err)
			}
			continue
		}
		if got != test.want {
			t.Errorf("TestRest(%s): got %d, want %d", test.name, got, test.want)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		name string
		k    Kind
		want string
	}{
		{name: "Success: value", k: KindValue, want: "Value"},
		{name: "Success: bound", k: KindBound, want: "Bound"},
		{name: "Success: unknown", k: Kind(99), want: "Unknown"},
	}

	for _, test := range tests {
		if got := test.k.String(); got != test.want {
			t.Errorf("TestKindString(%s): got %q, want %q", test.name, got, test.want)
		}
	}
}
