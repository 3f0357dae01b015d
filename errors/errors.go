// Package errors provides the errors package for this module. It includes all of
// the stdlib's functions and types, plus the error categories, types and
// sentinels the table engine reports.
package errors

import (
	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/errors"
)

// Category represents the category of the error.
type Category uint32

func (c Category) Category() string {
	switch c {
	case CatUser:
		return "User"
	case CatInternal:
		return "Internal"
	}
	return "Unknown"
}

const (
	// CatUnknown represents an unknown category. This should not be used.
	CatUnknown Category = 0
	// CatUser represents an error that is caused by bad input from the caller.
	CatUser Category = 1
	// CatInternal represents an internal error.
	CatInternal Category = 2
)

// Type represents the type of the error.
type Type uint16

func (t Type) Type() string {
	switch t {
	case TypeBug:
		return "Bug"
	case TypeParameter:
		return "Parameter"
	case TypeDuplicateField:
		return "DuplicateField"
	case TypeBindingReference:
		return "BindingReference"
	case TypeSizeResolution:
		return "SizeResolution"
	case TypeTruncatedInput:
		return "TruncatedInput"
	case TypeUnknownField:
		return "UnknownField"
	}
	return "Unknown"
}

const (
	// TypeUnknown represents an unknown type.
	TypeUnknown Type = 0
	// TypeBug represents a known bug condition in calling code, such as a
	// switch statement's default case being reached.
	TypeBug Type = 1
	// TypeParameter represents an error with a parameter that didn't pass validation.
	TypeParameter Type = 2

	// TypeDuplicateField represents a table definition declaring the same
	// field name twice.
	TypeDuplicateField Type = 100
	// TypeBindingReference represents a binding that references a field the
	// table never declares, the bound field itself, or a cyclic chain.
	TypeBindingReference Type = 101
	// TypeSizeResolution represents a size resolver reading a field that has
	// not been resolved in the current parse pass.
	TypeSizeResolution Type = 102
	// TypeTruncatedInput represents a parse that needs more bytes than remain
	// in the input buffer.
	TypeTruncatedInput Type = 103
	// TypeUnknownField represents a get/set against a field name the table
	// does not declare.
	TypeUnknownField Type = 104
)

// Sentinels for the engine's failure kinds. Errors returned by this module
// wrap one of these where a kind applies, so callers can match with Is().
var (
	// ErrDuplicateField indicates a field name was declared twice in one table.
	ErrDuplicateField = errors.New("duplicate field name")
	// ErrBindingReference indicates a binding references a field that does not
	// exist, references itself, or forms a cycle.
	ErrBindingReference = errors.New("invalid binding reference")
	// ErrSizeResolution indicates a size resolver referenced a field that was
	// not yet resolved.
	ErrSizeResolution = errors.New("size resolution failed")
	// ErrTruncatedInput indicates the input ended before a field's resolved
	// size could be consumed. Callers with streaming sources may retry with
	// more input.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrUnknownField indicates a field name the table does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// Error is the error type for this module. Error implements
// github.com/gostdlib/base/errors.E .
type Error = errors.Error

// EOption is an optional argument for E().
type EOption = errors.EOption

// WithCallNum is used if you need to set the runtime.CallNum() in order to get
// the correct filename and line. This can happen if you create a call wrapper
// around E(), because you would then need to look up one more stack frame for
// every wrapper. This defaults to 1 which sets to the frame of the caller of E().
func WithCallNum(i int) EOption {
	return errors.WithCallNum(i)
}

// WithStackTrace will add a stack trace to the error. Not recommended for
// general use, as it is costly when errors are created frequently.
func WithStackTrace() EOption {
	return errors.WithStackTrace()
}

// E creates a new Error with the given parameters.
func E(ctx context.Context, c errors.Category, t errors.Type, msg error, options ...errors.EOption) Error {
	// This makes sure we report the correct call number since we are a wrapper.
	// If the caller sets the call number, this will not override it.
	opts := make([]errors.EOption, 0, len(options)+1)
	opts = append(opts, WithCallNum(2))
	opts = append(opts, options...)

	return errors.E(ctx, c, t, msg, opts...)
}
