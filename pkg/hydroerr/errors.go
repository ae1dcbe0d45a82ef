// Package hydroerr classifies the failures that abort a preprocessing run.
package hydroerr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match with errors.Is(err, hydroerr.ErrUnsupportedInput).
var (
	ErrUnsupportedInput  = errors.New("unsupported input")
	ErrGraphConstruction = errors.New("graph construction failed")
	ErrDataInconsistency = errors.New("data inconsistency")
	ErrIO                = errors.New("i/o failure")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// NoArc marks an Error that is not about a specific arc.
const NoArc = -1

// Error provides structured information about a failed pipeline operation.
type Error struct {
	Kind    error  // one of the Err* sentinels
	Op      string // operation that failed (e.g. "geogrid.Open", "topology.Resolve")
	Arc     int    // offending arc id, or NoArc
	Path    string // file involved, if any
	Cause   error
	Context string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Arc != NoArc {
		msg += fmt.Sprintf(" (arc %d)", e.Arc)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is this error's kind or matches its cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return target == e.Kind || errors.Is(e.Cause, target)
}

// Builder provides a fluent interface for building Errors.
type Builder struct {
	err Error
}

// New starts an error of the given kind for an operation.
func New(kind error, op string) *Builder {
	return &Builder{err: Error{Kind: kind, Op: op, Arc: NoArc}}
}

// Arc records the offending arc id.
func (b *Builder) Arc(id int) *Builder {
	b.err.Arc = id
	return b
}

// Path records the file involved.
func (b *Builder) Path(p string) *Builder {
	b.err.Path = p
	return b
}

// Contextf adds a formatted description.
func (b *Builder) Contextf(format string, args ...any) *Builder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error cause.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Err returns the constructed error.
func (b *Builder) Err() error {
	e := b.err
	return &e
}

// Unsupported reports input the pipeline refuses to approximate.
func Unsupported(op, format string, args ...any) error {
	return New(ErrUnsupportedInput, op).Contextf(format, args...).Err()
}

// Graph reports an arc that prevents network construction.
func Graph(op string, arc int, format string, args ...any) error {
	return New(ErrGraphConstruction, op).Arc(arc).Contextf(format, args...).Err()
}

// IO wraps a file-system or external-tool failure.
func IO(op, path string, cause error) error {
	return New(ErrIO, op).Path(path).Cause(cause).Err()
}

// Config reports an invalid configuration.
func Config(op string, cause error) error {
	return New(ErrInvalidConfig, op).Cause(cause).Err()
}

// KindOf returns the kind sentinel of err, or nil when err carries none.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// ArcOf returns the arc named by err, if any.
func ArcOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Arc != NoArc {
		return e.Arc, true
	}
	return 0, false
}
