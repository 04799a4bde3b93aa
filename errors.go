package tagtree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTypeMismatch is matched by errors returned when a value of one kind is
	// used where another kind is required.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrCorruptData is matched by errors returned when a byte stream does not
	// parse as a well-formed tag tree. See DataError.
	ErrCorruptData = errors.New("corrupt data")

	// ErrUnsupportedTag is matched by errors returned when the stream contains
	// a tag kind whose payload shape is unknown to the decoder.
	ErrUnsupportedTag = errors.New("unsupported tag")

	// ErrIOFailure is matched by errors returned when a storage backend fails
	// to read, write or replace its contents.
	ErrIOFailure = errors.New("I/O failure")

	// ErrInvalidTree is matched by errors returned when a tree cannot be
	// encoded: heterogeneous lists, oversized strings, nil values.
	ErrInvalidTree = errors.New("invalid tree")

	ErrKeyNotFound  = errors.New("key not found")
	ErrAlreadyOwned = errors.New("value already belongs to a tree")
	ErrNoStorage    = errors.New("no storage attached")
)

// DataError describes a decoding failure at a particular offset. Context is
// a copy of the input around Off, starting at input offset ContextOff.
type DataError struct {
	Off        int
	Msg        string
	Err        error
	Context    []byte
	ContextOff int
}

const (
	dataErrContextBefore = 16
	dataErrContextAfter  = 16
)

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	e := &DataError{Off: off, Err: err, Msg: fmt.Sprintf(format, args...)}
	if len(data) > 0 {
		start := max(0, min(off, len(data))-dataErrContextBefore)
		end := min(len(data), max(off, 0)+dataErrContextAfter)
		e.Context = append([]byte(nil), data[start:end]...)
		e.ContextOff = start
	}
	return e
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Is(target error) bool {
	return target == ErrCorruptData
}

func (e *DataError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "corrupt data at offset %d: %s", e.Off, e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	if len(e.Context) > 0 {
		split := min(max(e.Off-e.ContextOff, 0), len(e.Context))
		fmt.Fprintf(&buf, " [@%d %x|%x]", e.ContextOff, e.Context[:split], e.Context[split:])
	}
	return buf.String()
}

// UnsupportedTagError reports a tag kind whose payload shape is unknown.
type UnsupportedTagError struct {
	Off  int
	Kind Kind
}

func (e *UnsupportedTagError) Is(target error) bool {
	return target == ErrUnsupportedTag
}

func (e *UnsupportedTagError) Error() string {
	return fmt.Sprintf("unsupported tag %s at offset %d", e.Kind, e.Off)
}

// TypeError reports a kind mismatch. Key is empty when the mismatch is not
// tied to a compound entry.
type TypeError struct {
	Key  string
	Want Kind
	Got  Kind
	Msg  string
}

func typeErr(key string, want, got Kind) error {
	return &TypeError{Key: key, Want: want, Got: got}
}

func typeErrf(format string, args ...any) error {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

func (e *TypeError) Error() string {
	var buf strings.Builder
	buf.WriteString("type mismatch")
	if e.Key != "" {
		fmt.Fprintf(&buf, " for %q", e.Key)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	} else {
		fmt.Fprintf(&buf, ": wanted %s, got %s", e.Want, e.Got)
	}
	return buf.String()
}

// TreeError reports a tree that cannot be encoded. Path locates the offending
// value in the form accepted by Lookup.
type TreeError struct {
	Path string
	Msg  string
}

func treeErrf(path string, format string, args ...any) error {
	return &TreeError{path, fmt.Sprintf(format, args...)}
}

func (e *TreeError) Is(target error) bool {
	return target == ErrInvalidTree
}

func (e *TreeError) Error() string {
	if e.Path == "" {
		return "invalid tree: " + e.Msg
	}
	return "invalid tree at " + e.Path + ": " + e.Msg
}

// IOError wraps a storage backend failure.
type IOError struct {
	Op      string
	Storage string
	Err     error
}

func ioErr(op string, s fmt.Stringer, err error) error {
	var name string
	if s != nil {
		name = s.String()
	}
	return &IOError{op, name, err}
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}

func (e *IOError) Error() string {
	if e.Storage == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Storage + ": " + e.Err.Error()
}

func keyNotFound(key string) error {
	return fmt.Errorf("%q: %w", key, ErrKeyNotFound)
}
