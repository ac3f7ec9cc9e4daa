// Package failure defines the error taxonomy shared by the archive engine,
// file operations and task adapters.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Unsupported
	ToolInvocation
	ContainerFormat
	Io
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Unsupported:
		return "unsupported"
	case ToolInvocation:
		return "tool invocation"
	case ContainerFormat:
		return "container format"
	case Io:
		return "io"
	case InvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}

// Error is a classified error. Op and Path are optional context; Err is the
// underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithPath returns a copy of e annotated with an operation and a path.
func (e *Error) WithPath(op, path string) *Error {
	c := *e
	c.Op = op
	c.Path = path
	return &c
}

// KindOf returns the kind of the first *Error found in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err's chain holds an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
