// Package fault defines the error kinds shared by every calm component.
package fault

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindConfig: malformed pattern, empty argv, missing filename capture,
	// unknown level or runtime type.
	KindConfig
	// KindIO: spawn, pipe, filesystem or canonicalization failures.
	KindIO
	// KindData: a stream line that does not decode as a diagnostic record.
	KindData
	// KindExecution: a child exited non-zero while success was required.
	KindExecution
	// KindNotFound: unknown tool, runtime or command.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindIO:
		return "io"
	case KindData:
		return "data"
	case KindExecution:
		return "execution"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Error is a classified error with an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, cause error, format string, args ...any) error {
	return pkgerrors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause})
}

// Configf reports invalid configuration.
func Configf(format string, args ...any) error { return newf(KindConfig, nil, format, args...) }

// Dataf reports malformed tool output.
func Dataf(format string, args ...any) error { return newf(KindData, nil, format, args...) }

// Executionf reports a failed child process.
func Executionf(format string, args ...any) error { return newf(KindExecution, nil, format, args...) }

// NotFoundf reports a missing tool, runtime or command.
func NotFoundf(format string, args ...any) error { return newf(KindNotFound, nil, format, args...) }

// IO wraps a filesystem or process error.
func IO(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return newf(KindIO, err, format, args...)
}

// Wrap attaches kind and context to err.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return newf(kind, err, format, args...)
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// QuietExit asks the CLI to exit with Code without printing anything.
type QuietExit struct {
	Code int
}

func (q QuietExit) Error() string {
	return fmt.Sprintf("exit status %d", q.Code)
}

// Chain splits err into one message per link of its wrap chain, outermost
// first. Links that add no text of their own, such as stack annotations,
// are skipped.
func Chain(err error) []string {
	var out []string
	for err != nil {
		next := errors.Unwrap(err)
		msg := err.Error()
		if next != nil {
			inner := next.Error()
			if msg == inner {
				err = next
				continue
			}
			msg = strings.TrimSuffix(msg, ": "+inner)
		}
		out = append(out, msg)
		err = next
	}
	return out
}

// Causes is Chain without the outermost message.
func Causes(err error) []string {
	chain := Chain(err)
	if len(chain) < 2 {
		return nil
	}
	return chain[1:]
}

// StackTrace returns the stack recorded for err, if any.
func StackTrace(err error) string {
	type tracer interface{ StackTrace() pkgerrors.StackTrace }
	var st tracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}
