// Package dfuerr defines the error taxonomy used across the DFU host: a
// small set of Kinds callers can test for with errors.Is/errors.As, wrapped
// in messages formatted the way the rest of this codebase formats errors.
package dfuerr

import (
	"errors"
	"fmt"
)

// Kind identifies which class of failure an Error represents.
type Kind int

const (
	_ Kind = iota
	IOError
	ReadTimeout
	FramingError
	BufferOverflow
	ProtocolError
	RemoteError
	CRCMismatch
	MTUTooSmall
	TooLarge
	InvalidPackage
	InvalidRemoteState
)

func (k Kind) String() string {
	switch k {
	case IOError:
		return "IO_ERROR"
	case ReadTimeout:
		return "READ_TIMEOUT"
	case FramingError:
		return "FRAMING_ERROR"
	case BufferOverflow:
		return "BUFFER_OVERFLOW"
	case ProtocolError:
		return "PROTOCOL_ERROR"
	case RemoteError:
		return "REMOTE_ERROR"
	case CRCMismatch:
		return "CRC_MISMATCH"
	case MTUTooSmall:
		return "MTU_TOO_SMALL"
	case TooLarge:
		return "TOO_LARGE"
	case InvalidPackage:
		return "INVALID_PACKAGE"
	case InvalidRemoteState:
		return "INVALID_REMOTE_STATE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the concrete error type returned across package boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error

	// Code and Ext are only meaningful for Kind == RemoteError: the
	// device's result code and an optional vendor-specific extended
	// error byte, propagated verbatim for diagnostics.
	Code byte
	Ext  *byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Wrapf builds an Error with a formatted message and an underlying cause.
func Wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Remote builds a RemoteError carrying the device's result code and the
// optional extended error byte exactly as reported.
func Remote(code byte, ext *byte) *Error {
	return &Error{Kind: RemoteError, Msg: "device reported non-success result", Code: code, Ext: ext}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
