// SPDX-License-Identifier: GPL-3.0-or-later

// Package errclass implements the error taxonomy shared across netcore.
//
// Every fallible netcore operation returns a plain Go error. Callers that
// need the categorical kind behind that error (for structured logging, or
// to decide whether a retry makes sense) call [Of] to recover it. This
// collapses the two "last error" designs a reimplementation of the
// original C++ library could pick between (a thread-local error code, or
// a returned result) into one: the error value already carries its kind.
package errclass

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// Kind is one of the taxonomy values from the specification this package
// implements. It is a closed set: do not add values without updating the
// mapping tables in this file.
type Kind string

// Taxonomy values.
const (
	InUse               Kind = "InUse"
	InvalidParam        Kind = "InvalidParam"
	OperationFailed     Kind = "OperationFailed"
	PermissionDenied    Kind = "PermissionDenied"
	TimedOut            Kind = "TimedOut"
	NotFound            Kind = "NotFound"
	ConnectionClosed    Kind = "ConnectionClosed"
	TemporaryError      Kind = "TemporaryError"
	UnknownError        Kind = "UnknownError"
	TlsCloseNotifyAlert Kind = "TlsCloseNotifyAlert"
	TlsProtocolError    Kind = "TlsProtocolError"
	ExtraData           Kind = "ExtraData"
	NestingTooDeep      Kind = "NestingTooDeep"
	InvalidType         Kind = "InvalidType"
	InvalidDocument     Kind = "InvalidDocument"
)

// Error is an error carrying a [Kind] and an optional wrapped cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Cause.Error()
		}
		return e.Cause.Error()
	}
	return e.Msg
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the same [Kind], so errors.Is(err, errclass.TimedOut)
// style checks are not available directly (Kind is not an error); instead
// callers compare with [Of]. Is exists so that two *Error values with the
// same Kind compare equal under errors.Is regardless of message/cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs an [*Error] of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an [*Error] of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Of recovers the [Kind] behind err, classifying foreign errors (those not
// produced by this package) by walking well-known stdlib error shapes:
// [net.Error] timeouts, [io.EOF]/[io.ErrClosedPipe], wrapped [syscall.Errno]
// values, and [os.ErrPermission]/[os.ErrNotExist]. Returns "" for nil and
// [UnknownError] for otherwise unrecognized errors.
func Of(err error) Kind {
	if err == nil {
		return ""
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return ConnectionClosed
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimedOut
	}

	if errors.Is(err, os.ErrPermission) {
		return PermissionDenied
	}
	if errors.Is(err, os.ErrNotExist) {
		return NotFound
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return TimedOut
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return FromErrno(errno)
	}

	return UnknownError
}

// Classify adapts [Of] to a plain string, matching the ErrClassifier
// contract used for structured logging throughout netcore (see
// [github.com/bassosimone/netcore.ErrClassifier]).
func Classify(err error) string {
	return string(Of(err))
}

// FromErrno maps a raw OS errno to a [Kind] using the platform-specific
// tables in unix.go/windows.go.
func FromErrno(errno syscall.Errno) Kind {
	switch {
	case errno == errEADDRINUSE:
		return InUse
	case errno == errEINVAL || errno == errEPROTONOSUPPORT:
		return InvalidParam
	case errno == errEACCES || errno == errEPERM:
		return PermissionDenied
	case errno == errETIMEDOUT:
		return TimedOut
	case errno == errENOENT:
		return NotFound
	case errno == errECONNRESET || errno == errECONNABORTED || errno == errEPIPE || errno == errENOTCONN:
		return ConnectionClosed
	case errno == errEAGAIN || errno == errEWOULDBLOCK || errno == errEINTR:
		return TemporaryError
	case errno == errECONNREFUSED || errno == errEHOSTUNREACH || errno == errENETDOWN ||
		errno == errENETUNREACH || errno == errENOBUFS || errno == errEADDRNOTAVAIL:
		return OperationFailed
	default:
		return UnknownError
	}
}
