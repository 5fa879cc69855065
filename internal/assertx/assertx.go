// SPDX-License-Identifier: GPL-3.0-or-later

// Package assertx provides small invariant helpers used throughout netcore
// to fail fast on programmer errors (as opposed to runtime/environment
// errors, which are always returned as plain Go errors).
package assertx

// Assert panics with msg if cond is false.
//
// Use this only for preconditions that indicate a bug in the caller (e.g.
// a nil *tls.Config passed to a constructor), never for conditions that
// can legitimately occur at runtime.
func Assert(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

// PanicOnError1 panics if err is non-nil, otherwise returns v.
//
// Use this to centralize "this call cannot fail in practice" sites (e.g.
// reading from [crypto/rand] via [github.com/google/uuid]) where handling
// the error would just push the panic one frame up anyway.
func PanicOnError1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
