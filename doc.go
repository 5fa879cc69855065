// SPDX-License-Identifier: GPL-3.0-or-later

// Package netcore provides the ambient stack shared by every other netcore
// package: structured logging, error classification, common configuration,
// and span correlation ids.
//
// netcore itself is not the transport or value subsystem: see
// [github.com/bassosimone/netcore/ipaddr], [.../endpoint], [.../reactor],
// [.../socket], [.../tlssocket], [.../dns], [.../value], [.../sax],
// [.../jsonformat], and [.../msgpack] for those.
//
// # Structured logging
//
// All I/O-performing types across netcore (sockets, the TLS layer, the DNS
// client, the reactor) accept an [SLogger], which [*slog.Logger] satisfies.
// The default, returned by [DefaultSLogger], discards everything. Events
// come in Start/Done pairs at Info level for lifecycle events (open, bind,
// connect, close, handshake, DNS lookup, mDNS probe) and at Debug level for
// per-I/O events (socket read and write, reactor poll). Socket, TLS and DNS
// events carry t, Done events add t0, and most Done events report err and
// errClass.
//
// # Error classification
//
// [ErrClassifier] maps an error to a short string for structured logs.
// [DefaultErrClassifier] delegates to
// [github.com/bassosimone/netcore/errclass.Classify], which recovers the
// taxonomy in that package from any error netcore or the standard library
// can produce.
//
// # Configuration
//
// [Config], built with [NewConfig], threads a clock and an [ErrClassifier]
// through constructors that need them, the same way across every package.
//
// # Last-error design
//
// This package returns rich (value, error) results rather than using a
// thread-local last-error variable: every fallible operation across
// netcore returns a plain error, and [errclass.Of] recovers its taxonomy
// kind when callers need it. Both designs are valid implementations of the
// same specification; this one was chosen because it is the idiomatic Go
// shape and is what the teacher codebase already does throughout.
package netcore
