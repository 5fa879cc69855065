// SPDX-License-Identifier: GPL-3.0-or-later

package netcore

import (
	"github.com/bassosimone/netcore/internal/assertx"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// A span is a sequence of operations that can fail in a single, specific
// way. For example, opening and handshaking a TLS connection to an
// endpoint, or a single DNS exchange with a name server.
//
// We recommend attaching a span ID to the logger (via [*slog.Logger.With])
// before starting a span, so every event it emits can be correlated.
//
// This function panics if the system random number generator fails, which
// should only happen under extraordinary circumstances.
func NewSpanID() string {
	return assertx.PanicOnError1(uuid.NewV7()).String()
}
