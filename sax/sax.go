// SPDX-License-Identifier: GPL-3.0-or-later

// Package sax defines the event contract shared by every parser and writer
// in netcore's structured-value subsystem. A parser (jsonformat, msgpack)
// is a pull-driven source that emits a stream of semantic events into a
// [Handler] sink; a writer emits the same events from a tree it walks.
// [value.Builder] implements [Handler] to build a tree from a stream, and
// [value.Walk] drives a [Handler] to serialize one, so the same event
// contract carries data both into and out of the value tree regardless of
// wire format.
package sax

import "github.com/bassosimone/netcore/errclass"

// MaxDepth is the maximum nesting depth of arrays/objects a parser will
// accept. Input requiring one more level is rejected with
// [errclass.NestingTooDeep] rather than recursing further.
const MaxDepth = 19

// Handler receives the event stream a parser produces or a writer
// consumes. Every method returns an error so a handler can abort the
// stream early (a builder hitting an out-of-place event, a writer's
// underlying sink failing to flush) without resorting to panics.
type Handler interface {
	// Null reports a JSON/MessagePack null.
	Null() error

	// Bool reports a boolean scalar.
	Bool(v bool) error

	// Int reports a signed integer scalar.
	Int(v int64) error

	// Uint reports an unsigned integer scalar.
	Uint(v uint64) error

	// Real reports a floating-point scalar.
	Real(v float64) error

	// String reports a string (or MessagePack binary) scalar.
	String(v string) error

	// StartArray opens a new array container. hint is the element count
	// if known from the wire format (MessagePack array headers carry it),
	// or -1 if unknown (JSON arrays are not length-prefixed).
	StartArray(hint int) error

	// EndArray closes the innermost open array.
	EndArray() error

	// StartObject opens a new object container. hint is the member count
	// if known, or -1 if unknown.
	StartObject(hint int) error

	// EndObject closes the innermost open object.
	EndObject() error

	// Key reports an object member's key. Always called between
	// StartObject/EndObject, immediately before the value event it names.
	Key(v string) error
}

// DepthGuard tracks container nesting and rejects input past [MaxDepth].
// Parsers embed one and call Enter when enqueueing a start_array/
// start_object event and Leave on the matching end event.
type DepthGuard struct {
	depth int
}

// Enter records entry into one more nesting level, returning
// [errclass.NestingTooDeep] if that exceeds [MaxDepth].
func (g *DepthGuard) Enter() error {
	g.depth++
	if g.depth > MaxDepth {
		return errclass.New(errclass.NestingTooDeep, "sax: nesting too deep")
	}
	return nil
}

// Leave records exit from one nesting level.
func (g *DepthGuard) Leave() {
	if g.depth > 0 {
		g.depth--
	}
}

// Depth returns the current nesting depth.
func (g *DepthGuard) Depth() int {
	return g.depth
}

// NopHandler implements [Handler] with no-op methods returning nil.
// Embed it in test doubles or partial handlers that only care about a
// subset of events.
type NopHandler struct{}

func (NopHandler) Null() error             { return nil }
func (NopHandler) Bool(bool) error         { return nil }
func (NopHandler) Int(int64) error         { return nil }
func (NopHandler) Uint(uint64) error       { return nil }
func (NopHandler) Real(float64) error      { return nil }
func (NopHandler) String(string) error     { return nil }
func (NopHandler) StartArray(int) error    { return nil }
func (NopHandler) EndArray() error         { return nil }
func (NopHandler) StartObject(int) error   { return nil }
func (NopHandler) EndObject() error        { return nil }
func (NopHandler) Key(string) error        { return nil }

var _ Handler = NopHandler{}
