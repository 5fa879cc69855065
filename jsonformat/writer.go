// SPDX-License-Identifier: GPL-3.0-or-later

package jsonformat

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bassosimone/netcore/errclass"
	"github.com/bassosimone/netcore/sax"
)

// Writer implements [sax.Handler], serializing the event stream it
// receives as compact JSON to an underlying [io.Writer]. Drive one with
// [github.com/bassosimone/netcore/value.Walk] to serialize a Value tree.
type Writer struct {
	w      io.Writer
	stack  []frameState
	err    error
}

type frameState struct {
	isObject  bool
	count     int
	afterKey  bool
}

var _ sax.Handler = (*Writer)(nil)

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (wr *Writer) write(s string) error {
	if wr.err != nil {
		return wr.err
	}
	if _, err := io.WriteString(wr.w, s); err != nil {
		wr.err = errclass.Wrap(errclass.OperationFailed, "jsonformat: write error", err)
		return wr.err
	}
	return nil
}

// beforeValue writes the separator/comma needed before emitting a scalar
// or container-opening token, honoring whether we are inside an array
// (needs a comma between elements) or directly after a key (needs a
// colon, no comma).
func (wr *Writer) beforeValue() error {
	if len(wr.stack) == 0 {
		return nil
	}
	top := &wr.stack[len(wr.stack)-1]
	if top.isObject {
		if top.afterKey {
			top.afterKey = false
			return wr.write(":")
		}
		return nil
	}
	if top.count > 0 {
		if err := wr.write(","); err != nil {
			return err
		}
	}
	top.count++
	return nil
}

func (wr *Writer) Null() error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	return wr.write("null")
}

func (wr *Writer) Bool(v bool) error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	if v {
		return wr.write("true")
	}
	return wr.write("false")
}

func (wr *Writer) Int(v int64) error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	return wr.write(strconv.FormatInt(v, 10))
}

func (wr *Writer) Uint(v uint64) error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	return wr.write(strconv.FormatUint(v, 10))
}

func (wr *Writer) Real(v float64) error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errclass.New(errclass.InvalidType, fmt.Sprintf("jsonformat: %v has no JSON representation", v))
	}
	return wr.write(strconv.FormatFloat(v, 'g', -1, 64))
}

func (wr *Writer) String(v string) error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	return wr.write(quoteJSON(v))
}

func (wr *Writer) StartArray(hint int) error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	wr.stack = append(wr.stack, frameState{})
	return wr.write("[")
}

func (wr *Writer) EndArray() error {
	wr.stack = wr.stack[:len(wr.stack)-1]
	return wr.write("]")
}

func (wr *Writer) StartObject(hint int) error {
	if err := wr.beforeValue(); err != nil {
		return err
	}
	wr.stack = append(wr.stack, frameState{isObject: true})
	return wr.write("{")
}

func (wr *Writer) EndObject() error {
	wr.stack = wr.stack[:len(wr.stack)-1]
	return wr.write("}")
}

func (wr *Writer) Key(v string) error {
	top := &wr.stack[len(wr.stack)-1]
	if top.count > 0 {
		if err := wr.write(","); err != nil {
			return err
		}
	}
	top.count++
	top.afterKey = true
	return wr.write(quoteJSON(v))
}

func quoteJSON(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
