// SPDX-License-Identifier: GPL-3.0-or-later

package msgpack

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/bassosimone/netcore/errclass"
	"github.com/bassosimone/netcore/sax"
)

// Writer implements [sax.Handler], serializing the event stream it
// receives as MessagePack to an underlying [io.Writer]. Drive one with
// [github.com/bassosimone/netcore/value.Walk] to serialize a Value tree.
// The top-level event must open an array or object, per the wire
// format's requirement that a document's outermost value be a container.
type Writer struct {
	w     io.Writer
	depth int
	err   error
}

var _ sax.Handler = (*Writer)(nil)

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (wr *Writer) write(b []byte) error {
	if wr.err != nil {
		return wr.err
	}
	if _, err := wr.w.Write(b); err != nil {
		wr.err = errclass.Wrap(errclass.OperationFailed, "msgpack: write error", err)
		return wr.err
	}
	return nil
}

func (wr *Writer) checkTopLevel() error {
	if wr.depth == 0 {
		return errclass.New(errclass.InvalidDocument, "msgpack: top-level value must be an array or map")
	}
	return nil
}

func (wr *Writer) Null() error {
	if err := wr.checkTopLevel(); err != nil {
		return err
	}
	return wr.write([]byte{tagNil})
}

func (wr *Writer) Bool(v bool) error {
	if err := wr.checkTopLevel(); err != nil {
		return err
	}
	if v {
		return wr.write([]byte{tagTrue})
	}
	return wr.write([]byte{tagFalse})
}

func (wr *Writer) Int(v int64) error {
	if err := wr.checkTopLevel(); err != nil {
		return err
	}
	if v >= 0 {
		return wr.Uint(uint64(v))
	}
	switch {
	case v >= -32:
		return wr.write([]byte{byte(v)})
	case v >= math.MinInt8:
		return wr.write([]byte{tagInt8, byte(int8(v))})
	case v >= math.MinInt16:
		buf := make([]byte, 3)
		buf[0] = tagInt16
		binary.BigEndian.PutUint16(buf[1:], uint16(int16(v)))
		return wr.write(buf)
	case v >= math.MinInt32:
		buf := make([]byte, 5)
		buf[0] = tagInt32
		binary.BigEndian.PutUint32(buf[1:], uint32(int32(v)))
		return wr.write(buf)
	default:
		buf := make([]byte, 9)
		buf[0] = tagInt64
		binary.BigEndian.PutUint64(buf[1:], uint64(v))
		return wr.write(buf)
	}
}

func (wr *Writer) Uint(v uint64) error {
	if err := wr.checkTopLevel(); err != nil {
		return err
	}
	switch {
	case v <= tagPositiveFixintMax:
		return wr.write([]byte{byte(v)})
	case v <= math.MaxUint8:
		return wr.write([]byte{tagUint8, byte(v)})
	case v <= math.MaxUint16:
		buf := make([]byte, 3)
		buf[0] = tagUint16
		binary.BigEndian.PutUint16(buf[1:], uint16(v))
		return wr.write(buf)
	case v <= math.MaxUint32:
		buf := make([]byte, 5)
		buf[0] = tagUint32
		binary.BigEndian.PutUint32(buf[1:], uint32(v))
		return wr.write(buf)
	default:
		buf := make([]byte, 9)
		buf[0] = tagUint64
		binary.BigEndian.PutUint64(buf[1:], v)
		return wr.write(buf)
	}
}

func (wr *Writer) Real(v float64) error {
	if err := wr.checkTopLevel(); err != nil {
		return err
	}
	buf := make([]byte, 9)
	buf[0] = tagFloat64
	binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v))
	return wr.write(buf)
}

func (wr *Writer) String(v string) error {
	if err := wr.checkTopLevel(); err != nil {
		return err
	}
	return wr.writeStr(v)
}

func (wr *Writer) writeStr(v string) error {
	n := len(v)
	switch {
	case n <= 31:
		if err := wr.write([]byte{byte(tagFixstrMin + n)}); err != nil {
			return err
		}
	case n <= math.MaxUint8:
		if err := wr.write([]byte{tagStr8, byte(n)}); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		buf := make([]byte, 3)
		buf[0] = tagStr16
		binary.BigEndian.PutUint16(buf[1:], uint16(n))
		if err := wr.write(buf); err != nil {
			return err
		}
	default:
		buf := make([]byte, 5)
		buf[0] = tagStr32
		binary.BigEndian.PutUint32(buf[1:], uint32(n))
		if err := wr.write(buf); err != nil {
			return err
		}
	}
	return wr.write([]byte(v))
}

func (wr *Writer) StartArray(hint int) error {
	if hint < 0 {
		return errclass.New(errclass.InvalidParam, "msgpack: writer requires a known element count, unlike JSON's delimiter-terminated arrays")
	}
	n := hint
	var err error
	switch {
	case n <= 15:
		err = wr.write([]byte{byte(tagFixarrayMin + n)})
	case n <= math.MaxUint16:
		buf := make([]byte, 3)
		buf[0] = tagArray16
		binary.BigEndian.PutUint16(buf[1:], uint16(n))
		err = wr.write(buf)
	default:
		buf := make([]byte, 5)
		buf[0] = tagArray32
		binary.BigEndian.PutUint32(buf[1:], uint32(n))
		err = wr.write(buf)
	}
	if err != nil {
		return err
	}
	wr.depth++
	return nil
}

func (wr *Writer) EndArray() error {
	wr.depth--
	return nil
}

func (wr *Writer) StartObject(hint int) error {
	if hint < 0 {
		return errclass.New(errclass.InvalidParam, "msgpack: writer requires a known member count, unlike JSON's delimiter-terminated objects")
	}
	n := hint
	var err error
	switch {
	case n <= 15:
		err = wr.write([]byte{byte(tagFixmapMin + n)})
	case n <= math.MaxUint16:
		buf := make([]byte, 3)
		buf[0] = tagMap16
		binary.BigEndian.PutUint16(buf[1:], uint16(n))
		err = wr.write(buf)
	default:
		buf := make([]byte, 5)
		buf[0] = tagMap32
		binary.BigEndian.PutUint32(buf[1:], uint32(n))
		err = wr.write(buf)
	}
	if err != nil {
		return err
	}
	wr.depth++
	return nil
}

func (wr *Writer) EndObject() error {
	wr.depth--
	return nil
}

func (wr *Writer) Key(v string) error {
	return wr.writeStr(v)
}
