// SPDX-License-Identifier: GPL-3.0-or-later

package msgpack

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/bassosimone/netcore/errclass"
	"github.com/bassosimone/netcore/sax"
)

// Parse reads exactly one MessagePack value from r and drives h through
// its event stream. The top-level value must be an array or a map;
// [errclass.InvalidDocument] is returned for a bare top-level scalar.
// Trailing bytes after the value are rejected with [errclass.ExtraData].
func Parse(r io.Reader, h sax.Handler) error {
	p := &parser{r: bufio.NewReader(r)}
	tag, err := p.readByte()
	if err != nil {
		return errclass.Wrap(errclass.InvalidDocument, "msgpack: empty input", err)
	}
	if !isContainerTag(tag) {
		return errclass.New(errclass.InvalidDocument, "msgpack: top-level value must be an array or map")
	}
	if err := p.parseValue(tag, h); err != nil {
		return err
	}
	if _, err := p.r.ReadByte(); err != io.EOF {
		if err == nil {
			return errclass.New(errclass.ExtraData, "msgpack: trailing data after top-level value")
		}
		return errclass.Wrap(errclass.OperationFailed, "msgpack: read error", err)
	}
	return nil
}

// ParseBytes is a convenience wrapper around [Parse] for an in-memory
// buffer.
func ParseBytes(data []byte, h sax.Handler) error {
	return Parse(bytes.NewReader(data), h)
}

func isContainerTag(tag byte) bool {
	switch {
	case tag >= tagFixmapMin && tag <= tagFixmapMax:
		return true
	case tag >= tagFixarrayMin && tag <= tagFixarrayMax:
		return true
	case tag == tagArray16 || tag == tagArray32:
		return true
	case tag == tagMap16 || tag == tagMap32:
		return true
	default:
		return false
	}
}

type parser struct {
	r     *bufio.Reader
	depth sax.DepthGuard
}

func (p *parser) readByte() (byte, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		return 0, errclass.Wrap(errclass.InvalidDocument, "msgpack: unexpected end of input", err)
	}
	return b, nil
}

func (p *parser) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, errclass.Wrap(errclass.InvalidDocument, "msgpack: unexpected end of input", err)
	}
	return buf, nil
}

func (p *parser) readUint(n int) (uint64, error) {
	buf, err := p.readN(n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf)), nil
	default:
		return binary.BigEndian.Uint64(buf), nil
	}
}

func (p *parser) parseValue(tag byte, h sax.Handler) error {
	switch {
	case tag <= tagPositiveFixintMax:
		return h.Uint(uint64(tag))
	case tag >= tagNegativeFixintMin:
		return h.Int(int64(int8(tag)))
	case tag >= tagFixstrMin && tag <= tagFixstrMax:
		return p.parseStr(h, int(tag-tagFixstrMin))
	case tag >= tagFixarrayMin && tag <= tagFixarrayMax:
		return p.parseArray(h, int(tag-tagFixarrayMin))
	case tag >= tagFixmapMin && tag <= tagFixmapMax:
		return p.parseMap(h, int(tag-tagFixmapMin))
	}

	switch tag {
	case tagNil:
		return h.Null()
	case tagFalse:
		return h.Bool(false)
	case tagTrue:
		return h.Bool(true)
	case tagBin8, tagStr8:
		n, err := p.readUint(1)
		if err != nil {
			return err
		}
		return p.parseStr(h, int(n))
	case tagBin16, tagStr16:
		n, err := p.readUint(2)
		if err != nil {
			return err
		}
		return p.parseStr(h, int(n))
	case tagBin32, tagStr32:
		n, err := p.readUint(4)
		if err != nil {
			return err
		}
		return p.parseStr(h, int(n))
	case tagFloat32:
		bits, err := p.readUint(4)
		if err != nil {
			return err
		}
		return h.Real(float64(math.Float32frombits(uint32(bits))))
	case tagFloat64:
		bits, err := p.readUint(8)
		if err != nil {
			return err
		}
		return h.Real(math.Float64frombits(bits))
	case tagUint8:
		n, err := p.readUint(1)
		if err != nil {
			return err
		}
		return h.Uint(n)
	case tagUint16:
		n, err := p.readUint(2)
		if err != nil {
			return err
		}
		return h.Uint(n)
	case tagUint32:
		n, err := p.readUint(4)
		if err != nil {
			return err
		}
		return h.Uint(n)
	case tagUint64:
		n, err := p.readUint(8)
		if err != nil {
			return err
		}
		return h.Uint(n)
	case tagInt8:
		n, err := p.readUint(1)
		if err != nil {
			return err
		}
		return h.Int(int64(int8(n)))
	case tagInt16:
		n, err := p.readUint(2)
		if err != nil {
			return err
		}
		return h.Int(int64(int16(n)))
	case tagInt32:
		n, err := p.readUint(4)
		if err != nil {
			return err
		}
		return h.Int(int64(int32(n)))
	case tagInt64:
		n, err := p.readUint(8)
		if err != nil {
			return err
		}
		return h.Int(int64(n))
	case tagArray16:
		n, err := p.readUint(2)
		if err != nil {
			return err
		}
		return p.parseArray(h, int(n))
	case tagArray32:
		n, err := p.readUint(4)
		if err != nil {
			return err
		}
		return p.parseArray(h, int(n))
	case tagMap16:
		n, err := p.readUint(2)
		if err != nil {
			return err
		}
		return p.parseMap(h, int(n))
	case tagMap32:
		n, err := p.readUint(4)
		if err != nil {
			return err
		}
		return p.parseMap(h, int(n))
	default:
		return errclass.New(errclass.InvalidType, fmt.Sprintf("msgpack: unsupported tag byte 0x%02x", tag))
	}
}

func (p *parser) parseStr(h sax.Handler, n int) error {
	buf, err := p.readN(n)
	if err != nil {
		return err
	}
	return h.String(string(buf))
}

func (p *parser) parseArray(h sax.Handler, n int) error {
	if err := p.depth.Enter(); err != nil {
		return err
	}
	defer p.depth.Leave()
	if err := h.StartArray(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		tag, err := p.readByte()
		if err != nil {
			return err
		}
		if err := p.parseValue(tag, h); err != nil {
			return err
		}
	}
	return h.EndArray()
}

func (p *parser) parseMap(h sax.Handler, n int) error {
	if err := p.depth.Enter(); err != nil {
		return err
	}
	defer p.depth.Leave()
	if err := h.StartObject(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		keyTag, err := p.readByte()
		if err != nil {
			return err
		}
		key, err := p.parseMapKey(keyTag)
		if err != nil {
			return err
		}
		if err := h.Key(key); err != nil {
			return err
		}
		valTag, err := p.readByte()
		if err != nil {
			return err
		}
		if err := p.parseValue(valTag, h); err != nil {
			return err
		}
	}
	return h.EndObject()
}

// parseMapKey decodes a map key, which the wire format requires to be a
// string (fixstr or str8/16/32); any other tag is InvalidType.
func (p *parser) parseMapKey(tag byte) (string, error) {
	switch {
	case tag >= tagFixstrMin && tag <= tagFixstrMax:
		buf, err := p.readN(int(tag - tagFixstrMin))
		if err != nil {
			return "", err
		}
		return string(buf), nil
	case tag == tagStr8:
		n, err := p.readUint(1)
		if err != nil {
			return "", err
		}
		buf, err := p.readN(int(n))
		if err != nil {
			return "", err
		}
		return string(buf), nil
	case tag == tagStr16:
		n, err := p.readUint(2)
		if err != nil {
			return "", err
		}
		buf, err := p.readN(int(n))
		if err != nil {
			return "", err
		}
		return string(buf), nil
	case tag == tagStr32:
		n, err := p.readUint(4)
		if err != nil {
			return "", err
		}
		buf, err := p.readN(int(n))
		if err != nil {
			return "", err
		}
		return string(buf), nil
	default:
		return "", errclass.New(errclass.InvalidType, fmt.Sprintf("msgpack: map key must be a string, got tag 0x%02x", tag))
	}
}
