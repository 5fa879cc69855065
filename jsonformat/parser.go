// SPDX-License-Identifier: GPL-3.0-or-later

// Package jsonformat implements a streaming JSON parser and writer over
// the netcore/sax event contract, per RFC 8259 with the clarifications
// netcore documents: whitespace restricted to space/tab/LF/CR, integer
// literals decoded as uint64 when non-negative and int64 when negative
// (as a double when out of range for either),
// strings decoding the eight standard escapes plus \uXXXX (with
// surrogate-pair combining), duplicate object keys accepted on the wire,
// and exactly one top-level value per document.
package jsonformat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/bassosimone/netcore/errclass"
	"github.com/bassosimone/netcore/sax"
)

// Parse reads exactly one JSON document from r and drives h through its
// event stream. Trailing non-whitespace after the document is rejected
// with [errclass.ExtraData]; containers nested past [sax.MaxDepth] are
// rejected with [errclass.NestingTooDeep].
func Parse(r io.Reader, h sax.Handler) error {
	p := &parser{r: bufio.NewReader(r)}
	if err := p.skipWS(); err != nil {
		return err
	}
	if err := p.parseValue(h); err != nil {
		return err
	}
	if err := p.skipWS(); err != nil {
		return err
	}
	if _, err := p.r.ReadByte(); err != io.EOF {
		if err == nil {
			return errclass.New(errclass.ExtraData, "jsonformat: trailing data after top-level value")
		}
		return errclass.Wrap(errclass.OperationFailed, "jsonformat: read error", err)
	}
	return nil
}

// ParseString is a convenience wrapper around [Parse] for an in-memory
// document.
func ParseString(s string, h sax.Handler) error {
	return Parse(strings.NewReader(s), h)
}

type parser struct {
	r     *bufio.Reader
	depth sax.DepthGuard
}

func syntaxErrorf(format string, args ...any) error {
	return errclass.New(errclass.InvalidDocument, fmt.Sprintf("jsonformat: "+format, args...))
}

func (p *parser) peek() (byte, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		return 0, err
	}
	return b, p.r.UnreadByte()
}

func isWS(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (p *parser) skipWS() error {
	for {
		b, err := p.r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errclass.Wrap(errclass.OperationFailed, "jsonformat: read error", err)
		}
		if !isWS(b) {
			return p.r.UnreadByte()
		}
	}
}

func (p *parser) expect(b byte) error {
	got, err := p.r.ReadByte()
	if err != nil {
		return errclass.Wrap(errclass.InvalidDocument, "jsonformat: unexpected end of input", err)
	}
	if got != b {
		return syntaxErrorf("expected %q, got %q", b, got)
	}
	return nil
}

func (p *parser) expectLiteral(lit string, v any, h sax.Handler) error {
	for i := 0; i < len(lit); i++ {
		if err := p.expect(lit[i]); err != nil {
			return err
		}
	}
	switch val := v.(type) {
	case bool:
		return h.Bool(val)
	case nil:
		return h.Null()
	}
	return nil
}

func (p *parser) parseValue(h sax.Handler) error {
	b, err := p.peek()
	if err != nil {
		return errclass.Wrap(errclass.InvalidDocument, "jsonformat: unexpected end of input", err)
	}
	switch {
	case b == '{':
		return p.parseObject(h)
	case b == '[':
		return p.parseArray(h)
	case b == '"':
		s, err := p.parseString()
		if err != nil {
			return err
		}
		return h.String(s)
	case b == 't':
		return p.expectLiteral("true", true, h)
	case b == 'f':
		return p.expectLiteral("false", false, h)
	case b == 'n':
		return p.expectLiteral("null", nil, h)
	case b == '-' || (b >= '0' && b <= '9'):
		return p.parseNumber(h)
	default:
		return syntaxErrorf("unexpected character %q", b)
	}
}

func (p *parser) parseObject(h sax.Handler) error {
	if err := p.depth.Enter(); err != nil {
		return err
	}
	defer p.depth.Leave()
	if err := p.expect('{'); err != nil {
		return err
	}
	if err := h.StartObject(-1); err != nil {
		return err
	}
	if err := p.skipWS(); err != nil {
		return err
	}
	b, err := p.peek()
	if err != nil {
		return errclass.Wrap(errclass.InvalidDocument, "jsonformat: unexpected end of input", err)
	}
	if b == '}' {
		p.r.ReadByte()
		return h.EndObject()
	}
	for {
		if err := p.skipWS(); err != nil {
			return err
		}
		key, err := p.parseString()
		if err != nil {
			return err
		}
		if err := h.Key(key); err != nil {
			return err
		}
		if err := p.skipWS(); err != nil {
			return err
		}
		if err := p.expect(':'); err != nil {
			return err
		}
		if err := p.skipWS(); err != nil {
			return err
		}
		if err := p.parseValue(h); err != nil {
			return err
		}
		if err := p.skipWS(); err != nil {
			return err
		}
		b, err := p.r.ReadByte()
		if err != nil {
			return errclass.Wrap(errclass.InvalidDocument, "jsonformat: unexpected end of input", err)
		}
		switch b {
		case ',':
			continue
		case '}':
			return h.EndObject()
		default:
			return syntaxErrorf("expected ',' or '}', got %q", b)
		}
	}
}

func (p *parser) parseArray(h sax.Handler) error {
	if err := p.depth.Enter(); err != nil {
		return err
	}
	defer p.depth.Leave()
	if err := p.expect('['); err != nil {
		return err
	}
	if err := h.StartArray(-1); err != nil {
		return err
	}
	if err := p.skipWS(); err != nil {
		return err
	}
	b, err := p.peek()
	if err != nil {
		return errclass.Wrap(errclass.InvalidDocument, "jsonformat: unexpected end of input", err)
	}
	if b == ']' {
		p.r.ReadByte()
		return h.EndArray()
	}
	for {
		if err := p.skipWS(); err != nil {
			return err
		}
		if err := p.parseValue(h); err != nil {
			return err
		}
		if err := p.skipWS(); err != nil {
			return err
		}
		b, err := p.r.ReadByte()
		if err != nil {
			return errclass.Wrap(errclass.InvalidDocument, "jsonformat: unexpected end of input", err)
		}
		switch b {
		case ',':
			continue
		case ']':
			return h.EndArray()
		default:
			return syntaxErrorf("expected ',' or ']', got %q", b)
		}
	}
}

func (p *parser) parseString() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	var sb strings.Builder
	for {
		b, err := p.r.ReadByte()
		if err != nil {
			return "", errclass.Wrap(errclass.InvalidDocument, "jsonformat: unterminated string", err)
		}
		switch b {
		case '"':
			return sb.String(), nil
		case '\\':
			if err := p.parseEscape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(b)
		}
	}
}

func (p *parser) parseEscape(sb *strings.Builder) error {
	b, err := p.r.ReadByte()
	if err != nil {
		return errclass.Wrap(errclass.InvalidDocument, "jsonformat: unterminated escape", err)
	}
	switch b {
	case '"':
		sb.WriteByte('"')
	case '\\':
		sb.WriteByte('\\')
	case '/':
		sb.WriteByte('/')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'u':
		r, err := p.parseHex4()
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(rune(r)) {
			if err := p.expect('\\'); err != nil {
				return syntaxErrorf("unpaired surrogate \\u%04x", r)
			}
			if err := p.expect('u'); err != nil {
				return syntaxErrorf("unpaired surrogate \\u%04x", r)
			}
			r2, err := p.parseHex4()
			if err != nil {
				return err
			}
			combined := utf16.DecodeRune(rune(r), rune(r2))
			if combined == utf8.RuneError {
				return syntaxErrorf("invalid surrogate pair \\u%04x\\u%04x", r, r2)
			}
			sb.WriteRune(combined)
			return nil
		}
		sb.WriteRune(rune(r))
	default:
		return syntaxErrorf("invalid escape \\%c", b)
	}
	return nil
}

func (p *parser) parseHex4() (uint16, error) {
	var buf [4]byte
	for i := range buf {
		b, err := p.r.ReadByte()
		if err != nil {
			return 0, errclass.Wrap(errclass.InvalidDocument, "jsonformat: truncated \\u escape", err)
		}
		buf[i] = b
	}
	n, err := strconv.ParseUint(string(buf[:]), 16, 16)
	if err != nil {
		return 0, syntaxErrorf("invalid \\u escape %q", string(buf[:]))
	}
	return uint16(n), nil
}

func isNumberByte(b byte) bool {
	switch b {
	case '+', '-', '.', 'e', 'E':
		return true
	default:
		return b >= '0' && b <= '9'
	}
}

func (p *parser) parseNumber(h sax.Handler) error {
	var sb strings.Builder
	isFloat := false
	for {
		b, err := p.r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errclass.Wrap(errclass.OperationFailed, "jsonformat: read error", err)
		}
		if !isNumberByte(b) {
			p.r.UnreadByte()
			break
		}
		if b == '.' || b == 'e' || b == 'E' {
			isFloat = true
		}
		sb.WriteByte(b)
	}
	lit := sb.String()
	if lit == "" {
		return syntaxErrorf("empty number literal")
	}
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return syntaxErrorf("invalid number %q", lit)
		}
		return h.Real(f)
	}
	if lit[0] == '-' {
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(lit, 64)
			if ferr != nil {
				return syntaxErrorf("invalid number %q", lit)
			}
			return h.Real(f)
		}
		return h.Int(n)
	}
	u, err := strconv.ParseUint(lit, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(lit, 64)
		if ferr != nil {
			return syntaxErrorf("invalid number %q", lit)
		}
		return h.Real(f)
	}
	return h.Uint(u)
}
