// SPDX-License-Identifier: GPL-3.0-or-later

// Package wire implements the DNS message wire codec: the 12-byte header,
// name encoding (always uncompressed) and decoding (following compression
// pointers), and answer payload dispatch by RR
// type. It has no notion of transport, transaction state, or timeouts --
// those live in the dns package, which calls into wire to serialize
// requests and decode responses.
package wire

import (
	"encoding/binary"

	"github.com/bassosimone/netcore/errclass"
)

// HeaderSize is the fixed wire size of a DNS message header.
const HeaderSize = 12

// Flag bits within the header's second 16-bit word.
const (
	FlagResponse        uint16 = 1 << 15 // QR
	FlagRecursionDesired uint16 = 1 << 8  // RD
)

// RCODE values, the low 4 bits of the flags word.
const (
	RcodeNoError  uint16 = 0
	RcodeFormErr  uint16 = 1
	RcodeServFail uint16 = 2
	RcodeNXDomain uint16 = 3
	RcodeNotImp   uint16 = 4
	RcodeRefused  uint16 = 5
)

// RR types relevant to this library.
const (
	TypeA     uint16 = 1
	TypeNS    uint16 = 2
	TypeCNAME uint16 = 5
	TypeSOA   uint16 = 6
	TypePTR   uint16 = 12
	TypeMX    uint16 = 15
	TypeAAAA  uint16 = 28
)

// ClassIN is the only RR class this library ever queries or decodes.
const ClassIN uint16 = 1

// Header is the fixed 12-byte DNS message header.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Rcode extracts the RCODE (low 4 bits of Flags).
func (h Header) Rcode() uint16 {
	return h.Flags & 0x000f
}

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool {
	return h.Flags&FlagResponse != 0
}

// Encode appends h's wire representation to buf.
func (h Header) Encode(buf []byte) []byte {
	var tmp [HeaderSize]byte
	binary.BigEndian.PutUint16(tmp[0:2], h.ID)
	binary.BigEndian.PutUint16(tmp[2:4], h.Flags)
	binary.BigEndian.PutUint16(tmp[4:6], h.QDCount)
	binary.BigEndian.PutUint16(tmp[6:8], h.ANCount)
	binary.BigEndian.PutUint16(tmp[8:10], h.NSCount)
	binary.BigEndian.PutUint16(tmp[10:12], h.ARCount)
	return append(buf, tmp[:]...)
}

// DecodeHeader parses a Header from the start of packet.
func DecodeHeader(packet []byte) (Header, error) {
	if len(packet) < HeaderSize {
		return Header{}, errclass.New(errclass.InvalidParam, "wire: short header")
	}
	return Header{
		ID:      binary.BigEndian.Uint16(packet[0:2]),
		Flags:   binary.BigEndian.Uint16(packet[2:4]),
		QDCount: binary.BigEndian.Uint16(packet[4:6]),
		ANCount: binary.BigEndian.Uint16(packet[6:8]),
		NSCount: binary.BigEndian.Uint16(packet[8:10]),
		ARCount: binary.BigEndian.Uint16(packet[10:12]),
	}, nil
}

// RcodeToKind maps an RCODE to the error taxonomy: NOERROR maps to ""
// (not a failure), {NXDOMAIN}->NotFound, {FORMERR, NOTIMP}->InvalidParam,
// {SERVFAIL}->OperationFailed, {REFUSED}->PermissionDenied, else UnknownError.
func RcodeToKind(rcode uint16) errclass.Kind {
	switch rcode {
	case RcodeNoError:
		return ""
	case RcodeNXDomain:
		return errclass.NotFound
	case RcodeFormErr, RcodeNotImp:
		return errclass.InvalidParam
	case RcodeServFail:
		return errclass.OperationFailed
	case RcodeRefused:
		return errclass.PermissionDenied
	default:
		return errclass.UnknownError
	}
}
