// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"encoding/binary"
	"strings"

	"github.com/bassosimone/netcore/errclass"
	"github.com/bassosimone/netcore/ipaddr"
)

// RData holds the decoded payload of a resource record. Only the fields
// relevant to Type are populated; the rest are zero. Raw holds the
// untouched rdata bytes for RR types this library does not interpret.
type RData struct {
	Addr ipaddr.Address // A, AAAA

	Name string // CNAME, NS, PTR, and MX's exchange target

	Preference uint16 // MX

	// SOA fields.
	Mname   string
	Rname   string // email-style name, '@' form (see soaEmailToName/soaNameToEmail)
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32

	Raw []byte
}

// Record is a single resource record as found in the answer, authority, or
// additional sections of a decoded message.
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  RData
}

// DecodeRecord decodes a Record starting at offset, returning the offset
// immediately after it. Name decompression within the rdata (SOA, MX,
// CNAME, NS, PTR) resolves pointers against the full packet, per §4.7.1.
func DecodeRecord(packet []byte, offset int) (Record, int, error) {
	name, pos, err := DecodeName(packet, offset)
	if err != nil {
		return Record{}, 0, err
	}
	if pos+10 > len(packet) {
		return Record{}, 0, errclass.New(errclass.InvalidParam, "wire: truncated record header")
	}
	rtype := binary.BigEndian.Uint16(packet[pos : pos+2])
	class := binary.BigEndian.Uint16(packet[pos+2 : pos+4])
	ttl := binary.BigEndian.Uint32(packet[pos+4 : pos+8])
	rdlen := int(binary.BigEndian.Uint16(packet[pos+8 : pos+10]))
	pos += 10

	rdataStart := pos
	rdataEnd := rdataStart + rdlen
	if rdataEnd > len(packet) {
		return Record{}, 0, errclass.New(errclass.InvalidParam, "wire: truncated rdata")
	}

	data, err := decodeRData(packet, rtype, rdataStart, rdataEnd)
	if err != nil {
		return Record{}, 0, err
	}

	return Record{Name: name, Type: rtype, Class: class, TTL: ttl, Data: data}, rdataEnd, nil
}

func decodeRData(packet []byte, rtype uint16, start, end int) (RData, error) {
	rdata := packet[start:end]
	switch rtype {
	case TypeA:
		if len(rdata) != 4 {
			return RData{}, errclass.New(errclass.InvalidParam, "wire: malformed A record")
		}
		addr, err := ipaddr.FromBytes(rdata, 0)
		if err != nil {
			return RData{}, err
		}
		return RData{Addr: addr}, nil

	case TypeAAAA:
		if len(rdata) != 16 {
			return RData{}, errclass.New(errclass.InvalidParam, "wire: malformed AAAA record")
		}
		addr, err := ipaddr.FromBytes(rdata, 0)
		if err != nil {
			return RData{}, err
		}
		return RData{Addr: addr}, nil

	case TypeCNAME, TypeNS, TypePTR:
		name, _, err := DecodeName(packet, start)
		if err != nil {
			return RData{}, err
		}
		return RData{Name: name}, nil

	case TypeMX:
		if len(rdata) < 2 {
			return RData{}, errclass.New(errclass.InvalidParam, "wire: malformed MX record")
		}
		pref := binary.BigEndian.Uint16(rdata[0:2])
		name, _, err := DecodeName(packet, start+2)
		if err != nil {
			return RData{}, err
		}
		return RData{Preference: pref, Name: name}, nil

	case TypeSOA:
		mname, pos, err := DecodeName(packet, start)
		if err != nil {
			return RData{}, err
		}
		rname, pos, err := DecodeName(packet, pos)
		if err != nil {
			return RData{}, err
		}
		if pos+20 > end {
			return RData{}, errclass.New(errclass.InvalidParam, "wire: truncated SOA record")
		}
		return RData{
			Mname:   mname,
			Rname:   soaEmailToName(rname),
			Serial:  binary.BigEndian.Uint32(packet[pos : pos+4]),
			Refresh: binary.BigEndian.Uint32(packet[pos+4 : pos+8]),
			Retry:   binary.BigEndian.Uint32(packet[pos+8 : pos+12]),
			Expire:  binary.BigEndian.Uint32(packet[pos+12 : pos+16]),
			Minimum: binary.BigEndian.Uint32(packet[pos+16 : pos+20]),
		}, nil

	default:
		raw := make([]byte, len(rdata))
		copy(raw, rdata)
		return RData{Raw: raw}, nil
	}
}

// soaEmailToName converts a decoded SOA RNAME (a dotted DNS name whose
// first unescaped "." separates the mailbox local part from the domain,
// with "\." escaping literal dots within the local part) into the
// conventional "user@domain" display form.
func soaEmailToName(dottedName string) string {
	var sb strings.Builder
	escaped := false
	for i := 0; i < len(dottedName); i++ {
		c := dottedName[i]
		switch {
		case escaped:
			sb.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '.':
			sb.WriteByte('@')
			sb.WriteString(dottedName[i+1:])
			return sb.String()
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// soaNameToEmail reverses [soaEmailToName]: the first "@" becomes the
// separating ".", and any "." within the local part is escaped as "\.".
func soaNameToEmail(emailName string) string {
	at := strings.IndexByte(emailName, '@')
	if at < 0 {
		return emailName
	}
	local, domain := emailName[:at], emailName[at+1:]
	local = strings.ReplaceAll(local, ".", "\\.")
	return local + "." + domain
}

// EncodeRecord appends rec's wire representation to buf. Per §6, names are
// always written in full -- compression is recognized on decode but never
// emitted on encode.
func EncodeRecord(buf []byte, rec Record) ([]byte, error) {
	buf, err := EncodeName(buf, rec.Name)
	if err != nil {
		return nil, err
	}
	var head [8]byte
	binary.BigEndian.PutUint16(head[0:2], rec.Type)
	binary.BigEndian.PutUint16(head[2:4], rec.Class)
	binary.BigEndian.PutUint32(head[4:8], rec.TTL)
	buf = append(buf, head[:]...)

	var rdata []byte
	switch rec.Type {
	case TypeA, TypeAAAA:
		rdata = append(rdata, rec.Data.Addr.Bytes()...)

	case TypeCNAME, TypeNS, TypePTR:
		rdata, err = EncodeName(rdata, rec.Data.Name)
		if err != nil {
			return nil, err
		}

	case TypeMX:
		var pref [2]byte
		binary.BigEndian.PutUint16(pref[:], rec.Data.Preference)
		rdata = append(rdata, pref[:]...)
		rdata, err = EncodeName(rdata, rec.Data.Name)
		if err != nil {
			return nil, err
		}

	case TypeSOA:
		rdata, err = EncodeName(rdata, rec.Data.Mname)
		if err != nil {
			return nil, err
		}
		rdata, err = EncodeName(rdata, soaNameToEmail(rec.Data.Rname))
		if err != nil {
			return nil, err
		}
		var tail [20]byte
		binary.BigEndian.PutUint32(tail[0:4], rec.Data.Serial)
		binary.BigEndian.PutUint32(tail[4:8], rec.Data.Refresh)
		binary.BigEndian.PutUint32(tail[8:12], rec.Data.Retry)
		binary.BigEndian.PutUint32(tail[12:16], rec.Data.Expire)
		binary.BigEndian.PutUint32(tail[16:20], rec.Data.Minimum)
		rdata = append(rdata, tail[:]...)

	default:
		rdata = append(rdata, rec.Data.Raw...)
	}

	if len(rdata) > 0xffff {
		return nil, errclass.New(errclass.InvalidParam, "wire: rdata too large")
	}
	var rdlen [2]byte
	binary.BigEndian.PutUint16(rdlen[:], uint16(len(rdata)))
	buf = append(buf, rdlen[:]...)
	return append(buf, rdata...), nil
}
