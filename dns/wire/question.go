// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"encoding/binary"

	"github.com/bassosimone/netcore/errclass"
)

// Question is a single entry in the question section.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// Encode appends q's wire representation to buf.
func (q Question) Encode(buf []byte) ([]byte, error) {
	buf, err := EncodeName(buf, q.Name)
	if err != nil {
		return nil, err
	}
	var tmp [4]byte
	binary.BigEndian.PutUint16(tmp[0:2], q.Type)
	binary.BigEndian.PutUint16(tmp[2:4], q.Class)
	return append(buf, tmp[:]...), nil
}

// DecodeQuestion decodes a Question starting at offset, returning the
// offset immediately after it.
func DecodeQuestion(packet []byte, offset int) (Question, int, error) {
	name, pos, err := DecodeName(packet, offset)
	if err != nil {
		return Question{}, 0, err
	}
	if pos+4 > len(packet) {
		return Question{}, 0, errclass.New(errclass.InvalidParam, "wire: truncated question")
	}
	q := Question{
		Name:  name,
		Type:  binary.BigEndian.Uint16(packet[pos : pos+2]),
		Class: binary.BigEndian.Uint16(packet[pos+2 : pos+4]),
	}
	return q, pos + 4, nil
}
