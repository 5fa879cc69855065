// SPDX-License-Identifier: GPL-3.0-or-later

package wire

// Message is a fully decoded (or to-be-encoded) DNS message.
type Message struct {
	Header      Header
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// Encode serializes m to its wire representation. Section counts in
// Header are overwritten from the slice lengths, so callers need not keep
// them in sync by hand.
func (m Message) Encode() ([]byte, error) {
	m.Header.QDCount = uint16(len(m.Questions))
	m.Header.ANCount = uint16(len(m.Answers))
	m.Header.NSCount = uint16(len(m.Authorities))
	m.Header.ARCount = uint16(len(m.Additionals))

	buf := make([]byte, 0, HeaderSize+64)
	buf = m.Header.Encode(buf)

	var err error
	for _, q := range m.Questions {
		if buf, err = q.Encode(buf); err != nil {
			return nil, err
		}
	}
	for _, r := range m.Answers {
		if buf, err = EncodeRecord(buf, r); err != nil {
			return nil, err
		}
	}
	for _, r := range m.Authorities {
		if buf, err = EncodeRecord(buf, r); err != nil {
			return nil, err
		}
	}
	for _, r := range m.Additionals {
		if buf, err = EncodeRecord(buf, r); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeMessage parses a full Message from packet.
func DecodeMessage(packet []byte) (Message, error) {
	header, err := DecodeHeader(packet)
	if err != nil {
		return Message{}, err
	}

	pos := HeaderSize
	m := Message{Header: header}

	for i := 0; i < int(header.QDCount); i++ {
		var q Question
		if q, pos, err = DecodeQuestion(packet, pos); err != nil {
			return Message{}, err
		}
		m.Questions = append(m.Questions, q)
	}

	for _, n := range []struct {
		count int
		dst   *[]Record
	}{
		{int(header.ANCount), &m.Answers},
		{int(header.NSCount), &m.Authorities},
		{int(header.ARCount), &m.Additionals},
	} {
		for i := 0; i < n.count; i++ {
			var r Record
			if r, pos, err = DecodeRecord(packet, pos); err != nil {
				return Message{}, err
			}
			*n.dst = append(*n.dst, r)
		}
	}

	return m, nil
}
