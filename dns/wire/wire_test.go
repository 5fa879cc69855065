// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"testing"

	"github.com/bassosimone/netcore/ipaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{ID: 0x1234, Flags: FlagRecursionDesired, QDCount: 1}
	buf := h.Encode(nil)
	require.Len(t, buf, HeaderSize)

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.False(t, got.IsResponse())
}

func TestRcodeToKind(t *testing.T) {
	cases := map[uint16]string{
		RcodeNoError:  "",
		RcodeNXDomain: "NotFound",
		RcodeFormErr:  "InvalidParam",
		RcodeNotImp:   "InvalidParam",
		RcodeServFail: "OperationFailed",
		RcodeRefused:  "PermissionDenied",
		9:             "UnknownError",
	}
	for rcode, want := range cases {
		assert.Equal(t, want, string(RcodeToKind(rcode)))
	}
}

func TestNameRoundTripNoCompression(t *testing.T) {
	buf, err := EncodeName(nil, "www.example.com")
	require.NoError(t, err)

	name, pos, err := DecodeName(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", name)
	assert.Equal(t, len(buf), pos)
}

func TestNameRootIsSingleZeroByte(t *testing.T) {
	buf, err := EncodeName(nil, "")
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, buf)
}

func TestNameDecodeFollowsCompressionPointer(t *testing.T) {
	// Build a packet: offset 0 holds "example.com", offset later holds
	// "www" followed by a pointer back to offset 0.
	packet, err := EncodeName(nil, "example.com")
	require.NoError(t, err)
	pointerTargetOffset := 0

	wwwOffset := len(packet)
	packet = append(packet, 3, 'w', 'w', 'w')
	packet = append(packet, 0xc0|byte(pointerTargetOffset>>8), byte(pointerTargetOffset&0xff))

	name, pos, err := DecodeName(packet, wwwOffset)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", name)
	assert.Equal(t, len(packet), pos)
}

func TestNameDecodeRejectsPointerLoop(t *testing.T) {
	packet := []byte{0xc0, 0x00} // points to itself
	_, _, err := DecodeName(packet, 0)
	assert.Error(t, err)
}

func TestQuestionRoundTrip(t *testing.T) {
	q := Question{Name: "example.com", Type: TypeA, Class: ClassIN}
	buf, err := q.Encode(nil)
	require.NoError(t, err)

	got, pos, err := DecodeQuestion(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, q, got)
	assert.Equal(t, len(buf), pos)
}

func TestRecordRoundTripA(t *testing.T) {
	addr, err := ipaddr.Parse("93.184.216.34")
	require.NoError(t, err)
	rec := Record{Name: "example.com", Type: TypeA, Class: ClassIN, TTL: 300, Data: RData{Addr: addr}}

	buf, err := EncodeRecord(nil, rec)
	require.NoError(t, err)

	got, pos, err := DecodeRecord(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(buf), pos)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.TTL, got.TTL)
	assert.True(t, addr.Equal(got.Data.Addr))
}

func TestRecordRoundTripCNAME(t *testing.T) {
	rec := Record{Name: "alias.example.com", Type: TypeCNAME, Class: ClassIN, TTL: 60,
		Data: RData{Name: "canonical.example.com"}}

	buf, err := EncodeRecord(nil, rec)
	require.NoError(t, err)

	got, _, err := DecodeRecord(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "canonical.example.com", got.Data.Name)
}

func TestRecordRoundTripMX(t *testing.T) {
	rec := Record{Name: "example.com", Type: TypeMX, Class: ClassIN, TTL: 60,
		Data: RData{Preference: 10, Name: "mail.example.com"}}

	buf, err := EncodeRecord(nil, rec)
	require.NoError(t, err)

	got, _, err := DecodeRecord(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), got.Data.Preference)
	assert.Equal(t, "mail.example.com", got.Data.Name)
}

func TestRecordRoundTripSOA(t *testing.T) {
	rec := Record{Name: "example.com", Type: TypeSOA, Class: ClassIN, TTL: 3600,
		Data: RData{
			Mname: "ns1.example.com", Rname: "hostmaster@example.com",
			Serial: 2024010100, Refresh: 7200, Retry: 3600, Expire: 1209600, Minimum: 300,
		}}

	buf, err := EncodeRecord(nil, rec)
	require.NoError(t, err)

	got, _, err := DecodeRecord(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "ns1.example.com", got.Data.Mname)
	assert.Equal(t, "hostmaster@example.com", got.Data.Rname)
	assert.Equal(t, uint32(2024010100), got.Data.Serial)
}

func TestSOAEmailEscapedDot(t *testing.T) {
	assert.Equal(t, "first.last@example.com", soaEmailToName(`first\.last.example.com`))
	assert.Equal(t, `first\.last.example.com`, soaNameToEmail("first.last@example.com"))
}

func TestMessageRoundTrip(t *testing.T) {
	addr, err := ipaddr.Parse("1.2.3.4")
	require.NoError(t, err)
	m := Message{
		Header:    Header{ID: 7, Flags: FlagRecursionDesired},
		Questions: []Question{{Name: "example.com", Type: TypeA, Class: ClassIN}},
		Answers:   []Record{{Name: "example.com", Type: TypeA, Class: ClassIN, TTL: 60, Data: RData{Addr: addr}}},
	}

	buf, err := m.Encode()
	require.NoError(t, err)

	got, err := DecodeMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), got.Header.ID)
	assert.Equal(t, uint16(1), got.Header.QDCount)
	assert.Equal(t, uint16(1), got.Header.ANCount)
	require.Len(t, got.Answers, 1)
	assert.True(t, addr.Equal(got.Answers[0].Data.Addr))
}

func TestDecodeHeaderTooShort(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	assert.Error(t, err)
}
