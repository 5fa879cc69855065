// SPDX-License-Identifier: GPL-3.0-or-later

package msgpack

import (
	"bytes"
	"testing"

	"github.com/bassosimone/netcore/errclass"
	"github.com/bassosimone/netcore/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseToValue(t *testing.T, data []byte) value.Value {
	t.Helper()
	var b value.Builder
	require.NoError(t, ParseBytes(data, &b))
	return b.Value()
}

func TestParseEmptyFixarray(t *testing.T) {
	v := parseToValue(t, []byte{0x90})
	assert.True(t, v.IsArray())
	assert.True(t, v.GetArray().Empty())
}

func TestParseArray16WithUint32Element(t *testing.T) {
	v := parseToValue(t, []byte{0xdc, 0x00, 0x01, 0xce, 0x49, 0x96, 0x02, 0xd2})
	assert.True(t, v.IsArray())
	require.Equal(t, 1, v.GetArray().Len())
	assert.True(t, v.GetArray().At(0).IsInt())
	assert.Equal(t, uint64(1234567890), v.GetArray().At(0).GetUint64())
}

func TestParseArray32WithFloat64Element(t *testing.T) {
	v := parseToValue(t, []byte{
		0xdd, 0x00, 0x00, 0x00, 0x01,
		0xcb, 0xc0, 0xc3, 0x4a, 0x45, 0x87, 0xe7, 0xc0, 0x6e,
	})
	assert.True(t, v.GetArray().At(0).IsDouble())
	assert.InDelta(t, -9876.543210, v.GetArray().At(0).GetDouble(), 1e-9)
}

func TestParseFixarrayWithBool(t *testing.T) {
	v := parseToValue(t, []byte{0x91, 0xc3})
	assert.True(t, v.GetArray().At(0).GetBool())
}

func TestParseBareScalarTopLevelIsInvalidDocument(t *testing.T) {
	var b value.Builder
	err := ParseBytes([]byte{0xc3}, &b)
	require.Error(t, err)
	assert.Equal(t, errclass.InvalidDocument, errclass.Of(err))
}

func TestParseTrailingDataIsExtraData(t *testing.T) {
	var b value.Builder
	err := ParseBytes([]byte{0xdd, 0x00, 0x00, 0x00, 0x00, 0x00}, &b)
	require.Error(t, err)
	assert.Equal(t, errclass.ExtraData, errclass.Of(err))
}

func TestParseUnsupportedTagIsInvalidType(t *testing.T) {
	var b value.Builder
	// 0xc1 is never assigned in the MessagePack format.
	err := ParseBytes([]byte{0x91, 0xc1}, &b)
	require.Error(t, err)
	assert.Equal(t, errclass.InvalidType, errclass.Of(err))
}

func TestParseFixmap(t *testing.T) {
	v := parseToValue(t, []byte{
		0x81,
		0xa1, 'k',
		0x01,
	})
	assert.True(t, v.IsObject())
	got, ok := v.GetObject().At("k")
	require.True(t, ok)
	assert.Equal(t, uint64(1), got.GetUint64())
}

func TestWriteThenParseRoundTrip(t *testing.T) {
	obj := value.NewObject()
	obj.GetObject().Insert("name", value.String("nop"))
	arr := value.NewArray()
	arr.GetArray().PushBack(value.Int64(-5))
	arr.GetArray().PushBack(value.Uint64(200))
	obj.GetObject().Insert("nums", arr)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, value.Walk(obj, w))

	got := parseToValue(t, buf.Bytes())
	name, ok := got.GetObject().At("name")
	require.True(t, ok)
	assert.Equal(t, "nop", name.GetString())

	nums, ok := got.GetObject().At("nums")
	require.True(t, ok)
	assert.Equal(t, int64(-5), nums.GetArray().At(0).GetInt64())
	assert.Equal(t, uint64(200), nums.GetArray().At(1).GetUint64())
}

func TestWriterRejectsUnknownTopLevelCount(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	err := w.StartArray(-1)
	require.Error(t, err)
	assert.Equal(t, errclass.InvalidParam, errclass.Of(err))
}

func TestWriterRejectsBareScalarTopLevel(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	err := w.Int(1)
	require.Error(t, err)
	assert.Equal(t, errclass.InvalidDocument, errclass.Of(err))
}
