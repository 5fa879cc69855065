// SPDX-License-Identifier: GPL-3.0-or-later

package value

import (
	"testing"

	"github.com/bassosimone/netcore/sax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderScalar(t *testing.T) {
	var b Builder
	require.NoError(t, b.Int(42))
	assert.Equal(t, int64(42), b.Value().GetInt64())
}

func TestBuilderArrayAndObjectRoundTripThroughWalk(t *testing.T) {
	obj := NewObject()
	o := obj.GetObject()
	o.Insert("name", String("nop"))
	arr := NewArray()
	arr.GetArray().PushBack(Int(1))
	arr.GetArray().PushBack(Int(2))
	o.Insert("nums", arr)
	o.Insert("missing", Null())

	var b Builder
	require.NoError(t, Walk(obj, &b))

	got := b.Value()
	require.True(t, got.IsObject())
	gotObj := got.GetObject()

	name, ok := gotObj.At("name")
	require.True(t, ok)
	assert.Equal(t, "nop", name.GetString())

	nums, ok := gotObj.At("nums")
	require.True(t, ok)
	require.True(t, nums.IsArray())
	assert.Equal(t, int32(1), nums.GetArray().At(0).GetInt())
	assert.Equal(t, int32(2), nums.GetArray().At(1).GetInt())

	missing, ok := gotObj.At("missing")
	require.True(t, ok)
	assert.True(t, missing.IsNull())
}

func TestBuilderRejectsNestingPastMaxDepth(t *testing.T) {
	var b Builder
	for i := 0; i < sax.MaxDepth; i++ {
		require.NoError(t, b.StartArray(-1))
	}
	err := b.StartArray(-1)
	require.Error(t, err)
}

func TestWalkerEmitsStartArrayHintFromLength(t *testing.T) {
	arr := NewArray()
	arr.GetArray().PushBack(Int(1))
	arr.GetArray().PushBack(Int(2))
	arr.GetArray().PushBack(Int(3))

	rec := &recordingHandler{}
	require.NoError(t, Walk(arr, rec))
	require.Len(t, rec.startArrayHints, 1)
	assert.Equal(t, 3, rec.startArrayHints[0])
}

type recordingHandler struct {
	startArrayHints []int
}

func (h *recordingHandler) Null() error             { return nil }
func (h *recordingHandler) Bool(bool) error         { return nil }
func (h *recordingHandler) Int(int64) error         { return nil }
func (h *recordingHandler) Uint(uint64) error       { return nil }
func (h *recordingHandler) Real(float64) error      { return nil }
func (h *recordingHandler) String(string) error     { return nil }
func (h *recordingHandler) StartArray(hint int) error {
	h.startArrayHints = append(h.startArrayHints, hint)
	return nil
}
func (h *recordingHandler) EndArray() error           { return nil }
func (h *recordingHandler) StartObject(int) error     { return nil }
func (h *recordingHandler) EndObject() error          { return nil }
func (h *recordingHandler) Key(string) error          { return nil }
