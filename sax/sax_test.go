// SPDX-License-Identifier: GPL-3.0-or-later

package sax

import (
	"testing"

	"github.com/bassosimone/netcore/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthGuardAllowsUpToMaxDepth(t *testing.T) {
	var g DepthGuard
	for i := 0; i < MaxDepth; i++ {
		require.NoError(t, g.Enter())
	}
	assert.Equal(t, MaxDepth, g.Depth())
}

func TestDepthGuardRejectsPastMaxDepth(t *testing.T) {
	var g DepthGuard
	for i := 0; i < MaxDepth; i++ {
		require.NoError(t, g.Enter())
	}
	err := g.Enter()
	require.Error(t, err)
	assert.Equal(t, errclass.NestingTooDeep, errclass.Of(err))
}

func TestDepthGuardLeaveDecrements(t *testing.T) {
	var g DepthGuard
	require.NoError(t, g.Enter())
	require.NoError(t, g.Enter())
	g.Leave()
	assert.Equal(t, 1, g.Depth())
}

func TestDepthGuardLeaveNeverGoesNegative(t *testing.T) {
	var g DepthGuard
	g.Leave()
	g.Leave()
	assert.Equal(t, 0, g.Depth())
}

func TestNopHandlerSatisfiesHandler(t *testing.T) {
	var h Handler = NopHandler{}
	require.NoError(t, h.Null())
	require.NoError(t, h.Bool(true))
	require.NoError(t, h.Int(-1))
	require.NoError(t, h.Uint(1))
	require.NoError(t, h.Real(1.5))
	require.NoError(t, h.String("s"))
	require.NoError(t, h.StartArray(-1))
	require.NoError(t, h.EndArray())
	require.NoError(t, h.StartObject(-1))
	require.NoError(t, h.EndObject())
	require.NoError(t, h.Key("k"))
}
