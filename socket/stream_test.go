// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenerEndpoint starts a stdlib TCP listener on loopback purely as a
// connect target for exercising Stream's client-side state machine; this
// package implements no listen/accept surface of its own (out of scope,
// per the client-oriented transport it models).
func listenerEndpoint(t *testing.T) (net.Listener, endpoint.Endpoint) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	loopback, err := ipaddr.Parse("127.0.0.1")
	require.NoError(t, err)
	ep, err := endpoint.NewIP(loopback, uint16(port))
	require.NoError(t, err)
	return ln, ep
}

func TestStreamConnectLoopback(t *testing.T) {
	ln, listenEp := listenerEndpoint(t)
	defer ln.Close()

	client := NewStream(netcore.NewConfig(), netcore.DefaultSLogger())
	require.NoError(t, client.Connect(listenEp))
	defer client.Close()

	connected, err := client.WaitConnected(time.Second)
	require.NoError(t, err)
	assert.True(t, connected)
	assert.Equal(t, Connected, client.State())
}

func TestStreamWaitConnectedOnClosedFails(t *testing.T) {
	s := NewStream(netcore.NewConfig(), netcore.DefaultSLogger())
	_, err := s.WaitConnected(10 * time.Millisecond)
	assert.Error(t, err)
}

func TestStreamDisconnectIdempotentWhenNotConnected(t *testing.T) {
	s := NewStream(netcore.NewConfig(), netcore.DefaultSLogger())
	require.NoError(t, s.Open(TCP4))
	require.NoError(t, s.Disconnect())
	assert.Equal(t, Closed, s.State())
	require.NoError(t, s.Disconnect())
	assert.Equal(t, Closed, s.State())
}

func TestStreamReadExactlyOnClosedFails(t *testing.T) {
	s := NewStream(netcore.NewConfig(), netcore.DefaultSLogger())
	err := s.ReadExactly(make([]byte, 4), 0)
	assert.ErrorIs(t, err, ErrClosed)
}
