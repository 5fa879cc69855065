// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"testing"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindLoopbackDatagram(t *testing.T) (*Datagram, endpoint.Endpoint) {
	t.Helper()
	d := NewDatagram(netcore.NewConfig(), netcore.DefaultSLogger())
	loopback, err := ipaddr.Parse("127.0.0.1")
	require.NoError(t, err)
	ep, err := endpoint.NewIP(loopback, 0)
	require.NoError(t, err)
	require.NoError(t, d.Bind(ep))
	local, err := d.LocalEndpoint()
	require.NoError(t, err)
	return d, local
}

func TestDatagramWriteToReadFrom(t *testing.T) {
	server, serverEp := bindLoopbackDatagram(t)
	defer server.Close()

	client, _ := bindLoopbackDatagram(t)
	defer client.Close()

	n, err := client.WriteTo([]byte("hello"), serverEp)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	ready, err := server.WaitReadyRead(time.Second)
	require.NoError(t, err)
	require.True(t, ready)

	buf := make([]byte, 16)
	n, from, err := server.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.Equal(t, endpoint.IPv4, from.Family())
}

func TestDatagramConnectDisconnect(t *testing.T) {
	server, serverEp := bindLoopbackDatagram(t)
	defer server.Close()

	client := NewDatagram(netcore.NewConfig(), netcore.DefaultSLogger())
	require.NoError(t, client.Connect(serverEp))
	defer client.Close()

	assert.True(t, client.Connected())
	assert.Equal(t, Connected, client.State())

	require.NoError(t, client.Disconnect())
	assert.False(t, client.Connected())
	assert.Equal(t, Disconnected, client.State())
}

func TestChecksum(t *testing.T) {
	// An all-zero header sums to 0, whose one's complement is 0xffff.
	zeros := make([]byte, 20)
	assert.Equal(t, uint16(0xffff), Checksum(zeros))
}
