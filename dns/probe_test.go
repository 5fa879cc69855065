// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/dns/wire"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeRequiresMulticastTransport(t *testing.T) {
	c := NewClient(netcore.NewConfig(), netcore.DefaultSLogger(), Dns{})
	ok, err := c.Probe("host.local", endpoint.IPv4, ipaddr.MustParse("192.168.1.5"), time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errProbeRequiresMulticast)
}

func TestConflictsDetectsDifferentAddressSameNameAndType(t *testing.T) {
	mine := ipaddr.MustParse("192.168.1.5")
	theirs := ipaddr.MustParse("192.168.1.6")

	msg := wire.Message{
		Answers: []wire.Record{
			{Name: "host.local", Type: wire.TypeA, Data: wire.RData{Addr: theirs}},
		},
	}
	assert.True(t, conflicts(msg, "host.local", wire.TypeA, mine))
}

func TestConflictsIgnoresSameAddress(t *testing.T) {
	mine := ipaddr.MustParse("192.168.1.5")
	msg := wire.Message{
		Authorities: []wire.Record{
			{Name: "host.local", Type: wire.TypeA, Data: wire.RData{Addr: mine}},
		},
	}
	assert.False(t, conflicts(msg, "host.local", wire.TypeA, mine))
}

func TestConflictsIgnoresDifferentNameOrType(t *testing.T) {
	mine := ipaddr.MustParse("192.168.1.5")
	other := ipaddr.MustParse("192.168.1.6")
	msg := wire.Message{
		Additionals: []wire.Record{
			{Name: "other.local", Type: wire.TypeA, Data: wire.RData{Addr: other}},
			{Name: "host.local", Type: wire.TypeAAAA, Data: wire.RData{Addr: other}},
		},
	}
	assert.False(t, conflicts(msg, "host.local", wire.TypeA, mine))
}

// fakeConn is a minimal in-memory [conn] double driven by a queue of
// pre-baked response payloads, used to exercise [Client.Probe]'s
// full-timeout-window loop without touching real multicast sockets.
type fakeConn struct {
	mu       sync.Mutex
	inbox    [][]byte
	sent     [][]byte
	closed   bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *fakeConn) Recv(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return 0, nil
	}
	next := c.inbox[0]
	c.inbox = c.inbox[1:]
	return copy(buf, next), nil
}

func (c *fakeConn) WaitReadyRead(time.Duration) (bool, error) {
	c.mu.Lock()
	ready := len(c.inbox) > 0
	c.mu.Unlock()
	return ready, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeMulticastTransport hands out a pre-seeded [fakeConn], letting the
// test control exactly which datagrams [Client.Probe] observes during its
// wait-out-the-whole-window loop.
type fakeMulticastTransport struct {
	conn *fakeConn
}

func (fakeMulticastTransport) DefaultPort() uint16 { return PortMDNS }
func (fakeMulticastTransport) Multicast() bool     { return true }
func (fakeMulticastTransport) MulticastAddress(family endpoint.Family) (ipaddr.Address, error) {
	if family == endpoint.IPv6 {
		return ipaddr.MustParse("ff02::fb"), nil
	}
	return ipaddr.MustParse("224.0.0.251"), nil
}
func (t fakeMulticastTransport) Dial(*netcore.Config, netcore.SLogger, *net.Interface, endpoint.Endpoint, uint16, string, time.Duration) (conn, error) {
	return t.conn, nil
}

func TestProbeNoConflictWithinWindow(t *testing.T) {
	fc := &fakeConn{}
	c := NewClient(netcore.NewConfig(), netcore.DefaultSLogger(), fakeMulticastTransport{conn: fc})

	ok, err := c.Probe("host.local", endpoint.IPv4, ipaddr.MustParse("192.168.1.5"), 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, fc.sent, 1)
}

func TestProbeConflictEndsProbeEarly(t *testing.T) {
	theirs := ipaddr.MustParse("192.168.1.6")
	conflict := wire.Message{
		Header: wire.Header{Flags: wire.FlagResponse},
		Answers: []wire.Record{
			{Name: "host.local", Type: wire.TypeA, Data: wire.RData{Addr: theirs}},
		},
	}
	data, err := conflict.Encode()
	require.NoError(t, err)

	fc := &fakeConn{inbox: [][]byte{data}}
	c := NewClient(netcore.NewConfig(), netcore.DefaultSLogger(), fakeMulticastTransport{conn: fc})

	ok, err := c.Probe("host.local", endpoint.IPv4, ipaddr.MustParse("192.168.1.5"), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}
