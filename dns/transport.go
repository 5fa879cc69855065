// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
	"github.com/bassosimone/netcore/socket"
	"github.com/bassosimone/netcore/tlssocket"
)

// Well-known ports, per §6.
const (
	PortDNS  uint16 = 53
	PortMDNS uint16 = 5353
	PortDoT  uint16 = 853
)

// Multicast group addresses, per §6.
var (
	mdnsGroupV4 = ipaddr.MustParse("224.0.0.251")
	mdnsGroupV6 = ipaddr.MustParse("ff02::fb")
)

// conn is the minimal surface [Transport.Dial] hands back to the
// transaction dispatcher: send one request, wait for and read a response,
// and release the underlying socket when the exchange is over.
type conn interface {
	Send(data []byte) error
	Recv(buf []byte) (int, error)
	WaitReadyRead(timeout time.Duration) (bool, error)
	Close() error
}

// Transport parameterizes [*Client] over its three wire transports: plain
// unicast UDP ([Dns]), multicast mDNS ([Mdns]), and DNS-over-TLS ([Dot]).
type Transport interface {
	// DefaultPort is the transport's well-known port.
	DefaultPort() uint16

	// Multicast reports whether this transport addresses a multicast
	// group rather than a specific unicast server.
	Multicast() bool

	// MulticastAddress returns the transport's multicast group address
	// for family. Only meaningful when Multicast() is true.
	MulticastAddress(family endpoint.Family) (ipaddr.Address, error)

	// Dial opens, binds, joins the multicast group (if applicable), and
	// connects or encrypts a transport-specific connection to
	// server:port, ready for a single request/response exchange.
	// serverName carries TLS SNI for [Dot]; it is ignored otherwise.
	Dial(cfg *netcore.Config, logger netcore.SLogger, iface *net.Interface, server endpoint.Endpoint, port uint16, serverName string, timeout time.Duration) (conn, error)
}

// Dns is the plain unicast UDP-53 transport.
type Dns struct{}

// DefaultPort implements [Transport].
func (Dns) DefaultPort() uint16 { return PortDNS }

// Multicast implements [Transport].
func (Dns) Multicast() bool { return false }

// MulticastAddress implements [Transport].
func (Dns) MulticastAddress(endpoint.Family) (ipaddr.Address, error) {
	return ipaddr.Address{}, fmt.Errorf("dns: Dns transport has no multicast address")
}

// Dial implements [Transport] by connecting a [socket.Datagram] to the
// server, restricting delivery to datagrams actually sent by it.
func (Dns) Dial(cfg *netcore.Config, logger netcore.SLogger, _ *net.Interface, server endpoint.Endpoint, port uint16, _ string, _ time.Duration) (conn, error) {
	d := socket.NewDatagram(cfg, logger)
	ep, err := endpoint.NewIP(server.Address(), port)
	if err != nil {
		return nil, err
	}
	if err := d.Connect(ep); err != nil {
		return nil, err
	}
	return &datagramConn{d: d}, nil
}

// Mdns is the IPv4 224.0.0.251 / IPv6 ff02::fb UDP-5353 multicast
// transport used for local-network discovery and name-conflict probing.
type Mdns struct{}

// DefaultPort implements [Transport].
func (Mdns) DefaultPort() uint16 { return PortMDNS }

// Multicast implements [Transport].
func (Mdns) Multicast() bool { return true }

// MulticastAddress implements [Transport].
func (Mdns) MulticastAddress(family endpoint.Family) (ipaddr.Address, error) {
	switch family {
	case endpoint.IPv4:
		return mdnsGroupV4, nil
	case endpoint.IPv6:
		return mdnsGroupV6, nil
	default:
		return ipaddr.Address{}, fmt.Errorf("dns: mdns has no multicast address for family %v", family)
	}
}

// Dial implements [Transport] by binding a wildcard socket on port,
// joining group on iface (nil for the default interface), and addressing
// the group on send.
func (Mdns) Dial(cfg *netcore.Config, logger netcore.SLogger, iface *net.Interface, group endpoint.Endpoint, port uint16, _ string, _ time.Duration) (conn, error) {
	d := socket.NewDatagram(cfg, logger)
	wildcard, err := ipaddr.Wildcard(familyOf(group.Address()))
	if err != nil {
		return nil, err
	}
	local, err := endpoint.NewIP(wildcard, port)
	if err != nil {
		return nil, err
	}
	if err := d.Bind(local); err != nil {
		return nil, err
	}
	if err := d.JoinMulticastGroup(group.Address(), iface); err != nil {
		_ = d.Close()
		return nil, err
	}
	dest, err := endpoint.NewIP(group.Address(), port)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return &mdnsConn{d: d, dest: dest}, nil
}

// Dot is the DNS-over-TLS transport (TLS over port 853).
type Dot struct {
	// Config is the TLS context used for the handshake. Defaults to
	// [tlssocket.DefaultContext] when nil.
	Config *tls.Config
}

// DefaultPort implements [Transport].
func (Dot) DefaultPort() uint16 { return PortDoT }

// Multicast implements [Transport].
func (Dot) Multicast() bool { return false }

// MulticastAddress implements [Transport].
func (Dot) MulticastAddress(endpoint.Family) (ipaddr.Address, error) {
	return ipaddr.Address{}, fmt.Errorf("dns: Dot transport has no multicast address")
}

// Dial implements [Transport] by connecting and TLS-handshaking a
// [tlssocket.Socket] against the server.
func (t Dot) Dial(cfg *netcore.Config, logger netcore.SLogger, _ *net.Interface, server endpoint.Endpoint, port uint16, serverName string, timeout time.Duration) (conn, error) {
	s := tlssocket.NewSocket(cfg, logger)
	if t.Config != nil {
		s.Config = t.Config
	}
	ep, err := endpoint.NewIP(server.Address(), port)
	if err != nil {
		return nil, err
	}
	if err := s.ConnectEncrypted(ep, serverName, timeout); err != nil {
		return nil, err
	}
	return &dotConn{s: s}, nil
}

func familyOf(a ipaddr.Address) endpoint.Family {
	if a.IsIPv6Address() {
		return endpoint.IPv6
	}
	return endpoint.IPv4
}

// datagramConn adapts a connected [socket.Datagram] (the [Dns] transport)
// to [conn].
type datagramConn struct{ d *socket.Datagram }

func (c *datagramConn) Send(data []byte) error {
	_, err := c.d.Write(data)
	return err
}

func (c *datagramConn) Recv(buf []byte) (int, error) {
	return c.d.Read(buf)
}

func (c *datagramConn) WaitReadyRead(timeout time.Duration) (bool, error) {
	return c.d.WaitReadyRead(timeout)
}

func (c *datagramConn) Close() error { return c.d.Close() }

// mdnsConn adapts an unconnected, multicast-joined [socket.Datagram] (the
// [Mdns] transport) to [conn]; it addresses the multicast group on send
// and accepts responses from any host on receive.
type mdnsConn struct {
	d    *socket.Datagram
	dest endpoint.Endpoint
}

func (c *mdnsConn) Send(data []byte) error {
	_, err := c.d.WriteTo(data, c.dest)
	return err
}

func (c *mdnsConn) Recv(buf []byte) (int, error) {
	n, _, err := c.d.ReadFrom(buf)
	return n, err
}

func (c *mdnsConn) WaitReadyRead(timeout time.Duration) (bool, error) {
	return c.d.WaitReadyRead(timeout)
}

func (c *mdnsConn) Close() error { return c.d.Close() }

// dotConn adapts an encrypted [tlssocket.Socket] (the [Dot] transport) to
// [conn]. The handshake timeout already bounds blocking reads inside
// [tlssocket.Socket.Read] (via its internal stream adapter), so
// WaitReadyRead is a pass-through.
type dotConn struct{ s *tlssocket.Socket }

func (c *dotConn) Send(data []byte) error {
	_, err := c.s.Write(data)
	return err
}

func (c *dotConn) Recv(buf []byte) (int, error) {
	return c.s.Read(buf)
}

func (c *dotConn) WaitReadyRead(time.Duration) (bool, error) {
	return true, nil
}

func (c *dotConn) Close() error { return c.s.Disconnect() }
