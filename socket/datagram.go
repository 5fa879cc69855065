// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"
)

// Datagram is a connected or connectionless datagram socket (UDP or
// ICMP). It embeds [Basic] and adds peer association plus
// per-call-site addressed I/O.
type Datagram struct {
	Basic

	peer *endpoint.Endpoint
}

// NewDatagram constructs a Datagram socket using cfg's error classifier
// and the given logger.
func NewDatagram(cfg *netcore.Config, logger netcore.SLogger) *Datagram {
	return &Datagram{Basic: *NewBasic(cfg, logger)}
}

// Connect sets the default destination for [Basic.Read]/[Basic.Write],
// opening the socket implicitly if [Closed].
func (d *Datagram) Connect(ep endpoint.Endpoint) error {
	if d.State() == Closed {
		protocol, err := protocolForEndpoint(ep)
		if err != nil {
			return err
		}
		if err := d.Open(protocol); err != nil {
			return err
		}
	}

	sa, err := sockaddrFor(ep)
	if err != nil {
		return err
	}

	t0 := d.now()
	d.log().Info("datagramConnectStart", slog.String("endpoint", ep.String()), slog.Time("t", t0))
	err = unix.Connect(d.Handle(), sa)
	d.log().Info("datagramConnectDone", slog.Any("err", err), slog.String("errClass", d.class(err)), slog.Time("t0", t0), slog.Time("t", d.now()))
	if err != nil {
		return fmt.Errorf("socket: connect: %w", err)
	}

	epCopy := ep
	d.peer = &epCopy
	d.setState(Connected)
	return nil
}

// Disconnect clears the default destination, returning the socket to
// [Disconnected].
func (d *Datagram) Disconnect() error {
	if d.State() != Connected {
		return nil
	}
	sa, err := unspecifiedSockaddr(d.Protocol().Family)
	if err != nil {
		return err
	}
	if err := unix.Connect(d.Handle(), sa); err != nil {
		return fmt.Errorf("socket: disconnect: %w", err)
	}
	d.peer = nil
	d.setState(Disconnected)
	return nil
}

// Connected reports whether the socket has an associated peer.
func (d *Datagram) Connected() bool {
	return d.State() == Connected
}

// ReadFrom reads a single datagram and reports the peer endpoint it came
// from.
func (d *Datagram) ReadFrom(data []byte) (int, endpoint.Endpoint, error) {
	if d.State() == Closed {
		return -1, endpoint.Endpoint{}, ErrClosed
	}
	n, from, err := unix.Recvfrom(d.Handle(), data, 0)
	if err != nil {
		return -1, endpoint.Endpoint{}, fmt.Errorf("socket: readFrom: %w", err)
	}
	var ep endpoint.Endpoint
	if from != nil {
		ep, err = endpoint.FromSockaddr(from)
		if err != nil {
			return n, endpoint.Endpoint{}, err
		}
	}
	return n, ep, nil
}

// WriteTo writes a single datagram to ep.
func (d *Datagram) WriteTo(data []byte, ep endpoint.Endpoint) (int, error) {
	if d.State() == Closed {
		return -1, ErrClosed
	}
	sa, err := sockaddrFor(ep)
	if err != nil {
		return -1, err
	}
	if err := unix.Sendto(d.Handle(), data, 0, sa); err != nil {
		return -1, fmt.Errorf("socket: writeTo: %w", err)
	}
	return len(data), nil
}

// SetOption extends [Basic.SetOption] with the family-dispatched options
// ([Ttl], [MulticastLoop], [MulticastTtl], [PathMtuDiscover], [RcvError]),
// automatically routed to the v4 or v6 socket-option level.
func (d *Datagram) SetOption(option Option, value int) error {
	switch option {
	case Ttl, MulticastLoop, MulticastTtl, PathMtuDiscover, RcvError:
		return d.setFamilyOption(option, value)
	default:
		return d.Basic.SetOption(option, value)
	}
}

func (d *Datagram) setFamilyOption(option Option, value int) error {
	fd := d.Handle()
	if d.Protocol().Family == endpoint.IPv6 {
		pc, closer, err := d.packetConn6()
		if err != nil {
			return err
		}
		defer closer.Close()
		switch option {
		case Ttl:
			return pc.SetHopLimit(value)
		case MulticastLoop:
			return pc.SetMulticastLoopback(value != 0)
		case MulticastTtl:
			return pc.SetMulticastHopLimit(value)
		case PathMtuDiscover:
			return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MTU_DISCOVER, value)
		case RcvError:
			return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_RECVERR, value)
		default:
			return fmt.Errorf("%w: %v unsupported on v6", ErrInvalidOption, option)
		}
	}
	pc, closer, err := d.packetConn4()
	if err != nil {
		return err
	}
	defer closer.Close()
	switch option {
	case Ttl:
		return pc.SetTTL(value)
	case MulticastLoop:
		return pc.SetMulticastLoopback(value != 0)
	case MulticastTtl:
		return pc.SetMulticastTTL(value)
	case PathMtuDiscover:
		return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, value)
	case RcvError:
		return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_RECVERR, value)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidOption, option)
	}
}

// JoinMulticastGroup joins the multicast group address on the network
// interface iface (nil for the default interface).
func (d *Datagram) JoinMulticastGroup(group ipaddr.Address, iface *net.Interface) error {
	groupAddr := &net.UDPAddr{IP: net.IP(group.Bytes())}
	if d.Protocol().Family == endpoint.IPv6 {
		pc, closer, err := d.packetConn6()
		if err != nil {
			return err
		}
		defer closer.Close()
		return pc.JoinGroup(iface, groupAddr)
	}
	pc, closer, err := d.packetConn4()
	if err != nil {
		return err
	}
	defer closer.Close()
	return pc.JoinGroup(iface, groupAddr)
}

// packetConnFile wraps a duplicate of the socket's fd as a
// [net.PacketConn] without taking ownership of the original descriptor:
// the temporary file and the returned conn hold only duplicates, so
// closing them does not close d.
func (d *Datagram) packetConnFile() (net.PacketConn, io.Closer, error) {
	dupfd, err := unix.Dup(d.Handle())
	if err != nil {
		return nil, nil, fmt.Errorf("socket: packetConn: %w", err)
	}
	f := os.NewFile(uintptr(dupfd), "netcore-datagram")
	pc, err := net.FilePacketConn(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("socket: packetConn: %w", err)
	}
	_ = f.Close()
	return pc, pc, nil
}

func (d *Datagram) packetConn4() (*ipv4.PacketConn, io.Closer, error) {
	pc, closer, err := d.packetConnFile()
	if err != nil {
		return nil, nil, err
	}
	return ipv4.NewPacketConn(pc), closer, nil
}

func (d *Datagram) packetConn6() (*ipv6.PacketConn, io.Closer, error) {
	pc, closer, err := d.packetConnFile()
	if err != nil {
		return nil, nil, err
	}
	return ipv6.NewPacketConn(pc), closer, nil
}

// Checksum computes the one's-complement Internet checksum (RFC 1071)
// over data, as used by ICMP and other raw-IP payloads.
func Checksum(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

func unspecifiedSockaddr(family endpoint.Family) (unix.Sockaddr, error) {
	switch family {
	case endpoint.IPv4:
		return &unix.SockaddrInet4{}, nil
	case endpoint.IPv6:
		return &unix.SockaddrInet6{}, nil
	default:
		return nil, fmt.Errorf("socket: unsupported family %v", family)
	}
}
