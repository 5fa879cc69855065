// SPDX-License-Identifier: GPL-3.0-or-later

// Package socket implements netcore's layered socket state machine:
// [Basic] (raw byte-io plus readiness), [Datagram] (adds peer
// association and per-call-site addressing), and [Stream] (adds
// reliable-stream semantics: exactly-N read/write and lingering close).
//
// The package targets POSIX-style socket syscalls via
// golang.org/x/sys/unix; it is built only for unix platforms.
package socket

import (
	"fmt"

	"github.com/bassosimone/netcore/endpoint"
	"golang.org/x/sys/unix"
)

// Protocol bundles the address family, socket type, and IP protocol
// number needed to create a socket with the `socket(2)` syscall.
type Protocol struct {
	Family   endpoint.Family
	SockType int
	IPProto  int
}

// UDP4 is the UDP-over-IPv4 protocol.
var UDP4 = Protocol{Family: endpoint.IPv4, SockType: unix.SOCK_DGRAM, IPProto: unix.IPPROTO_UDP}

// UDP6 is the UDP-over-IPv6 protocol.
var UDP6 = Protocol{Family: endpoint.IPv6, SockType: unix.SOCK_DGRAM, IPProto: unix.IPPROTO_UDP}

// TCP4 is the TCP-over-IPv4 protocol.
var TCP4 = Protocol{Family: endpoint.IPv4, SockType: unix.SOCK_STREAM, IPProto: unix.IPPROTO_TCP}

// TCP6 is the TCP-over-IPv6 protocol.
var TCP6 = Protocol{Family: endpoint.IPv6, SockType: unix.SOCK_STREAM, IPProto: unix.IPPROTO_TCP}

// ICMP4 is the ICMP-over-IPv4 protocol, opened as a datagram
// (SOCK_DGRAM) socket.
var ICMP4 = Protocol{Family: endpoint.IPv4, SockType: unix.SOCK_DGRAM, IPProto: unix.IPPROTO_ICMP}

// ICMP6 is the ICMPv6-over-IPv6 protocol, opened as a datagram
// (SOCK_DGRAM) socket.
var ICMP6 = Protocol{Family: endpoint.IPv6, SockType: unix.SOCK_DGRAM, IPProto: unix.IPPROTO_ICMPV6}

// UnixStream is the stream-mode Unix domain socket protocol.
var UnixStream = Protocol{Family: endpoint.Unix, SockType: unix.SOCK_STREAM}

// UnixDatagram is the datagram-mode Unix domain socket protocol.
var UnixDatagram = Protocol{Family: endpoint.Unix, SockType: unix.SOCK_DGRAM}

func (p Protocol) osFamily() (int, error) {
	switch p.Family {
	case endpoint.IPv4:
		return unix.AF_INET, nil
	case endpoint.IPv6:
		return unix.AF_INET6, nil
	case endpoint.Unix:
		return unix.AF_UNIX, nil
	default:
		return 0, fmt.Errorf("socket: unsupported family %v", p.Family)
	}
}
