// SPDX-License-Identifier: GPL-3.0-or-later

// Package endpoint provides the value-typed network endpoint carried
// across netcore's socket layer: an (address family, IP address, port)
// triple for IP protocols, or a (unix, path) pair for Unix domain sockets.
package endpoint

import (
	"fmt"
	"strconv"

	"github.com/bassosimone/netcore/ipaddr"
	"golang.org/x/sys/unix"
)

// Family identifies the kind of endpoint: an IP family or a Unix path.
type Family int

const (
	// Unspecified is the zero value and never identifies a valid Endpoint.
	Unspecified Family = iota

	// IPv4 identifies an (address, port) endpoint using [ipaddr.V4].
	IPv4

	// IPv6 identifies an (address, port) endpoint using [ipaddr.V6].
	IPv6

	// Unix identifies a filesystem-path endpoint.
	Unix
)

// Endpoint is a value-typed, cheap-to-copy network endpoint: either an IP
// address plus port, or a Unix domain socket path.
type Endpoint struct {
	family  Family
	address ipaddr.Address
	port    uint16
	path    string
}

// ErrUnsupportedFamily indicates a Family outside {[IPv4], [IPv6], [Unix]}.
var ErrUnsupportedFamily = fmt.Errorf("endpoint: unsupported family")

// ErrFamilyMismatch indicates an [ipaddr.Address] whose family does not
// match the requested endpoint family.
var ErrFamilyMismatch = fmt.Errorf("endpoint: address family mismatch")

// NewIP builds an IP endpoint from an address and a port. The address's
// own family ([ipaddr.V4] or [ipaddr.V6]) determines the endpoint family.
func NewIP(address ipaddr.Address, port uint16) (Endpoint, error) {
	switch address.Family() {
	case ipaddr.V4:
		return Endpoint{family: IPv4, address: address, port: port}, nil
	case ipaddr.V6:
		return Endpoint{family: IPv6, address: address, port: port}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: %v", ErrFamilyMismatch, address.Family())
	}
}

// NewUnix builds a Unix domain socket endpoint from a filesystem path.
func NewUnix(path string) Endpoint {
	return Endpoint{family: Unix, path: path}
}

// Family returns the endpoint's family.
func (e Endpoint) Family() Family {
	return e.family
}

// Address returns the IP address of an IP endpoint. It is the zero
// [ipaddr.Address] for a Unix endpoint.
func (e Endpoint) Address() ipaddr.Address {
	return e.address
}

// Port returns the port of an IP endpoint. It is 0 for a Unix endpoint.
func (e Endpoint) Port() uint16 {
	return e.port
}

// Path returns the filesystem path of a Unix endpoint. It is empty for an
// IP endpoint.
func (e Endpoint) Path() string {
	return e.path
}

// String renders the endpoint in its canonical textual form:
// "host:port" for IP endpoints (with "[...]" bracketing for v6), or the
// bare path for Unix endpoints.
func (e Endpoint) String() string {
	switch e.family {
	case IPv4:
		return e.address.String() + ":" + strconv.Itoa(int(e.port))
	case IPv6:
		return "[" + e.address.String() + "]:" + strconv.Itoa(int(e.port))
	case Unix:
		return e.path
	default:
		return ""
	}
}

// SockaddrInet returns the OS sockaddr representation of an IPv4 or IPv6
// endpoint, suitable for passing to `bind`/`connect`/`sendto` syscalls.
func (e Endpoint) SockaddrInet() (unix.Sockaddr, error) {
	switch e.family {
	case IPv4:
		var sa unix.SockaddrInet4
		copy(sa.Addr[:], e.address.Bytes())
		sa.Port = int(e.port)
		return &sa, nil
	case IPv6:
		var sa unix.SockaddrInet6
		copy(sa.Addr[:], e.address.Bytes())
		sa.Port = int(e.port)
		sa.ZoneId = e.address.Scope()
		return &sa, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFamily, e.family)
	}
}

// SockaddrUnix returns the OS sockaddr representation of a Unix endpoint.
func (e Endpoint) SockaddrUnix() (unix.Sockaddr, error) {
	if e.family != Unix {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFamily, e.family)
	}
	return &unix.SockaddrUnix{Name: e.path}, nil
}

// FromSockaddr builds an Endpoint from an OS sockaddr, as returned by
// `getsockname`/`accept`/`recvfrom`.
func FromSockaddr(sa unix.Sockaddr) (Endpoint, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		addr, err := ipaddr.FromBytes(v.Addr[:], 0)
		if err != nil {
			return Endpoint{}, err
		}
		return NewIP(addr, uint16(v.Port))
	case *unix.SockaddrInet6:
		addr, err := ipaddr.FromBytes(v.Addr[:], v.ZoneId)
		if err != nil {
			return Endpoint{}, err
		}
		return NewIP(addr, uint16(v.Port))
	case *unix.SockaddrUnix:
		return NewUnix(v.Name), nil
	default:
		return Endpoint{}, fmt.Errorf("%w: %T", ErrUnsupportedFamily, sa)
	}
}

// Equal reports whether e and other denote the same endpoint.
func (e Endpoint) Equal(other Endpoint) bool {
	if e.family != other.family {
		return false
	}
	switch e.family {
	case IPv4, IPv6:
		return e.address.Equal(other.address) && e.port == other.port
	case Unix:
		return e.path == other.path
	default:
		return true
	}
}
