// SPDX-License-Identifier: GPL-3.0-or-later

// Package ipaddr provides an immutable, family-aware IP address value type.
//
// An [Address] always knows its family (v4 or v6) and carries its raw bytes
// and, for v6, a numeric scope (interface index) used for link-local
// addresses. Unlike [net.IP], values are compared with [Address.Equal] or
// [Address.Compare] rather than Go's built-in equality, since the family
// and scope participate in ordering alongside the bytes.
package ipaddr

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Family identifies the address family of an [Address].
type Family int

const (
	// Unspecified is the zero value and is never the family of a valid Address.
	Unspecified Family = iota

	// V4 identifies IPv4 addresses (4 raw bytes).
	V4

	// V6 identifies IPv6 addresses (16 raw bytes).
	V6
)

// String implements [fmt.Stringer].
func (f Family) String() string {
	switch f {
	case V4:
		return "v4"
	case V6:
		return "v6"
	default:
		return "unspecified"
	}
}

// Address is an immutable IPv4 or IPv6 address plus an optional v6 scope.
//
// The zero value is not a valid Address; construct one with [Wildcard],
// [FromBytes], [Parse], [ParseForceFamily], or [FromPrefix].
type Address struct {
	family Family
	bytes  []byte // len 4 for V4, len 16 for V6
	scope  uint32
}

// ErrUnsupportedFamily indicates a family value outside {[V4], [V6]}.
var ErrUnsupportedFamily = errors.New("ipaddr: unsupported family")

// ErrWrongByteLength indicates raw bytes whose length does not match a
// known family (4 for v4, 16 for v6).
var ErrWrongByteLength = errors.New("ipaddr: wrong byte length for family")

// ErrFamilyMismatch indicates a bitwise operation attempted across families.
var ErrFamilyMismatch = errors.New("ipaddr: family mismatch")

// ErrOutOfRange indicates a byte or prefix index outside the address bounds.
var ErrOutOfRange = errors.New("ipaddr: index out of range")

// ErrInvalidText indicates text that could not be parsed as an IP address.
var ErrInvalidText = errors.New("ipaddr: invalid textual address")

// Wildcard returns the all-zero address for the given family: "0.0.0.0" for
// [V4] or "::" for [V6].
func Wildcard(family Family) (Address, error) {
	switch family {
	case V4:
		return Address{family: V4, bytes: make([]byte, 4)}, nil
	case V6:
		return Address{family: V6, bytes: make([]byte, 16)}, nil
	default:
		return Address{}, fmt.Errorf("%w: %v", ErrUnsupportedFamily, family)
	}
}

// FromBytes builds an Address from raw bytes (4 for v4, 16 for v6) and,
// for v6, an optional scope (interface index; pass 0 when not link-local).
func FromBytes(raw []byte, scope uint32) (Address, error) {
	switch len(raw) {
	case 4:
		b := make([]byte, 4)
		copy(b, raw)
		return Address{family: V4, bytes: b}, nil
	case 16:
		b := make([]byte, 16)
		copy(b, raw)
		return Address{family: V6, bytes: b, scope: scope}, nil
	default:
		return Address{}, fmt.Errorf("%w: got %d bytes", ErrWrongByteLength, len(raw))
	}
}

// Parse parses the textual form of an address, inferring the family from
// the syntax. An empty string yields the [V6] wildcard, matching the
// convention that a bare empty endpoint address means "any".
//
// A trailing "%zone" suffix on an IPv6 literal sets the scope: zone is
// resolved as a numeric index first, then as an interface name.
func Parse(s string) (Address, error) {
	return parseInternal(s, Unspecified)
}

// ParseForceFamily parses the textual form of an address and coerces the
// result into the requested family. Forcing an IPv4 literal into [V6]
// produces the IPv4-mapped form ("::ffff:a.b.c.d"). Forcing an IPv6
// literal into [V4] is an error.
func ParseForceFamily(s string, family Family) (Address, error) {
	return parseInternal(s, family)
}

// MustParse is like [Parse] but panics on error. It is meant for
// known-good literals, such as package-level variables initialized from
// well-known addresses (e.g. the mDNS multicast groups).
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func parseInternal(s string, force Family) (Address, error) {
	if s == "" {
		switch force {
		case V4:
			return Wildcard(V4)
		default:
			return Wildcard(V6)
		}
	}

	text, scope := s, uint32(0)
	if idx := strings.IndexByte(s, '%'); idx >= 0 {
		text = s[:idx]
		zone := s[idx+1:]
		scope = resolveZone(zone)
	}

	ip := net.ParseIP(text)
	if ip == nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidText, s)
	}

	if v4 := ip.To4(); v4 != nil && !strings.Contains(text, ":") {
		addr, _ := FromBytes(v4, 0)
		switch force {
		case V6:
			return addr.ToV6(), nil
		default:
			return addr, nil
		}
	}

	v6 := ip.To16()
	if v6 == nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidText, s)
	}
	if force == V4 {
		return Address{}, fmt.Errorf("%w: %q is not representable as v4", ErrInvalidText, s)
	}
	addr, _ := FromBytes(v6, scope)
	return addr, nil
}

func resolveZone(zone string) uint32 {
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n)
	}
	if iface, err := net.InterfaceByName(zone); err == nil {
		return uint32(iface.Index)
	}
	return 0
}

// FromPrefix builds the address whose bits are a contiguous run of `n`
// leading ones followed by zeros -- e.g. FromPrefix(24, [V4]) yields
// "255.255.255.0".
func FromPrefix(n int, family Family) (Address, error) {
	var width int
	switch family {
	case V4:
		width = 32
	case V6:
		width = 128
	default:
		return Address{}, fmt.Errorf("%w: %v", ErrUnsupportedFamily, family)
	}
	if n < 0 || n > width {
		return Address{}, fmt.Errorf("%w: prefix %d out of range for %v", ErrOutOfRange, n, family)
	}

	raw := make([]byte, width/8)
	for i := range raw {
		switch {
		case n >= 8:
			raw[i] = 0xff
			n -= 8
		case n > 0:
			raw[i] = byte(0xff << (8 - n))
			n = 0
		default:
			raw[i] = 0
		}
	}
	return FromBytes(raw, 0)
}

// Family returns the address family.
func (a Address) Family() Family {
	return a.family
}

// Bytes returns the raw address bytes (4 or 16, depending on family).
// The returned slice is a copy; mutating it does not affect a.
func (a Address) Bytes() []byte {
	b := make([]byte, len(a.bytes))
	copy(b, a.bytes)
	return b
}

// Scope returns the v6 zone/interface index, or 0 for v4 and non-scoped v6.
func (a Address) Scope() uint32 {
	return a.scope
}

// ByteAt returns the byte at index i, or [ErrOutOfRange] if i is outside
// the address bounds.
func (a Address) ByteAt(i int) (byte, error) {
	if i < 0 || i >= len(a.bytes) {
		return 0, fmt.Errorf("%w: index %d", ErrOutOfRange, i)
	}
	return a.bytes[i], nil
}

// String renders the address in its canonical textual form. IPv6
// addresses carrying a nonzero scope are rendered with a "%scope" suffix.
func (a Address) String() string {
	if a.family == Unspecified {
		return ""
	}
	ip := net.IP(a.bytes)
	s := ip.String()
	if a.family == V6 && a.scope != 0 {
		s = fmt.Sprintf("%s%%%d", s, a.scope)
	}
	return s
}

// Arpa renders the reverse-DNS name ("in-addr.arpa" for v4, "ip6.arpa" for v6).
func (a Address) Arpa() string {
	switch a.family {
	case V4:
		var sb strings.Builder
		for i := len(a.bytes) - 1; i >= 0; i-- {
			fmt.Fprintf(&sb, "%d.", a.bytes[i])
		}
		sb.WriteString("in-addr.arpa")
		return sb.String()
	case V6:
		const hex = "0123456789abcdef"
		nibbles := make([]byte, 0, 32)
		for _, b := range a.bytes {
			nibbles = append(nibbles, hex[b>>4], hex[b&0x0f])
		}
		var sb strings.Builder
		for i := len(nibbles) - 1; i >= 0; i-- {
			sb.WriteByte(nibbles[i])
			sb.WriteByte('.')
		}
		sb.WriteString("ip6.arpa")
		return sb.String()
	default:
		return ""
	}
}

// PrefixLen reports the number of consecutive leading one-bits in the
// address, and whether the remaining bits are all zero (i.e. whether the
// address is actually a valid contiguous netmask).
func (a Address) PrefixLen() (n int, ok bool) {
	seenZero := false
	for _, b := range a.bytes {
		for bit := 7; bit >= 0; bit-- {
			set := b&(1<<uint(bit)) != 0
			switch {
			case set && !seenZero:
				n++
			case set && seenZero:
				return n, false
			default:
				seenZero = true
			}
		}
	}
	return n, true
}

// IsWildcard reports whether the address is the all-zero address.
func (a Address) IsWildcard() bool {
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsLoopBack reports whether the address is a loopback address
// (127.0.0.0/8 for v4, ::1 for v6).
func (a Address) IsLoopBack() bool {
	switch a.family {
	case V4:
		return a.bytes[0] == 127
	case V6:
		for i := 0; i < 15; i++ {
			if a.bytes[i] != 0 {
				return false
			}
		}
		return a.bytes[15] == 1
	default:
		return false
	}
}

// IsLinkLocal reports whether the address is link-local
// (169.254.0.0/16 for v4, fe80::/10 for v6).
func (a Address) IsLinkLocal() bool {
	switch a.family {
	case V4:
		return a.bytes[0] == 169 && a.bytes[1] == 254
	case V6:
		return a.bytes[0] == 0xfe && a.bytes[1]&0xc0 == 0x80
	default:
		return false
	}
}

// IsSiteLocal reports whether the address is an IPv6 site-local address
// (fec0::/10, deprecated by RFC 3879). Always false for v4.
func (a Address) IsSiteLocal() bool {
	return a.family == V6 && a.bytes[0] == 0xfe && a.bytes[1]&0xc0 == 0xc0
}

// IsUniqueLocal reports whether the address is an IPv6 unique-local
// address (fc00::/7, RFC 4193). Always false for v4.
func (a Address) IsUniqueLocal() bool {
	return a.family == V6 && a.bytes[0]&0xfe == 0xfc
}

// IsGlobal reports whether the address is a globally routable unicast
// address: not wildcard, loopback, link-local, site-local, unique-local,
// multicast, or broadcast.
func (a Address) IsGlobal() bool {
	return !a.IsWildcard() && !a.IsLoopBack() && !a.IsLinkLocal() &&
		!a.IsSiteLocal() && !a.IsUniqueLocal() && !a.IsMulticast() && !a.IsBroadcast()
}

// IsUnicast reports whether the address is a unicast address, i.e. neither
// multicast nor the v4 broadcast address.
func (a Address) IsUnicast() bool {
	return !a.IsMulticast() && !a.IsBroadcast()
}

// IsBroadcast reports whether the address is the IPv4 limited broadcast
// address 255.255.255.255. Always false for v6.
func (a Address) IsBroadcast() bool {
	if a.family != V4 {
		return false
	}
	for _, b := range a.bytes {
		if b != 0xff {
			return false
		}
	}
	return true
}

// IsMulticast reports whether the address is a multicast address
// (224.0.0.0/4 for v4, ff00::/8 for v6).
func (a Address) IsMulticast() bool {
	switch a.family {
	case V4:
		return a.bytes[0]&0xf0 == 0xe0
	case V6:
		return a.bytes[0] == 0xff
	default:
		return false
	}
}

// IsIPv4Address reports whether the family is [V4].
func (a Address) IsIPv4Address() bool {
	return a.family == V4
}

// IsIPv6Address reports whether the family is [V6].
func (a Address) IsIPv6Address() bool {
	return a.family == V6
}

// IsIPv4Compat reports whether the address is a deprecated IPv4-compatible
// IPv6 address ("::a.b.c.d", RFC 4291 section 2.5.5.1).
func (a Address) IsIPv4Compat() bool {
	if a.family != V6 {
		return false
	}
	for i := 0; i < 12; i++ {
		if a.bytes[i] != 0 {
			return false
		}
	}
	last4 := a.bytes[12:16]
	nonzero := false
	for _, b := range last4 {
		if b != 0 {
			nonzero = true
		}
	}
	loopback := last4[0] == 0 && last4[1] == 0 && last4[2] == 0 && last4[3] == 1
	return nonzero && !loopback
}

// IsIPv4Mapped reports whether the address is an IPv4-mapped IPv6 address
// ("::ffff:a.b.c.d", RFC 4291 section 2.5.5.2).
func (a Address) IsIPv4Mapped() bool {
	if a.family != V6 {
		return false
	}
	for i := 0; i < 10; i++ {
		if a.bytes[i] != 0 {
			return false
		}
	}
	return a.bytes[10] == 0xff && a.bytes[11] == 0xff
}

// ToV4 returns the embedded IPv4 address for a mapped or compatible IPv6
// address; otherwise it returns a unchanged.
func (a Address) ToV4() Address {
	if a.family == V6 && (a.IsIPv4Mapped() || a.IsIPv4Compat()) {
		b, _ := FromBytes(a.bytes[12:16], 0)
		return b
	}
	return a
}

// ToV6 promotes a v4 address to its IPv4-mapped v6 form; a v6 address is
// returned unchanged.
func (a Address) ToV6() Address {
	if a.family != V4 {
		return a
	}
	raw := make([]byte, 16)
	raw[10], raw[11] = 0xff, 0xff
	copy(raw[12:], a.bytes)
	b, _ := FromBytes(raw, 0)
	return b
}

// And returns the bitwise AND of a and other, which must share a family.
func (a Address) And(other Address) (Address, error) {
	return a.bitwise(other, func(x, y byte) byte { return x & y })
}

// Or returns the bitwise OR of a and other, which must share a family.
func (a Address) Or(other Address) (Address, error) {
	return a.bitwise(other, func(x, y byte) byte { return x | y })
}

// Xor returns the bitwise XOR of a and other, which must share a family.
func (a Address) Xor(other Address) (Address, error) {
	return a.bitwise(other, func(x, y byte) byte { return x ^ y })
}

// Not returns the bitwise complement of a.
func (a Address) Not() Address {
	raw := make([]byte, len(a.bytes))
	for i, b := range a.bytes {
		raw[i] = ^b
	}
	addr, _ := FromBytes(raw, a.scope)
	return addr
}

func (a Address) bitwise(other Address, op func(x, y byte) byte) (Address, error) {
	if a.family != other.family {
		return Address{}, fmt.Errorf("%w: %v vs %v", ErrFamilyMismatch, a.family, other.family)
	}
	raw := make([]byte, len(a.bytes))
	for i := range raw {
		raw[i] = op(a.bytes[i], other.bytes[i])
	}
	return FromBytes(raw, a.scope)
}

// Network returns the network address of a under the given prefix length
// (a AND the prefix mask).
func (a Address) Network(prefixLen int) (Address, error) {
	mask, err := FromPrefix(prefixLen, a.family)
	if err != nil {
		return Address{}, err
	}
	return a.And(mask)
}

// Broadcast returns the broadcast address of a under the given prefix
// length (a OR the complement of the prefix mask). Meaningful for v4;
// for v6 it returns the highest address of the subnet.
func (a Address) Broadcast(prefixLen int) (Address, error) {
	mask, err := FromPrefix(prefixLen, a.family)
	if err != nil {
		return Address{}, err
	}
	return a.Or(mask.Not())
}

// Compare orders addresses by family, then raw bytes, then scope.
func (a Address) Compare(other Address) int {
	if a.family != other.family {
		if a.family < other.family {
			return -1
		}
		return 1
	}
	if c := compareBytes(a.bytes, other.bytes); c != 0 {
		return c
	}
	switch {
	case a.scope < other.scope:
		return -1
	case a.scope > other.scope:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Equal reports whether a and other compare equal under [Address.Compare].
func (a Address) Equal(other Address) bool {
	return a.Compare(other) == 0
}
