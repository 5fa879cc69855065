// SPDX-License-Identifier: GPL-3.0-or-later

package ipaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWildcard(t *testing.T) {
	v4, err := Wildcard(V4)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", v4.String())
	assert.True(t, v4.IsWildcard())

	v6, err := Wildcard(V6)
	require.NoError(t, err)
	assert.Equal(t, "::", v6.String())

	_, err = Wildcard(Unspecified)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)
}

func TestParseIPv4Classification(t *testing.T) {
	addr, err := Parse("127.0.0.1")
	require.NoError(t, err)
	assert.True(t, addr.IsLoopBack())
	assert.True(t, addr.IsIPv4Address())
	assert.False(t, addr.IsIPv6Address())
	assert.Equal(t, "1.0.0.127.in-addr.arpa", addr.Arpa())
}

func TestParseForceFamilyMappedRoundTrip(t *testing.T) {
	addr, err := ParseForceFamily("192.168.14.31", V6)
	require.NoError(t, err)
	assert.Equal(t, "::ffff:192.168.14.31", addr.String())
	assert.True(t, addr.IsIPv4Mapped())
	assert.Equal(t, "192.168.14.31", addr.ToV4().String())
}

func TestParseForceFamilyRejectsV6IntoV4(t *testing.T) {
	_, err := ParseForceFamily("::", V4)
	assert.ErrorIs(t, err, ErrInvalidText)
}

func TestFromPrefixAndNetwork(t *testing.T) {
	mask, err := FromPrefix(24, V4)
	require.NoError(t, err)
	assert.Equal(t, "255.255.255.0", mask.String())

	addr, err := Parse("192.168.13.31")
	require.NoError(t, err)
	network, err := addr.And(mask)
	require.NoError(t, err)
	assert.Equal(t, "192.168.13.0", network.String())
}

func TestFromPrefixRoundTripsPrefixLen(t *testing.T) {
	for _, n := range []int{0, 8, 16, 24, 32} {
		mask, err := FromPrefix(n, V4)
		require.NoError(t, err)
		got, ok := mask.PrefixLen()
		require.True(t, ok)
		assert.Equal(t, n, got)
	}
}

func TestPrefixLenRejectsNonContiguousMask(t *testing.T) {
	addr, err := FromBytes([]byte{255, 0, 255, 0}, 0)
	require.NoError(t, err)
	_, ok := addr.PrefixLen()
	assert.False(t, ok)
}

func TestArpaV6(t *testing.T) {
	addr, err := Parse("::1")
	require.NoError(t, err)
	assert.Equal(t,
		"1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.ip6.arpa",
		addr.Arpa())

	addr, err = Parse("2001:db8::567:89ab")
	require.NoError(t, err)
	assert.Equal(t,
		"b.a.9.8.7.6.5.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa",
		addr.Arpa())
}

func TestIsLinkLocalAndSiteLocal(t *testing.T) {
	ll4, err := Parse("169.254.1.1")
	require.NoError(t, err)
	assert.True(t, ll4.IsLinkLocal())

	ll6, err := Parse("fe80::1")
	require.NoError(t, err)
	assert.True(t, ll6.IsLinkLocal())

	sl6, err := Parse("fec0::1")
	require.NoError(t, err)
	assert.True(t, sl6.IsSiteLocal())
	assert.False(t, sl6.IsLinkLocal())
}

func TestIsUniqueLocal(t *testing.T) {
	addr, err := Parse("fc00::1")
	require.NoError(t, err)
	assert.True(t, addr.IsUniqueLocal())
}

func TestIsMulticast(t *testing.T) {
	v4, err := Parse("224.0.0.251")
	require.NoError(t, err)
	assert.True(t, v4.IsMulticast())

	v6, err := Parse("ff02::fb")
	require.NoError(t, err)
	assert.True(t, v6.IsMulticast())
}

func TestIsBroadcast(t *testing.T) {
	addr, err := Parse("255.255.255.255")
	require.NoError(t, err)
	assert.True(t, addr.IsBroadcast())

	notBroadcast, err := Parse("255.255.255.254")
	require.NoError(t, err)
	assert.False(t, notBroadcast.IsBroadcast())
}

func TestIsGlobal(t *testing.T) {
	addr, err := Parse("8.8.8.8")
	require.NoError(t, err)
	assert.True(t, addr.IsGlobal())

	loopback, err := Parse("127.0.0.1")
	require.NoError(t, err)
	assert.False(t, loopback.IsGlobal())
}

func TestBitwiseFamilyMismatch(t *testing.T) {
	v4, err := Parse("1.2.3.4")
	require.NoError(t, err)
	v6, err := Parse("::1")
	require.NoError(t, err)

	_, err = v4.And(v6)
	assert.ErrorIs(t, err, ErrFamilyMismatch)
}

func TestNotAndOr(t *testing.T) {
	addr, err := FromBytes([]byte{0xff, 0x00, 0xff, 0x00}, 0)
	require.NoError(t, err)
	not := addr.Not()
	assert.Equal(t, []byte{0x00, 0xff, 0x00, 0xff}, not.Bytes())

	or, err := addr.Or(not)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, or.Bytes())
}

func TestCompareOrdersByFamilyThenBytesThenScope(t *testing.T) {
	v4, err := Parse("1.2.3.4")
	require.NoError(t, err)
	v6, err := Parse("::1")
	require.NoError(t, err)
	assert.Negative(t, v4.Compare(v6))

	a, err := FromBytes([]byte{1, 0, 0, 0}, 0)
	require.NoError(t, err)
	b, err := FromBytes([]byte{2, 0, 0, 0}, 0)
	require.NoError(t, err)
	assert.Negative(t, a.Compare(b))
	assert.True(t, a.Equal(a))
}

func TestByteAtOutOfRange(t *testing.T) {
	addr, err := Parse("1.2.3.4")
	require.NoError(t, err)
	_, err = addr.ByteAt(4)
	assert.ErrorIs(t, err, ErrOutOfRange)

	b, err := addr.ByteAt(0)
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)
}

func TestFromBytesWrongLength(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrWrongByteLength)
}

func TestParseEmptyDefaultsToV6Wildcard(t *testing.T) {
	addr, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, V6, addr.Family())
	assert.True(t, addr.IsWildcard())
}

func TestScopeSuffix(t *testing.T) {
	addr, err := FromBytes([]byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), addr.Scope())
	assert.Contains(t, addr.String(), "%3")
}

func TestBroadcastHelper(t *testing.T) {
	addr, err := Parse("192.168.1.10")
	require.NoError(t, err)
	bcast, err := addr.Broadcast(24)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.255", bcast.String())
}

func TestMustParsePanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustParse("not-an-address") })
	assert.Equal(t, "224.0.0.251", MustParse("224.0.0.251").String())
}
