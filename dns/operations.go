// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"sort"
	"time"

	"github.com/bassosimone/netcore/dns/wire"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
)

// MailExchanger is a single decoded MX record.
type MailExchanger struct {
	Preference uint16
	Name       string
}

func questionTypeForFamily(family endpoint.Family) uint16 {
	if family == endpoint.IPv6 {
		return wire.TypeAAAA
	}
	return wire.TypeA
}

// resolveServer substitutes the transport's multicast group for server
// when the client is configured with a multicast transport ([Mdns]);
// server is used as given otherwise.
func (c *Client) resolveServer(family endpoint.Family, server endpoint.Endpoint) (endpoint.Endpoint, error) {
	if !c.Transport.Multicast() {
		return server, nil
	}
	group, err := c.Transport.MulticastAddress(family)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	return endpoint.NewIP(group, 0)
}

// ResolveAllHost resolves host to every address of family that server (or
// the transport's multicast group, for [Mdns]) returns.
func (c *Client) ResolveAllHost(host string, family endpoint.Family, server endpoint.Endpoint, port uint16, timeout time.Duration) ([]ipaddr.Address, error) {
	server, err := c.resolveServer(family, server)
	if err != nil {
		return nil, err
	}
	qtype := questionTypeForFamily(family)

	packet := &Packet{
		Server:    server,
		Port:      port,
		Questions: []wire.Question{{Name: host, Type: qtype, Class: wire.ClassIN}},
	}
	if err := c.lookup(packet, timeout); err != nil {
		return nil, err
	}

	var addrs []ipaddr.Address
	for _, a := range packet.Answers {
		if a.Type == qtype && !a.Data.Addr.IsWildcard() {
			addrs = append(addrs, a.Data.Addr)
		}
	}
	return addrs, nil
}

// ResolveHost returns the first address [Client.ResolveAllHost] finds, or
// [ErrNoResult] if none.
func (c *Client) ResolveHost(host string, family endpoint.Family, server endpoint.Endpoint, port uint16, timeout time.Duration) (ipaddr.Address, error) {
	addrs, err := c.ResolveAllHost(host, family, server, port, timeout)
	if err != nil {
		return ipaddr.Address{}, err
	}
	if len(addrs) == 0 {
		return ipaddr.Address{}, ErrNoResult
	}
	return addrs[0], nil
}

// ResolveAllHostAny tries [Client.ResolveAllHost] against every server in
// [NameServers] until one returns a non-empty result.
func (c *Client) ResolveAllHostAny(host string, family endpoint.Family, timeout time.Duration) ([]ipaddr.Address, error) {
	servers, err := NameServers()
	if err != nil {
		return nil, err
	}
	for _, server := range servers {
		addrs, err := c.ResolveAllHost(host, family, server, 0, timeout)
		if err == nil && len(addrs) > 0 {
			return addrs, nil
		}
	}
	return nil, ErrNoResult
}

// ResolveHostAny is the first-result form of [Client.ResolveAllHostAny].
func (c *Client) ResolveHostAny(host string, family endpoint.Family, timeout time.Duration) (ipaddr.Address, error) {
	addrs, err := c.ResolveAllHostAny(host, family, timeout)
	if err != nil {
		return ipaddr.Address{}, err
	}
	return addrs[0], nil
}

// ResolveAllAddress resolves address's reverse (PTR) name via server,
// returning every alias the answer section carries.
func (c *Client) ResolveAllAddress(address ipaddr.Address, server endpoint.Endpoint, port uint16, timeout time.Duration) ([]string, error) {
	packet := &Packet{
		Server:    server,
		Port:      port,
		Questions: []wire.Question{{Name: address.Arpa(), Type: wire.TypePTR, Class: wire.ClassIN}},
	}
	if err := c.lookup(packet, timeout); err != nil {
		return nil, err
	}
	var aliases []string
	for _, a := range packet.Answers {
		if a.Type == wire.TypePTR && a.Data.Name != "" {
			aliases = append(aliases, a.Data.Name)
		}
	}
	return aliases, nil
}

// ResolveAddress returns the first alias [Client.ResolveAllAddress]
// finds, or [ErrNoResult] if none.
func (c *Client) ResolveAddress(address ipaddr.Address, server endpoint.Endpoint, port uint16, timeout time.Duration) (string, error) {
	aliases, err := c.ResolveAllAddress(address, server, port, timeout)
	if err != nil {
		return "", err
	}
	if len(aliases) == 0 {
		return "", ErrNoResult
	}
	return aliases[0], nil
}

// ResolveAllNameServer resolves host's NS records via server.
func (c *Client) ResolveAllNameServer(host string, server endpoint.Endpoint, port uint16, timeout time.Duration) ([]string, error) {
	packet := &Packet{
		Server:    server,
		Port:      port,
		Questions: []wire.Question{{Name: host, Type: wire.TypeNS, Class: wire.ClassIN}},
	}
	if err := c.lookup(packet, timeout); err != nil {
		return nil, err
	}
	var names []string
	for _, a := range packet.Answers {
		if a.Type == wire.TypeNS && a.Data.Name != "" {
			names = append(names, a.Data.Name)
		}
	}
	return names, nil
}

// ResolveNameServer returns the first NS [Client.ResolveAllNameServer]
// finds, or [ErrNoResult] if none.
func (c *Client) ResolveNameServer(host string, server endpoint.Endpoint, port uint16, timeout time.Duration) (string, error) {
	names, err := c.ResolveAllNameServer(host, server, port, timeout)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoResult
	}
	return names[0], nil
}

// ResolveAuthority resolves host's SOA record via server, returning the
// primary name server (MNAME).
func (c *Client) ResolveAuthority(host string, server endpoint.Endpoint, port uint16, timeout time.Duration) (string, error) {
	packet := &Packet{
		Server:    server,
		Port:      port,
		Questions: []wire.Question{{Name: host, Type: wire.TypeSOA, Class: wire.ClassIN}},
	}
	if err := c.lookup(packet, timeout); err != nil {
		return "", err
	}
	for _, a := range packet.Answers {
		if a.Type == wire.TypeSOA {
			return a.Data.Mname, nil
		}
	}
	return "", ErrNoResult
}

// ResolveAllMailExchanger resolves host's MX records via server, sorted
// ascending by preference (lowest first, per RFC 1035 §3.3.9 ordering).
func (c *Client) ResolveAllMailExchanger(host string, server endpoint.Endpoint, port uint16, timeout time.Duration) ([]MailExchanger, error) {
	packet := &Packet{
		Server:    server,
		Port:      port,
		Questions: []wire.Question{{Name: host, Type: wire.TypeMX, Class: wire.ClassIN}},
	}
	if err := c.lookup(packet, timeout); err != nil {
		return nil, err
	}
	var mxs []MailExchanger
	for _, a := range packet.Answers {
		if a.Type == wire.TypeMX {
			mxs = append(mxs, MailExchanger{Preference: a.Data.Preference, Name: a.Data.Name})
		}
	}
	sort.Slice(mxs, func(i, j int) bool { return mxs[i].Preference < mxs[j].Preference })
	return mxs, nil
}

// ResolveMailExchanger returns the lowest-preference exchanger
// [Client.ResolveAllMailExchanger] finds, or [ErrNoResult] if none.
func (c *Client) ResolveMailExchanger(host string, server endpoint.Endpoint, port uint16, timeout time.Duration) (string, error) {
	mxs, err := c.ResolveAllMailExchanger(host, server, port, timeout)
	if err != nil {
		return "", err
	}
	if len(mxs) == 0 {
		return "", ErrNoResult
	}
	return mxs[0].Name, nil
}
