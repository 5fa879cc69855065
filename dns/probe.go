// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/bassosimone/netcore/dns/wire"
	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/ipaddr"
)

// Probe sends an mDNS query for host claiming address via an authority
// record, then listens for the full timeout window. Unlike [Client.lookup],
// which returns on the first matching response, Probe must wait out the
// whole window: a conflicting answer might arrive from any responder at
// any point before the deadline. It returns true iff no other responder
// claims host with a different address of the same family -- the
// standard mDNS conflict-detection probe.
//
// Probe is only meaningful with the [Mdns] transport; it returns an error
// for any other transport.
func (c *Client) Probe(host string, family endpoint.Family, address ipaddr.Address, timeout time.Duration) (bool, error) {
	if !c.Transport.Multicast() {
		return false, errProbeRequiresMulticast
	}

	group, err := c.Transport.MulticastAddress(family)
	if err != nil {
		return false, err
	}
	server, err := endpoint.NewIP(group, 0)
	if err != nil {
		return false, err
	}

	cn, err := c.Transport.Dial(c.config(), c.log(), c.Interface, server, c.Transport.DefaultPort(), c.ServerName, timeout)
	if err != nil {
		return false, err
	}
	defer cn.Close()

	qtype := wire.TypeA
	if family == endpoint.IPv6 {
		qtype = wire.TypeAAAA
	}

	msg := wire.Message{
		Header:    wire.Header{ID: uint16(rand.Uint32())},
		Questions: []wire.Question{{Name: host, Type: qtype, Class: wire.ClassIN}},
		Authorities: []wire.Record{{
			Name: host, Type: qtype, Class: wire.ClassIN, TTL: 120,
			Data: wire.RData{Addr: address},
		}},
	}
	data, err := msg.Encode()
	if err != nil {
		return false, err
	}

	t0 := c.now()
	c.log().Info("dnsProbeStart", slog.String("host", host), slog.Time("t", t0))

	if err := cn.Send(data); err != nil {
		c.log().Info("dnsProbeDone", slog.Any("err", err), slog.String("errClass", c.class(err)), slog.Time("t0", t0), slog.Time("t", c.now()))
		return false, err
	}

	buf := make([]byte, 65535)
	elapsed := time.Duration(0)

	for elapsed < timeout {
		waitStart := c.now()
		ready, err := cn.WaitReadyRead(timeout - elapsed)
		elapsed += c.now().Sub(waitStart)
		if err != nil {
			c.log().Info("dnsProbeDone", slog.Any("err", err), slog.String("errClass", c.class(err)), slog.Time("t0", t0), slog.Time("t", c.now()))
			return false, err
		}
		if !ready {
			break
		}

		n, err := cn.Recv(buf)
		if err != nil {
			c.log().Info("dnsProbeDone", slog.Any("err", err), slog.String("errClass", c.class(err)), slog.Time("t0", t0), slog.Time("t", c.now()))
			return false, err
		}

		resp, err := wire.DecodeMessage(buf[:n])
		if err != nil {
			continue
		}
		if conflicts(resp, host, qtype, address) {
			c.log().Info("dnsProbeDone", slog.Bool("conflict", true), slog.Time("t0", t0), slog.Time("t", c.now()))
			return false, nil
		}
	}

	c.log().Info("dnsProbeDone", slog.Bool("conflict", false), slog.Time("t0", t0), slog.Time("t", c.now()))
	return true, nil
}

func conflicts(msg wire.Message, host string, qtype uint16, address ipaddr.Address) bool {
	for _, sections := range [][]wire.Record{msg.Answers, msg.Authorities, msg.Additionals} {
		for _, rec := range sections {
			if rec.Type != qtype || rec.Name != host {
				continue
			}
			if !rec.Data.Addr.Equal(address) {
				return true
			}
		}
	}
	return false
}
