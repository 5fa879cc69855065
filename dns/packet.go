// SPDX-License-Identifier: GPL-3.0-or-later

// Package dns implements the DNS client: a transaction dispatcher shared
// by the plain unicast, mDNS, and DNS-over-TLS transports, and the
// convenience operations built on top of it (host/address/NS/MX/SOA
// resolution, local /etc/services lookup, and mDNS conflict probing).
package dns

import (
	"github.com/bassosimone/netcore/dns/wire"
	"github.com/bassosimone/netcore/endpoint"
)

// Packet is a single DNS transaction: the questions to send, the server
// to send them to, and -- once [Client.lookup] returns successfully --
// the decoded response sections. Packet is mutated in place: request
// questions are replaced by the decoded response's question section on
// success, matching the wire contract in §4.7.2.
type Packet struct {
	// Server is the destination server (or multicast group) address.
	Server endpoint.Endpoint

	// Port is the destination port; 0 means "use the transport default".
	Port uint16

	Questions   []wire.Question
	Answers     []wire.Record
	Authorities []wire.Record
	Additionals []wire.Record
}
