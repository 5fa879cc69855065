// SPDX-License-Identifier: GPL-3.0-or-later

package dns

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/dns/wire"
	"github.com/bassosimone/netcore/errclass"
)

// ErrTimedOut indicates a lookup did not receive a matching response
// within the given timeout.
var ErrTimedOut = errors.New("dns: timed out")

// ErrNoResult indicates a lookup completed successfully but returned no
// usable record.
var ErrNoResult = errors.New("dns: no result")

// errProbeRequiresMulticast indicates [Client.Probe] was called with a
// non-multicast transport.
var errProbeRequiresMulticast = errors.New("dns: probe requires a multicast transport")

// Client dispatches DNS transactions over a [Transport]. Construct via
// [NewClient]; the public resolve* operations in operations.go are thin
// wrappers around [Client.lookup].
type Client struct {
	// Transport selects the wire transport ([Dns], [Mdns], or [Dot]).
	Transport Transport

	// Interface restricts multicast operations ([Mdns]) to a specific
	// network interface. nil uses the default interface.
	Interface *net.Interface

	// ServerName sets the TLS SNI / certificate hostname used by the
	// [Dot] transport. Ignored by other transports.
	ServerName string

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier netcore.ErrClassifier

	// Logger is the [netcore.SLogger] used for structured logging.
	Logger netcore.SLogger

	// TimeNow returns the current time (overridable for testing).
	TimeNow func() time.Time

	// OnSuccess, if set, is called with the packet after a successful
	// lookup.
	OnSuccess func(*Packet)

	// OnFailure, if set, is called with the packet (as sent, sections
	// not yet decoded) after a failed lookup.
	OnFailure func(*Packet)
}

// NewClient constructs a Client for the given transport using cfg's error
// classifier and the given logger.
func NewClient(cfg *netcore.Config, logger netcore.SLogger, transport Transport) *Client {
	return &Client{
		Transport:     transport,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// lookup opens the transport, sends packet's questions under a fresh
// random transaction id, then reads responses until one matches (same id,
// response bit set) or timeout elapses; non-matching datagrams are
// ignored and do not shorten the remaining deadline beyond the time
// actually spent waiting for them, per §5 and §8. For a multicast
// transport ([Mdns]) the id and response-bit checks are not applied: the
// first datagram that decodes is taken as the response.
func (c *Client) lookup(packet *Packet, timeout time.Duration) error {
	port := packet.Port
	if port == 0 {
		port = c.Transport.DefaultPort()
	}

	cn, err := c.Transport.Dial(c.config(), c.log(), c.Interface, packet.Server, port, c.ServerName, timeout)
	if err != nil {
		c.notifyFailure(packet)
		return err
	}
	defer cn.Close()

	reqID := uint16(rand.Uint32())
	flags := uint16(0)
	if !c.Transport.Multicast() {
		flags = wire.FlagRecursionDesired
	}

	msg := wire.Message{Header: wire.Header{ID: reqID, Flags: flags}, Questions: packet.Questions}
	data, err := msg.Encode()
	if err != nil {
		c.notifyFailure(packet)
		return err
	}

	t0 := c.now()
	c.log().Info("dnsLookupStart", slog.Int("id", int(reqID)), slog.Duration("timeout", timeout), slog.Time("t", t0))

	if err := cn.Send(data); err != nil {
		c.log().Info("dnsLookupDone", slog.Any("err", err), slog.String("errClass", c.class(err)), slog.Time("t0", t0), slog.Time("t", c.now()))
		c.notifyFailure(packet)
		return err
	}

	buf := make([]byte, 65535)
	elapsed := time.Duration(0)

	for {
		remaining := timeout - elapsed
		if remaining <= 0 {
			c.log().Info("dnsLookupDone", slog.Any("err", ErrTimedOut), slog.String("errClass", string(errclass.TimedOut)), slog.Time("t0", t0), slog.Time("t", c.now()))
			c.notifyFailure(packet)
			return ErrTimedOut
		}

		waitStart := c.now()
		ready, err := cn.WaitReadyRead(remaining)
		elapsed += c.now().Sub(waitStart)
		if err != nil {
			c.log().Info("dnsLookupDone", slog.Any("err", err), slog.String("errClass", c.class(err)), slog.Time("t0", t0), slog.Time("t", c.now()))
			c.notifyFailure(packet)
			return err
		}
		if !ready {
			c.log().Info("dnsLookupDone", slog.Any("err", ErrTimedOut), slog.String("errClass", string(errclass.TimedOut)), slog.Time("t0", t0), slog.Time("t", c.now()))
			c.notifyFailure(packet)
			return ErrTimedOut
		}

		n, err := cn.Recv(buf)
		if err != nil {
			c.log().Info("dnsLookupDone", slog.Any("err", err), slog.String("errClass", c.class(err)), slog.Time("t0", t0), slog.Time("t", c.now()))
			c.notifyFailure(packet)
			return err
		}

		resp, err := wire.DecodeMessage(buf[:n])
		if err != nil {
			continue // malformed datagram, ignore and keep waiting
		}
		if !c.Transport.Multicast() && (resp.Header.ID != reqID || !resp.Header.IsResponse()) {
			continue
		}

		if kind := wire.RcodeToKind(resp.Header.Rcode()); kind != "" {
			rerr := errclass.New(kind, "dns: server returned error rcode")
			c.log().Info("dnsLookupDone", slog.Any("err", rerr), slog.String("errClass", string(kind)), slog.Time("t0", t0), slog.Time("t", c.now()))
			c.notifyFailure(packet)
			return rerr
		}

		packet.Questions = resp.Questions
		packet.Answers = resp.Answers
		packet.Authorities = resp.Authorities
		packet.Additionals = resp.Additionals

		c.log().Info("dnsLookupDone", slog.Any("err", error(nil)), slog.Time("t0", t0), slog.Time("t", c.now()))
		c.notifySuccess(packet)
		return nil
	}
}

func (c *Client) notifySuccess(packet *Packet) {
	if c.OnSuccess != nil {
		c.OnSuccess(packet)
	}
}

func (c *Client) notifyFailure(packet *Packet) {
	if c.OnFailure != nil {
		c.OnFailure(packet)
	}
}

func (c *Client) config() *netcore.Config {
	return &netcore.Config{ErrClassifier: c.ErrClassifier, TimeNow: c.TimeNow}
}

func (c *Client) now() time.Time {
	if c.TimeNow == nil {
		return time.Now()
	}
	return c.TimeNow()
}

func (c *Client) log() netcore.SLogger {
	if c.Logger == nil {
		return netcore.DefaultSLogger()
	}
	return c.Logger
}

func (c *Client) class(err error) string {
	if c.ErrClassifier == nil {
		return netcore.DefaultErrClassifier.Classify(err)
	}
	return c.ErrClassifier.Classify(err)
}
