// SPDX-License-Identifier: GPL-3.0-or-later

package tlssocket

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/bassosimone/netcore/endpoint"
	"github.com/bassosimone/netcore/socket"
	"golang.org/x/sys/unix"
)

// streamConn adapts a [socket.Stream] to [net.Conn] so [crypto/tls] can
// drive the handshake and record layer over it. It translates
// [socket.ErrWouldBlock] into a readiness wait bounded by the configured
// timeout (or an explicit deadline set via SetDeadline) and maps
// [socket.ErrConnectionClosed] to [io.EOF], which crypto/tls treats as a
// clean peer shutdown.
type streamConn struct {
	stream  *socket.Stream
	timeout time.Duration

	readDeadline  time.Time
	writeDeadline time.Time
}

func newStreamConn(stream *socket.Stream, timeout time.Duration) *streamConn {
	return &streamConn{stream: stream, timeout: timeout}
}

var _ net.Conn = (*streamConn)(nil)

func (c *streamConn) Read(b []byte) (int, error) {
	for {
		n, err := c.stream.Read(b)
		if err == nil {
			return n, nil
		}
		if errors.Is(err, socket.ErrConnectionClosed) {
			return n, io.EOF
		}
		if !errors.Is(err, socket.ErrWouldBlock) {
			return n, err
		}
		ready, werr := c.stream.WaitReadyRead(c.remaining(c.readDeadline))
		if werr != nil {
			return 0, werr
		}
		if !ready {
			return 0, os.ErrDeadlineExceeded
		}
	}
}

func (c *streamConn) Write(b []byte) (int, error) {
	var written int
	for written < len(b) {
		n, err := c.stream.Write(b[written:])
		if err != nil {
			if errors.Is(err, socket.ErrWouldBlock) {
				ready, werr := c.stream.WaitReadyWrite(c.remaining(c.writeDeadline))
				if werr != nil {
					return written, werr
				}
				if !ready {
					return written, os.ErrDeadlineExceeded
				}
				continue
			}
			return written, err
		}
		written += n
	}
	return written, nil
}

func (c *streamConn) Close() error {
	return c.stream.Disconnect()
}

func (c *streamConn) LocalAddr() net.Addr {
	ep, err := c.stream.LocalEndpoint()
	if err != nil {
		return streamAddr("")
	}
	return streamAddr(ep.String())
}

func (c *streamConn) RemoteAddr() net.Addr {
	sa, err := unix.Getpeername(c.stream.Handle())
	if err != nil {
		return streamAddr("")
	}
	ep, err := endpoint.FromSockaddr(sa)
	if err != nil {
		return streamAddr("")
	}
	return streamAddr(ep.String())
}

func (c *streamConn) SetDeadline(t time.Time) error {
	c.readDeadline, c.writeDeadline = t, t
	return nil
}

func (c *streamConn) SetReadDeadline(t time.Time) error {
	c.readDeadline = t
	return nil
}

func (c *streamConn) SetWriteDeadline(t time.Time) error {
	c.writeDeadline = t
	return nil
}

func (c *streamConn) remaining(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return c.timeout
	}
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}

type streamAddr string

func (a streamAddr) Network() string { return "netcore" }
func (a streamAddr) String() string  { return string(a) }
