// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/bassosimone/netcore/endpoint"
	"golang.org/x/sys/unix"
)

// Stream is a reliable, connection-oriented socket (TCP or Unix stream).
// It embeds [Basic] and adds connection progression, exactly-N
// read/write helpers, and lingering close.
type Stream struct {
	Basic
}

// NewStream constructs a Stream socket using cfg's error classifier and
// the given logger.
func NewStream(cfg *netcore.Config, logger netcore.SLogger) *Stream {
	return &Stream{Basic: *NewBasic(cfg, logger)}
}

// Connect begins connecting to ep, opening the socket implicitly if
// [Closed]. In [NonBlocking] mode the connection attempt may still be
// in progress when Connect returns (state [Connecting]); call
// [Stream.WaitConnected] to complete it.
func (s *Stream) Connect(ep endpoint.Endpoint) error {
	if s.State() == Closed {
		protocol, err := protocolForStreamEndpoint(ep)
		if err != nil {
			return err
		}
		if err := s.Open(protocol); err != nil {
			return err
		}
	}

	sa, err := sockaddrFor(ep)
	if err != nil {
		return err
	}

	t0 := s.now()
	s.log().Info("streamConnectStart", slog.String("endpoint", ep.String()), slog.Time("t", t0))
	err = unix.Connect(s.Handle(), sa)
	s.log().Info("streamConnectDone", slog.Any("err", err), slog.String("errClass", s.class(err)), slog.Time("t0", t0), slog.Time("t", s.now()))

	switch {
	case err == nil:
		s.setState(Connected)
		return nil
	case errors.Is(err, unix.EINPROGRESS):
		s.setState(Connecting)
		return nil
	default:
		return fmt.Errorf("socket: connect: %w", err)
	}
}

// WaitConnected blocks for up to timeout until a [Connecting] socket
// completes its handshake.
func (s *Stream) WaitConnected(timeout time.Duration) (bool, error) {
	switch s.State() {
	case Connected:
		return true, nil
	case Connecting:
		ready, err := s.WaitReadyWrite(timeout)
		if err != nil || !ready {
			return false, err
		}
		return s.checkConnected()
	default:
		return false, fmt.Errorf("socket: waitConnected: %w", ErrClosed)
	}
}

func (s *Stream) checkConnected() (bool, error) {
	errno, err := unix.GetsockoptInt(s.Handle(), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false, fmt.Errorf("socket: waitConnected: %w", err)
	}
	if errno != 0 {
		return false, fmt.Errorf("socket: waitConnected: %w", unix.Errno(errno))
	}
	s.setState(Connected)
	return true, nil
}

// Connecting reports whether a non-blocking connect is in progress.
func (s *Stream) Connecting() bool {
	return s.State() == Connecting
}

// Connected reports whether the socket has an established peer.
func (s *Stream) Connected() bool {
	return s.State() == Connected
}

// Disconnect performs a lingering close: it shuts down the write
// direction, drains any data already in flight from the peer, then
// shuts down the read direction and closes the socket. If draining
// would block, Disconnect returns [ErrWouldBlock] and a subsequent call
// completes the sequence (see [Stream.WaitDisconnected]).
func (s *Stream) Disconnect() error {
	if s.State() == Connected {
		_ = unix.Shutdown(s.Handle(), unix.SHUT_WR)
		s.setState(Disconnecting)
	}

	if s.State() == Disconnecting {
		buf := make([]byte, 4096)
		for {
			n, err := unix.Read(s.Handle(), buf)
			if n <= 0 {
				if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
					return ErrWouldBlock
				}
				break
			}
		}
		_ = unix.Shutdown(s.Handle(), unix.SHUT_RD)
		s.setState(Disconnected)
	}

	return s.Close()
}

// WaitDisconnected blocks for up to timeout until a [Disconnecting]
// socket's lingering close completes.
func (s *Stream) WaitDisconnected(timeout time.Duration) (bool, error) {
	if s.State() != Disconnecting {
		return s.State() == Disconnected || s.State() == Closed, nil
	}

	deadline := s.now().Add(timeout)
	for {
		ready, err := s.WaitReadyRead(timeout)
		if err != nil {
			return false, err
		}
		if !ready {
			return false, nil
		}
		err = s.Disconnect()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return false, err
		}
		timeout = deadline.Sub(s.now())
		if timeout <= 0 {
			return false, nil
		}
	}
}

// ReadExactly reads exactly len(data) bytes, retrying on
// [ErrWouldBlock] by waiting up to timeout for readability between
// attempts.
func (s *Stream) ReadExactly(data []byte, timeout time.Duration) error {
	var read int
	for read < len(data) {
		n, err := s.Read(data[read:])
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				ready, werr := s.WaitReadyRead(timeout)
				if werr != nil {
					return werr
				}
				if ready {
					continue
				}
			}
			return err
		}
		read += n
	}
	return nil
}

// WriteExactly writes exactly len(data) bytes, retrying on
// [ErrWouldBlock] by waiting up to timeout for writability between
// attempts.
func (s *Stream) WriteExactly(data []byte, timeout time.Duration) error {
	var written int
	for written < len(data) {
		n, err := s.Write(data[written:])
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				ready, werr := s.WaitReadyWrite(timeout)
				if werr != nil {
					return werr
				}
				if ready {
					continue
				}
			}
			return err
		}
		written += n
	}
	return nil
}

func protocolForStreamEndpoint(ep endpoint.Endpoint) (Protocol, error) {
	switch ep.Family() {
	case endpoint.IPv4:
		return TCP4, nil
	case endpoint.IPv6:
		return TCP6, nil
	case endpoint.Unix:
		return UnixStream, nil
	default:
		return Protocol{}, fmt.Errorf("socket: cannot infer protocol for endpoint family %v", ep.Family())
	}
}
