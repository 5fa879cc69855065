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

// Mode is the blocking mode of a socket.
type Mode int

const (
	// Blocking makes I/O calls block until they can complete.
	Blocking Mode = iota

	// NonBlocking makes I/O calls return [ErrWouldBlock] immediately
	// instead of waiting.
	NonBlocking
)

// State is one of the five mutually exclusive states a socket may be in.
type State int

const (
	// Closed means the socket has no underlying OS descriptor.
	Closed State = iota

	// Disconnected means the socket is open but has no peer.
	Disconnected

	// Connecting means a non-blocking connect is in progress.
	Connecting

	// Connected means the socket has an established peer.
	Connected

	// Disconnecting means a lingering close is in progress.
	Disconnecting
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Option identifies a socket option recognized by [Basic.SetOption].
type Option int

const (
	NoDelay Option = iota
	KeepAlive
	KeepIdle
	KeepIntvl
	KeepCount
	SndBuffer
	RcvBuffer
	TimeStamp
	ReuseAddr
	ReusePort
	Broadcast
	Ttl
	MulticastLoop
	MulticastTtl
	PathMtuDiscover
	RcvError
)

// ErrInUse indicates an operation that requires the socket to be
// [Closed] (or not yet [Connected]) was attempted in the wrong state.
var ErrInUse = errors.New("socket: already in use")

// ErrClosed indicates an operation was attempted on a [Closed] socket.
var ErrClosed = errors.New("socket: closed")

// ErrInvalidOption indicates an [Option] unsupported for the socket kind.
var ErrInvalidOption = errors.New("socket: invalid option")

// ErrWouldBlock indicates a non-blocking operation could not complete
// immediately.
var ErrWouldBlock = errors.New("socket: would block")

// ErrConnectionClosed indicates the peer closed the connection.
var ErrConnectionClosed = errors.New("socket: connection closed by peer")

// Basic is the raw socket layer: byte-oriented I/O plus readiness
// waiting, with no notion of a connected peer.
//
// Basic is not safe for concurrent use; the spec's single-threaded
// cooperative model applies. Embed Basic in higher layers ([Datagram],
// [Stream]) to add peer association and stream semantics.
type Basic struct {
	// ErrClassifier classifies errors for structured logging.
	ErrClassifier netcore.ErrClassifier

	// Logger is the [netcore.SLogger] used for structured logging.
	Logger netcore.SLogger

	// TimeNow returns the current time (overridable for testing).
	TimeNow func() time.Time

	fd       int
	state    State
	mode     Mode
	protocol Protocol
}

// NewBasic constructs a Basic socket in the [NonBlocking] mode using cfg's
// error classifier and the given logger.
func NewBasic(cfg *netcore.Config, logger netcore.SLogger) *Basic {
	return &Basic{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
		fd:            -1,
		state:         Closed,
		mode:          NonBlocking,
	}
}

// Open creates the underlying OS descriptor for protocol. It fails with
// [ErrInUse] unless the socket is [Closed].
func (b *Basic) Open(protocol Protocol) error {
	if b.state != Closed {
		return ErrInUse
	}

	family, err := protocol.osFamily()
	if err != nil {
		return err
	}

	sockType := protocol.SockType
	if b.mode == NonBlocking {
		sockType |= unix.SOCK_NONBLOCK
	}

	t0 := b.now()
	b.log().Info("socketOpenStart", slog.Time("t", t0))
	fd, err := unix.Socket(family, sockType, protocol.IPProto)
	b.log().Info("socketOpenDone", slog.Any("err", err), slog.String("errClass", b.class(err)), slog.Time("t0", t0), slog.Time("t", b.now()))
	if err != nil {
		return fmt.Errorf("socket: open: %w", err)
	}

	b.fd = fd
	b.protocol = protocol
	b.state = Disconnected
	return nil
}

// Close releases the underlying OS descriptor. Close is idempotent.
func (b *Basic) Close() error {
	if b.state == Closed {
		return nil
	}
	t0 := b.now()
	b.log().Info("socketCloseStart", slog.Int("fd", b.fd), slog.Time("t", t0))
	err := unix.Close(b.fd)
	b.log().Info("socketCloseDone", slog.Any("err", err), slog.String("errClass", b.class(err)), slog.Time("t0", t0), slog.Time("t", b.now()))
	b.fd = -1
	b.state = Closed
	if err != nil {
		return fmt.Errorf("socket: close: %w", err)
	}
	return nil
}

// Bind assigns ep to the socket, opening it implicitly if [Closed]. On
// IP endpoints this sets [ReuseAddr] first; on a Unix endpoint, it
// unlinks any stale socket file at the path before binding.
func (b *Basic) Bind(ep endpoint.Endpoint) error {
	if b.state == Connected {
		return ErrInUse
	}
	if b.state == Closed {
		protocol, err := protocolForEndpoint(ep)
		if err != nil {
			return err
		}
		if err := b.Open(protocol); err != nil {
			return err
		}
	}

	switch ep.Family() {
	case endpoint.IPv4, endpoint.IPv6:
		if err := b.SetOption(ReuseAddr, 1); err != nil {
			return err
		}
	case endpoint.Unix:
		_ = unix.Unlink(ep.Path())
	}

	sa, err := sockaddrFor(ep)
	if err != nil {
		return err
	}

	t0 := b.now()
	b.log().Info("socketBindStart", slog.String("endpoint", ep.String()), slog.Time("t", t0))
	err = unix.Bind(b.fd, sa)
	b.log().Info("socketBindDone", slog.Any("err", err), slog.String("errClass", b.class(err)), slog.Time("t0", t0), slog.Time("t", b.now()))
	if err != nil {
		return fmt.Errorf("socket: bind: %w", err)
	}
	return nil
}

// CanRead returns the number of bytes available to read without blocking.
func (b *Basic) CanRead() (int, error) {
	if b.state == Closed {
		return -1, ErrClosed
	}
	n, err := unix.IoctlGetInt(b.fd, unix.FIONREAD)
	if err != nil {
		return -1, fmt.Errorf("socket: canRead: %w", err)
	}
	return n, nil
}

// WaitReadyRead blocks for up to timeout waiting for the socket to be
// readable. A timeout of 0 polls once without blocking.
func (b *Basic) WaitReadyRead(timeout time.Duration) (bool, error) {
	if b.state == Closed {
		return false, ErrClosed
	}
	return b.wait(unix.POLLIN, timeout)
}

// WaitReadyWrite blocks for up to timeout waiting for the socket to be
// writable. A timeout of 0 polls once without blocking.
func (b *Basic) WaitReadyWrite(timeout time.Duration) (bool, error) {
	if b.state == Closed {
		return false, ErrClosed
	}
	return b.wait(unix.POLLOUT, timeout)
}

func (b *Basic) wait(events int16, timeout time.Duration) (bool, error) {
	pfd := []unix.PollFd{{Fd: int32(b.fd), Events: events}}
	millis := int(timeout / time.Millisecond)
	n, err := unix.Poll(pfd, millis)
	if err != nil {
		return false, fmt.Errorf("socket: wait: %w", err)
	}
	return n > 0, nil
}

// Read reads up to len(data) bytes. It returns [ErrConnectionClosed]
// when the peer has performed an orderly shutdown (0-byte read).
func (b *Basic) Read(data []byte) (int, error) {
	if b.state == Closed {
		return -1, ErrClosed
	}
	t0 := b.now()
	b.log().Debug("socketReadStart", slog.Int("bufSize", len(data)), slog.Time("t", t0))
	n, err := unix.Read(b.fd, data)
	b.log().Debug("socketReadDone", slog.Int("n", n), slog.Any("err", err), slog.String("errClass", b.class(err)), slog.Time("t0", t0), slog.Time("t", b.now()))
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return -1, ErrWouldBlock
		}
		return -1, fmt.Errorf("socket: read: %w", err)
	}
	if n == 0 {
		return 0, ErrConnectionClosed
	}
	return n, nil
}

// Write writes data, returning the number of bytes accepted by the OS.
func (b *Basic) Write(data []byte) (int, error) {
	if b.state == Closed {
		return -1, ErrClosed
	}
	t0 := b.now()
	b.log().Debug("socketWriteStart", slog.Int("bufSize", len(data)), slog.Time("t", t0))
	n, err := unix.Write(b.fd, data)
	b.log().Debug("socketWriteDone", slog.Int("n", n), slog.Any("err", err), slog.String("errClass", b.class(err)), slog.Time("t0", t0), slog.Time("t", b.now()))
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return -1, ErrWouldBlock
		}
		return -1, fmt.Errorf("socket: write: %w", err)
	}
	return n, nil
}

// SetMode sets the blocking mode. If the socket is [Closed], the mode is
// recorded and applied on the next [Basic.Open].
func (b *Basic) SetMode(mode Mode) error {
	b.mode = mode
	if b.state == Closed {
		return nil
	}
	flags, err := unix.FcntlInt(uintptr(b.fd), unix.F_GETFL, 0)
	if err != nil {
		return fmt.Errorf("socket: setMode: %w", err)
	}
	if mode == NonBlocking {
		flags |= unix.O_NONBLOCK
	} else {
		flags &^= unix.O_NONBLOCK
	}
	if _, err := unix.FcntlInt(uintptr(b.fd), unix.F_SETFL, flags); err != nil {
		return fmt.Errorf("socket: setMode: %w", err)
	}
	return nil
}

// SetOption sets option to value. Family-dispatched options
// ([Ttl], [MulticastLoop], [MulticastTtl], [PathMtuDiscover], [RcvError])
// are handled by [Datagram.SetOption]; calling them here returns
// [ErrInvalidOption].
func (b *Basic) SetOption(option Option, value int) error {
	if b.state == Closed {
		return ErrClosed
	}
	level, name, err := sockoptFor(option)
	if err != nil {
		return err
	}
	if err := unix.SetsockoptInt(b.fd, level, name, value); err != nil {
		return fmt.Errorf("socket: setOption: %w", err)
	}
	return nil
}

func sockoptFor(option Option) (level, name int, err error) {
	switch option {
	case NoDelay:
		return unix.IPPROTO_TCP, unix.TCP_NODELAY, nil
	case KeepAlive:
		return unix.SOL_SOCKET, unix.SO_KEEPALIVE, nil
	case KeepIdle:
		return unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, nil
	case KeepIntvl:
		return unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, nil
	case KeepCount:
		return unix.IPPROTO_TCP, unix.TCP_KEEPCNT, nil
	case SndBuffer:
		return unix.SOL_SOCKET, unix.SO_SNDBUF, nil
	case RcvBuffer:
		return unix.SOL_SOCKET, unix.SO_RCVBUF, nil
	case TimeStamp:
		return unix.SOL_SOCKET, unix.SO_TIMESTAMP, nil
	case ReuseAddr:
		return unix.SOL_SOCKET, unix.SO_REUSEADDR, nil
	case ReusePort:
		return unix.SOL_SOCKET, unix.SO_REUSEPORT, nil
	case Broadcast:
		return unix.SOL_SOCKET, unix.SO_BROADCAST, nil
	default:
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidOption, option)
	}
}

// LocalEndpoint returns the locally bound endpoint.
func (b *Basic) LocalEndpoint() (endpoint.Endpoint, error) {
	sa, err := unix.Getsockname(b.fd)
	if err != nil {
		return endpoint.Endpoint{}, fmt.Errorf("socket: localEndpoint: %w", err)
	}
	return endpoint.FromSockaddr(sa)
}

// Handle returns the raw OS descriptor. Handle returns -1 if the socket
// is [Closed].
func (b *Basic) Handle() int {
	return b.fd
}

// FD implements [reactor.Handler] so a Basic socket can be registered
// directly with a reactor.
func (b *Basic) FD() int {
	return b.fd
}

// State returns the current socket state.
func (b *Basic) State() State {
	return b.state
}

// Protocol returns the protocol the socket was opened with.
func (b *Basic) Protocol() Protocol {
	return b.protocol
}

// setState is used by embedding layers (Datagram, Stream) to advance the
// state machine.
func (b *Basic) setState(s State) {
	b.state = s
}

func (b *Basic) now() time.Time {
	if b.TimeNow == nil {
		return time.Now()
	}
	return b.TimeNow()
}

func (b *Basic) log() netcore.SLogger {
	if b.Logger == nil {
		return netcore.DefaultSLogger()
	}
	return b.Logger
}

func (b *Basic) class(err error) string {
	classifier := b.ErrClassifier
	if classifier == nil {
		classifier = netcore.DefaultErrClassifier
	}
	return classifier.Classify(err)
}

func protocolForEndpoint(ep endpoint.Endpoint) (Protocol, error) {
	switch ep.Family() {
	case endpoint.IPv4:
		return UDP4, nil
	case endpoint.IPv6:
		return UDP6, nil
	case endpoint.Unix:
		return UnixDatagram, nil
	default:
		return Protocol{}, fmt.Errorf("socket: cannot infer protocol for endpoint family %v", ep.Family())
	}
}

func sockaddrFor(ep endpoint.Endpoint) (unix.Sockaddr, error) {
	switch ep.Family() {
	case endpoint.IPv4, endpoint.IPv6:
		return ep.SockaddrInet()
	case endpoint.Unix:
		return ep.SockaddrUnix()
	default:
		return nil, fmt.Errorf("socket: unsupported endpoint family %v", ep.Family())
	}
}
