// SPDX-License-Identifier: GPL-3.0-or-later

// Package reactor implements a single-threaded, cooperative readiness
// demultiplexer over OS file descriptors, in the style of the classic
// reactor pattern: handlers register their descriptor and an onReceive
// callback, and the reactor's event loop sequences callback dispatch.
package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bassosimone/netcore"
	"golang.org/x/sys/unix"
)

// Handler is a non-owning registration with the [Reactor]: it exposes the
// OS descriptor to watch for readability and a callback to invoke when
// the descriptor becomes ready.
//
// The reactor never closes or otherwise owns the lifetime of the
// descriptor; callers must invoke [Reactor.DelHandler] before the
// handler (or its underlying descriptor) is destroyed. Using the handler
// after DelHandler but before its destruction is legal.
type Handler interface {
	// FD returns the OS descriptor to watch for read readiness.
	FD() int

	// OnReceive is invoked from the reactor's event loop goroutine when
	// the descriptor is reported readable.
	OnReceive()
}

// Reactor is a single-threaded cooperative demultiplexer of descriptor
// readiness events.
//
// All dispatch happens sequentially on whichever goroutine calls [Run] or
// [Poll]; the application must call into the Reactor only from that
// goroutine, or provide equivalent external synchronization.
type Reactor struct {
	// ErrClassifier classifies errors for structured logging.
	ErrClassifier netcore.ErrClassifier

	// Logger is the [netcore.SLogger] used for structured logging.
	Logger netcore.SLogger

	mu       sync.Mutex
	handlers map[int]Handler
	removed  map[int]bool
}

// New constructs an empty Reactor using cfg's error classifier and the
// given logger.
func New(cfg *netcore.Config, logger netcore.SLogger) *Reactor {
	return &Reactor{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		handlers:      make(map[int]Handler),
		removed:       make(map[int]bool),
	}
}

// AddHandler idempotently registers h. Calling AddHandler again for a
// descriptor already registered is a no-op.
func (r *Reactor) AddHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fd := h.FD()
	if _, ok := r.handlers[fd]; ok {
		return
	}
	r.handlers[fd] = h
	delete(r.removed, fd)
}

// DelHandler unregisters h. It is safe to call during dispatch (from
// within h's own OnReceive or another handler's): subsequent events for
// the removed descriptor within the same [Poll] call are suppressed.
func (r *Reactor) DelHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fd := h.FD()
	delete(r.handlers, fd)
	r.removed[fd] = true
}

// Poll blocks for up to timeout waiting for at least one registered
// descriptor to become readable, then dispatches OnReceive for each
// descriptor reported ready, in the order the kernel reports them.
//
// A timeout of 0 polls once without blocking. Poll returns
// [netcore.ErrClassifier]-classifiable errors wrapped with context;
// a timeout with no ready descriptors is not an error -- Poll simply
// returns nil having dispatched nothing.
func (r *Reactor) Poll(timeout time.Duration) error {
	pollfds, handlers := r.snapshot()
	if len(pollfds) == 0 {
		return nil
	}

	millis := int(timeout / time.Millisecond)

	r.logger().Debug("reactorPollStart", slog.Int("numHandlers", len(pollfds)), slog.Int("timeoutMs", millis))
	n, err := unix.Poll(pollfds, millis)
	r.logger().Debug("reactorPollDone", slog.Int("ready", n), slog.Any("err", err))
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("reactor: poll: %w", err)
	}

	r.mu.Lock()
	r.removed = make(map[int]bool)
	r.mu.Unlock()

	for i, pfd := range pollfds {
		if pfd.Revents == 0 {
			continue
		}
		fd := int(pfd.Fd)
		r.mu.Lock()
		skip := r.removed[fd]
		r.mu.Unlock()
		if skip {
			continue
		}
		handlers[i].OnReceive()
	}
	return nil
}

// Run repeatedly calls [Poll] with the given per-iteration timeout until
// ctx is done.
func (r *Reactor) Run(ctx context.Context, timeout time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.Poll(timeout); err != nil {
			return err
		}
	}
}

// Len reports the number of currently registered handlers.
func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

func (r *Reactor) snapshot() ([]unix.PollFd, []Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pollfds := make([]unix.PollFd, 0, len(r.handlers))
	handlers := make([]Handler, 0, len(r.handlers))
	for fd, h := range r.handlers {
		pollfds = append(pollfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		handlers = append(handlers, h)
	}
	return pollfds, handlers
}

func (r *Reactor) logger() netcore.SLogger {
	if r.Logger == nil {
		return netcore.DefaultSLogger()
	}
	return r.Logger
}
