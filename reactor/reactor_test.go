// SPDX-License-Identifier: GPL-3.0-or-later

package reactor

import (
	"os"
	"testing"
	"time"

	"github.com/bassosimone/netcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeHandler struct {
	fd       int
	received int
}

func (h *pipeHandler) FD() int { return h.fd }

func (h *pipeHandler) OnReceive() {
	h.received++
	buf := make([]byte, 1)
	_, _ = os.NewFile(uintptr(h.fd), "pipe").Read(buf)
}

func TestAddHandlerIdempotent(t *testing.T) {
	r := New(netcore.NewConfig(), netcore.DefaultSLogger())
	r0, w0, err := os.Pipe()
	require.NoError(t, err)
	defer r0.Close()
	defer w0.Close()

	h := &pipeHandler{fd: int(r0.Fd())}
	r.AddHandler(h)
	r.AddHandler(h)
	assert.Equal(t, 1, r.Len())
}

func TestDelHandler(t *testing.T) {
	r := New(netcore.NewConfig(), netcore.DefaultSLogger())
	r0, w0, err := os.Pipe()
	require.NoError(t, err)
	defer r0.Close()
	defer w0.Close()

	h := &pipeHandler{fd: int(r0.Fd())}
	r.AddHandler(h)
	r.DelHandler(h)
	assert.Equal(t, 0, r.Len())
}

func TestPollDispatchesOnReadable(t *testing.T) {
	r := New(netcore.NewConfig(), netcore.DefaultSLogger())
	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	h := &pipeHandler{fd: int(rd.Fd())}
	r.AddHandler(h)

	_, err = wr.Write([]byte("x"))
	require.NoError(t, err)

	err = r.Poll(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, h.received)
}

func TestPollTimesOutWithoutError(t *testing.T) {
	r := New(netcore.NewConfig(), netcore.DefaultSLogger())
	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	h := &pipeHandler{fd: int(rd.Fd())}
	r.AddHandler(h)

	err = r.Poll(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, h.received)
}

func TestPollWithNoHandlersReturnsImmediately(t *testing.T) {
	r := New(netcore.NewConfig(), netcore.DefaultSLogger())
	err := r.Poll(time.Second)
	require.NoError(t, err)
}
