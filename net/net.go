// Package net is the in-kernel TCP stack: a software-backed
// loopback stand-in modeled closely enough on a VirtIO network
// device's non-blocking try_recv/try_send shape to exercise the
// Socket Registry and the host_tcp_* ABI stubs end-to-end, without a
// real TCP state machine.
//
// Byte buffering is backed by github.com/Workiva/go-datastructures's
// RingBuffer, repurposed here from pooling warm instances to queueing
// variable-length byte chunks per socket.
package net

import (
	"errors"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/wasmstation/kernel/guest"
)

// ErrClosed is returned by operations against a closed socket.
var ErrClosed = errors.New("net: socket closed")

const defaultQueueDepth = 64

// Stack is a software-backed, loopback TCP stack: bytes written to a
// socket are delivered back to the same socket's read side, the
// simplest behavior that exercises the Socket Registry's lifecycle and
// the may_send/may_recv non-blocking probes without
// needing a real peer. Connect always succeeds; a real network
// collaborator (VirtIO + smoltcp-equivalent) would satisfy the same
// guest.TCPStack interface.
type Stack struct {
	queueDepth uint64
}

// New returns a loopback Stack whose per-socket queues hold up to
// queueDepth chunks (0 selects a sane default).
func New(queueDepth uint64) *Stack {
	if queueDepth == 0 {
		queueDepth = defaultQueueDepth
	}
	return &Stack{queueDepth: queueDepth}
}

// socket is the concrete guest.SocketHandle this stack produces.
type socket struct {
	ip      [4]byte
	port    uint16
	inbound *queue.RingBuffer
	pending []byte // leftover from a partially-drained chunk
	closed  bool
}

// Connect opens a new loopback socket to ip:port. It never fails in
// this software-backed stack; a hardware-backed stack would surface
// connection refusal/timeouts here instead.
func (s *Stack) Connect(ip [4]byte, port uint16) (guest.SocketHandle, error) {
	return &socket{ip: ip, port: port, inbound: queue.NewRingBuffer(s.queueDepth)}, nil
}

func asSocket(h guest.SocketHandle) (*socket, bool) {
	sock, ok := h.(*socket)
	if !ok || sock.closed {
		return nil, false
	}
	return sock, true
}

// MaySend reports whether the socket's queue has room for another
// chunk.
func (s *Stack) MaySend(h guest.SocketHandle) bool {
	sock, ok := asSocket(h)
	if !ok {
		return false
	}
	return sock.inbound.Len() < s.queueDepth
}

// MayRecv reports whether a read would return at least one byte
// without blocking.
func (s *Stack) MayRecv(h guest.SocketHandle) bool {
	sock, ok := asSocket(h)
	if !ok {
		return false
	}
	return len(sock.pending) > 0 || sock.inbound.Len() > 0
}

// Write enqueues buf as one chunk for delivery back to the same
// socket's read side. It never blocks: if the queue is full it returns
// (0, nil), which the guest observes as a short write.
func (s *Stack) Write(h guest.SocketHandle, buf []byte) (int, error) {
	sock, ok := asSocket(h)
	if !ok {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}
	chunk := append([]byte(nil), buf...)
	ok2, err := sock.inbound.Offer(chunk)
	if err != nil {
		return 0, err
	}
	if !ok2 {
		return 0, nil // queue full: short write, not a failure
	}
	return len(chunk), nil
}

// Read drains up to len(buf) bytes without blocking: first from any
// leftover of a partially-read chunk, then by polling the next queued
// chunk if one is immediately available. Returns (0, nil) when nothing
// is available yet, matching the zero-byte-read-is-success convention
//.
func (s *Stack) Read(h guest.SocketHandle, buf []byte) (int, error) {
	sock, ok := asSocket(h)
	if !ok {
		return 0, ErrClosed
	}
	if len(sock.pending) == 0 {
		if sock.inbound.Len() == 0 {
			return 0, nil
		}
		item, err := sock.inbound.Poll(time.Microsecond)
		if err != nil {
			return 0, nil
		}
		sock.pending = item.([]byte)
	}
	n := copy(buf, sock.pending)
	sock.pending = sock.pending[n:]
	return n, nil
}

// Close marks the socket closed and releases its queue. Subsequent
// operations against it return ErrClosed/false, which the ABI stubs
// surface as -1.
func (s *Stack) Close(h guest.SocketHandle) error {
	sock, ok := h.(*socket)
	if !ok {
		return ErrClosed
	}
	if sock.closed {
		return nil
	}
	sock.closed = true
	sock.inbound.Dispose()
	return nil
}

var _ guest.TCPStack = (*Stack)(nil)
