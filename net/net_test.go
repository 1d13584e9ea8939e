package net_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmstation/kernel/net"
)

func TestWriteThenReadLoopback(t *testing.T) {
	stack := net.New(4)
	h, err := stack.Connect([4]byte{10, 0, 0, 1}, 1234)
	require.NoError(t, err)

	assert.True(t, stack.MaySend(h))
	assert.False(t, stack.MayRecv(h))

	n, err := stack.Write(h, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.True(t, stack.MayRecv(h))

	buf := make([]byte, 3)
	n, err = stack.Read(h, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "hel", string(buf[:n]))

	// leftover bytes from the same chunk are still readable.
	n, err = stack.Read(h, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "lo", string(buf[:n]))
}

func TestReadWithNothingAvailableReturnsZero(t *testing.T) {
	stack := net.New(4)
	h, err := stack.Connect([4]byte{127, 0, 0, 1}, 80)
	require.NoError(t, err)

	buf := make([]byte, 8)
	n, err := stack.Read(h, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	stack := net.New(4)
	h, err := stack.Connect([4]byte{10, 0, 0, 1}, 1234)
	require.NoError(t, err)

	require.NoError(t, stack.Close(h))

	n, err := stack.Write(h, []byte("x"))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, net.ErrClosed)

	assert.False(t, stack.MaySend(h))
	assert.False(t, stack.MayRecv(h))
}
