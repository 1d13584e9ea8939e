package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmstation/kernel/device"
	"github.com/wasmstation/kernel/internal/wire"
)

func TestLoopbackNetworkSendThenRecv(t *testing.T) {
	n := device.NewLoopbackNetwork([6]byte{0x52, 0x54, 0x00, 0x12, 0x34, 0x56})

	_, ok := n.TryRecv()
	assert.False(t, ok)

	require.True(t, n.TrySend([]byte("packet")))
	pkt, ok := n.TryRecv()
	require.True(t, ok)
	assert.Equal(t, "packet", string(pkt))

	_, ok = n.TryRecv()
	assert.False(t, ok)
}

func TestLoopbackNetworkRejectsOversizePacket(t *testing.T) {
	n := device.NewLoopbackNetwork([6]byte{})
	oversize := make([]byte, device.MaxPacketSize+1)
	assert.False(t, n.TrySend(oversize))
}

func TestStaticInputRepeatsLastFrame(t *testing.T) {
	in := device.NewStaticInput(
		wire.InputState{PointerX: 1},
		wire.InputState{PointerX: 2},
	)
	assert.Equal(t, int32(1), in.Poll().PointerX)
	assert.Equal(t, int32(2), in.Poll().PointerX)
	assert.Equal(t, int32(2), in.Poll().PointerX)
}
