package i2np

import (
	"testing"

	"github.com/go-i2p/go-i2p-endpoint/lib/tunnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTunnelGatewayRoundTrip verifies a wrapped message survives
// serialization and reopening at the gateway with its payload unchanged.
func TestTunnelGatewayRoundTrip(t *testing.T) {
	inner := NewDataMessage([]byte("loopback payload"))

	gw, err := WrapInTunnelGateway(tunnel.TunnelID(4321), inner)
	require.NoError(t, err)
	assert.Equal(t, I2NP_MESSAGE_TYPE_TUNNEL_GATEWAY, gw.Type())

	raw, err := gw.MarshalBinary()
	require.NoError(t, err)

	decoded, err := ReadI2NPMessage(raw)
	require.NoError(t, err)
	received, ok := decoded.(*TunnelGatewayMessage)
	require.True(t, ok)
	assert.Equal(t, tunnel.TunnelID(4321), received.TunnelID)

	msg, err := received.Message()
	require.NoError(t, err)
	dm, ok := msg.(*DataMessage)
	require.True(t, ok)
	assert.Equal(t, inner.MessageID(), dm.MessageID())
	assert.Equal(t, []byte("loopback payload"), dm.GetPayload())
}

func TestTunnelGatewayRejectsTruncated(t *testing.T) {
	gw := NewTunnelGatewayMessage(1, []byte{1, 2, 3})
	gw.SetData(gw.GetData()[:7])
	raw, err := gw.MarshalBinary()
	require.NoError(t, err)

	_, err = ReadI2NPMessage(raw)
	assert.Error(t, err)

	short := NewI2NPMessage(I2NP_MESSAGE_TYPE_TUNNEL_GATEWAY, []byte{0, 0, 0, 1})
	raw, err = short.MarshalBinary()
	require.NoError(t, err)
	_, err = ReadI2NPMessage(raw)
	assert.Error(t, err)
}

func TestTunnelGatewayInvalidInner(t *testing.T) {
	gw := NewTunnelGatewayMessage(9, []byte{0xFF})
	_, err := gw.Message()
	assert.Error(t, err)
}

func TestWrapInTunnelGatewayTooLarge(t *testing.T) {
	inner := NewI2NPMessage(I2NP_MESSAGE_TYPE_DATA, make([]byte, MaxI2NPStandardPayload-I2NPHeaderSize))
	_, err := WrapInTunnelGateway(1, inner)
	assert.Error(t, err)
}
