package tunnel

import (
	"time"

	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// TunnelID identifies a tunnel at a single hop. Zero is never a valid ID.
type TunnelID uint32

// OutboundTunnel is a selected outbound tunnel handle.
type OutboundTunnel interface {
	// SendTunnelID returns the tunnel ID used to send into the given hop.
	// Hop 0 is the gateway, which is this router for an outbound tunnel.
	SendTunnelID(hop int) (TunnelID, bool)
}

// TunnelBuildState represents different states during tunnel building
type TunnelBuildState int

const (
	TunnelBuilding TunnelBuildState = iota // Tunnel is being built
	TunnelReady                            // Tunnel is ready for use
	TunnelFailed                           // Tunnel build failed
)

// String returns a readable name for logging.
func (s TunnelBuildState) String() string {
	switch s {
	case TunnelBuilding:
		return "building"
	case TunnelReady:
		return "ready"
	case TunnelFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TunnelState is one outbound tunnel known to a Pool.
type TunnelState struct {
	ID        TunnelID         // Send ID at our gateway hop
	HopIDs    []TunnelID       // Receive IDs for hops 1..n, indexed from hop 1
	Hops      []common.Hash    // Router hashes for each hop
	State     TunnelBuildState // Current build state
	CreatedAt time.Time        // When tunnel building started
}

// SendTunnelID implements OutboundTunnel.
func (t *TunnelState) SendTunnelID(hop int) (TunnelID, bool) {
	if t == nil || hop < 0 {
		return 0, false
	}
	if hop == 0 {
		return t.ID, t.ID != 0
	}
	if hop-1 >= len(t.HopIDs) {
		return 0, false
	}
	id := t.HopIDs[hop-1]
	return id, id != 0
}

// Compile-time interface satisfaction check
var _ OutboundTunnel = (*TunnelState)(nil)
