package router

import (
	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/go-i2p-endpoint/lib/garlic"
	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/go-i2p-endpoint/lib/netdb"
	"github.com/go-i2p/go-i2p-endpoint/lib/tunnel"
)

// InboundMessagePool accepts messages for local processing.
type InboundMessagePool interface {
	Add(msg i2np.I2NPMessage)
}

// TunnelDispatcher hands messages to the tunnel layer. Both calls are
// fire-and-forget.
type TunnelDispatcher interface {
	// DispatchGateway injects gw at the gateway of the tunnel it names,
	// which this router owns.
	DispatchGateway(gw *i2np.TunnelGatewayMessage)
	// DispatchOutbound sends msg through the outbound tunnel whose first hop
	// is outboundID, to be delivered to target (and into targetTunnel there
	// when non-nil).
	DispatchOutbound(msg i2np.I2NPMessage, outboundID tunnel.TunnelID, targetTunnel *tunnel.TunnelID, target common.Hash)
}

// OutboundTunnelSelector picks an outbound tunnel owned by owner, or an
// exploratory one when owner is nil.
type OutboundTunnelSelector interface {
	SelectOutbound(owner *common.Hash) (tunnel.OutboundTunnel, bool)
}

// NetworkDatabaseStore persists netDb records received over tunnels.
type NetworkDatabaseStore interface {
	Store(key common.Hash, record netdb.Record) error
}

// ClientMessageReceiver delivers a decrypted payload to a local destination.
type ClientMessageReceiver interface {
	MessageReceived(dest common.Hash, payload []byte)
}

// GarlicUnwrapper decrypts a garlic message into its cloves.
type GarlicUnwrapper interface {
	Unwrap(msg i2np.I2NPMessage) ([]garlic.Clove, error)
}

// EndpointContext identifies the tunnel endpoint a distributor serves.
type EndpointContext struct {
	// RouterHash is this router's identity.
	RouterHash common.Hash
	// Client is the local destination owning the tunnel, nil for
	// exploratory tunnels.
	Client *common.Hash
}

var (
	_ OutboundTunnelSelector = (*tunnel.OutboundPool)(nil)
	_ GarlicUnwrapper        = (*garlic.Receiver)(nil)
	_ NetworkDatabaseStore   = (*netdb.MemoryStore)(nil)
	_ InboundMessagePool     = (*InboundPool)(nil)
	_ garlic.CloveReceiver   = (*InboundDistributor)(nil)
)
