// Package tunnel models the outbound tunnels a router owns and selects one
// when a message arriving at an inbound endpoint has to be forwarded to a
// remote router.
//
// # Overview
//
// Tunnels are unidirectional paths through the I2P network:
//   - Outbound tunnels: Local → Hop1 → Hop2 → ... → Endpoint
//   - Inbound tunnels: Gateway → Hop1 → Hop2 → ... → Local
//
// An inbound endpoint never contacts a remote router directly on behalf of
// the party that built the tunnel. Instead it sends through one of its own
// outbound tunnels, chosen from the pool that belongs to the same local
// client (or the exploratory pool for tunnels not bound to a client).
//
// # Selection
//
// OutboundPool keeps one Pool per owning client plus an exploratory Pool.
// Selection is round-robin over ready tunnels sorted by ID, so repeated
// calls spread traffic deterministically:
//
//	pool := tunnel.NewOutboundPool(tunnel.DefaultPoolConfig())
//	pool.AddTunnel(&clientHash, &tunnel.TunnelState{ID: 42, State: tunnel.TunnelReady})
//	out, ok := pool.SelectOutbound(&clientHash)
//	if ok {
//	    id, _ := out.SendTunnelID(0)
//	    _ = id
//	}
//
// All types in this package are safe for concurrent use.
package tunnel
