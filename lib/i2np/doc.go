// Package i2np implements the subset of the I2P Network Protocol (I2NP)
// an inbound tunnel endpoint has to understand.
//
// Message types handled here:
//   - Data: opaque end-to-end payloads delivered to a local client
//   - Garlic: encrypted bundles of cloves, each with its own delivery instructions
//   - DatabaseStore: RouterInfo and LeaseSet records for the network database
//   - TunnelGateway: a message wrapped for injection at a tunnel gateway
//
// Message structure:
//   - Header: type, ID, expiration, size, checksum
//   - Payload: type-specific data
//
// Garlic clove delivery instructions are modelled as a closed set of modes
// (see DeliveryMode). Anything the parser cannot map onto a known mode
// becomes DeliveryUnknown rather than an error, so routing code can reject
// it explicitly.
package i2np
