package i2np

import (
	"encoding/binary"
	"fmt"

	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/go-i2p-endpoint/lib/tunnel"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

/*
I2P I2NP GarlicCloveDeliveryInstructions
https://geti2p.net/spec/i2np
Accurate for version 0.9.28

+----+----+----+----+----+----+----+----+
|flag|                                  |
+----+                                  +
|                                       |
+       Session Key (optional)          +
|                                       |
+                                       +
|                                       |
+    +----+----+----+----+--------------+
|    |                                  |
+----+                                  +
|                                       |
+         To Hash (optional)            +
|                                       |
+                                       +
|                                       |
+    +----+----+----+----+--------------+
|    |  Tunnel ID (opt)  |  Delay (opt)
+----+----+----+----+----+----+----+----+
     |
+----+

flag ::
       1 byte
       bit 7: encrypted? If 1, a 32-byte encryption session key is included
       bits 6-5: delivery type
                0x0 = LOCAL, 0x01 = DESTINATION, 0x02 = ROUTER, 0x03 = TUNNEL
       bit 4: delay included? If 1, four delay bytes are included
       bits 3-0: reserved, set to 0 for compatibility with future uses

To Hash ::
       32 bytes
       Optional, present if delivery type is DESTINATION, ROUTER, or TUNNEL
          If DESTINATION, the SHA256 Hash of the destination
          If ROUTER, the SHA256 Hash of the router
          If TUNNEL, the SHA256 Hash of the gateway router

Tunnel ID :: TunnelId
       4 bytes
       Optional, present if delivery type is TUNNEL
       The destination tunnel ID, nonzero

Delay :: Integer
       4 bytes
       Optional, present if delay included flag is set
*/

// DeliveryMode is the closed set of clove delivery modes.
type DeliveryMode int

const (
	DeliveryLocal DeliveryMode = iota
	DeliveryDestination
	DeliveryRouter
	DeliveryTunnel
	// DeliveryUnknown marks instructions whose mode could not be recognized.
	DeliveryUnknown
)

func (m DeliveryMode) String() string {
	switch m {
	case DeliveryLocal:
		return "local"
	case DeliveryDestination:
		return "destination"
	case DeliveryRouter:
		return "router"
	case DeliveryTunnel:
		return "tunnel"
	default:
		return "unknown"
	}
}

// DeliveryModeFromBits maps the two delivery type bits onto a mode.
func DeliveryModeFromBits(bits byte) DeliveryMode {
	if bits > byte(DeliveryTunnel) {
		return DeliveryUnknown
	}
	return DeliveryMode(bits)
}

const (
	flagEncrypted = 0x80
	flagDelay     = 0x10
	flagModeShift = 5
	flagModeMask  = 0x03
)

// DeliveryInstructions tell the endpoint what to do with one clove. Which of
// the optional fields are required depends on Mode; see Validate.
type DeliveryInstructions struct {
	Mode        DeliveryMode
	SessionKey  *[32]byte
	Destination *common.Hash
	Router      *common.Hash
	TunnelID    *tunnel.TunnelID
	Delay       *uint32
}

// LocalDelivery returns instructions for delivery at this router.
func LocalDelivery() DeliveryInstructions {
	return DeliveryInstructions{Mode: DeliveryLocal}
}

// DestinationDelivery returns instructions for a local destination.
func DestinationDelivery(dest common.Hash) DeliveryInstructions {
	return DeliveryInstructions{Mode: DeliveryDestination, Destination: &dest}
}

// RouterDelivery returns instructions for delivery at a router, outside any tunnel.
func RouterDelivery(router common.Hash) DeliveryInstructions {
	return DeliveryInstructions{Mode: DeliveryRouter, Router: &router}
}

// TunnelDelivery returns instructions for the tunnel id at gateway router.
func TunnelDelivery(gateway common.Hash, id tunnel.TunnelID) DeliveryInstructions {
	return DeliveryInstructions{Mode: DeliveryTunnel, Router: &gateway, TunnelID: &id}
}

// Validate checks that the fields required by Mode are present. Unknown
// modes are not an error here; callers reject them when routing.
func (di DeliveryInstructions) Validate() error {
	switch di.Mode {
	case DeliveryDestination:
		if di.Destination == nil {
			return oops.Wrapf(ERR_DELIVERY_INSTRUCTIONS_MISSING_FIELD, "destination mode without destination hash")
		}
	case DeliveryRouter:
		if di.Router == nil {
			return oops.Wrapf(ERR_DELIVERY_INSTRUCTIONS_MISSING_FIELD, "router mode without router hash")
		}
	case DeliveryTunnel:
		if di.Router == nil {
			return oops.Wrapf(ERR_DELIVERY_INSTRUCTIONS_MISSING_FIELD, "tunnel mode without gateway hash")
		}
		if di.TunnelID == nil || *di.TunnelID == 0 {
			return oops.Wrapf(ERR_DELIVERY_INSTRUCTIONS_MISSING_FIELD, "tunnel mode without tunnel id")
		}
	}
	return nil
}

// String renders the instructions for logging with truncated hashes.
func (di DeliveryInstructions) String() string {
	switch di.Mode {
	case DeliveryDestination:
		if di.Destination != nil {
			return fmt.Sprintf("destination %x", di.Destination[:8])
		}
	case DeliveryRouter:
		if di.Router != nil {
			return fmt.Sprintf("router %x", di.Router[:8])
		}
	case DeliveryTunnel:
		if di.Router != nil && di.TunnelID != nil {
			return fmt.Sprintf("tunnel %d at %x", *di.TunnelID, di.Router[:8])
		}
	}
	return di.Mode.String()
}

// MarshalBinary encodes the instructions in clove wire format.
func (di DeliveryInstructions) MarshalBinary() ([]byte, error) {
	if di.Mode == DeliveryUnknown {
		return nil, oops.Errorf("cannot encode unknown delivery mode")
	}
	if err := di.Validate(); err != nil {
		return nil, err
	}

	flag := byte(di.Mode) << flagModeShift
	out := []byte{0}
	if di.SessionKey != nil {
		flag |= flagEncrypted
		out = append(out, di.SessionKey[:]...)
	}
	switch di.Mode {
	case DeliveryDestination:
		out = append(out, di.Destination[:]...)
	case DeliveryRouter, DeliveryTunnel:
		out = append(out, di.Router[:]...)
	}
	if di.Mode == DeliveryTunnel {
		out = binary.BigEndian.AppendUint32(out, uint32(*di.TunnelID))
	}
	if di.Delay != nil {
		flag |= flagDelay
		out = binary.BigEndian.AppendUint32(out, *di.Delay)
	}
	out[0] = flag
	return out, nil
}

// ReadDeliveryInstructions parses clove delivery instructions from the start
// of data and returns them with the number of bytes consumed. Only framing
// errors are reported; mode-specific requirements are checked by Validate.
func ReadDeliveryInstructions(data []byte) (DeliveryInstructions, int, error) {
	var di DeliveryInstructions
	if len(data) < 1 {
		return di, 0, ERR_GARLIC_CLOVE_DELIVERY_INSTRUCTIONS_NOT_ENOUGH_DATA
	}
	flag := data[0]
	length := 1
	di.Mode = DeliveryModeFromBits((flag >> flagModeShift) & flagModeMask)

	take := func(n int, field string) ([]byte, error) {
		if len(data) < length+n {
			return nil, oops.Wrapf(ERR_GARLIC_CLOVE_DELIVERY_INSTRUCTIONS_NOT_ENOUGH_DATA, "reading %s", field)
		}
		b := data[length : length+n]
		length += n
		return b, nil
	}

	if flag&flagEncrypted != 0 {
		b, err := take(32, "session key")
		if err != nil {
			return di, 0, err
		}
		var key [32]byte
		copy(key[:], b)
		di.SessionKey = &key
	}

	switch di.Mode {
	case DeliveryDestination, DeliveryRouter, DeliveryTunnel:
		b, err := take(32, "hash")
		if err != nil {
			return di, 0, err
		}
		var hash common.Hash
		copy(hash[:], b)
		if di.Mode == DeliveryDestination {
			di.Destination = &hash
		} else {
			di.Router = &hash
		}
	}

	if di.Mode == DeliveryTunnel {
		b, err := take(4, "tunnel id")
		if err != nil {
			return di, 0, err
		}
		id := tunnel.TunnelID(binary.BigEndian.Uint32(b))
		di.TunnelID = &id
	}

	if flag&flagDelay != 0 {
		b, err := take(4, "delay")
		if err != nil {
			return di, 0, err
		}
		delay := binary.BigEndian.Uint32(b)
		di.Delay = &delay
	}

	log.WithFields(logger.Fields{
		"at":     "ReadDeliveryInstructions",
		"flag":   flag,
		"mode":   di.Mode.String(),
		"length": length,
	}).Debug("parsed garlic clove delivery instructions")
	return di, length, nil
}
