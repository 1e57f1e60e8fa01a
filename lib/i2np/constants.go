package i2np

import (
	"errors"
	"time"
)

// I2NP Message Type Constants
const (
	I2NP_MESSAGE_TYPE_DATABASE_STORE              = 1
	I2NP_MESSAGE_TYPE_DATABASE_LOOKUP             = 2
	I2NP_MESSAGE_TYPE_DATABASE_SEARCH_REPLY       = 3
	I2NP_MESSAGE_TYPE_DELIVERY_STATUS             = 10
	I2NP_MESSAGE_TYPE_GARLIC                      = 11
	I2NP_MESSAGE_TYPE_TUNNEL_DATA                 = 18
	I2NP_MESSAGE_TYPE_TUNNEL_GATEWAY              = 19
	I2NP_MESSAGE_TYPE_DATA                        = 20
	I2NP_MESSAGE_TYPE_TUNNEL_BUILD                = 21
	I2NP_MESSAGE_TYPE_TUNNEL_BUILD_REPLY          = 22
	I2NP_MESSAGE_TYPE_VARIABLE_TUNNEL_BUILD       = 23
	I2NP_MESSAGE_TYPE_VARIABLE_TUNNEL_BUILD_REPLY = 24
	I2NP_MESSAGE_TYPE_SHORT_TUNNEL_BUILD          = 25
	I2NP_MESSAGE_TYPE_SHORT_TUNNEL_BUILD_REPLY    = 26
)

// DatabaseStore type field values (bits 3-0 of the type byte).
const (
	DATABASE_STORE_TYPE_ROUTER_INFO        = 0
	DATABASE_STORE_TYPE_LEASESET           = 1
	DATABASE_STORE_TYPE_LEASESET2          = 3
	DATABASE_STORE_TYPE_ENCRYPTED_LEASESET = 5
	DATABASE_STORE_TYPE_META_LEASESET      = 7
)

// I2NP Error Constants
// These use errors.New (not oops.Errorf) so callers can match them with errors.Is().
var (
	ERR_I2NP_NOT_ENOUGH_DATA                               = errors.New("not enough i2np header data")
	ERR_I2NP_MESSAGE_EXPIRED                               = errors.New("i2np message has expired")
	ERR_I2NP_UNKNOWN_MESSAGE_TYPE                          = errors.New("unsupported i2np message type")
	ERR_DATABASE_STORE_NOT_ENOUGH_DATA                     = errors.New("not enough i2np database store data")
	ERR_GARLIC_CLOVE_DELIVERY_INSTRUCTIONS_NOT_ENOUGH_DATA = errors.New("not enough i2np garlic clove delivery instructions data")
	ERR_DELIVERY_INSTRUCTIONS_MISSING_FIELD                = errors.New("delivery instructions missing required field")
)

// Default expiration tolerance for clock skew (5 minutes into the past)
// This allows for reasonable clock differences between I2P routers while
// still rejecting clearly expired messages.
const DefaultExpirationTolerance = 5 * 60 // 5 minutes in seconds

// DefaultMessageLifetime is the expiration given to newly created messages.
const DefaultMessageLifetime = 60 * time.Second
