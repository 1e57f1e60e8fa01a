package i2np

import (
	"time"
)

// MessageSerializer represents types that can be marshaled and unmarshaled
type MessageSerializer interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// MessageIdentifier represents types that have message identification
type MessageIdentifier interface {
	Type() int
	MessageID() int
	SetMessageID(id int)
}

// MessageExpiration represents types that have expiration management
type MessageExpiration interface {
	Expiration() time.Time
	SetExpiration(exp time.Time)
}

// PayloadCarrier represents messages that carry payload data
type PayloadCarrier interface {
	GetPayload() []byte
}

// DataCarrier exposes the raw type-specific body of a message.
type DataCarrier interface {
	GetData() []byte
}
