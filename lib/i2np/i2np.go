package i2np

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	datalib "github.com/go-i2p/common/data"
	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// I2NPMessage interface represents any I2NP message that can be marshaled/unmarshaled
// This is the primary interface that combines all core message behaviors
type I2NPMessage interface {
	MessageSerializer
	MessageIdentifier
	MessageExpiration
	DataCarrier
}

// BaseI2NPMessage provides a basic implementation of I2NPMessage
type BaseI2NPMessage struct {
	type_      int
	messageID  int
	expiration time.Time
	data       []byte
}

// GenerateMessageID creates a random 4-byte message ID.
// The result is masked to 31 bits (0x7FFFFFFF) to ensure a positive value
// on all platforms, including 32-bit systems where int is 32 bits.
// Returns an error if the system's secure random number generator fails.
func GenerateMessageID() (int, error) {
	msgIDBytes := make([]byte, 4)
	if _, err := rand.Read(msgIDBytes); err != nil {
		return 0, oops.Errorf("i2np: crypto/rand failed: %w", err)
	}
	return int(binary.BigEndian.Uint32(msgIDBytes) & 0x7FFFFFFF), nil
}

// NewBaseI2NPMessage creates a new base I2NP message.
// If crypto/rand fails to generate a message ID, falls back to a
// time-based ID and logs a critical warning.
func NewBaseI2NPMessage(msgType int) *BaseI2NPMessage {
	msgID, err := GenerateMessageID()
	if err != nil {
		msgID = int(time.Now().UnixNano() & 0x7FFFFFFF)
		log.WithFields(logger.Fields{
			"at":          "NewBaseI2NPMessage",
			"error":       err.Error(),
			"fallback_id": msgID,
		}).Error("CSPRNG failed, using time-based message ID fallback")
	}
	return &BaseI2NPMessage{
		type_:      msgType,
		messageID:  msgID,
		expiration: time.Now().Add(DefaultMessageLifetime),
		data:       []byte{},
	}
}

// NewI2NPMessage creates a new base I2NP message carrying data and returns
// it as I2NPMessage.
func NewI2NPMessage(msgType int, data []byte) I2NPMessage {
	msg := NewBaseI2NPMessage(msgType)
	msg.SetData(data)
	return msg
}

// Type returns the message type
func (m *BaseI2NPMessage) Type() int {
	return m.type_
}

// MessageID returns the message ID
func (m *BaseI2NPMessage) MessageID() int {
	return m.messageID
}

// SetMessageID sets the message ID
func (m *BaseI2NPMessage) SetMessageID(id int) {
	m.messageID = id
}

// Expiration returns the expiration time
func (m *BaseI2NPMessage) Expiration() time.Time {
	return m.expiration
}

// SetExpiration sets the expiration time
func (m *BaseI2NPMessage) SetExpiration(exp time.Time) {
	m.expiration = exp
}

// SetData sets the message data
func (m *BaseI2NPMessage) SetData(data []byte) {
	m.data = data
}

// GetData returns the message data
func (m *BaseI2NPMessage) GetData() []byte {
	return m.data
}

// MaxI2NPStandardPayload is the maximum payload size for I2NP messages using
// the standard 16-byte header. The size field is 2 bytes (uint16), so the
// maximum representable value is 65535.
const MaxI2NPStandardPayload = 65535

// I2NPHeaderSize is the length of the standard header:
// type(1) + msgID(4) + expiration(8) + size(2) + checksum(1).
const I2NPHeaderSize = 16

// MarshalBinary serializes the I2NP message with the standard 16-byte header.
// Returns an error if the payload exceeds 65535 bytes (the 2-byte size field limit).
func (m *BaseI2NPMessage) MarshalBinary() ([]byte, error) {
	if len(m.data) > MaxI2NPStandardPayload {
		return nil, oops.Errorf("i2np: payload size %d exceeds maximum %d for standard header",
			len(m.data), MaxI2NPStandardPayload)
	}

	hash := sha256.Sum256(m.data)
	result := make([]byte, I2NPHeaderSize+len(m.data))

	result[0] = byte(m.type_)
	binary.BigEndian.PutUint32(result[1:5], uint32(m.messageID))

	exp, err := datalib.DateFromTime(m.expiration)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to convert expiration time")
	}
	copy(result[5:13], exp[:])

	binary.BigEndian.PutUint16(result[13:15], uint16(len(m.data)))
	result[15] = hash[0]
	copy(result[16:], m.data)

	return result, nil
}

// UnmarshalBinary deserializes the I2NP message from the standard header format
func (m *BaseI2NPMessage) UnmarshalBinary(data []byte) error {
	if len(data) < I2NPHeaderSize {
		return oops.Wrapf(ERR_I2NP_NOT_ENOUGH_DATA, "i2np message too short: %d bytes", len(data))
	}

	m.type_ = int(data[0])
	// Mask to 31 bits to guarantee positive int on 32-bit platforms
	m.messageID = int(binary.BigEndian.Uint32(data[1:5]) & 0x7FFFFFFF)

	var expDate datalib.Date
	copy(expDate[:], data[5:13])
	m.expiration = expDate.Time()

	size := int(binary.BigEndian.Uint16(data[13:15]))
	expectedChecksum := data[15]

	if len(data) < I2NPHeaderSize+size {
		return oops.Wrapf(ERR_I2NP_NOT_ENOUGH_DATA, "i2np message data truncated: expected %d bytes, got %d", I2NPHeaderSize+size, len(data))
	}

	m.data = make([]byte, size)
	copy(m.data, data[I2NPHeaderSize:I2NPHeaderSize+size])

	hash := sha256.Sum256(m.data)
	if hash[0] != expectedChecksum {
		return oops.Errorf("i2np message checksum mismatch: expected 0x%02x, got 0x%02x", expectedChecksum, hash[0])
	}

	return nil
}

// MessageLength returns the number of bytes the message at the start of
// data occupies on the wire, without validating the body.
func MessageLength(data []byte) (int, error) {
	if len(data) < I2NPHeaderSize {
		return 0, ERR_I2NP_NOT_ENOUGH_DATA
	}
	return I2NPHeaderSize + int(binary.BigEndian.Uint16(data[13:15])), nil
}

// ReadI2NPMessage parses one message with the standard header and returns
// the concrete type for the message types this package models. Other types
// are returned as *BaseI2NPMessage.
func ReadI2NPMessage(data []byte) (I2NPMessage, error) {
	if len(data) < I2NPHeaderSize {
		return nil, ERR_I2NP_NOT_ENOUGH_DATA
	}

	var msg I2NPMessage
	switch int(data[0]) {
	case I2NP_MESSAGE_TYPE_DATA:
		msg = &DataMessage{BaseI2NPMessage: &BaseI2NPMessage{}}
	case I2NP_MESSAGE_TYPE_DATABASE_STORE:
		msg = &DatabaseStore{BaseI2NPMessage: &BaseI2NPMessage{}}
	case I2NP_MESSAGE_TYPE_TUNNEL_GATEWAY:
		msg = &TunnelGatewayMessage{BaseI2NPMessage: &BaseI2NPMessage{}}
	case I2NP_MESSAGE_TYPE_GARLIC:
		msg = &GarlicMessage{BaseI2NPMessage: &BaseI2NPMessage{}}
	default:
		msg = &BaseI2NPMessage{}
	}

	if err := msg.UnmarshalBinary(data); err != nil {
		log.WithFields(logger.Fields{
			"at":     "ReadI2NPMessage",
			"type":   int(data[0]),
			"reason": "unmarshal failed",
		}).WithError(err).Debug("failed to read i2np message")
		return nil, err
	}
	return msg, nil
}

// Compile-time interface satisfaction check
var _ I2NPMessage = (*BaseI2NPMessage)(nil)
