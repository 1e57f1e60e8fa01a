package i2np

import (
	"encoding/binary"

	"github.com/samber/oops"
)

// DataMessage represents an I2NP Data message
type DataMessage struct {
	*BaseI2NPMessage
	PayloadLength int
	Payload       []byte
}

// NewDataMessage creates a new Data message
func NewDataMessage(payload []byte) *DataMessage {
	msg := &DataMessage{
		BaseI2NPMessage: NewBaseI2NPMessage(I2NP_MESSAGE_TYPE_DATA),
		PayloadLength:   len(payload),
		Payload:         payload,
	}

	data := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(data[0:4], uint32(len(payload)))
	copy(data[4:], payload)
	msg.SetData(data)

	return msg
}

// GetPayload returns the actual payload data
func (d *DataMessage) GetPayload() []byte {
	return d.Payload
}

// UnmarshalBinary deserializes a Data message
func (d *DataMessage) UnmarshalBinary(data []byte) error {
	if d.BaseI2NPMessage == nil {
		d.BaseI2NPMessage = &BaseI2NPMessage{}
	}
	if err := d.BaseI2NPMessage.UnmarshalBinary(data); err != nil {
		return err
	}
	return d.parsePayload()
}

func (d *DataMessage) parsePayload() error {
	messageData := d.BaseI2NPMessage.GetData()
	if len(messageData) < 4 {
		return oops.Errorf("data message payload too short: %d bytes", len(messageData))
	}

	length := binary.BigEndian.Uint32(messageData[0:4])
	if uint64(len(messageData)) < 4+uint64(length) {
		return oops.Errorf("data message payload truncated: expected %d bytes, got %d", 4+uint64(length), len(messageData))
	}

	d.PayloadLength = int(length)
	d.Payload = make([]byte, d.PayloadLength)
	copy(d.Payload, messageData[4:4+d.PayloadLength])

	return nil
}

// AsDataMessage returns msg as a DataMessage, parsing the body of a generic
// message of the Data type when needed.
func AsDataMessage(msg I2NPMessage) (*DataMessage, error) {
	if dm, ok := msg.(*DataMessage); ok {
		return dm, nil
	}
	if msg.Type() != I2NP_MESSAGE_TYPE_DATA {
		return nil, oops.Errorf("message type %d is not a data message", msg.Type())
	}
	base := &BaseI2NPMessage{
		type_:      msg.Type(),
		messageID:  msg.MessageID(),
		expiration: msg.Expiration(),
		data:       msg.GetData(),
	}
	dm := &DataMessage{BaseI2NPMessage: base}
	if err := dm.parsePayload(); err != nil {
		return nil, err
	}
	return dm, nil
}

// Compile-time interface satisfaction check
var _ PayloadCarrier = (*DataMessage)(nil)
