package i2np

/*
I2P I2NP Garlic
https://geti2p.net/spec/i2np

The body of a Garlic message is opaque ciphertext at this layer. Once
decrypted it holds:

+----+----+----+----+----+----+----+----+
| num|  clove 1                         |
+----+                                  +
~                                       ~
+----+----+----+----+----+----+----+----+
|         clove 2 ...                   |
~                                       ~
+----+----+----+----+----+----+----+----+
| Certificate  |   Message_ID      |
+----+----+----+----+----+----+----+----+
          Expiration               |
+----+----+----+----+----+----+----+

Each clove is:

  Delivery Instructions | I2NP Message | Clove ID (4) | Expiration (8) | Certificate (3)
*/

// GarlicMessage is an I2NP Garlic message whose body is still encrypted.
type GarlicMessage struct {
	*BaseI2NPMessage
}

// NewGarlicMessage wraps encrypted garlic data in a Garlic message.
func NewGarlicMessage(encrypted []byte) *GarlicMessage {
	msg := &GarlicMessage{BaseI2NPMessage: NewBaseI2NPMessage(I2NP_MESSAGE_TYPE_GARLIC)}
	msg.SetData(encrypted)
	return msg
}

// UnmarshalBinary deserializes a Garlic message
func (g *GarlicMessage) UnmarshalBinary(data []byte) error {
	if g.BaseI2NPMessage == nil {
		g.BaseI2NPMessage = &BaseI2NPMessage{}
	}
	return g.BaseI2NPMessage.UnmarshalBinary(data)
}

// IsGarlic reports whether msg is a Garlic message.
func IsGarlic(msg I2NPMessage) bool {
	return msg != nil && msg.Type() == I2NP_MESSAGE_TYPE_GARLIC
}
