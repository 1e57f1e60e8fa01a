package i2np

import (
	"encoding/binary"

	common "github.com/go-i2p/common/data"
	"github.com/samber/oops"
)

/*
I2P I2NP DatabaseStore
https://geti2p.net/spec/i2np
Accurate for version 0.9.28

with reply token:
+----+----+----+----+----+----+----+----+
| SHA256 Hash as key                    |
+                                       +
|                                       |
+                                       +
|                                       |
+                                       +
|                                       |
+----+----+----+----+----+----+----+----+
|type| reply token       | reply_tunnelId
+----+----+----+----+----+----+----+----+
     | SHA256 of the gateway RouterInfo |
+----+                                  +
|                                       |
+                                       +
|                                       |
+                                       +
|                                       |
+    +----+----+----+----+----+----+----+
|    | data ...
+----+-//

with reply token == 0:
+----+----+----+----+----+----+----+----+
| SHA256 Hash as key                    |
+                                       +
|                                       |
+                                       +
|                                       |
+                                       +
|                                       |
+----+----+----+----+----+----+----+----+
|type|         0         | data ...
+----+----+----+----+----+-//

type ::
     1 byte
     bits 3-0: 0 RouterInfo, 1 LeaseSet, 3 LeaseSet2,
               5 EncryptedLeaseSet, 7 MetaLeaseSet
     bits 7-4: reserved, ignored

data ::
     If type == 0, data is a 2-byte Integer specifying the number of bytes that follow,
                   followed by a gzip-compressed RouterInfo.
     Otherwise, data is an uncompressed LeaseSet of the given variant.
*/

type DatabaseStore struct {
	*BaseI2NPMessage
	Key           common.Hash
	StoreType     byte
	ReplyToken    [4]byte
	ReplyTunnelID [4]byte
	ReplyGateway  common.Hash
	Data          []byte
}

// NewDatabaseStore creates a new DatabaseStore message without a reply token
func NewDatabaseStore(key common.Hash, data []byte, dataType byte) *DatabaseStore {
	d := &DatabaseStore{
		BaseI2NPMessage: NewBaseI2NPMessage(I2NP_MESSAGE_TYPE_DATABASE_STORE),
		Key:             key,
		StoreType:       dataType,
		Data:            data,
	}
	d.SetData(d.payload())
	return d
}

// GetStoreKey returns the store key
func (d *DatabaseStore) GetStoreKey() common.Hash {
	return d.Key
}

// GetStoreData returns the store data
func (d *DatabaseStore) GetStoreData() []byte {
	return d.Data
}

// GetStoreType returns the raw store type byte
func (d *DatabaseStore) GetStoreType() byte {
	return d.StoreType
}

// GetLeaseSetType returns the record variant from bits 3-0 of the type field.
func (d *DatabaseStore) GetLeaseSetType() int {
	return int(d.StoreType & 0x0F)
}

// IsRouterInfo reports whether the record is a RouterInfo.
func (d *DatabaseStore) IsRouterInfo() bool {
	return d.GetLeaseSetType() == DATABASE_STORE_TYPE_ROUTER_INFO
}

func (d *DatabaseStore) hasReply() bool {
	return d.ReplyToken != [4]byte{}
}

func (d *DatabaseStore) payload() []byte {
	size := 32 + 1 + 4 + len(d.Data)
	if d.hasReply() {
		size += 4 + 32
	}

	result := make([]byte, size)
	offset := copy(result, d.Key[:])
	result[offset] = d.StoreType
	offset++
	offset += copy(result[offset:], d.ReplyToken[:])
	if d.hasReply() {
		offset += copy(result[offset:], d.ReplyTunnelID[:])
		offset += copy(result[offset:], d.ReplyGateway[:])
	}
	copy(result[offset:], d.Data)
	return result
}

// MarshalBinary serializes the DatabaseStore message including its I2NP header
func (d *DatabaseStore) MarshalBinary() ([]byte, error) {
	if d.BaseI2NPMessage == nil {
		d.BaseI2NPMessage = NewBaseI2NPMessage(I2NP_MESSAGE_TYPE_DATABASE_STORE)
	}
	d.SetData(d.payload())
	return d.BaseI2NPMessage.MarshalBinary()
}

// UnmarshalBinary deserializes a DatabaseStore message including its I2NP header
func (d *DatabaseStore) UnmarshalBinary(data []byte) error {
	if d.BaseI2NPMessage == nil {
		d.BaseI2NPMessage = &BaseI2NPMessage{}
	}
	if err := d.BaseI2NPMessage.UnmarshalBinary(data); err != nil {
		return err
	}
	return d.parsePayload(d.GetData())
}

func (d *DatabaseStore) parsePayload(data []byte) error {
	if len(data) < 37 {
		return oops.Wrapf(ERR_DATABASE_STORE_NOT_ENOUGH_DATA, "payload of %d bytes", len(data))
	}
	copy(d.Key[:], data[0:32])
	d.StoreType = data[32]
	copy(d.ReplyToken[:], data[33:37])
	offset := 37

	if d.hasReply() {
		if len(data) < offset+36 {
			return oops.Wrapf(ERR_DATABASE_STORE_NOT_ENOUGH_DATA, "reply fields truncated at %d bytes", len(data))
		}
		copy(d.ReplyTunnelID[:], data[offset:offset+4])
		copy(d.ReplyGateway[:], data[offset+4:offset+36])
		offset += 36
	}

	d.Data = make([]byte, len(data)-offset)
	copy(d.Data, data[offset:])
	return nil
}

// ReplyTokenValue returns the reply token as an integer; zero means no reply.
func (d *DatabaseStore) ReplyTokenValue() uint32 {
	return binary.BigEndian.Uint32(d.ReplyToken[:])
}

// AsDatabaseStore returns msg as a DatabaseStore, parsing the body of a
// generic message of the DatabaseStore type when needed.
func AsDatabaseStore(msg I2NPMessage) (*DatabaseStore, error) {
	if ds, ok := msg.(*DatabaseStore); ok {
		return ds, nil
	}
	if msg.Type() != I2NP_MESSAGE_TYPE_DATABASE_STORE {
		return nil, oops.Errorf("message type %d is not a database store", msg.Type())
	}
	ds := &DatabaseStore{BaseI2NPMessage: &BaseI2NPMessage{
		type_:      msg.Type(),
		messageID:  msg.MessageID(),
		expiration: msg.Expiration(),
		data:       msg.GetData(),
	}}
	if err := ds.parsePayload(ds.GetData()); err != nil {
		return nil, err
	}
	return ds, nil
}
