package netdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/logger"
	"github.com/klauspost/compress/gzip"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// MaxRouterInfoSize bounds a decompressed RouterInfo.
const MaxRouterInfoSize = 64 * 1024

// ErrInvalidRecord is returned (wrapped) for records that cannot be stored.
var ErrInvalidRecord = errors.New("netdb: invalid record")

// RecordKind tags a Record.
type RecordKind int

const (
	KindLeaseSet RecordKind = iota
	KindRouterInfo
)

func (k RecordKind) String() string {
	switch k {
	case KindLeaseSet:
		return "leaseset"
	case KindRouterInfo:
		return "routerinfo"
	default:
		return "unknown"
	}
}

// Record is a network database entry ready to be stored. For RouterInfo
// records Data is the decompressed RouterInfo.
type Record struct {
	Kind RecordKind
	// StoreType is the DatabaseStore variant (bits 3-0 of the type byte).
	StoreType int
	Data      []byte
}

// RecordFromStore extracts the record carried by a DatabaseStore message.
func RecordFromStore(ds *i2np.DatabaseStore) (Record, error) {
	storeType := ds.GetLeaseSetType()
	switch storeType {
	case i2np.DATABASE_STORE_TYPE_ROUTER_INFO:
		data, err := decompressRouterInfo(ds.GetStoreData())
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindRouterInfo, StoreType: storeType, Data: data}, nil
	case i2np.DATABASE_STORE_TYPE_LEASESET,
		i2np.DATABASE_STORE_TYPE_LEASESET2,
		i2np.DATABASE_STORE_TYPE_ENCRYPTED_LEASESET,
		i2np.DATABASE_STORE_TYPE_META_LEASESET:
		if len(ds.GetStoreData()) == 0 {
			return Record{}, oops.Wrapf(ErrInvalidRecord, "empty leaseset data")
		}
		return Record{Kind: KindLeaseSet, StoreType: storeType, Data: ds.GetStoreData()}, nil
	default:
		return Record{}, oops.Wrapf(ErrInvalidRecord, "unknown store type %d", storeType)
	}
}

// decompressRouterInfo reads the 2-byte length prefixed gzip RouterInfo.
func decompressRouterInfo(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, oops.Wrapf(ErrInvalidRecord, "routerinfo data too short: %d bytes", len(data))
	}
	length := int(binary.BigEndian.Uint16(data[0:2]))
	if length == 0 || len(data) < 2+length {
		return nil, oops.Wrapf(ErrInvalidRecord, "routerinfo length %d exceeds %d available bytes", length, len(data)-2)
	}

	zr, err := gzip.NewReader(bytes.NewReader(data[2 : 2+length]))
	if err != nil {
		return nil, oops.Wrapf(ErrInvalidRecord, "routerinfo gzip header: %v", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxRouterInfoSize+1))
	if err != nil {
		return nil, oops.Wrapf(ErrInvalidRecord, "routerinfo gzip body: %v", err)
	}
	if len(out) > MaxRouterInfoSize {
		return nil, oops.Wrapf(ErrInvalidRecord, "routerinfo exceeds %d bytes", MaxRouterInfoSize)
	}
	if len(out) == 0 {
		return nil, oops.Wrapf(ErrInvalidRecord, "empty routerinfo")
	}
	return out, nil
}

// CompressRouterInfo produces DatabaseStore data for a RouterInfo.
func CompressRouterInfo(routerInfo []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0})
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(routerInfo); err != nil {
		return nil, oops.Wrapf(err, "failed to compress routerinfo")
	}
	if err := zw.Close(); err != nil {
		return nil, oops.Wrapf(err, "failed to compress routerinfo")
	}
	out := buf.Bytes()
	if len(out)-2 > 0xFFFF {
		return nil, oops.Errorf("compressed routerinfo too large: %d bytes", len(out)-2)
	}
	binary.BigEndian.PutUint16(out[0:2], uint16(len(out)-2))
	return out, nil
}
