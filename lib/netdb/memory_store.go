package netdb

import (
	"fmt"
	"sync"

	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/common/destination"
	"github.com/go-i2p/common/router_info"
	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// MemoryStore keeps validated records in memory, keyed by their hash.
type MemoryStore struct {
	mu          sync.RWMutex
	routerInfos map[common.Hash]Record
	leaseSets   map[common.Hash]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routerInfos: make(map[common.Hash]Record),
		leaseSets:   make(map[common.Hash]Record),
	}
}

// Store validates record against key and keeps it. Records whose contents do
// not hash to key are rejected with ErrInvalidRecord.
func (s *MemoryStore) Store(key common.Hash, record Record) error {
	if err := verify(key, record); err != nil {
		log.WithFields(logger.Fields{
			"at":         "(MemoryStore) Store",
			"reason":     "validation failed",
			"key":        fmt.Sprintf("%x", key[:8]),
			"kind":       record.Kind.String(),
			"store_type": record.StoreType,
		}).WithError(err).Debug("rejecting netdb record")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch record.Kind {
	case KindRouterInfo:
		s.routerInfos[key] = record
	default:
		s.leaseSets[key] = record
	}
	log.WithFields(logger.Fields{
		"at":   "(MemoryStore) Store",
		"key":  fmt.Sprintf("%x", key[:8]),
		"kind": record.Kind.String(),
	}).Debug("stored netdb record")
	return nil
}

// RouterInfo returns the stored RouterInfo record for key.
func (s *MemoryStore) RouterInfo(key common.Hash) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routerInfos[key]
	return r, ok
}

// LeaseSet returns the stored LeaseSet record for key.
func (s *MemoryStore) LeaseSet(key common.Hash) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.leaseSets[key]
	return r, ok
}

// Size returns the total number of stored records.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.routerInfos) + len(s.leaseSets)
}

func verify(key common.Hash, record Record) error {
	if len(record.Data) == 0 {
		return oops.Wrapf(ErrInvalidRecord, "empty record")
	}
	switch record.Kind {
	case KindRouterInfo:
		return verifyRouterInfo(key, record.Data)
	case KindLeaseSet:
		return verifyLeaseSet(key, record)
	default:
		return oops.Wrapf(ErrInvalidRecord, "unknown record kind %d", record.Kind)
	}
}

func verifyRouterInfo(key common.Hash, data []byte) error {
	ri, _, err := router_info.ReadRouterInfo(data)
	if err != nil {
		return oops.Wrapf(ErrInvalidRecord, "failed to parse RouterInfo: %v", err)
	}
	hash, err := ri.IdentHash()
	if err != nil {
		return oops.Wrapf(ErrInvalidRecord, "failed to hash RouterInfo identity: %v", err)
	}
	if hash != key {
		return oops.Wrapf(ErrInvalidRecord, "RouterInfo identity %x does not match key %x", hash[:8], key[:8])
	}
	return nil
}

// verifyLeaseSet checks the destination that prefixes LeaseSet, LeaseSet2
// and MetaLeaseSet records. EncryptedLeaseSets begin with a blinded key and
// are only checked for framing.
func verifyLeaseSet(key common.Hash, record Record) error {
	switch record.StoreType {
	case i2np.DATABASE_STORE_TYPE_ENCRYPTED_LEASESET:
		return nil
	case i2np.DATABASE_STORE_TYPE_LEASESET,
		i2np.DATABASE_STORE_TYPE_LEASESET2,
		i2np.DATABASE_STORE_TYPE_META_LEASESET:
	default:
		return oops.Wrapf(ErrInvalidRecord, "unknown leaseset type %d", record.StoreType)
	}

	_, remainder, err := destination.ReadDestination(record.Data)
	if err != nil {
		return oops.Wrapf(ErrInvalidRecord, "failed to parse leaseset destination: %v", err)
	}
	destBytes := record.Data[:len(record.Data)-len(remainder)]
	if hash := common.HashData(destBytes); hash != key {
		return oops.Wrapf(ErrInvalidRecord, "leaseset destination %x does not match key %x", hash[:8], key[:8])
	}
	return nil
}
