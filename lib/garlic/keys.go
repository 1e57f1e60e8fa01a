package garlic

import (
	"fmt"
	"sync"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"
)

// SessionTag identifies a one-time key on the wire.
type SessionTag [8]byte

// SessionKey is a ChaCha20-Poly1305 key.
type SessionKey [32]byte

// DefaultTagCacheSize bounds the number of outstanding tags a KeyStore keeps.
const DefaultTagCacheSize = 4096

// KeyStore maps session tags to keys. Each tag can be consumed once; when
// the store is full the least recently added tag is evicted.
type KeyStore struct {
	mu   sync.Mutex
	tags *lru.Cache[SessionTag, SessionKey]
}

// NewKeyStore creates a KeyStore holding at most size tags.
func NewKeyStore(size int) (*KeyStore, error) {
	if size <= 0 {
		size = DefaultTagCacheSize
	}
	cache, err := lru.New[SessionTag, SessionKey](size)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create session tag cache")
	}
	return &KeyStore{tags: cache}, nil
}

// AddTag registers key under tag.
func (k *KeyStore) AddTag(tag SessionTag, key SessionKey) {
	k.mu.Lock()
	evicted := k.tags.Add(tag, key)
	k.mu.Unlock()
	if evicted {
		log.WithFields(logger.Fields{
			"at":     "(KeyStore) AddTag",
			"reason": "tag cache full",
		}).Debug("evicted oldest session tag")
	}
}

// NewTag generates a random tag bound to key and registers it.
func (k *KeyStore) NewTag(key SessionKey) (SessionTag, error) {
	var tag SessionTag
	if _, err := rand.Read(tag[:]); err != nil {
		return tag, oops.Wrapf(err, "failed to generate session tag")
	}
	k.AddTag(tag, key)
	return tag, nil
}

// Consume returns the key for tag and forgets the tag.
func (k *KeyStore) Consume(tag SessionTag) (SessionKey, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	key, ok := k.tags.Peek(tag)
	if ok {
		k.tags.Remove(tag)
	}
	return key, ok
}

// Len returns the number of outstanding tags.
func (k *KeyStore) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tags.Len()
}

func (t SessionTag) String() string {
	return fmt.Sprintf("%x", t[:4])
}
