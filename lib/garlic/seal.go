package garlic

import (
	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20poly1305"
)

// Seal encrypts plaintext as an existing-session garlic body under key,
// binding tag as additional data.
func Seal(tag SessionTag, key SessionKey, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create AEAD")
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, oops.Wrapf(err, "failed to generate nonce")
	}

	// [sessionTag(8)] + [nonce(12)] + [ciphertext(N)] + [tag(16)]
	out := make([]byte, 0, sessionTagSize+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, tag[:]...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, tag[:]), nil
}

// Wrap serializes set, seals it under a fresh tag registered in keys, and
// returns the resulting Garlic message.
func Wrap(keys *KeyStore, key SessionKey, set *CloveSet) (*i2np.GarlicMessage, error) {
	plaintext, err := set.MarshalBinary()
	if err != nil {
		return nil, err
	}
	tag, err := keys.NewTag(key)
	if err != nil {
		return nil, err
	}
	body, err := Seal(tag, key, plaintext)
	if err != nil {
		return nil, err
	}
	msg := i2np.NewGarlicMessage(body)
	msg.SetExpiration(set.Expiration)
	return msg, nil
}
