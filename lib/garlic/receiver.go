package garlic

import (
	"time"

	"github.com/go-i2p/go-i2p-endpoint/lib/i2np"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sessionTagSize = 8
	nonceSize      = chacha20poly1305.NonceSize
	// minExistingSessionSize is tag + nonce + AEAD overhead
	minExistingSessionSize = sessionTagSize + nonceSize + chacha20poly1305.Overhead
)

// Receiver decrypts garlic messages addressed to this endpoint and splits
// them into cloves.
type Receiver struct {
	keys       *KeyStore
	expiration *i2np.ExpirationValidator
}

// NewReceiver creates a Receiver using keys for decryption and now for
// clove expiration checks. A nil now uses time.Now.
func NewReceiver(keys *KeyStore, now func() time.Time) *Receiver {
	return &Receiver{
		keys:       keys,
		expiration: i2np.NewExpirationValidator().WithTimeSource(now),
	}
}

// Unwrap decrypts msg and returns its cloves in bundle order. A bundle that
// fails to decrypt or frame yields an error and no cloves. A clove whose
// message is invalid or expired is returned with Err set so the caller can
// account for it; its siblings are unaffected.
func (r *Receiver) Unwrap(msg i2np.I2NPMessage) ([]Clove, error) {
	if !i2np.IsGarlic(msg) {
		return nil, oops.Wrapf(ErrDecode, "message type %d is not garlic", msg.Type())
	}

	plaintext, err := r.decrypt(msg.GetData())
	if err != nil {
		return nil, err
	}

	raws, bundleID, _, err := parseCloveSet(plaintext)
	if err != nil {
		return nil, err
	}

	cloves := make([]Clove, 0, len(raws))
	failed := 0
	for _, raw := range raws {
		clove := r.decodeClove(raw)
		if clove.Err != nil {
			failed++
		}
		cloves = append(cloves, clove)
	}

	log.WithFields(logger.Fields{
		"at":        "(Receiver) Unwrap",
		"bundle_id": bundleID,
		"cloves":    len(cloves),
		"failed":    failed,
	}).Debug("unwrapped garlic message")
	return cloves, nil
}

// Receive unwraps msg and passes each valid clove to to. Failures produce
// no callbacks and are logged at debug level only.
func (r *Receiver) Receive(msg i2np.I2NPMessage, to CloveReceiver) {
	cloves, err := r.Unwrap(msg)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":         "(Receiver) Receive",
			"reason":     "decode failure",
			"message_id": msg.MessageID(),
		}).WithError(err).Debug("dropping garlic message")
		return
	}
	for _, clove := range cloves {
		if clove.Err != nil {
			continue
		}
		to.HandleClove(clove.Instructions, clove.Message)
	}
}

func (r *Receiver) decrypt(body []byte) ([]byte, error) {
	if len(body) < minExistingSessionSize {
		return nil, oops.Wrapf(ErrDecode, "encrypted garlic too short: %d bytes", len(body))
	}

	var tag SessionTag
	copy(tag[:], body[:sessionTagSize])
	key, ok := r.keys.Consume(tag)
	if !ok {
		return nil, oops.Wrapf(ErrUnknownTag, "tag %s", tag)
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create AEAD")
	}
	nonce := body[sessionTagSize : sessionTagSize+nonceSize]
	plaintext, err := aead.Open(nil, nonce, body[sessionTagSize+nonceSize:], tag[:])
	if err != nil {
		return nil, oops.Wrapf(ErrDecode, "decryption failed (authentication error)")
	}
	return plaintext, nil
}

func (r *Receiver) decodeClove(raw rawClove) Clove {
	clove := Clove{
		Instructions: raw.instructions,
		CloveID:      raw.cloveID,
		Expiration:   raw.expiration,
	}
	if err := r.expiration.ValidateExpiration(raw.expiration); err != nil {
		clove.Err = oops.Wrapf(ErrDecode, "clove %d: %v", raw.cloveID, err)
		return clove
	}
	msg, err := i2np.ReadI2NPMessage(raw.message)
	if err != nil {
		clove.Err = oops.Wrapf(ErrDecode, "clove %d message: %v", raw.cloveID, err)
		return clove
	}
	clove.Message = msg
	return clove
}
