// Package garlic unwraps garlic messages addressed to an inbound tunnel
// endpoint.
//
// A garlic message body is an existing-session ciphertext:
//
//	[session tag (8)] [nonce (12)] [ChaCha20-Poly1305 ciphertext] [tag (16)]
//
// The session tag selects a one-time key from a KeyStore and is bound to the
// ciphertext as additional data. The decrypted plaintext is a clove set:
//
//	num (1) | clove 1 | ... | clove n | certificate (3) | message id (4) | expiration (8)
//
// and each clove is:
//
//	delivery instructions | I2NP message | clove id (4) | expiration (8) | certificate (3)
//
// Receiver.Unwrap returns the cloves in bundle order. Receiver.Receive is the
// callback form: it hands each clove to a CloveReceiver and swallows any
// decode failure after logging it.
package garlic
