// Package primitives wraps the cryptographic building blocks used throughout
// Covert: ChaCha20-Poly1305 AEAD, X25519, SHA-512, Argon2id, Elligator2 and
// XEd25519. It owns no state except the caller-supplied CSPRNG handle; every
// exported function is pure given its arguments.
package primitives

import (
	"crypto/cipher"
	"crypto/sha512"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the length in bytes of a ChaCha20-Poly1305 key, an X25519
	// key, and a file key.
	KeySize = chacha20poly1305.KeySize
	// NonceSize is the length in bytes of a ChaCha20-Poly1305 nonce.
	NonceSize = chacha20poly1305.NonceSize
	// TagSize is the length in bytes of a Poly1305 authentication tag.
	TagSize = chacha20poly1305.Overhead
	// ScalarSize is the length in bytes of an X25519 secret scalar.
	ScalarSize = 32
)

// ErrAuthFail is returned whenever a Poly1305 tag fails to verify. Covert
// deliberately returns the same error for a wrong key, a truncated stream,
// and bit-flip tampering: distinguishing those cases would leak information
// to an attacker performing a decryption oracle attack.
var ErrAuthFail = errors.New("covert: authentication failed")

// Seal encrypts plaintext with ChaCha20-Poly1305 under key and nonce,
// authenticating aad, and returns ciphertext||tag.
func Seal(key, nonce, aad, plaintext []byte) []byte {
	aead := newAEAD(key)
	return aead.Seal(nil, nonce, plaintext, aad)
}

// SealInto behaves like Seal but appends to dst, reusing its capacity across
// calls. blockstream.Encode reuses a single ciphertext buffer across the
// whole stream this way, instead of allocating one per block.
func SealInto(dst, key, nonce, aad, plaintext []byte) []byte {
	aead := newAEAD(key)
	return aead.Seal(dst, nonce, plaintext, aad)
}

// Open decrypts ciphertext||tag with ChaCha20-Poly1305 under key and nonce,
// verifying aad. A failed tag returns ErrAuthFail, never the underlying
// library error, to keep the failure surface uniform per §7.
func Open(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead := newAEAD(key)

	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthFail
	}

	return plaintext, nil
}

func newAEAD(key []byte) cipher.AEAD {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		// Every call site passes a KeySize-length key; a construction error
		// here signals a programming error, not a runtime condition.
		panic(err)
	}

	return aead
}

// SHA512 returns the SHA-512 digest of the concatenation of parts.
func SHA512(parts ...[]byte) [64]byte {
	h := sha512.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}

	var out [64]byte
	copy(out[:], h.Sum(nil))

	return out
}

// RandomBytes reads n cryptographically secure random bytes from rng. Per
// §4.1, rng MUST be backed by an OS CSPRNG; callers in this module never
// seed a userspace PRNG.
func RandomBytes(rng io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rng, b); err != nil {
		return nil, err
	}

	return b, nil
}

// Zero overwrites b with zero bytes. Used to release secret key material
// per §5's zeroization requirement.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
