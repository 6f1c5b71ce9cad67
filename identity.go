package covert

import (
	"crypto/rand"
	"encoding"
	"fmt"
	"io"

	"github.com/covert-im/covert/internal/primitives"
	"github.com/mr-tron/base58"
)

// PublicKey is a Covert recipient's X25519 public key.
type PublicKey [KeySize]byte

// MarshalBinary returns the 32 raw key bytes.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return pk[:], nil
}

// UnmarshalBinary sets pk from 32 raw key bytes.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	if len(data) != KeySize {
		return fmt.Errorf("covert: invalid public key length %d", len(data))
	}

	copy(pk[:], data)

	return nil
}

// String returns the public key encoded as base58, the form used by
// Covert's key-text interchange.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// ParsePublicKey decodes a base58-encoded public key produced by String.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey

	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("covert: invalid public key: %w", err)
	}

	return pk, pk.UnmarshalBinary(b)
}

var (
	_ encoding.BinaryMarshaler   = PublicKey{}
	_ encoding.BinaryUnmarshaler = &PublicKey{}
	_ fmt.Stringer               = PublicKey{}
)

// SecretKey is a Covert sender or recipient's X25519 secret key. It also
// carries XEd25519 signing capability over the same Montgomery scalar.
type SecretKey [KeySize]byte

// NewSecretKey generates a fresh, correctly clamped X25519 secret key.
func NewSecretKey(rng io.Reader) (SecretKey, error) {
	sk, err := primitives.GenerateScalar(rng)

	return SecretKey(sk), err
}

// GenerateSecretKey generates a fresh secret key using the OS CSPRNG.
func GenerateSecretKey() (SecretKey, error) {
	return NewSecretKey(rand.Reader)
}

// PublicKey returns the public key corresponding to sk.
func (sk SecretKey) PublicKey() PublicKey {
	return PublicKey(primitives.PublicFromScalar(sk))
}

// String returns the secret key encoded as base58. Treat the result as
// sensitive: anyone holding it can decrypt every file addressed to this
// key and sign as this identity.
func (sk SecretKey) String() string {
	return base58.Encode(sk[:])
}

// ParseSecretKey decodes a base58-encoded secret key produced by String.
func ParseSecretKey(s string) (SecretKey, error) {
	var sk SecretKey

	b, err := base58.Decode(s)
	if err != nil {
		return sk, fmt.Errorf("covert: invalid secret key: %w", err)
	}

	if len(b) != KeySize {
		return sk, fmt.Errorf("covert: invalid secret key length %d", len(b))
	}

	copy(sk[:], b)

	return sk, nil
}

// Zero overwrites sk with zero bytes, per §5's zeroization requirement for
// released secret material.
func (sk *SecretKey) Zero() {
	primitives.Zero(sk[:])
}
