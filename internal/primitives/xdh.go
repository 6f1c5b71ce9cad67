package primitives

import (
	"io"

	"golang.org/x/crypto/curve25519"
)

// GenerateScalar reads a fresh X25519 secret scalar from rng. The returned
// bytes are clamped per RFC 7748 and are usable both as an X25519 scalar and
// (per the XEd25519 construction) as an Ed25519 scalar for signing.
func GenerateScalar(rng io.Reader) ([ScalarSize]byte, error) {
	var sk [ScalarSize]byte

	if _, err := io.ReadFull(rng, sk[:]); err != nil {
		return sk, err
	}

	clamp(&sk)

	return sk, nil
}

// clamp applies the RFC 7748 clamping rules to an X25519 secret scalar.
func clamp(sk *[ScalarSize]byte) {
	sk[0] &= 248
	sk[31] &= 127
	sk[31] |= 64
}

// PublicFromScalar computes the X25519 public key corresponding to sk.
func PublicFromScalar(sk [ScalarSize]byte) [ScalarSize]byte {
	var pub [ScalarSize]byte

	out, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		panic(err)
	}

	copy(pub[:], out)

	return pub
}

// X25519 performs a raw X25519 scalar multiplication: sk is the local
// secret scalar, pk is the peer's public key, and the result is their
// shared 32-byte secret.
func X25519(sk, pk [ScalarSize]byte) ([ScalarSize]byte, error) {
	var shared [ScalarSize]byte

	out, err := curve25519.X25519(sk[:], pk[:])
	if err != nil {
		return shared, err
	}

	copy(shared[:], out)

	return shared, nil
}
