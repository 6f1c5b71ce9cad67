package primitives

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestAEADRoundTrip(t *testing.T) {
	t.Parallel()

	key := make([]byte, KeySize)
	nonce := make([]byte, NonceSize)
	_, _ = rand.Read(key)
	_, _ = rand.Read(nonce)

	ct := Seal(key, nonce, []byte("aad"), []byte("hello, world"))

	pt, err := Open(key, nonce, []byte("aad"), ct)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "plaintext", "hello, world", string(pt))
}

func TestAEADTamperDetected(t *testing.T) {
	t.Parallel()

	key := make([]byte, KeySize)
	nonce := make([]byte, NonceSize)
	_, _ = rand.Read(key)
	_, _ = rand.Read(nonce)

	ct := Seal(key, nonce, nil, []byte("hello, world"))
	ct[0] ^= 1

	if _, err := Open(key, nonce, nil, ct); err != ErrAuthFail {
		t.Fatalf("expected ErrAuthFail, got %v", err)
	}
}

func TestX25519RoundTrip(t *testing.T) {
	t.Parallel()

	skA, err := GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	skB, err := GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	pkA := PublicFromScalar(skA)
	pkB := PublicFromScalar(skB)

	sharedA, err := X25519(skA, pkB)
	if err != nil {
		t.Fatal(err)
	}

	sharedB, err := X25519(skB, pkA)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "shared secret", true, bytes.Equal(sharedA[:], sharedB[:]))
}

func TestElligatorRoundTrip(t *testing.T) {
	t.Parallel()

	var pk [ScalarSize]byte

	var rep [32]byte

	var ok bool

	for {
		sk, err := GenerateScalar(rand.Reader)
		if err != nil {
			t.Fatal(err)
		}

		pk = PublicFromScalar(sk)

		rep, ok = ElligatorEncode(pk, 0)
		if ok {
			break
		}
	}

	for tweak := byte(0); tweak < 8; tweak++ {
		rep, ok := ElligatorEncode(pk, tweak)
		if !ok {
			t.Fatalf("expected representable key for tweak %d", tweak)
		}

		decoded := ElligatorDecode(rep)
		assert.Equal(t, "decoded public key", true, bytes.Equal(decoded[:], pk[:]))
	}

	decoded := ElligatorDecode(rep)
	assert.Equal(t, "decoded public key", true, bytes.Equal(decoded[:], pk[:]))
}

func TestDirtyPublicFromScalarPreservesSharedSecret(t *testing.T) {
	t.Parallel()

	sk, err := GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	peerSK, err := GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	cleanPub := PublicFromScalar(sk)

	// A torsion multiple of 1 adds the order-8 generator itself; a random
	// draw picks the identity one time in eight and leaves the key unchanged.
	dirtyPub, err := DirtyPublicFromScalar(bytes.NewReader([]byte{1}), sk)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(cleanPub[:], dirtyPub[:]) {
		t.Fatal("expected dirtied public key to differ from the clean one")
	}

	wantShared, err := X25519(peerSK, cleanPub)
	if err != nil {
		t.Fatal(err)
	}

	gotShared, err := X25519(peerSK, dirtyPub)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "shared secret", true, bytes.Equal(wantShared[:], gotShared[:]))
}

func TestArgon2idDeterministic(t *testing.T) {
	t.Parallel()

	a := Argon2id([]byte("password"), []byte("0123456789abcdef"), 1, 32)
	b := Argon2id([]byte("password"), []byte("0123456789abcdef"), 1, 32)

	assert.Equal(t, "argon2id output", true, bytes.Equal(a, b))
}

func TestXEdDSARoundTrip(t *testing.T) {
	t.Parallel()

	sk, err := GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	pk := PublicFromScalar(sk)
	msg := []byte("the filehash of a covert archive")

	sig, err := XEdDSASign(rand.Reader, sk, msg)
	if err != nil {
		t.Fatal(err)
	}

	if !XEdDSAVerify(pk, msg, sig) {
		t.Fatal("signature did not verify")
	}

	other, err := GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	if XEdDSAVerify(PublicFromScalar(other), msg, sig) {
		t.Fatal("signature verified against wrong key")
	}
}
