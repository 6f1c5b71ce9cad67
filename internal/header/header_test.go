package header

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/codahale/gubbins/assert"
	"github.com/covert-im/covert/internal/primitives"
)

func TestBuildWideOpen(t *testing.T) {
	t.Parallel()

	built, err := Build(rand.Reader, nil, true, 0)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "header length", primitives.NonceSize, len(built.Bytes))
	assert.Equal(t, "file key", true, built.Key == [primitives.KeySize]byte{})
}

func TestBuildShortPassphrase(t *testing.T) {
	t.Parallel()

	built, err := Build(rand.Reader, []Recipient{{Passphrase: []byte("hunter22")}}, false, 0)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "header length", primitives.NonceSize, len(built.Bytes))

	key, err := derivePassphraseKey([]byte("hunter22"), built.Nonce)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "derived key", true, key == built.Key)
}

func TestBuildShortPassphraseTooShort(t *testing.T) {
	t.Parallel()

	_, err := Build(rand.Reader, []Recipient{{Passphrase: []byte("short")}}, false, 0)
	if err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestBuildAdvancedPubkeyRoundTrip(t *testing.T) {
	t.Parallel()

	skA, err := primitives.GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	skB, err := primitives.GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	pkA := primitives.PublicFromScalar(skA)
	pkB := primitives.PublicFromScalar(skB)

	built, err := Build(rand.Reader, []Recipient{{PublicKey: &pkA}, {PublicKey: &pkB}}, false, 3)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "slot count", true, len(built.Bytes)%primitives.KeySize == 0)
	assert.Equal(t, "slot count", true, len(built.Bytes) >= primitives.KeySize*3)

	file := append(append([]byte{}, built.Bytes...), sealTerminalBlock0(built)...)

	foundA, err := BlindSearch([]Identity{{SecretKey: &skA}}, file)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "recovered key for A", true, foundA.Key == built.Key)

	foundB, err := BlindSearch([]Identity{{SecretKey: &skB}}, file)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "recovered key for B", true, foundB.Key == built.Key)
}

// sealTerminalBlock0 seals an empty, immediately-terminating block 0 (a
// 3-byte zero nextlen announcement and no payload) under built's file key,
// the way blockstream.Encode would for a zero-length archive. Tests use it
// to give BlindSearch a real AEAD tag to open, since the header alone
// carries no ciphertext.
func sealTerminalBlock0(built Built) []byte {
	return primitives.Seal(built.Key[:], built.Nonce[:], built.Bytes, []byte{0, 0, 0})
}

func TestBuildAdvancedMixedRecipients(t *testing.T) {
	t.Parallel()

	sk, err := primitives.GenerateScalar(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	pk := primitives.PublicFromScalar(sk)

	built, err := Build(rand.Reader, []Recipient{
		{PublicKey: &pk},
		{Passphrase: []byte("correcthorsebattery")},
	}, false, 0)
	if err != nil {
		t.Fatal(err)
	}

	file := append(append([]byte{}, built.Bytes...), sealTerminalBlock0(built)...)

	foundPw, err := BlindSearch([]Identity{{Passphrase: []byte("correcthorsebattery")}}, file)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "recovered key for passphrase", true, foundPw.Key == built.Key)
}

func TestBlindSearchWrongIdentityFails(t *testing.T) {
	t.Parallel()

	built, err := Build(rand.Reader, []Recipient{{Passphrase: []byte("correcthorsebattery")}}, false, 0)
	if err != nil {
		t.Fatal(err)
	}

	file := append(append([]byte{}, built.Bytes...), sealTerminalBlock0(built)...)

	_, err = BlindSearch([]Identity{{Passphrase: []byte("wrongwrongwrong")}}, file)
	if err != primitives.ErrAuthFail {
		t.Fatalf("expected ErrAuthFail, got %v", err)
	}
}

func TestDedupByIdentity(t *testing.T) {
	t.Parallel()

	out := dedupByIdentity([]Recipient{
		{Passphrase: []byte("hunter22hunter22")},
		{Passphrase: []byte("hunter22hunter22")},
	})

	assert.Equal(t, "deduped recipients", 1, len(out))
}

func TestXOR(t *testing.T) {
	t.Parallel()

	a := bytes.Repeat([]byte{0xff}, primitives.KeySize)
	b := bytes.Repeat([]byte{0x0f}, primitives.KeySize)
	dst := make([]byte, primitives.KeySize)

	xor(dst, a, b)

	assert.Equal(t, "xor result", true, bytes.Equal(dst, bytes.Repeat([]byte{0xf0}, primitives.KeySize)))
}
