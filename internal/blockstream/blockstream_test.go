package blockstream

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/codahale/gubbins/assert"
	"github.com/covert-im/covert/internal/primitives"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	key := make([]byte, primitives.KeySize)
	_, _ = rand.Read(key)

	var nonce [primitives.NonceSize]byte
	_, _ = rand.Read(nonce[:])

	header := []byte("header-as-aad")
	src := bytes.NewBufferString("welcome to paradise, a place with many small blocks")
	dst := bytes.NewBuffer(nil)

	res, err := Encode(dst, src, key, nonce, header, 3)
	if err != nil {
		t.Fatal(err)
	}

	ct := dst.Bytes()
	decoded := bytes.NewBuffer(nil)

	block0Len := 3 + nextLenSize + primitives.TagSize // first block has 3 data bytes plus nextlen
	dres, err := Decode(decoded, bytes.NewReader(ct), key, nonce, header, block0Len)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "decoded plaintext", "welcome to paradise, a place with many small blocks", decoded.String())
	assert.Equal(t, "filehash", res.Filehash, dres.Filehash)
}

func TestEncodeEmptyStream(t *testing.T) {
	t.Parallel()

	key := make([]byte, primitives.KeySize)
	_, _ = rand.Read(key)

	var nonce [primitives.NonceSize]byte
	_, _ = rand.Read(nonce[:])

	dst := bytes.NewBuffer(nil)

	if _, err := Encode(dst, bytes.NewReader(nil), key, nonce, []byte("h"), 16); err != nil {
		t.Fatal(err)
	}

	decoded := bytes.NewBuffer(nil)

	if _, err := Decode(decoded, bytes.NewReader(dst.Bytes()), key, nonce, []byte("h"), dst.Len()); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "decoded plaintext", "", decoded.String())
}

func TestDecodeTamperDetected(t *testing.T) {
	t.Parallel()

	key := make([]byte, primitives.KeySize)
	_, _ = rand.Read(key)

	var nonce [primitives.NonceSize]byte
	_, _ = rand.Read(nonce[:])

	dst := bytes.NewBuffer(nil)

	if _, err := Encode(dst, bytes.NewBufferString("hello"), key, nonce, []byte("h"), 16); err != nil {
		t.Fatal(err)
	}

	ct := dst.Bytes()
	ct[0] ^= 1

	decoded := bytes.NewBuffer(nil)

	if _, err := Decode(decoded, bytes.NewReader(ct), key, nonce, []byte("h"), len(ct)); err != primitives.ErrAuthFail {
		t.Fatalf("expected ErrAuthFail, got %v", err)
	}
}

func TestIncrementNonce(t *testing.T) {
	t.Parallel()

	var n [primitives.NonceSize]byte

	n = incrementNonce(n)
	assert.Equal(t, "incremented nonce", byte(1), n[0])

	n[0] = 0xff
	n = incrementNonce(n)
	assert.Equal(t, "carried byte", byte(0), n[0])
	assert.Equal(t, "carry destination", byte(1), n[1])
}
