// Package sigblock implements Covert's 80-byte XEd25519 signature blocks,
// appended after a block stream's terminating block or stored detached
// alongside the file they sign.
package sigblock

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/covert-im/covert/internal/primitives"
)

// Size is the exact length in bytes of one signature block: a
// ChaCha20-Poly1305 encryption of a 64-byte XEd25519 signature.
const Size = primitives.SignatureSize + primitives.TagSize

// ErrInvalidSignature is returned when a signature block's AEAD tag
// verifies but the enclosed XEd25519 signature does not match the claimed
// signer, or when the AEAD tag itself fails to verify.
var ErrInvalidSignature = errors.New("covert: invalid signature")

// Sign produces one signature block over filehash for the signer holding
// sk, per §4.5.
func Sign(filehash [64]byte, sk [primitives.ScalarSize]byte) ([Size]byte, error) {
	var block [Size]byte

	pk := primitives.PublicFromScalar(sk)

	sig, err := primitives.XEdDSASign(rand.Reader, sk, filehash[:])
	if err != nil {
		return block, err
	}

	key := filehash[:primitives.KeySize]
	nonce := blockNonce(filehash, pk)

	ct := primitives.Seal(key, nonce[:], nil, sig[:])
	copy(block[:], ct)

	return block, nil
}

// Verify opens block under the claimed signer's public key and, only if
// the AEAD tag verifies, checks the enclosed XEd25519 signature against
// filehash. AEAD success alone does not prove authorship, since the key is
// derivable by anyone holding the file and the claimed key; the XEd25519
// check is what actually binds the block to the signer.
func Verify(filehash [64]byte, pk [primitives.ScalarSize]byte, block [Size]byte) error {
	key := filehash[:primitives.KeySize]
	nonce := blockNonce(filehash, pk)

	sigBytes, err := primitives.Open(key, nonce[:], nil, block[:])
	if err != nil {
		return ErrInvalidSignature
	}

	var sig [primitives.SignatureSize]byte
	copy(sig[:], sigBytes)

	if !primitives.XEdDSAVerify(pk, filehash[:], sig) {
		return ErrInvalidSignature
	}

	return nil
}

func blockNonce(filehash [64]byte, pk [primitives.ScalarSize]byte) [primitives.NonceSize]byte {
	h := primitives.SHA512(filehash[:], pk[:])

	var nonce [primitives.NonceSize]byte
	copy(nonce[:], h[:primitives.NonceSize])

	return nonce
}

// ReadChain reads sequential Size-byte signature blocks from r until EOF,
// for the trailer-chaining case where multiple signers have each appended
// a block after the same terminating block stream.
func ReadChain(r io.Reader) ([][Size]byte, error) {
	var blocks [][Size]byte

	for {
		var block [Size]byte

		_, err := io.ReadFull(r, block[:])
		if errors.Is(err, io.EOF) {
			return blocks, nil
		}

		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.New("covert: truncated signature block")
		}

		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}
}
