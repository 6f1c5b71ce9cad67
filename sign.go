package covert

import (
	"io"

	"github.com/covert-im/covert/internal/primitives"
	"github.com/covert-im/covert/internal/sigblock"
)

// SignatureBlockSize is the exact length in bytes of one signature block.
const SignatureBlockSize = sigblock.Size

// SignatureBlock is one signer's proof of authorship over a file's
// filehash: an AEAD-sealed XEd25519 signature. It carries no indication of
// which key signed it; verification requires trying a specific PublicKey.
type SignatureBlock [SignatureBlockSize]byte

// Sign produces a detached SignatureBlock over filehash for sk, such as the
// filehash Decrypt returns. Use this to sign a file whose signer was not
// also passed in Signers to Encrypt, or to produce a block stored apart
// from the file itself.
func Sign(filehash [64]byte, sk SecretKey) (SignatureBlock, error) {
	block, err := sigblock.Sign(filehash, [primitives.ScalarSize]byte(sk))

	return SignatureBlock(block), err
}

// VerifySignature checks block against filehash for the claimed signer pk.
// It returns ErrAuthFail, never a distinguishing error, whether the AEAD
// tag or the enclosed XEd25519 signature failed to verify.
func VerifySignature(filehash [64]byte, pk PublicKey, block SignatureBlock) error {
	if err := sigblock.Verify(filehash, [primitives.ScalarSize]byte(pk), [SignatureBlockSize]byte(block)); err != nil {
		return ErrAuthFail
	}

	return nil
}

// ReadSignatureBlocks reads every trailing SignatureBlock from r, as left
// by Encrypt's Signers option or appended afterward by Sign. It returns an
// empty, non-nil slice if r is exhausted immediately.
func ReadSignatureBlocks(r io.Reader) ([]SignatureBlock, error) {
	raw, err := sigblock.ReadChain(r)
	if err != nil {
		return nil, err
	}

	blocks := make([]SignatureBlock, len(raw))
	for i, b := range raw {
		blocks[i] = SignatureBlock(b)
	}

	return blocks, nil
}
