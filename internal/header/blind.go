package header

import "github.com/covert-im/covert/internal/primitives"

// Identity is a credential a decrypting party holds: either a passphrase or
// an X25519 secret key. Exactly one of the two fields is set.
type Identity struct {
	Passphrase []byte
	SecretKey  *[primitives.ScalarSize]byte
}

// maxHeaderLen is the largest prefix BlindSearch ever needs: the short
// 12-byte nonce-only form, or up to 20 32-byte slots in advanced mode.
const maxHeaderLen = primitives.KeySize * MaxRecipients

// blockProbeLimit bounds how many end offsets BlindSearch tries when
// hunting for block 0's AEAD tag, per §4.2's "try block lengths up to 1KiB"
// search bound.
const blockProbeLimit = 1024

// Found is a successful BlindSearch result: the file key, the length of the
// header that produced it, the nonce carried in that header, and the exact
// ciphertext-plus-tag length of block 0.
type Found struct {
	Key       [primitives.KeySize]byte
	HeaderLen int
	Nonce     [primitives.NonceSize]byte
	Block0Len int
}

// headerLengths enumerates every header length BlindSearch must try: the
// fixed 12-byte short form, and every 32-byte-aligned advanced form up to
// MaxRecipients slots.
func headerLengths() []int {
	lengths := make([]int, 0, MaxRecipients+1)
	lengths = append(lengths, primitives.NonceSize)

	for n := 1; n <= MaxRecipients; n++ {
		lengths = append(lengths, primitives.KeySize*n)
	}

	return lengths
}

// BlindSearch tries every combination of header length, known identity, and
// auth-slot offset against buf (a prefix of the file containing the header
// followed by at least the start of block 0) until one combination's
// candidate key opens block 0's AEAD tag. It never learns, and never
// reports, which specific hypothesis failed: every failure looks identical
// to the caller, per §7's error-indistinguishability rule.
func BlindSearch(identities []Identity, buf []byte) (Found, error) {
	tryIdentities := append(append([]Identity{}, identities...), wideOpenIdentity())

	for _, hlen := range headerLengths() {
		if hlen > len(buf) {
			continue
		}

		found, ok := trySearchHeaderLen(tryIdentities, buf, hlen)
		if ok {
			return found, nil
		}
	}

	return Found{}, primitives.ErrAuthFail
}

func trySearchHeaderLen(identities []Identity, buf []byte, hlen int) (Found, bool) {
	header := buf[:hlen]
	rest := buf[hlen:]

	var nonce [primitives.NonceSize]byte
	copy(nonce[:], header[:primitives.NonceSize])

	var ephPK [primitives.ScalarSize]byte

	hasEph := hlen >= primitives.KeySize
	if hasEph {
		var rep [32]byte
		copy(rep[:], header[:primitives.KeySize])
		ephPK = primitives.ElligatorDecode(rep)
	}

	for _, id := range identities {
		candidates := candidateKeys(id, nonce, ephPK, hasEph)

		for _, k := range candidates {
			if key, end, ok := tryBlock0(k, nonce, header, rest); ok {
				return Found{Key: key, HeaderLen: hlen, Nonce: nonce, Block0Len: end}, true
			}

			if hlen <= primitives.KeySize {
				continue
			}

			for s := primitives.KeySize; s+primitives.KeySize <= hlen; s += primitives.KeySize {
				var slot, xored [primitives.KeySize]byte
				copy(slot[:], header[s:s+primitives.KeySize])

				for i := range xored {
					xored[i] = k[i] ^ slot[i]
				}

				if key, end, ok := tryBlock0(xored, nonce, header, rest); ok {
					return Found{Key: key, HeaderLen: hlen, Nonce: nonce, Block0Len: end}, true
				}
			}
		}
	}

	return Found{}, false
}

// candidateKeys computes the one key an identity could derive for this
// header, or nil if the identity's kind doesn't apply (a secret key against
// a header with no ephemeral slot, or a failed passphrase derivation).
func candidateKeys(id Identity, nonce [primitives.NonceSize]byte, ephPK [primitives.ScalarSize]byte, hasEph bool) [][primitives.KeySize]byte {
	if id.Passphrase == nil && id.SecretKey == nil {
		return [][primitives.KeySize]byte{{}}
	}

	if id.Passphrase != nil {
		key, err := derivePassphraseKey(id.Passphrase, nonce)
		if err != nil {
			return nil
		}

		return [][primitives.KeySize]byte{key}
	}

	if id.SecretKey != nil && hasEph {
		shared, err := primitives.X25519(*id.SecretKey, ephPK)
		if err != nil {
			return nil
		}

		h := primitives.SHA512(nonce[:], shared[:])

		var key [primitives.KeySize]byte
		copy(key[:], h[:primitives.KeySize])

		return [][primitives.KeySize]byte{key}
	}

	return nil
}

// tryBlock0 attempts to open block 0 of the chained stream with candidate
// key k, scanning end offsets up to blockProbeLimit bytes past the AEAD tag
// since nextlen is itself inside the still-unopened plaintext.
func tryBlock0(k [primitives.KeySize]byte, nonce [primitives.NonceSize]byte, aad []byte, rest []byte) ([primitives.KeySize]byte, int, bool) {
	limit := len(rest)
	if limit > blockProbeLimit+primitives.TagSize {
		limit = blockProbeLimit + primitives.TagSize
	}

	for end := primitives.TagSize; end <= limit; end++ {
		if _, err := primitives.Open(k[:], nonce[:], aad, rest[:end]); err == nil {
			return k, end, true
		}
	}

	return [primitives.KeySize]byte{}, 0, false
}

// wideOpenIdentity lets BlindSearch also recognize a wide-open (unauthenticated)
// file: its file key is always the all-zero key, independent of any
// passphrase or secret key the caller holds.
func wideOpenIdentity() Identity {
	return Identity{}
}
