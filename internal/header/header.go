// Package header implements the Covert cryptographic header: recipient key
// derivation, auth-slot layout, and the short/advanced prefix shapes
// described in §4.2. It derives the file key exactly once per file and
// never mutates it afterward.
package header

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"github.com/covert-im/covert/internal/primitives"
	"golang.org/x/text/unicode/norm"
)

// MaxRecipients is the maximum number of real and decoy recipients a single
// file's header may name, per §4.2.
const MaxRecipients = 20

// ErrTooManyRecipients is returned when the deduplicated recipient count
// plus requested decoys exceeds MaxRecipients.
var ErrTooManyRecipients = errors.New("covert: more than 20 recipients")

// ErrPasswordTooShort is returned when a passphrase recipient or identity
// normalizes to fewer than 8 UTF-8 bytes.
var ErrPasswordTooShort = errors.New("covert: passphrase must be at least 8 bytes")

// Recipient names an encryption target: either a passphrase or an X25519
// public key. Exactly one of the two fields is set.
type Recipient struct {
	Passphrase []byte
	PublicKey  *[primitives.ScalarSize]byte
}

func (r Recipient) identity() string {
	if r.PublicKey != nil {
		return "pk:" + string(r.PublicKey[:])
	}

	return "pw:" + string(normalizePassphrase(r.Passphrase))
}

// normalizePassphrase NFKC-normalizes and UTF-8 encodes a passphrase, per
// §6's text normalization rules.
func normalizePassphrase(pw []byte) []byte {
	return norm.NFKC.Bytes(pw)
}

// Built is the result of negotiating a header: the bytes to prepend to the
// file, the derived file key, and the file nonce (the first 12 bytes of
// Bytes).
type Built struct {
	Bytes []byte
	Key   [primitives.KeySize]byte
	Nonce [primitives.NonceSize]byte
}

// Build negotiates and encodes a Covert header for the given recipients.
// wideOpen forces the no-authentication mode (Key is all zero); it is
// mutually exclusive with a non-empty recipients slice, enforced by the
// caller. fakes is the number of random decoy recipient slots to add; it
// applies only to the advanced form, since the short and wide-open forms
// carry no slots and ignore it.
func Build(rng io.Reader, recipients []Recipient, wideOpen bool, fakes int) (Built, error) {
	if wideOpen {
		return buildWideOpen(rng)
	}

	recipients = dedupByIdentity(recipients)

	if len(recipients) == 1 && recipients[0].PublicKey == nil {
		return buildShort(rng, recipients[0].Passphrase)
	}

	return buildAdvanced(rng, recipients, fakes)
}

func buildWideOpen(rng io.Reader) (Built, error) {
	nonce, err := randomNonce(rng)
	if err != nil {
		return Built{}, err
	}

	return Built{Bytes: nonce[:], Nonce: nonce}, nil
}

func buildShort(rng io.Reader, passphrase []byte) (Built, error) {
	nonce, err := randomNonce(rng)
	if err != nil {
		return Built{}, err
	}

	key, err := derivePassphraseKey(passphrase, nonce)
	if err != nil {
		return Built{}, err
	}

	return Built{Bytes: nonce[:], Key: key, Nonce: nonce}, nil
}

func buildAdvanced(rng io.Reader, recipients []Recipient, fakes int) (Built, error) {
	needsEph := false

	for _, r := range recipients {
		if r.PublicKey != nil {
			needsEph = true
		}
	}

	slot0, ephSK, err := buildSlotZero(rng, needsEph)
	if err != nil {
		return Built{}, err
	}

	defer primitives.Zero(ephSK[:])

	var nonce [primitives.NonceSize]byte
	copy(nonce[:], slot0[:primitives.NonceSize])

	candidates := make([]keyedCandidate, 0, len(recipients))

	for _, r := range recipients {
		var k [primitives.KeySize]byte

		if r.PublicKey != nil {
			shared, err := primitives.X25519(ephSK, *r.PublicKey)
			if err != nil {
				return Built{}, err
			}

			h := primitives.SHA512(nonce[:], shared[:])
			copy(k[:], h[:primitives.KeySize])
		} else {
			k, err = derivePassphraseKey(r.Passphrase, nonce)
			if err != nil {
				return Built{}, err
			}
		}

		candidates = append(candidates, keyedCandidate{key: k})
	}

	candidates = dedupByKeySlice(candidates)

	total := len(candidates) + fakes
	if total > MaxRecipients {
		return Built{}, ErrTooManyRecipients
	}

	fileKey := candidates[0].key

	slots := make([][primitives.KeySize]byte, 0, total-1)

	for _, c := range candidates[1:] {
		var auth [primitives.KeySize]byte
		xor(auth[:], fileKey[:], c.key[:])
		slots = append(slots, auth)
	}

	for i := 0; i < fakes; i++ {
		decoy, err := primitives.RandomBytes(rng, primitives.KeySize)
		if err != nil {
			return Built{}, err
		}

		var d [primitives.KeySize]byte
		copy(d[:], decoy)
		slots = append(slots, d)
	}

	if err := shuffleSlots(rng, slots); err != nil {
		return Built{}, err
	}

	out := make([]byte, 0, primitives.KeySize*(1+len(slots)))
	out = append(out, slot0[:]...)

	for _, s := range slots {
		out = append(out, s[:]...)
	}

	return Built{Bytes: out, Key: fileKey, Nonce: nonce}, nil
}

// buildSlotZero returns the header's first 32 bytes: a real Elligator2
// ephash if an ephemeral key pair is needed, or pure random filler
// otherwise. Either way its first 12 bytes become the file nonce.
//
// The ephash hides a dirtied copy of the ephemeral public key, not the
// clean one: DirtyPublicFromScalar adds a random torsion component so the
// hidden point doesn't always reduce to the identity under cofactor
// clearing, which would otherwise mark every real ephash as distinguishable
// from 32 random bytes. ephSK itself is the plain clamped scalar and is
// used unmodified for every subsequent X25519 call, since a recipient's own
// clamped scalar always cancels the added torsion.
func buildSlotZero(rng io.Reader, needsEph bool) (slot0 [primitives.KeySize]byte, ephSK [primitives.ScalarSize]byte, err error) {
	if !needsEph {
		b, err := primitives.RandomBytes(rng, primitives.KeySize)
		if err != nil {
			return slot0, ephSK, err
		}

		copy(slot0[:], b)

		return slot0, ephSK, nil
	}

	for {
		sk, err := primitives.GenerateScalar(rng)
		if err != nil {
			return slot0, ephSK, err
		}

		dirtyPub, err := primitives.DirtyPublicFromScalar(rng, sk)
		if err != nil {
			return slot0, ephSK, err
		}

		tweak, err := primitives.RandomBytes(rng, 1)
		if err != nil {
			return slot0, ephSK, err
		}

		rep, ok := primitives.ElligatorEncode(dirtyPub, tweak[0])
		if !ok {
			continue
		}

		return rep, sk, nil
	}
}

func randomNonce(rng io.Reader) ([primitives.NonceSize]byte, error) {
	var nonce [primitives.NonceSize]byte

	b, err := primitives.RandomBytes(rng, primitives.NonceSize)
	if err != nil {
		return nonce, err
	}

	copy(nonce[:], b)

	return nonce, nil
}

func xor(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

func dedupByIdentity(recipients []Recipient) []Recipient {
	seen := make(map[string]struct{}, len(recipients))
	out := make([]Recipient, 0, len(recipients))

	for _, r := range recipients {
		id := r.identity()
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, r)
	}

	return out
}

type keyedCandidate struct {
	key [primitives.KeySize]byte
}

func dedupByKeySlice(in []keyedCandidate) []keyedCandidate {
	seen := make(map[[primitives.KeySize]byte]struct{}, len(in))
	out := make([]keyedCandidate, 0, len(in))

	for _, c := range in {
		if _, ok := seen[c.key]; ok {
			continue
		}

		seen[c.key] = struct{}{}
		out = append(out, c)
	}

	return out
}

// shuffleSlots performs a Fisher-Yates shuffle of the auth/decoy slots using
// the given CSPRNG, following the same approach the teacher repo uses for
// fake recipient insertion.
func shuffleSlots(rng io.Reader, slots [][primitives.KeySize]byte) error {
	for i := len(slots) - 1; i > 0; i-- {
		j, err := randomIndex(rng, i+1)
		if err != nil {
			return err
		}

		slots[i], slots[j] = slots[j], slots[i]
	}

	return nil
}

func randomIndex(rng io.Reader, n int) (int, error) {
	b, err := rand.Int(rng, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}

	return int(b.Int64()), nil
}
