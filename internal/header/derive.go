package header

import "github.com/covert-im/covert/internal/primitives"

// passphraseSalt is the fixed Argon2id salt for the first, passphrase-only
// stretching stage. It does not need to be secret or random: its only job
// is to separate this KDF's domain from any other use of Argon2id, per
// §4.1's two-stage derivation.
var passphraseSalt = []byte("covertpassphrase")

// derivePassphraseKey implements the two-stage Argon2id construction: the
// passphrase is stretched once with a fixed salt and a cost scaled inversely
// to its length, then the file nonce is stretched again using that stretched
// passphrase as the salt. Swapping which input plays "password" and which
// plays "salt" between the two stages means a short, typeable passphrase
// still costs real time to attack, while the final key depends on the
// per-file nonce so two files never share a key even with one passphrase.
func derivePassphraseKey(passphrase []byte, nonce [primitives.NonceSize]byte) ([primitives.KeySize]byte, error) {
	var key [primitives.KeySize]byte

	pw := normalizePassphrase(passphrase)
	if len(pw) < 8 {
		return key, ErrPasswordTooShort
	}

	timeCost1 := stage1Cost(len(pw))

	stretched := primitives.Argon2id(pw, passphraseSalt, timeCost1, 16)

	out := primitives.Argon2id(nonce[:], stretched, 2, primitives.KeySize)
	copy(key[:], out)

	return key, nil
}

// stage1Cost scales the first Argon2id stage's time cost up as the
// passphrase shrinks, so a short passphrase's lower entropy is offset by a
// higher work factor, per §4.1.
func stage1Cost(length int) uint32 {
	shift := 12 - length
	if shift < 0 {
		shift = 0
	}

	return 8 << uint32(shift)
}
