package covert

import "github.com/covert-im/covert/internal/header"

// Recipient names an encryption target, built with either ToPublicKey or
// ToPassphrase.
type Recipient struct {
	wire header.Recipient
}

// ToPublicKey builds a Recipient addressed to pk; only the holder of the
// matching SecretKey can recover the file key.
func ToPublicKey(pk PublicKey) Recipient {
	k := [KeySize]byte(pk)

	return Recipient{wire: header.Recipient{PublicKey: &k}}
}

// ToPassphrase builds a Recipient addressed by a shared passphrase, which
// must NFKC-normalize to at least 8 UTF-8 bytes.
func ToPassphrase(passphrase []byte) Recipient {
	return Recipient{wire: header.Recipient{Passphrase: passphrase}}
}

// Identity names a credential a decrypting party holds, built with either
// FromSecretKey or FromPassphrase.
type Identity struct {
	wire header.Identity
}

// FromSecretKey builds an Identity from a holder's secret key.
func FromSecretKey(sk SecretKey) Identity {
	k := [KeySize]byte(sk)

	return Identity{wire: header.Identity{SecretKey: &k}}
}

// FromPassphrase builds an Identity from a shared passphrase.
func FromPassphrase(passphrase []byte) Identity {
	return Identity{wire: header.Identity{Passphrase: passphrase}}
}
