// Package covert implements the Covert container format: a
// file-and-message encryptor whose ciphertext is indistinguishable from
// uniform random bytes. There are no magic numbers, no plaintext recipient
// identifiers, and no length leakage beyond a bounded random envelope. An
// archive carries one optional message and any number of attachments,
// optionally signed by one or more senders.
//
// You should not use this.
package covert

import "github.com/covert-im/covert/internal/primitives"

// KeySize is the length in bytes of an X25519 secret or public key.
const KeySize = primitives.ScalarSize

// DefaultPad is the padding proportion Encrypt uses when
// EncryptOptions.Pad is negative, per §4.4. A zero Pad disables padding.
const DefaultPad = 0.05

// DefaultBlockSize is the plaintext block size Encrypt uses absent an
// explicit override. It is well under the 16 MiB ceiling so that ordinary
// messages flow through a handful of blocks rather than one enormous one.
const DefaultBlockSize = 64 * 1024
