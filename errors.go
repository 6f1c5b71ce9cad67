package covert

import (
	"errors"

	"github.com/covert-im/covert/internal/primitives"
)

// ErrAuthFail is returned for any Poly1305 tag mismatch, exhaustion of the
// header's blind-search candidates, or a failed signature verification.
// Per §7, these are deliberately indistinguishable: telling a caller "wrong
// key" from "truncated file" from "tampered ciphertext" would itself leak
// information to an attacker.
var ErrAuthFail = primitives.ErrAuthFail

// ErrFormat is returned when a byte stream is structurally invalid: a
// framing field out of range, a forbidden MessagePack type, an unrecognized
// reserved index key, or a premature end of the block stream.
var ErrFormat = errors.New("covert: malformed archive")

// ErrPasswordTooShort is returned by Encrypt, before that passphrase is
// hashed, when a passphrase recipient is under 8 UTF-8 bytes. A passphrase
// identity that short never matches, and Decrypt reports ErrAuthFail.
var ErrPasswordTooShort = errors.New("covert: passphrase must be at least 8 bytes")

// ErrNoRecipients is returned by Encrypt when called with no recipients and
// without wide-open mode.
var ErrNoRecipients = errors.New("covert: no recipients and not wide-open")

// ErrUnsupportedVersion is reserved for a future versioned envelope; the
// current format has no version byte and never raises this.
var ErrUnsupportedVersion = errors.New("covert: unsupported envelope version")

// ErrTooManyRecipients is returned when more than 20 recipients (including
// decoys) are requested for a single file, per §4.2.
var ErrTooManyRecipients = errors.New("covert: more than 20 recipients")
