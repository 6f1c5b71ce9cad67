// Package blockstream segments a byte stream into chained, authenticated
// blocks and reassembles them on the way back. Each block's plaintext ends
// with a 3-byte little-endian length announcing the next block; a zero
// announcement terminates the stream. It is Covert's analogue of Rogaway's
// AEAD STREAM construction, adapted so the length prefix lives inside the
// authenticated plaintext instead of a final-block nonce flag.
package blockstream

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/covert-im/covert/internal/primitives"
)

// MaxBlockSize is the largest plaintext length a single block may carry.
const MaxBlockSize = 1<<24 - 1

// nextLenSize is the width in bytes of the trailing length announcement.
const nextLenSize = 3

// ErrBlockTooLarge is returned when a caller asks Encode to use a block
// size exceeding MaxBlockSize.
var ErrBlockTooLarge = errors.New("covert: block size exceeds 2^24-1")

// Result carries the filehash produced by a full encode or decode pass: the
// running SHA-512 chain over the stream's Poly1305 tags, per §3's signing
// hash definition.
type Result struct {
	Filehash [64]byte
}

// Encode reads src to exhaustion, chunking it into blocks of at most
// blockSize plaintext bytes, sealing each under key with a nonce derived by
// incrementing fileNonce, and writing the ciphertext blocks to dst. Block 0
// carries at most 1021 data bytes whatever blockSize is. header is used as
// associated data for block 0 only, per §4.3.
func Encode(dst io.Writer, src io.Reader, key []byte, fileNonce [primitives.NonceSize]byte, header []byte, blockSize int) (Result, error) {
	if blockSize <= 0 || blockSize > MaxBlockSize {
		return Result{}, ErrBlockTooLarge
	}

	cur := make([]byte, blockSize)

	// Block 0's plaintext (data plus nextlen) is kept within 1 KiB, the
	// window the header layer's blind search probes for block 0's tag.
	first := blockSize
	if first > 1024-nextLenSize {
		first = 1024 - nextLenSize
	}

	curLen, err := readChunk(src, cur[:first])
	if err != nil {
		return Result{}, err
	}

	h := primitives.SHA512()
	nonce := fileNonce
	aad := header
	plaintext := make([]byte, 0, blockSize+nextLenSize)
	ct := make([]byte, 0, blockSize+nextLenSize+primitives.TagSize)

	for {
		next := make([]byte, blockSize)

		nextLen, err := readChunk(src, next)
		if err != nil {
			return Result{}, err
		}

		plaintext = append(plaintext[:0], cur[:curLen]...)
		plaintext = appendNextLen(plaintext, nextLen)

		ct = primitives.SealInto(ct[:0], key, nonce[:], aad, plaintext)
		if _, err := dst.Write(ct); err != nil {
			return Result{}, err
		}

		tag := ct[len(ct)-primitives.TagSize:]
		h = primitives.SHA512(h[:], tag)

		if nextLen == 0 {
			return Result{Filehash: h}, nil
		}

		aad = nil
		nonce = incrementNonce(nonce)
		cur, curLen = next, nextLen
	}
}

// Decode reads sequential blocks from src and writes their concatenated
// plaintext to dst. block0Len is the exact ciphertext-plus-tag length of
// block 0, normally discovered by the header layer's blind search before
// Decode is ever called.
func Decode(dst io.Writer, src io.Reader, key []byte, fileNonce [primitives.NonceSize]byte, header []byte, block0Len int) (Result, error) {
	h := primitives.SHA512()
	nonce := fileNonce
	aad := header
	ctLen := block0Len

	for {
		ct := make([]byte, ctLen)
		if _, err := io.ReadFull(src, ct); err != nil {
			return Result{}, primitives.ErrAuthFail
		}

		pt, err := primitives.Open(key, nonce[:], aad, ct)
		if err != nil {
			return Result{}, primitives.ErrAuthFail
		}

		tag := ct[len(ct)-primitives.TagSize:]
		h = primitives.SHA512(h[:], tag)

		if len(pt) < nextLenSize {
			return Result{}, primitives.ErrAuthFail
		}

		nextLen := readNextLen(pt[len(pt)-nextLenSize:])
		data := pt[:len(pt)-nextLenSize]

		if len(data) > 0 {
			if _, err := dst.Write(data); err != nil {
				return Result{}, err
			}
		}

		if nextLen == 0 {
			return Result{Filehash: h}, nil
		}

		aad = nil
		nonce = incrementNonce(nonce)
		ctLen = nextLen + nextLenSize + primitives.TagSize
	}
}

// readChunk fills buf as far as possible from r, returning the number of
// bytes actually read. EOF and ErrUnexpectedEOF are not errors here: a
// short read simply means this is the stream's final chunk.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, nil
		}

		return n, err
	}

	return n, nil
}

func appendNextLen(plaintext []byte, n int) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))

	return append(plaintext, b[:nextLenSize]...)
}

func readNextLen(b []byte) int {
	var full [4]byte
	copy(full[:nextLenSize], b)

	return int(binary.LittleEndian.Uint32(full[:]))
}

// incrementNonce adds one to fileNonce interpreted as a 96-bit
// little-endian counter, per §3's block-nonce definition.
func incrementNonce(nonce [primitives.NonceSize]byte) [primitives.NonceSize]byte {
	for i := range nonce {
		nonce[i]++
		if nonce[i] != 0 {
			break
		}
	}

	return nonce
}
