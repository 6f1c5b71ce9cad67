package covert

import (
	"bytes"
	"errors"
	"io"

	"github.com/covert-im/covert/internal/archive"
	"github.com/covert-im/covert/internal/blockstream"
	"github.com/covert-im/covert/internal/header"
	"github.com/covert-im/covert/internal/primitives"
)

// maxPrefixBytes bounds how much of the file's start Decrypt buffers
// before running the blind header search: the longest possible header (640
// bytes, per §4.2) plus the widest block-0 probe window the search tries.
const maxPrefixBytes = header.MaxRecipients*32 + 1024 + 16

// AttachmentInfo describes one attachment as Decrypt discovers it in the
// archive index, before its payload bytes are copied.
type AttachmentInfo struct {
	Name      string
	Exec      bool
	Size      int64
	Streaming bool
	Extra     map[string]any
}

// Sink receives the pieces of a decrypted archive. Message may be nil to
// discard the message text. Attachment may be nil to discard every
// attachment; when non-nil it is called once per attachment and may itself
// return a nil io.Writer to discard that one attachment while still
// accepting others.
type Sink struct {
	Message    io.Writer
	Attachment func(AttachmentInfo) (io.Writer, error)
}

// Decrypt recovers the file key by blind search over identities, verifies
// and reassembles the block stream, and dispatches the inner archive's
// message and attachments to sink. It returns the filehash, which callers
// wishing to verify a trailing signature block pass to VerifySignature, and
// a reader positioned just past the block stream's terminating block, from
// which any appended SignatureBlocks can be read with ReadSignatureBlocks.
func Decrypt(src io.Reader, identities []Identity, sink Sink) ([64]byte, io.Reader, error) {
	wireIdentities := make([]header.Identity, len(identities))
	for i, id := range identities {
		wireIdentities[i] = id.wire
	}

	prefix := make([]byte, maxPrefixBytes)

	n, err := io.ReadFull(src, prefix)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return [64]byte{}, nil, err
	}

	prefix = prefix[:n]

	found, err := header.BlindSearch(wireIdentities, prefix)
	if err != nil {
		return [64]byte{}, nil, ErrAuthFail
	}

	defer primitives.Zero(found.Key[:])

	rest := io.MultiReader(bytes.NewReader(prefix[found.HeaderLen:]), src)

	var inner bytes.Buffer

	res, err := blockstream.Decode(&inner, rest, found.Key[:], found.Nonce, prefix[:found.HeaderLen], found.Block0Len)
	if err != nil {
		return [64]byte{}, nil, err
	}

	if err := decodeArchive(&inner, sink); err != nil {
		return res.Filehash, rest, err
	}

	return res.Filehash, rest, nil
}

func decodeArchive(inner *bytes.Buffer, sink Sink) error {
	idx, err := archive.DecodeIndex(inner)
	if err != nil {
		return mapArchiveError(err)
	}

	for _, e := range idx.Entries {
		w := io.Writer(io.Discard)

		if e.NameIsNil {
			if sink.Message != nil {
				w = sink.Message
			}
		} else if sink.Attachment != nil {
			aw, err := sink.Attachment(AttachmentInfo{
				Name:      e.Name,
				Exec:      e.Exec,
				Size:      e.Size,
				Streaming: e.Streaming,
				Extra:     e.Extra,
			})
			if err != nil {
				return err
			}

			if aw != nil {
				w = aw
			}
		}

		if err := copyEntry(inner, w, e); err != nil {
			return mapArchiveError(err)
		}
	}

	return nil
}

func copyEntry(r io.Reader, w io.Writer, e archive.Entry) error {
	if e.Streaming {
		return archive.ReadStreamingPayload(w, r)
	}

	_, err := io.CopyN(w, r, e.Size)

	return err
}

func mapArchiveError(err error) error {
	switch err {
	case archive.ErrFormat, archive.ErrInvalidName, io.EOF, io.ErrUnexpectedEOF:
		return ErrFormat
	default:
		return err
	}
}
