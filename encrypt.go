package covert

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/covert-im/covert/internal/archive"
	"github.com/covert-im/covert/internal/blockstream"
	"github.com/covert-im/covert/internal/header"
	"github.com/covert-im/covert/internal/primitives"
	"github.com/covert-im/covert/internal/sigblock"
)

// Attachment is one file carried by an archive's payload.
type Attachment struct {
	Name string
	Exec bool
	// Size is the attachment's length in bytes; leave it 0 and set
	// Streaming to encode it with the chunked, unknown-length framing of
	// §4.4 instead.
	Size      int64
	Streaming bool
	Body      io.Reader
}

// Plan is the content an Encrypt call seals: an optional plaintext
// message and zero or more attachments, carried in the order given.
type Plan struct {
	Message     []byte
	HasMessage  bool
	Attachments []Attachment
}

// EncryptOptions configures one Encrypt call.
type EncryptOptions struct {
	Recipients []Recipient
	WideOpen   bool
	// Fakes is the number of decoy recipient slots to add, hiding the
	// real recipient count. A file with a single passphrase recipient, or
	// a wide-open file, has no slots and ignores it.
	Fakes int
	// Pad is the padding proportion from §4.4; zero disables padding.
	// Negative values are treated as DefaultPad.
	Pad float64
	// BlockSize overrides DefaultBlockSize.
	BlockSize int
	// StreamChunkSize overrides the default chunk size used to frame
	// Streaming attachments; it has no bearing on block boundaries.
	StreamChunkSize int
	// Signers appends one 80-byte signature block per entry, each signing
	// the completed file's filehash.
	Signers []SecretKey
}

const defaultStreamChunkSize = 32 * 1024

// Encrypt writes a complete Covert file to dst: the negotiated header, the
// authenticated block stream carrying plan's archive, and any requested
// trailing signature blocks.
func Encrypt(dst io.Writer, rng io.Reader, opts EncryptOptions, plan Plan) error {
	if !opts.WideOpen && len(opts.Recipients) == 0 {
		return ErrNoRecipients
	}

	if opts.WideOpen && len(opts.Recipients) > 0 {
		return errors.New("covert: wide-open mode takes no recipients")
	}

	wireRecipients := make([]header.Recipient, len(opts.Recipients))
	for i, r := range opts.Recipients {
		wireRecipients[i] = r.wire
	}

	built, err := header.Build(rng, wireRecipients, opts.WideOpen, opts.Fakes)
	if err != nil {
		return mapHeaderError(err)
	}

	defer primitives.Zero(built.Key[:])

	if _, err := dst.Write(built.Bytes); err != nil {
		return err
	}

	archiveStream, err := buildArchiveStream(rng, opts, plan)
	if err != nil {
		return err
	}

	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}

	res, err := blockstream.Encode(dst, archiveStream, built.Key[:], built.Nonce, built.Bytes, blockSize)
	if err != nil {
		return err
	}

	for _, signer := range opts.Signers {
		block, err := sigblock.Sign(res.Filehash, [primitives.ScalarSize]byte(signer))
		if err != nil {
			return err
		}

		if _, err := dst.Write(block[:]); err != nil {
			return err
		}
	}

	return nil
}

// buildArchiveStream assembles the inner archive's index, payloads, and
// padding into a single lazily-read stream. Fixed-size entries are read
// directly from the caller's io.Reader by io.MultiReader, never buffered;
// only the small index itself is materialized up front.
func buildArchiveStream(rng io.Reader, opts EncryptOptions, plan Plan) (io.Reader, error) {
	entries := make([]archive.Entry, 0, len(plan.Attachments)+1)
	readers := make([]io.Reader, 0, len(plan.Attachments)+2)

	knownSize := 0

	if plan.HasMessage {
		entries = append(entries, archive.Entry{
			Size:      int64(len(plan.Message)),
			NameIsNil: true,
			Extra:     map[string]any{},
		})
		readers = append(readers, bytes.NewReader(plan.Message))
		knownSize += len(plan.Message)
	}

	chunkSize := opts.StreamChunkSize
	if chunkSize == 0 {
		chunkSize = defaultStreamChunkSize
	}

	for _, a := range plan.Attachments {
		entries = append(entries, archive.Entry{
			Size:      a.Size,
			Streaming: a.Streaming,
			Name:      a.Name,
			Exec:      a.Exec,
			Extra:     map[string]any{},
		})

		if a.Streaming {
			readers = append(readers, archive.NewStreamingPayloadReader(a.Body, chunkSize))
		} else {
			readers = append(readers, a.Body)
			knownSize += int(a.Size)
		}
	}

	var indexBuf bytes.Buffer
	if err := archive.EncodeIndex(&indexBuf, archive.Index{Entries: entries}); err != nil {
		return nil, err
	}

	knownSize += indexBuf.Len()

	padN, err := computePad(rng, opts.Pad, knownSize)
	if err != nil {
		return nil, err
	}

	padBuf := bytes.NewBuffer(nil)
	if err := archive.WritePad(padBuf, padN); err != nil {
		return nil, err
	}

	all := make([]io.Reader, 0, len(readers)+2)
	all = append(all, bytes.NewReader(indexBuf.Bytes()))
	all = append(all, readers...)
	all = append(all, padBuf)

	return io.MultiReader(all...), nil
}

func computePad(rng io.Reader, p float64, knownSize int) (int, error) {
	if p < 0 {
		p = DefaultPad
	}

	if p == 0 {
		return 0, nil
	}

	u1, err := randomUint32(rng)
	if err != nil {
		return 0, err
	}

	u2, err := randomUint32(rng)
	if err != nil {
		return 0, err
	}

	return archive.PadSize(knownSize, p, u1, u2), nil
}

func randomUint32(rng io.Reader) (uint32, error) {
	b, err := primitives.RandomBytes(rng, 4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

func mapHeaderError(err error) error {
	switch err {
	case header.ErrPasswordTooShort:
		return ErrPasswordTooShort
	case header.ErrTooManyRecipients:
		return ErrTooManyRecipients
	default:
		return err
	}
}
