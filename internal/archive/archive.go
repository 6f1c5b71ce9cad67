// Package archive implements Covert's inner container: a MessagePack index
// describing a message and any attachments, their concatenated payloads,
// and a trailing run of random padding. It is framed independently of the
// outer authenticated block stream, which simply carries its bytes.
//
// Encoding uses vmihailenco/msgpack directly: each value is a single,
// self-contained write with no look-ahead. Decoding cannot use the same
// library's Decoder here, because the index and the streaming-payload
// length prefixes are interleaved with raw, non-MessagePack attachment
// bytes on the wire; a buffering decoder would read past the value it was
// asked for and swallow payload bytes it has no way to give back. Decoding
// therefore walks the MessagePack wire format by hand, one byte at a time,
// from the same io.Reader the raw payload bytes are read from.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/unicode/norm"
)

// ErrFormat is returned for any structurally invalid archive: a forbidden
// MessagePack type where an index or size was expected, an unrecognized
// reserved meta key, or a streaming chunk claiming more bytes than remain.
var ErrFormat = errors.New("covert: malformed archive")

// ErrInvalidName is returned when an attachment's name contains a path
// separator; attached file names are leaves, never paths.
var ErrInvalidName = errors.New("covert: attachment name must not contain a path separator")

// Entry describes one archive member: the plaintext message (NameIsNil
// true) or one named attachment.
type Entry struct {
	// Size is the payload length; Streaming true means the length is
	// unknown up front and the payload is chunk-framed instead.
	Size      int64
	Streaming bool
	NameIsNil bool
	Name      string
	Exec      bool
	// Extra carries unrecognized multi-character meta keys verbatim, so a
	// round trip through this package never drops user extensions.
	Extra map[string]any
}

// Index is the decoded form of an archive's MessagePack map: the single
// reserved "f" key names the message/attachment sequence.
type Index struct {
	Entries []Entry
}

// EncodeIndex writes an archive's short or advanced form, per §4.4: a lone
// entry whose name is nil and whose size is known, with no meta, encodes as
// the bare integer short form; anything else encodes as the advanced map
// form.
func EncodeIndex(w io.Writer, idx Index) error {
	if len(idx.Entries) == 1 {
		e := idx.Entries[0]
		if e.NameIsNil && !e.Streaming && !e.Exec && len(e.Extra) == 0 {
			return msgpack.NewEncoder(w).EncodeInt(e.Size)
		}
	}

	enc := msgpack.NewEncoder(w)

	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}

	if err := enc.EncodeString("f"); err != nil {
		return err
	}

	if err := enc.EncodeArrayLen(len(idx.Entries)); err != nil {
		return err
	}

	for _, e := range idx.Entries {
		if err := encodeEntry(enc, e); err != nil {
			return err
		}
	}

	return nil
}

func encodeEntry(enc *msgpack.Encoder, e Entry) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}

	if e.Streaming {
		if err := enc.EncodeNil(); err != nil {
			return err
		}
	} else if err := enc.EncodeInt(e.Size); err != nil {
		return err
	}

	if e.NameIsNil {
		if err := enc.EncodeNil(); err != nil {
			return err
		}
	} else if err := enc.EncodeString(normalizeName(e.Name)); err != nil {
		return err
	}

	meta := make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		meta[k] = v
	}

	if e.Exec {
		meta["x"] = true
	}

	if err := enc.EncodeMapLen(len(meta)); err != nil {
		return err
	}

	for k, v := range meta {
		if err := enc.EncodeString(k); err != nil {
			return err
		}

		if err := enc.Encode(v); err != nil {
			return err
		}
	}

	return nil
}

func normalizeName(name string) string {
	return norm.NFKC.String(name)
}

func validateName(name string) error {
	for _, r := range name {
		if r == '/' || r == '\\' {
			return ErrInvalidName
		}
	}

	return nil
}

// DecodeIndex reads one archive index directly from r, dispatching on the
// type of the first decoded MessagePack value per §4.4. It never buffers
// beyond the index's own bytes, so r is left positioned exactly at the
// start of the payload.
func DecodeIndex(r io.Reader) (Index, error) {
	v, err := readValue(r)
	if err != nil {
		return Index{}, err
	}

	switch t := v.(type) {
	case int64:
		return Index{Entries: []Entry{{Size: t, NameIsNil: true, Extra: map[string]any{}}}}, nil
	case nilValue:
		return Index{}, ErrFormat
	case map[string]any:
		rawEntries, ok := t["f"]
		if !ok {
			return Index{}, ErrFormat
		}

		entries, err := decodeEntries(rawEntries)
		if err != nil {
			return Index{}, err
		}

		return Index{Entries: entries}, nil
	default:
		return Index{}, ErrFormat
	}
}

func decodeEntries(raw any) ([]Entry, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, ErrFormat
	}

	out := make([]Entry, 0, len(list))

	for _, item := range list {
		fields, ok := item.([]any)
		if !ok || len(fields) != 3 {
			return nil, ErrFormat
		}

		e, err := decodeEntry(fields)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, nil
}

func decodeEntry(fields []any) (Entry, error) {
	e := Entry{Extra: map[string]any{}}

	switch s := fields[0].(type) {
	case nilValue:
		e.Streaming = true
	case int64:
		e.Size = s
	default:
		return Entry{}, ErrFormat
	}

	switch n := fields[1].(type) {
	case nilValue:
		e.NameIsNil = true
	case string:
		name := normalizeName(n)
		if err := validateName(name); err != nil {
			return Entry{}, err
		}

		e.Name = name
	default:
		return Entry{}, ErrFormat
	}

	meta, ok := fields[2].(map[string]any)
	if !ok {
		return Entry{}, ErrFormat
	}

	for k, v := range meta {
		switch k {
		case "x":
			exec, ok := v.(bool)
			if !ok {
				return Entry{}, ErrFormat
			}

			e.Exec = exec
		default:
			if len(k) == 1 {
				return Entry{}, ErrFormat
			}

			e.Extra[k] = v
		}
	}

	return e, nil
}

// NewStreamingPayloadReader wraps src in a pull-based adapter that lazily
// emits a streaming payload's wire framing: a length-prefixed chunk at a
// time, read on demand so it can be composed into an io.MultiReader without
// buffering the whole attachment up front, per §4.4's streaming payload
// encoding.
func NewStreamingPayloadReader(src io.Reader, chunkSize int) io.Reader {
	return &streamingPayloadReader{src: src, chunkSize: chunkSize}
}

type streamingPayloadReader struct {
	src       io.Reader
	chunkSize int
	buf       []byte
	done      bool
}

func (r *streamingPayloadReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.done {
			return 0, io.EOF
		}

		chunk := make([]byte, r.chunkSize)

		n, err := io.ReadFull(r.src, chunk)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, err
		}

		var frame bytes.Buffer

		if err := msgpack.NewEncoder(&frame).EncodeInt(int64(n)); err != nil {
			return 0, err
		}

		frame.Write(chunk[:n])

		if n < r.chunkSize {
			r.done = true

			// A short read ends the source; a non-empty final chunk is
			// followed by the zero-length chunk that terminates the payload.
			if n > 0 {
				if err := msgpack.NewEncoder(&frame).EncodeInt(0); err != nil {
					return 0, err
				}
			}
		}

		r.buf = frame.Bytes()
	}

	copied := copy(p, r.buf)
	r.buf = r.buf[copied:]

	return copied, nil
}

// ReadStreamingPayload reconstructs a streaming payload written by a
// streamingPayloadReader, reading the interleaved length prefixes and raw
// bytes directly from r.
func ReadStreamingPayload(w io.Writer, r io.Reader) error {
	for {
		v, err := readValue(r)
		if err != nil {
			return ErrFormat
		}

		n, ok := v.(int64)
		if !ok || n < 0 {
			return ErrFormat
		}

		if n == 0 {
			return nil
		}

		if _, err := io.CopyN(w, r, n); err != nil {
			return ErrFormat
		}
	}
}

// PadSize computes the total padding length for an archive of s
// non-padding bytes at proportion p, per §4.4's fixed-plus-random formula.
// u1 and u2 are fresh uniform uint32 draws supplied by the caller so the
// function stays deterministic for testing.
func PadSize(s int, p float64, u1, u2 uint32) int {
	if p <= 0 {
		return 0
	}

	fixed := int(math.Floor(p*500)) - s
	if fixed < 0 {
		fixed = 0
	}

	eff := 200 + 1e8*math.Log(1+1e-8*float64(s+fixed))

	u := float64(u1) + float64(u2)*math.Pow(2, -32) + math.Pow(2, -33)
	r := math.Log(math.Pow(2, 32)) - math.Log(u)

	randomPad := int(math.Round(r * p * eff))
	if randomPad < 0 {
		randomPad = 0
	}

	return fixed + randomPad
}

// WritePad appends n bytes of MessagePack NIL (0xC0) padding to w.
func WritePad(w io.Writer, n int) error {
	if n <= 0 {
		return nil
	}

	_, err := w.Write(bytes.Repeat([]byte{0xc0}, n))

	return err
}

// nilValue distinguishes a decoded MessagePack NIL from a Go nil interface,
// so callers can tell "absent" from "present but typed nil."
type nilValue struct{}

// readValue decodes exactly one MessagePack value from r, reading no more
// bytes than that value occupies on the wire. It supports the subset of
// the format Covert's index and framing actually use: nil, bool, signed and
// unsigned integers, strings, arrays, and string-keyed maps.
func readValue(r io.Reader) (any, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, err
	}

	b := tag[0]

	switch {
	case b <= 0x7f:
		return int64(b), nil
	case b >= 0xe0:
		return int64(int8(b)), nil
	case b&0xf0 == 0x80:
		return readMap(r, int(b&0x0f))
	case b&0xf0 == 0x90:
		return readArray(r, int(b&0x0f))
	case b&0xe0 == 0xa0:
		return readString(r, int(b&0x1f))
	}

	switch b {
	case 0xc0:
		return nilValue{}, nil
	case 0xc2:
		return false, nil
	case 0xc3:
		return true, nil
	case 0xcc:
		v, err := readUint(r, 1)
		return int64(v), err
	case 0xcd:
		v, err := readUint(r, 2)
		return int64(v), err
	case 0xce:
		v, err := readUint(r, 4)
		return int64(v), err
	case 0xcf:
		v, err := readUint(r, 8)
		return int64(v), err
	case 0xd0:
		v, err := readUint(r, 1)
		return int64(int8(v)), err
	case 0xd1:
		v, err := readUint(r, 2)
		return int64(int16(v)), err
	case 0xd2:
		v, err := readUint(r, 4)
		return int64(int32(v)), err
	case 0xd3:
		v, err := readUint(r, 8)
		return int64(v), err
	case 0xd9:
		n, err := readUint(r, 1)
		if err != nil {
			return nil, err
		}

		return readString(r, int(n))
	case 0xda:
		n, err := readUint(r, 2)
		if err != nil {
			return nil, err
		}

		return readString(r, int(n))
	case 0xdb:
		n, err := readUint(r, 4)
		if err != nil {
			return nil, err
		}

		return readString(r, int(n))
	case 0xdc:
		n, err := readUint(r, 2)
		if err != nil {
			return nil, err
		}

		return readArray(r, int(n))
	case 0xdd:
		n, err := readUint(r, 4)
		if err != nil {
			return nil, err
		}

		return readArray(r, int(n))
	case 0xde:
		n, err := readUint(r, 2)
		if err != nil {
			return nil, err
		}

		return readMap(r, int(n))
	case 0xdf:
		n, err := readUint(r, 4)
		if err != nil {
			return nil, err
		}

		return readMap(r, int(n))
	}

	return nil, ErrFormat
}

func readUint(r io.Reader, n int) (uint64, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}

	switch n {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf)), nil
	default:
		return binary.BigEndian.Uint64(buf), nil
	}
}

func readString(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

func readArray(r io.Reader, n int) ([]any, error) {
	out := make([]any, n)

	for i := range out {
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func readMap(r io.Reader, n int) (map[string]any, error) {
	out := make(map[string]any, n)

	for i := 0; i < n; i++ {
		k, err := readValue(r)
		if err != nil {
			return nil, err
		}

		key, ok := k.(string)
		if !ok {
			return nil, ErrFormat
		}

		v, err := readValue(r)
		if err != nil {
			return nil, err
		}

		out[key] = v
	}

	return out, nil
}
