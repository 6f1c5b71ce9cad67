package archive

import (
	"bytes"
	"testing"

	"github.com/codahale/gubbins/assert"
	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeShortForm(t *testing.T) {
	t.Parallel()

	idx := Index{Entries: []Entry{{Size: 5, NameIsNil: true, Extra: map[string]any{}}}}

	buf := bytes.NewBuffer(nil)
	if err := EncodeIndex(buf, idx); err != nil {
		t.Fatal(err)
	}

	got, err := DecodeIndex(buf)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "entry count", 1, len(got.Entries))
	assert.Equal(t, "size", int64(5), got.Entries[0].Size)
	assert.Equal(t, "name is nil", true, got.Entries[0].NameIsNil)
}

func TestEncodeDecodeAdvancedForm(t *testing.T) {
	t.Parallel()

	idx := Index{Entries: []Entry{
		{Size: 2, NameIsNil: true, Extra: map[string]any{}},
		{Size: 3, Name: "a.txt", Extra: map[string]any{}},
	}}

	buf := bytes.NewBuffer(nil)
	if err := EncodeIndex(buf, idx); err != nil {
		t.Fatal(err)
	}

	buf.WriteString("hi") // message payload
	buf.WriteString("abc")

	got, err := DecodeIndex(buf)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "entry count", 2, len(got.Entries))
	assert.Equal(t, "attachment name", "a.txt", got.Entries[1].Name)

	rest := make([]byte, 5)
	if _, err := buf.Read(rest); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "remaining payload", "hiabc", string(rest))
}

func TestEncodeDecodeIndexWithExtraMeta(t *testing.T) {
	t.Parallel()

	idx := Index{Entries: []Entry{
		{Size: 4, NameIsNil: true, Extra: map[string]any{}},
		{Size: 6, Name: "notes.txt", Exec: true, Extra: map[string]any{"mtime": int64(1700000000)}},
	}}

	buf := bytes.NewBuffer(nil)
	if err := EncodeIndex(buf, idx); err != nil {
		t.Fatal(err)
	}

	buf.WriteString("hiya")
	buf.WriteString("notes!")

	got, err := DecodeIndex(buf)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(idx, got); diff != "" {
		t.Fatalf("index round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPathSeparatorRejected(t *testing.T) {
	t.Parallel()

	idx := Index{Entries: []Entry{
		{Size: 1, NameIsNil: true, Extra: map[string]any{}},
		{Size: 1, Name: "sub/dir.txt", Extra: map[string]any{}},
	}}

	buf := bytes.NewBuffer(nil)
	if err := EncodeIndex(buf, idx); err != nil {
		t.Fatal(err)
	}

	if _, err := DecodeIndex(buf); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestStreamingPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	src := bytes.NewBufferString("the quick brown fox jumps over the lazy dog")
	reader := NewStreamingPayloadReader(src, 7)

	dst := bytes.NewBuffer(nil)
	if err := ReadStreamingPayload(dst, reader); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "streamed payload", "the quick brown fox jumps over the lazy dog", dst.String())
}

func TestPadSizeDefaultFloor(t *testing.T) {
	t.Parallel()

	n := PadSize(1, 0.05, 0, 0)
	if n <= 0 {
		t.Fatalf("expected positive padding for a tiny message, got %d", n)
	}
}

func TestPadSizeZeroProportionDisablesPadding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "padding", 0, PadSize(1000, 0, 123, 456))
}

func TestWritePad(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	if err := WritePad(buf, 10); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "padded length", 10, buf.Len())

	for _, b := range buf.Bytes() {
		if b != 0xc0 {
			t.Fatalf("expected all-NIL padding, got byte %#x", b)
		}
	}
}
