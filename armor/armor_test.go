package armor

import (
	"bytes"
	"io"
	"testing"

	"github.com/codahale/gubbins/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	plaintext := bytes.Repeat([]byte{0x13, 0x37}, 100)

	buf := bytes.NewBuffer(nil)
	enc := NewEncoder(buf, false)

	if _, err := enc.Write(plaintext); err != nil {
		t.Fatal(err)
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	decoded, err := io.ReadAll(NewDecoder(buf))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "decoded bytes", plaintext, decoded)
}

func TestFencedRoundTrip(t *testing.T) {
	t.Parallel()

	plaintext := []byte("a covert message")

	buf := bytes.NewBuffer(nil)
	enc := NewEncoder(buf, true)

	if _, err := enc.Write(plaintext); err != nil {
		t.Fatal(err)
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	decoded, err := io.ReadAll(NewDecoder(buf))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "decoded bytes", plaintext, decoded)
}

func TestDecodeStripsQuoteMarks(t *testing.T) {
	t.Parallel()

	plaintext := []byte("quoted reply body")

	buf := bytes.NewBuffer(nil)
	enc := NewEncoder(buf, false)

	if _, err := enc.Write(plaintext); err != nil {
		t.Fatal(err)
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	quoted := bytes.NewBuffer(nil)

	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		quoted.WriteString("> ")
		quoted.Write(line)
		quoted.WriteByte('\n')
	}

	decoded, err := io.ReadAll(NewDecoder(quoted))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "decoded bytes", plaintext, decoded)
}
