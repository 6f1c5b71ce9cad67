// Package armor provides the ascii-armor text wrapper that sits outside
// Covert's binary core: unpadded URL-safe base64, optionally fenced in
// triple backticks for pasting into chat clients, and tolerant of the
// leading ">" quote marks those clients add on reply.
package armor

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/emersion/go-textwrapper"
)

const lineWidth = 76

const fence = "```"

// NewEncoder returns an io.WriteCloser which armors data before writing it
// to dst as unpadded URL-safe base64, wrapped at lineWidth characters. If
// fenced is true the output is additionally wrapped in a pair of
// triple-backtick lines, matching a copy-to-clipboard target.
func NewEncoder(dst io.Writer, fenced bool) io.WriteCloser {
	enc := base64.URLEncoding.WithPadding(base64.NoPadding)

	if !fenced {
		return base64.NewEncoder(enc, textwrapper.New(dst, "\n", lineWidth))
	}

	return &fencedEncoder{
		dst: dst,
		inner: base64.NewEncoder(enc, textwrapper.New(dst, "\n", lineWidth)),
	}
}

type fencedEncoder struct {
	dst     io.Writer
	inner   io.WriteCloser
	started bool
}

func (f *fencedEncoder) Write(p []byte) (int, error) {
	if !f.started {
		f.started = true

		if _, err := io.WriteString(f.dst, fence+"\n"); err != nil {
			return 0, err
		}
	}

	return f.inner.Write(p)
}

func (f *fencedEncoder) Close() error {
	if err := f.inner.Close(); err != nil {
		return err
	}

	_, err := io.WriteString(f.dst, "\n"+fence+"\n")

	return err
}

// NewDecoder returns an io.Reader which de-armors data after reading it
// from src, stripping a leading/trailing triple-backtick fence and any
// leading ">" quote marks on each line before base64-decoding, per §6.
func NewDecoder(src io.Reader) io.Reader {
	return base64.NewDecoder(base64.URLEncoding.WithPadding(base64.NoPadding), stripDecoration(src))
}

// stripDecoration removes backtick fence lines and leading quote marks,
// returning a reader over the remaining base64 text.
func stripDecoration(src io.Reader) io.Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out bytes.Buffer

	for scanner.Scan() {
		line := scanner.Text()

		trimmed := strings.TrimSpace(line)
		if trimmed == fence || strings.HasPrefix(trimmed, fence) {
			continue
		}

		for strings.HasPrefix(line, ">") {
			line = strings.TrimPrefix(line, ">")
			line = strings.TrimPrefix(line, " ")
		}

		out.WriteString(line)
	}

	return bytes.NewReader(out.Bytes())
}
