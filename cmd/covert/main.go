package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/covert-im/covert"
	"github.com/covert-im/covert/armor"
	"golang.org/x/term"
)

type cli struct {
	KeyGen  keyGenCmd  `cmd:"" help:"Generate a new secret key."`
	Encrypt encryptCmd `cmd:"" help:"Encrypt a message for a set of recipients."`
	Decrypt decryptCmd `cmd:"" help:"Decrypt a message."`
	Sign    signCmd    `cmd:"" help:"Create a detached signature for a file."`
	Verify  verifyCmd  `cmd:"" help:"Verify a detached signature for a file."`
}

func main() {
	var cli cli

	ctx := kong.Parse(&cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func decodePublicKeys(args []string) ([]covert.PublicKey, error) {
	keys := make([]covert.PublicKey, len(args))

	for i, a := range args {
		pk, err := covert.ParsePublicKey(a)
		if err != nil {
			return nil, err
		}

		keys[i] = pk
	}

	return keys, nil
}

func decodeSecretKey(path string) (covert.SecretKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return covert.SecretKey{}, err
	}

	return covert.ParseSecretKey(string(trimNewline(b)))
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}

	return b
}

func askPassphrase(prompt string) ([]byte, error) {
	defer func() { _, _ = fmt.Fprintln(os.Stderr) }()

	_, _ = fmt.Fprint(os.Stderr, prompt)

	return term.ReadPassword(int(os.Stdin.Fd()))
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return os.Stdin, nil
	}

	return os.Open(path)
}

func openOutput(path string, armored bool) (io.WriteCloser, error) {
	dst := io.WriteCloser(os.Stdout)

	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}

		dst = f
	}

	if armored {
		return &armoredWriter{dst: dst, enc: armor.NewEncoder(dst, false)}, nil
	}

	return dst, nil
}

type armoredWriter struct {
	dst io.WriteCloser
	enc io.WriteCloser
}

func (a *armoredWriter) Write(p []byte) (int, error) {
	return a.enc.Write(p)
}

func (a *armoredWriter) Close() error {
	if err := a.enc.Close(); err != nil {
		return err
	}

	return a.dst.Close()
}

var _ io.WriteCloser = &armoredWriter{}

func maybeArmoredInput(src io.Reader, armored bool) io.Reader {
	if armored {
		return armor.NewDecoder(src)
	}

	return src
}
