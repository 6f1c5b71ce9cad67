package main

import (
	"crypto/sha512"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/covert-im/covert"
)

type signCmd struct {
	SecretKey string `arg:"" type:"existingfile" help:"The path to the secret key."`
	File      string `arg:"" type:"existingfile" help:"The path to the file to sign."`
	Signature string `arg:"" type:"path" help:"The output path for the signature block."`
}

func (cmd *signCmd) Run(_ *kong.Context) error {
	sk, err := decodeSecretKey(cmd.SecretKey)
	if err != nil {
		return err
	}

	f, err := os.Open(cmd.File)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	var filehash [64]byte
	copy(filehash[:], h.Sum(nil))

	block, err := covert.Sign(filehash, sk)
	if err != nil {
		return err
	}

	return os.WriteFile(cmd.Signature, block[:], 0o600)
}
