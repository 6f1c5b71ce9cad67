package main

import (
	"crypto/sha512"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/covert-im/covert"
)

type verifyCmd struct {
	PublicKey string `arg:"" help:"The signer's public key."`
	File      string `arg:"" type:"existingfile" help:"The path to the signed file."`
	Signature string `arg:"" type:"existingfile" help:"The path to the signature block."`
}

func (cmd *verifyCmd) Run(_ *kong.Context) error {
	pk, err := covert.ParsePublicKey(cmd.PublicKey)
	if err != nil {
		return err
	}

	sigBytes, err := os.ReadFile(cmd.Signature)
	if err != nil {
		return err
	}

	if len(sigBytes) != covert.SignatureBlockSize {
		return covert.ErrAuthFail
	}

	var block covert.SignatureBlock
	copy(block[:], sigBytes)

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

	return covert.VerifySignature(filehash, pk, block)
}
