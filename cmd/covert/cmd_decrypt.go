package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/covert-im/covert"
)

type decryptCmd struct {
	Ciphertext string `arg:"" type:"existingfile" help:"The path to the ciphertext file."`
	Plaintext  string `arg:"" type:"path" help:"The path to the plaintext file."`

	Identity   []string `help:"The path to a secret key to try as a recipient." short:"i"`
	Passphrase bool     `help:"Prompt for a passphrase to try as a recipient."`
	Armor      bool     `help:"Decode the ciphertext as armored text."`
	Verify     string   `help:"A signer's public key to verify a trailing signature block against."`
}

func (cmd *decryptCmd) Run(_ *kong.Context) error {
	var identities []covert.Identity

	for _, path := range cmd.Identity {
		sk, err := decodeSecretKey(path)
		if err != nil {
			return err
		}

		identities = append(identities, covert.FromSecretKey(sk))
	}

	if cmd.Passphrase {
		pass, err := askPassphrase("Enter passphrase: ")
		if err != nil {
			return err
		}

		identities = append(identities, covert.FromPassphrase(pass))
	}

	src, err := openInput(cmd.Ciphertext)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	dst, err := openOutput(cmd.Plaintext, false)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	sink := covert.Sink{
		Message: dst,
		Attachment: func(info covert.AttachmentInfo) (io.Writer, error) {
			_, _ = fmt.Fprintf(os.Stderr, "Discarding attachment %q (%d bytes)\n", info.Name, info.Size)

			return nil, nil
		},
	}

	filehash, trailer, err := covert.Decrypt(maybeArmoredInput(src, cmd.Armor), identities, sink)
	if err != nil {
		return err
	}

	if cmd.Verify == "" {
		return nil
	}

	pk, err := covert.ParsePublicKey(cmd.Verify)
	if err != nil {
		return err
	}

	blocks, err := covert.ReadSignatureBlocks(trailer)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		if covert.VerifySignature(filehash, pk, block) == nil {
			_, _ = fmt.Fprintln(os.Stderr, "Signature verified.")
			return nil
		}
	}

	return covert.ErrAuthFail
}
