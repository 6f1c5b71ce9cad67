package main

import (
	"crypto/rand"
	"io"

	"github.com/alecthomas/kong"
	"github.com/covert-im/covert"
)

type encryptCmd struct {
	Plaintext  string `arg:"" type:"existingfile" help:"The path to the plaintext file."`
	Ciphertext string `arg:"" type:"path" help:"The path to the ciphertext file."`

	To         []string `help:"A recipient's public key." short:"t"`
	Passphrase bool     `help:"Prompt for a shared passphrase recipient."`
	WideOpen   bool     `help:"Encrypt with no recipients, decryptable by anyone."`
	Fakes      int      `help:"The number of decoy recipient slots to add."`
	Pad        float64  `help:"The padding proportion (0 disables padding)." default:"-1"`
	Sign       string   `help:"The path to a secret key to sign the file with."`
	Armor      bool     `help:"Encode the ciphertext as armored text."`
}

func (cmd *encryptCmd) Run(_ *kong.Context) error {
	var recipients []covert.Recipient

	pks, err := decodePublicKeys(cmd.To)
	if err != nil {
		return err
	}

	for _, pk := range pks {
		recipients = append(recipients, covert.ToPublicKey(pk))
	}

	if cmd.Passphrase {
		pass, err := askPassphrase("Enter passphrase: ")
		if err != nil {
			return err
		}

		recipients = append(recipients, covert.ToPassphrase(pass))
	}

	var signers []covert.SecretKey

	if cmd.Sign != "" {
		sk, err := decodeSecretKey(cmd.Sign)
		if err != nil {
			return err
		}

		signers = append(signers, sk)
	}

	src, err := openInput(cmd.Plaintext)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	message, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	dst, err := openOutput(cmd.Ciphertext, cmd.Armor)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	opts := covert.EncryptOptions{
		Recipients: recipients,
		WideOpen:   cmd.WideOpen,
		Fakes:      cmd.Fakes,
		Pad:        cmd.Pad,
		Signers:    signers,
	}

	plan := covert.Plan{Message: message, HasMessage: true}

	return covert.Encrypt(dst, rand.Reader, opts, plan)
}
