package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/covert-im/covert"
)

type keyGenCmd struct {
	Output string `arg:"" type:"path" help:"The output path for the secret key."`
}

func (cmd *keyGenCmd) Run(_ *kong.Context) error {
	sk, err := covert.GenerateSecretKey()
	if err != nil {
		return err
	}

	defer sk.Zero()

	if err := os.WriteFile(cmd.Output, []byte(sk.String()+"\n"), 0o600); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stderr, "Public key: %s\n", sk.PublicKey())

	return nil
}
