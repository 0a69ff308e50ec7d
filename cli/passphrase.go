package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

// ErrPassphraseMismatch is returned when the confirmation differs.
var ErrPassphraseMismatch = errors.New("passphrases do not match")

// ReadPassphrase prompts for a passphrase on the terminal without
// echoing it, asking a second time when confirm is set.
func ReadPassphrase(prompt string, confirm bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)
	pass, err := terminal.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if len(pass) == 0 {
		return nil, errors.New("empty passphrase")
	}
	if !confirm {
		return pass, nil
	}
	fmt.Fprint(os.Stderr, "Repeat: ")
	again, err := terminal.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pass, again) {
		return nil, ErrPassphraseMismatch
	}
	return pass, nil
}
