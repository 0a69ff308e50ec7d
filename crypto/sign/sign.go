// Package sign implements the "NaCl signing" primitive used by MailerId
// certificates and assertions, on top of ed25519.
package sign

import (
	"crypto/rand"
	"io"

	"github.com/3nsoft/mailerid-go/crypto"
	"golang.org/x/crypto/ed25519"
)

const (
	// AlgName is the algorithm name carried by MailerId keys and
	// signed loads that use this primitive.
	AlgName = "NaCl-sign-Ed25519"

	PrivateKeySize = ed25519.PrivateKeySize
	PublicKeySize  = ed25519.PublicKeySize
	SignatureSize  = ed25519.SignatureSize
)

type PrivateKey []byte
type PublicKey []byte

// GenerateKey creates a fresh key pair, reading its seed from rnd.
// A nil rnd uses crypto/rand.
func GenerateKey(rnd io.Reader) (PrivateKey, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	_, sk, err := ed25519.GenerateKey(rnd)
	return PrivateKey(sk), err
}

func (key PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(key), message)
}

func (key PrivateKey) Public() (PublicKey, bool) {
	if len(key) != PrivateKeySize {
		return nil, false
	}
	pk, ok := ed25519.PrivateKey(key).Public().(ed25519.PublicKey)
	return PublicKey(pk), ok
}

// Wipe zeroes the key in place.
func (key PrivateKey) Wipe() {
	crypto.Wipe(key)
}

func (pk PublicKey) Verify(message, sig []byte) bool {
	if len(pk) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk), message, sig)
}
