package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/sha3"
)

const (
	// seedSize is the number of CSPRNG bytes MakeRand hashes.
	seedSize = 32
	// KeyIDLength is the number of random bytes in a key id.
	KeyIDLength = 9
)

// RandomBytes returns n bytes read directly from the system's CSPRNG.
// Use it for secret material: keys, seeds and session keys.
func RandomBytes(n int) ([]byte, error) {
	r := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, r); err != nil {
		return nil, err
	}
	return r, nil
}

// MakeRand returns a random slice of n bytes.
// It returns an error if there was a problem while generating
// the random slice.
// It is different from RandomBytes as it hashes the system's PRNG output
// before returning it, so that values sent over the wire (key ids,
// session ids, nonces) never directly reveal the PRNG output.
// See https://trac.torproject.org/projects/tor/ticket/17694
func MakeRand(n int) ([]byte, error) {
	r, err := RandomBytes(seedSize)
	if err != nil {
		return nil, err
	}
	h := sha3.NewShake128()
	h.Write(r)
	Wipe(r)
	ret := make([]byte, n)
	h.Read(ret)
	return ret, nil
}

// NewKeyID generates a fresh key identifier: KeyIDLength random bytes,
// base64-encoded. Uniqueness is assumed from the size of the id space,
// not enforced.
func NewKeyID() (string, error) {
	r, err := MakeRand(KeyIDLength)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(r), nil
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
