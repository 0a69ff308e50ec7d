// Package box implements the "NaCl box" primitives used by the public-key
// login: a Curve25519 DH key agreement, and secretbox authenticated
// encryption in a with-nonce format.
//
// The with-nonce format (WN) lays a message out as
//
//	nonce (24 bytes) || ciphertext || poly1305 tag (16 bytes)
//
// so that a receiver needs only the key to open it, and the tag can be
// split off as a separate verification value.
package box

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/3nsoft/mailerid-go/crypto"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/salsa20/salsa"
)

const (
	// AlgName is the algorithm name carried by login keys.
	AlgName = "NaCl-box-CXSP"

	KeySize   = 32
	NonceSize = 24
	TagSize   = secretbox.Overhead
)

var (
	// ErrOpen is returned when a with-nonce message cannot be
	// authenticated and decrypted with the given key.
	ErrOpen = errors.New("[box] Cannot open cipher")
	// ErrDestroyed is returned by an Encryptor after Destroy.
	ErrDestroyed = errors.New("[box] Encryptor is destroyed")
)

// GenerateKey creates a key pair for DH key agreement.
// A nil rnd uses crypto/rand.
func GenerateKey(rnd io.Reader) (publicKey, privateKey *[KeySize]byte, err error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	return box.GenerateKey(rnd)
}

// PublicKeyOf derives the public key of the given secret key.
func PublicKeyOf(sk *[KeySize]byte) *[KeySize]byte {
	pk := new([KeySize]byte)
	curve25519.ScalarBaseMult(pk, sk)
	return pk
}

// CalcDHSharedKey computes the shared key from the peer's public key
// and own secret key. The caller owns the returned key and must wipe it.
func CalcDHSharedKey(peersPublicKey, secretKey *[KeySize]byte) *[KeySize]byte {
	sharedKey := new([KeySize]byte)
	box.Precompute(sharedKey, peersPublicKey, secretKey)
	return sharedKey
}

// AdvanceNonceOddly adds 1 to the nonce, read as a little-endian counter.
func AdvanceNonceOddly(n *[NonceSize]byte) {
	advanceNonce(n, 1)
}

// AdvanceNonceEvenly adds 2 to the nonce, read as a little-endian counter.
func AdvanceNonceEvenly(n *[NonceSize]byte) {
	advanceNonce(n, 2)
}

func advanceNonce(n *[NonceSize]byte, delta uint) {
	carry := delta
	for i := 0; i < NonceSize && carry > 0; i++ {
		s := uint(n[i]) + carry
		n[i] = byte(s)
		carry = s >> 8
	}
}

// PackWN encrypts msg with the given nonce and key in the with-nonce
// format.
func PackWN(msg []byte, nonce *[NonceSize]byte, key *[KeySize]byte) []byte {
	sealed := secretbox.Seal(nil, msg, nonce, key)
	out := make([]byte, 0, NonceSize+len(sealed))
	out = append(out, nonce[:]...)
	out = append(out, sealed[TagSize:]...)
	return append(out, sealed[:TagSize]...)
}

// OpenWN authenticates and decrypts a with-nonce message.
func OpenWN(c []byte, key *[KeySize]byte) ([]byte, error) {
	if len(c) < NonceSize+TagSize {
		return nil, ErrOpen
	}
	var nonce [NonceSize]byte
	copy(nonce[:], c[:NonceSize])
	body := c[NonceSize:]
	sealed := make([]byte, 0, len(body))
	sealed = append(sealed, body[len(body)-TagSize:]...)
	sealed = append(sealed, body[:len(body)-TagSize]...)
	msg, ok := secretbox.Open(nil, sealed, &nonce, key)
	if !ok {
		return nil, ErrOpen
	}
	return msg, nil
}

// DecryptWNUnverified decrypts a with-nonce message whose tag has been
// split off, without authenticating it. The caller must authenticate the
// result later by opening the message with its tag restored.
func DecryptWNUnverified(c []byte, key *[KeySize]byte) ([]byte, error) {
	if len(c) < NonceSize {
		return nil, ErrOpen
	}
	var hNonce [16]byte
	var counter [16]byte
	copy(hNonce[:], c[:16])
	copy(counter[:], c[16:NonceSize])
	var subKey [32]byte
	salsa.HSalsa20(&subKey, &hNonce, key, &salsa.Sigma)
	defer crypto.Wipe(subKey[:])

	// the first 32 bytes of the stream are the poly1305 key
	ct := c[NonceSize:]
	in := make([]byte, 32+len(ct))
	copy(in[32:], ct)
	out := make([]byte, len(in))
	salsa.XORKeyStream(out, in, &counter, &subKey)
	crypto.Wipe(out[:32])
	return out[32:], nil
}

// NonceOf returns the nonce of a with-nonce message.
func NonceOf(c []byte) (*[NonceSize]byte, error) {
	if len(c) < NonceSize {
		return nil, ErrOpen
	}
	var nonce [NonceSize]byte
	copy(nonce[:], c[:NonceSize])
	return &nonce, nil
}

// WipeKey zeroes a fixed-size key.
func WipeKey(k *[KeySize]byte) {
	if k != nil {
		crypto.Wipe(k[:])
	}
}
