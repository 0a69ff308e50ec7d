package protocol

import (
	"fmt"
	"io"

	"github.com/3nsoft/mailerid-go/crypto"
	"github.com/3nsoft/mailerid-go/crypto/box"
	"github.com/3nsoft/mailerid-go/crypto/sign"
)

// Key use tags. A key is only ever loaded for the use it was made for.
const (
	KeyUseRoot     = "mid-root"
	KeyUseProvider = "mid-provider"
	KeyUseSign     = "mid-sign"
	KeyUseLogin    = "login-pub-key"
)

// A JSONKey is the wire and storage form of a key.
// K is base64-encoded by encoding/json.
type JSONKey struct {
	K   []byte `json:"k"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
}

// A Key is a loaded key, with its use and algorithm already checked.
// Secret keys must be wiped by their owner with Wipe.
type Key struct {
	K   []byte
	Kid string
	Use string
	Alg string
}

// KeyFromJSON loads a key, checking that it has the expected use,
// algorithm and length. The returned key owns a copy of the key bytes.
func KeyFromJSON(jkey *JSONKey, use, alg string, keyLen int) (*Key, error) {
	if jkey == nil {
		return nil, fmt.Errorf("missing key: %w", ErrKeyMalformed)
	}
	if jkey.Use != use {
		return nil, fmt.Errorf("key %s has use %q instead of %q: %w",
			jkey.Kid, jkey.Use, use, ErrKeyUseMismatch)
	}
	if jkey.Alg != alg {
		return nil, fmt.Errorf("key %s is for %q instead of %q: %w",
			jkey.Kid, jkey.Alg, alg, ErrAlgMismatch)
	}
	if len(jkey.K) != keyLen {
		return nil, fmt.Errorf("key %s has %d bytes instead of %d: %w",
			jkey.Kid, len(jkey.K), keyLen, ErrKeyMalformed)
	}
	k := make([]byte, keyLen)
	copy(k, jkey.K)
	return &Key{K: k, Kid: jkey.Kid, Use: jkey.Use, Alg: jkey.Alg}, nil
}

// KeyToJSON returns the JSON form of the key, with its own copy
// of the key bytes.
func KeyToJSON(key *Key) *JSONKey {
	k := make([]byte, len(key.K))
	copy(k, key.K)
	return &JSONKey{K: k, Kid: key.Kid, Use: key.Use, Alg: key.Alg}
}

// Wipe zeroes the key bytes.
func (key *Key) Wipe() {
	if key != nil {
		crypto.Wipe(key.K)
	}
}

// Wipe zeroes the key bytes.
func (jkey *JSONKey) Wipe() {
	if jkey != nil {
		crypto.Wipe(jkey.K)
	}
}

func signPublicKeyFromJSON(jkey *JSONKey, use string) (*Key, error) {
	return KeyFromJSON(jkey, use, sign.AlgName, sign.PublicKeySize)
}

func signSecretKeyFromJSON(jkey *JSONKey, use string) (*Key, error) {
	return KeyFromJSON(jkey, use, sign.AlgName, sign.PrivateKeySize)
}

// LoginPublicKeyFromJSON loads a user's login public key.
func LoginPublicKeyFromJSON(jkey *JSONKey) (*Key, error) {
	return KeyFromJSON(jkey, KeyUseLogin, box.AlgName, box.KeySize)
}

// GenerateSigningKeyPair creates a signing key pair tagged with the given
// use and a fresh key id, seeding it from rnd (crypto/rand when nil).
// The caller owns the secret key and must wipe it.
func GenerateSigningKeyPair(use string, rnd io.Reader) (pkey, skey *Key, err error) {
	kid, err := crypto.NewKeyID()
	if err != nil {
		return nil, nil, err
	}
	sk, err := sign.GenerateKey(rnd)
	if err != nil {
		return nil, nil, err
	}
	pk, ok := sk.Public()
	if !ok {
		sk.Wipe()
		return nil, nil, fmt.Errorf("cannot derive public key: %w", ErrKeyMalformed)
	}
	pkey = &Key{K: pk, Kid: kid, Use: use, Alg: sign.AlgName}
	skey = &Key{K: sk, Kid: kid, Use: use, Alg: sign.AlgName}
	return pkey, skey, nil
}
