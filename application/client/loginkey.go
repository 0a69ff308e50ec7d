package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/3nsoft/mailerid-go/crypto"
	"github.com/3nsoft/mailerid-go/crypto/box"
	"github.com/3nsoft/mailerid-go/protocol"
	"golang.org/x/crypto/scrypt"
)

// Default scrypt parameters for new login keys.
const (
	DefaultLogN = 17
	DefaultR    = 8
	DefaultP    = 1
	saltSize    = 32
)

// ErrKDParams is returned for unusable key derivation parameters.
var ErrKDParams = errors.New("[client] Bad key derivation parameters")

// KDParams are the scrypt parameters of a passphrase-derived login key.
// The provider stores them with the login public key and hands them
// back at login.
type KDParams struct {
	Salt []byte `json:"salt"`
	LogN int    `json:"logN"`
	R    int    `json:"r"`
	P    int    `json:"p"`
}

// NewKDParams returns default parameters with a fresh random salt.
func NewKDParams() (*KDParams, error) {
	salt, err := crypto.MakeRand(saltSize)
	if err != nil {
		return nil, err
	}
	return &KDParams{Salt: salt, LogN: DefaultLogN, R: DefaultR, P: DefaultP}, nil
}

func (p *KDParams) check() error {
	switch {
	case len(p.Salt) == 0:
		return fmt.Errorf("missing salt: %w", ErrKDParams)
	case p.LogN < 10 || p.LogN > 22:
		return fmt.Errorf("logN %d: %w", p.LogN, ErrKDParams)
	case p.R < 1 || p.P < 1 || p.R*p.P >= 1<<30:
		return fmt.Errorf("r %d, p %d: %w", p.R, p.P, ErrKDParams)
	}
	return nil
}

// DeriveLoginKey derives the login secret key from a passphrase.
// The caller owns the key and must wipe it.
func DeriveLoginKey(passphrase []byte, params *KDParams) (*[box.KeySize]byte, error) {
	if err := params.check(); err != nil {
		return nil, err
	}
	k, err := scrypt.Key(passphrase, params.Salt, 1<<uint(params.LogN), params.R, params.P, box.KeySize)
	if err != nil {
		return nil, err
	}
	sk := new([box.KeySize]byte)
	copy(sk[:], k)
	crypto.Wipe(k)
	return sk, nil
}

// NewLoginKey derives a login key pair from a passphrase with fresh
// parameters. It returns the public key, ready to be stored by the
// provider, and the encoded parameters.
func NewLoginKey(passphrase []byte) (*protocol.JSONKey, json.RawMessage, error) {
	params, err := NewKDParams()
	if err != nil {
		return nil, nil, err
	}
	return NewLoginKeyWithParams(passphrase, params)
}

// NewLoginKeyWithParams is NewLoginKey with given parameters.
func NewLoginKeyWithParams(passphrase []byte, params *KDParams) (*protocol.JSONKey, json.RawMessage, error) {
	sk, err := DeriveLoginKey(passphrase, params)
	if err != nil {
		return nil, nil, err
	}
	defer box.WipeKey(sk)
	kid, err := crypto.NewKeyID()
	if err != nil {
		return nil, nil, err
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, nil, err
	}
	pk := box.PublicKeyOf(sk)
	return &protocol.JSONKey{
		K:   pk[:],
		Kid: kid,
		Use: protocol.KeyUseLogin,
		Alg: box.AlgName,
	}, rawParams, nil
}

// A LoginKeyFunc returns the login secret key for the key derivation
// parameters the provider sent at login.
type LoginKeyFunc func(kdParams json.RawMessage) (*[box.KeySize]byte, error)

// PassphraseLoginKey returns a LoginKeyFunc deriving the key from
// passphrase.
func PassphraseLoginKey(passphrase []byte) LoginKeyFunc {
	return func(kdParams json.RawMessage) (*[box.KeySize]byte, error) {
		params := new(KDParams)
		if err := json.Unmarshal(kdParams, params); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrKDParams)
		}
		return DeriveLoginKey(passphrase, params)
	}
}

// FixedLoginKey returns a LoginKeyFunc that ignores the parameters and
// hands out a copy of sk.
func FixedLoginKey(sk *[box.KeySize]byte) LoginKeyFunc {
	return func(json.RawMessage) (*[box.KeySize]byte, error) {
		k := *sk
		return &k, nil
	}
}
