package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/3nsoft/mailerid-go/crypto/sign"
)

// b64 rejects non-canonical encodings, so that distinct strings never
// decode to the same bytes.
var b64 = base64.StdEncoding.Strict()

// A SignedLoad carries a payload together with its signature.
// Load is the base64 of the exact bytes that were signed; verification
// always works on the decoded Load, never on a re-serialization.
type SignedLoad struct {
	Alg  string `json:"alg"`
	Kid  string `json:"kid"`
	Sig  string `json:"sig"`
	Load string `json:"load"`
}

// IsLikeSignedLoad reports whether sl has all fields a signed load needs.
func IsLikeSignedLoad(sl *SignedLoad) bool {
	return sl != nil && sl.Alg != "" && sl.Kid != "" &&
		sl.Sig != "" && sl.Load != ""
}

// Equal reports whether two signed loads are field-by-field equal.
func (sl *SignedLoad) Equal(other *SignedLoad) bool {
	if sl == nil || other == nil {
		return sl == other
	}
	return *sl == *other
}

// Decode returns the signature and the signed bytes.
func (sl *SignedLoad) Decode() (sig, load []byte, err error) {
	if !IsLikeSignedLoad(sl) {
		return nil, nil, fmt.Errorf("incomplete signed load: %w", ErrCertMalformed)
	}
	sig, err = b64.DecodeString(sl.Sig)
	if err != nil {
		return nil, nil, fmt.Errorf("signature: %v: %w", err, ErrCertMalformed)
	}
	load, err = b64.DecodeString(sl.Load)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %v: %w", err, ErrCertMalformed)
	}
	return sig, load, nil
}

// signLoad signs the given bytes with a signing secret key.
func signLoad(load []byte, skey *Key) (*SignedLoad, error) {
	if skey.Alg != sign.AlgName {
		return nil, fmt.Errorf("key %s is for %q: %w", skey.Kid, skey.Alg, ErrAlgMismatch)
	}
	if len(skey.K) != sign.PrivateKeySize {
		return nil, fmt.Errorf("signing key %s: %w", skey.Kid, ErrKeyMalformed)
	}
	sig := sign.PrivateKey(skey.K).Sign(load)
	return &SignedLoad{
		Alg:  skey.Alg,
		Kid:  skey.Kid,
		Sig:  base64.StdEncoding.EncodeToString(sig),
		Load: base64.StdEncoding.EncodeToString(load),
	}, nil
}

// verifyLoad checks the signature of sl with the given public key and
// unmarshals the signed bytes into v.
func verifyLoad(sl *SignedLoad, pkey *Key, v interface{}) error {
	if sl.Alg != sign.AlgName {
		return fmt.Errorf("signed load made with %q: %w", sl.Alg, ErrAlgMismatch)
	}
	sig, load, err := sl.Decode()
	if err != nil {
		return err
	}
	if !sign.PublicKey(pkey.K).Verify(load, sig) {
		return fmt.Errorf("signed load by key %s: %w", sl.Kid, ErrSigVerification)
	}
	if v != nil {
		if err := json.Unmarshal(load, v); err != nil {
			return fmt.Errorf("%v: %w", err, ErrCertMalformed)
		}
	}
	return nil
}
