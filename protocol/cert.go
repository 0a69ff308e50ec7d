package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// A Principal names the owner of a certified key.
type Principal struct {
	Address string `json:"address"`
}

// A CertBody is the certified part of a KeyCert.
type CertBody struct {
	PublicKey *JSONKey  `json:"publicKey"`
	Principal Principal `json:"principal"`
}

// A KeyCert binds a public key to a principal address, signed by an
// issuer and valid in [IssuedAt, ExpiresAt), in epoch seconds.
type KeyCert struct {
	Cert      CertBody `json:"cert"`
	Issuer    string   `json:"issuer"`
	IssuedAt  int64    `json:"issuedAt"`
	ExpiresAt int64    `json:"expiresAt"`
}

// A CertsChain is the root -> provider -> user chain of certificates.
type CertsChain struct {
	Root *SignedLoad `json:"root"`
	Prov *SignedLoad `json:"prov"`
	User *SignedLoad `json:"user"`
}

// MakeCert certifies pkey for the principal address, signing the
// serialized KeyCert with signKey.
func MakeCert(pkey *Key, address, issuer string, issuedAt, expiresAt int64,
	signKey *Key) (*SignedLoad, error) {
	if expiresAt <= issuedAt {
		return nil, fmt.Errorf("certificate expires at %d, before issue at %d: %w",
			expiresAt, issuedAt, ErrInvalidValidity)
	}
	cert := &KeyCert{
		Cert: CertBody{
			PublicKey: KeyToJSON(pkey),
			Principal: Principal{Address: address},
		},
		Issuer:    issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	certBytes, err := json.Marshal(cert)
	if err != nil {
		return nil, err
	}
	return signLoad(certBytes, signKey)
}

// DecodeKeyCert returns the KeyCert carried by a signed load,
// without checking its signature.
func DecodeKeyCert(sl *SignedLoad) (*KeyCert, error) {
	if sl == nil || sl.Load == "" {
		return nil, fmt.Errorf("missing certificate: %w", ErrCertMalformed)
	}
	load, err := b64.DecodeString(sl.Load)
	if err != nil {
		return nil, fmt.Errorf("certificate load: %v: %w", err, ErrCertMalformed)
	}
	cert := new(KeyCert)
	if err := json.Unmarshal(load, cert); err != nil {
		return nil, fmt.Errorf("certificate: %v: %w", err, ErrCertMalformed)
	}
	if cert.Cert.PublicKey == nil || cert.Cert.Principal.Address == "" ||
		cert.Issuer == "" {
		return nil, fmt.Errorf("incomplete certificate: %w", ErrCertMalformed)
	}
	return cert, nil
}

// PrincipalAddress returns the address a certificate is for.
func PrincipalAddress(sl *SignedLoad) (string, error) {
	cert, err := DecodeKeyCert(sl)
	if err != nil {
		return "", err
	}
	return cert.Cert.Principal.Address, nil
}

// GenerateRootKey creates a root signing key for the address together
// with a self-signed certificate valid for validityPeriod seconds from
// now. The caller owns the returned secret key and must wipe it.
func GenerateRootKey(address string, validityPeriod int64, rnd io.Reader,
	clock Clock) (*SignedLoad, *JSONKey, error) {
	if validityPeriod < 1 {
		return nil, nil, fmt.Errorf("root validity %d: %w", validityPeriod, ErrInvalidValidity)
	}
	pkey, skey, err := GenerateSigningKeyPair(KeyUseRoot, rnd)
	if err != nil {
		return nil, nil, err
	}
	now := clock.unix()
	cert, err := MakeCert(pkey, address, address, now, now+validityPeriod, skey)
	if err != nil {
		skey.Wipe()
		return nil, nil, err
	}
	return cert, &JSONKey{K: skey.K, Kid: skey.Kid, Use: skey.Use, Alg: skey.Alg}, nil
}

// GenerateProviderKey creates a provider signing key for the address,
// certified by the given root secret key for validityPeriod seconds from
// now. The caller owns the returned secret key and must wipe it.
func GenerateProviderKey(address string, validityPeriod int64,
	rootJKey *JSONKey, rnd io.Reader, clock Clock) (*SignedLoad, *JSONKey, error) {
	if validityPeriod < 1 {
		return nil, nil, fmt.Errorf("provider validity %d: %w", validityPeriod, ErrInvalidValidity)
	}
	rootKey, err := signSecretKeyFromJSON(rootJKey, KeyUseRoot)
	if err != nil {
		return nil, nil, err
	}
	defer rootKey.Wipe()
	pkey, skey, err := GenerateSigningKeyPair(KeyUseProvider, rnd)
	if err != nil {
		return nil, nil, err
	}
	now := clock.unix()
	cert, err := MakeCert(pkey, address, address, now, now+validityPeriod, rootKey)
	if err != nil {
		skey.Wipe()
		return nil, nil, err
	}
	return cert, &JSONKey{K: skey.K, Kid: skey.Kid, Use: skey.Use, Alg: skey.Alg}, nil
}
