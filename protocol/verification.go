package protocol

import (
	"fmt"
)

// A PubKeyInfo is a verified public key and the address it belongs to.
type PubKeyInfo struct {
	PKey    *Key
	Address string
}

// An AssertionLoad is the statement signed by a user's MailerId key:
// "I am User, logging into RPDomain with SessionID, in this window".
type AssertionLoad struct {
	User      string `json:"user"`
	RPDomain  string `json:"rpDomain"`
	SessionID string `json:"sessionId"`
	IssuedAt  int64  `json:"issuedAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// An AssertionInfo is the result of a successful assertion verification.
type AssertionInfo struct {
	User      string
	RPDomain  string
	SessionID string
	IssuedAt  int64
	ExpiresAt int64
}

// VerifyCertAndGetPubKey checks a certificate at the validAt instant and
// returns the key it certifies.
//
// With an empty issuer the certificate must be self-signed: it is
// verified with its own key and must name its principal as issuer.
// Otherwise it must name issuer and be signed by issuerPKey.
func VerifyCertAndGetPubKey(signedCert *SignedLoad, use string, validAt int64,
	issuer string, issuerPKey *Key) (*PubKeyInfo, error) {
	cert, err := DecodeKeyCert(signedCert)
	if err != nil {
		return nil, err
	}
	// grace on the lower bound only
	if validAt < cert.IssuedAt-MinValidityPeriodForCert || cert.ExpiresAt <= validAt {
		return nil, fmt.Errorf("certificate for %s valid in [%d, %d) is used at %d: %w",
			cert.Cert.Principal.Address, cert.IssuedAt, cert.ExpiresAt, validAt, ErrTimeMismatch)
	}
	pkey, err := signPublicKeyFromJSON(cert.Cert.PublicKey, use)
	if err != nil {
		return nil, err
	}
	if issuer != "" {
		if issuerPKey == nil {
			return nil, fmt.Errorf("missing key of issuer %s: %w", issuer, ErrCertsMismatch)
		}
		if cert.Issuer != issuer || signedCert.Kid != issuerPKey.Kid {
			return nil, fmt.Errorf("certificate issued by %s with key %s, expected %s with key %s: %w",
				cert.Issuer, signedCert.Kid, issuer, issuerPKey.Kid, ErrCertsMismatch)
		}
	} else {
		if cert.Issuer != cert.Cert.Principal.Address || signedCert.Kid != pkey.Kid {
			return nil, fmt.Errorf("certificate for %s is not self-signed: %w",
				cert.Cert.Principal.Address, ErrCertsMismatch)
		}
		issuerPKey = pkey
	}
	if err := verifyLoad(signedCert, issuerPKey, nil); err != nil {
		return nil, err
	}
	return &PubKeyInfo{
		PKey:    pkey,
		Address: cert.Cert.Principal.Address,
	}, nil
}

// VerifyChainAndGetUserKey verifies a certificate chain of the expected
// root domain and returns the user's signing key.
//
// Each link is checked at the issue time of the certificate it signs:
// the root at the provider certificate's issue time, the provider at the
// user certificate's issue time, and only the user certificate at validAt.
func VerifyChainAndGetUserKey(chain *CertsChain, rootAddr string,
	validAt int64) (*PubKeyInfo, error) {
	if chain == nil {
		return nil, fmt.Errorf("missing certificates chain: %w", ErrCertMalformed)
	}
	provCert, err := DecodeKeyCert(chain.Prov)
	if err != nil {
		return nil, fmt.Errorf("provider certificate: %w", err)
	}
	userCert, err := DecodeKeyCert(chain.User)
	if err != nil {
		return nil, fmt.Errorf("user certificate: %w", err)
	}

	root, err := VerifyCertAndGetPubKey(chain.Root, KeyUseRoot,
		provCert.IssuedAt, "", nil)
	if err != nil {
		return nil, fmt.Errorf("root certificate: %w", err)
	}
	if CanonicalAddress(root.Address) != CanonicalAddress(rootAddr) {
		return nil, fmt.Errorf("root certificate is for %s instead of %s: %w",
			root.Address, rootAddr, ErrCertsMismatch)
	}

	prov, err := VerifyCertAndGetPubKey(chain.Prov, KeyUseProvider,
		userCert.IssuedAt, root.Address, root.PKey)
	if err != nil {
		return nil, fmt.Errorf("provider certificate: %w", err)
	}
	if prov.Address != root.Address {
		return nil, fmt.Errorf("provider certificate is for %s instead of %s: %w",
			prov.Address, root.Address, ErrCertsMismatch)
	}

	user, err := VerifyCertAndGetPubKey(chain.User, KeyUseSign, validAt,
		prov.Address, prov.PKey)
	if err != nil {
		return nil, fmt.Errorf("user certificate: %w", err)
	}
	return user, nil
}

// VerifyAssertion verifies an assertion made with the user key of the
// given chain.
func VerifyAssertion(assertion *SignedLoad, chain *CertsChain, rootAddr string,
	validAt int64) (*AssertionInfo, error) {
	userInfo, err := VerifyChainAndGetUserKey(chain, rootAddr, validAt)
	if err != nil {
		return nil, err
	}
	if assertion == nil {
		return nil, fmt.Errorf("missing assertion: %w", ErrCertMalformed)
	}
	load := new(AssertionLoad)
	if err := verifyLoad(assertion, userInfo.PKey, load); err != nil {
		return nil, fmt.Errorf("assertion: %w", err)
	}
	if load.User != userInfo.Address {
		return nil, fmt.Errorf("assertion is made for %s by key of %s: %w",
			load.User, userInfo.Address, ErrCertsMismatch)
	}
	if load.SessionID == "" {
		return nil, fmt.Errorf("assertion without session id: %w", ErrCertsMismatch)
	}
	if abs(validAt-load.IssuedAt) > load.ExpiresAt-load.IssuedAt {
		return nil, fmt.Errorf("assertion valid in [%d, %d) is used at %d: %w",
			load.IssuedAt, load.ExpiresAt, validAt, ErrTimeMismatch)
	}
	return &AssertionInfo{
		User:      load.User,
		RPDomain:  load.RPDomain,
		SessionID: load.SessionID,
		IssuedAt:  load.IssuedAt,
		ExpiresAt: load.ExpiresAt,
	}, nil
}

// VerifyPubKey verifies an application key that a user certified with
// their own MailerId signing key, and returns that key.
func VerifyPubKey(keyCert *SignedLoad, principalAddress string, chain *CertsChain,
	rootAddr string, validAt int64) (*JSONKey, error) {
	cert, err := DecodeKeyCert(keyCert)
	if err != nil {
		return nil, err
	}
	chainInfo, err := VerifyChainAndGetUserKey(chain, rootAddr, cert.IssuedAt)
	if err != nil {
		return nil, err
	}
	if chainInfo.Address != CanonicalAddress(principalAddress) {
		return nil, fmt.Errorf("certificates chain is for %s instead of %s: %w",
			chainInfo.Address, principalAddress, ErrCertsMismatch)
	}
	if cert.Cert.Principal.Address != chainInfo.Address ||
		cert.Issuer != chainInfo.Address || keyCert.Kid != chainInfo.PKey.Kid {
		return nil, fmt.Errorf("key certificate is not made by %s: %w",
			chainInfo.Address, ErrCertsMismatch)
	}
	if err := verifyLoad(keyCert, chainInfo.PKey, nil); err != nil {
		return nil, fmt.Errorf("key certificate: %w", err)
	}
	validity := cert.ExpiresAt - cert.IssuedAt
	if validity < MinValidityPeriodForCert {
		if abs(validAt-cert.IssuedAt) > validity {
			return nil, fmt.Errorf("short key certificate valid in [%d, %d) is used at %d: %w",
				cert.IssuedAt, cert.ExpiresAt, validAt, ErrTimeMismatch)
		}
	} else if validAt < cert.IssuedAt-MinValidityPeriodForCert || cert.ExpiresAt <= validAt {
		return nil, fmt.Errorf("key certificate valid in [%d, %d) is used at %d: %w",
			cert.IssuedAt, cert.ExpiresAt, validAt, ErrTimeMismatch)
	}
	return cert.Cert.PublicKey, nil
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
