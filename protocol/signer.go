package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/3nsoft/mailerid-go/crypto/sign"
)

// A MailerIdSigner is the user side of MailerId: it holds the user's
// signing key with its certificates, and signs assertions for relying
// parties. It owns the key: Destroy wipes it, and signing afterwards
// fails with ErrSignerDestroyed.
type MailerIdSigner struct {
	Address        string
	UserCert       *SignedLoad
	ProviderCert   *SignedLoad
	Issuer         string
	CertExpiresAt  int64
	ValidityPeriod int64

	mu           sync.Mutex
	certIssuedAt int64
	signKey      *Key
	clock        Clock
}

// NewMailerIdSigner creates a signer from a signing secret key and its
// certificates. assertionValidity must be in (0, MaxSigValidity]; zero
// selects DefaultAssertionValidity. The signer takes its own copy of the
// key; the caller should wipe skey.
func NewMailerIdSigner(skey *JSONKey, userCert, provCert *SignedLoad,
	assertionValidity int64, clock Clock) (*MailerIdSigner, error) {
	if assertionValidity == 0 {
		assertionValidity = DefaultAssertionValidity
	}
	if assertionValidity < 1 || assertionValidity > MaxSigValidity {
		return nil, fmt.Errorf("assertion validity %d: %w", assertionValidity, ErrInvalidValidity)
	}
	cert, err := DecodeKeyCert(userCert)
	if err != nil {
		return nil, err
	}
	signKey, err := signSecretKeyFromJSON(skey, KeyUseSign)
	if err != nil {
		return nil, err
	}
	pk, ok := sign.PrivateKey(signKey.K).Public()
	if !ok || !bytes.Equal(pk, cert.Cert.PublicKey.K) {
		signKey.Wipe()
		return nil, ErrKeyCertMismatch
	}
	return &MailerIdSigner{
		Address:        cert.Cert.Principal.Address,
		UserCert:       userCert,
		ProviderCert:   provCert,
		Issuer:         cert.Issuer,
		CertExpiresAt:  cert.ExpiresAt,
		ValidityPeriod: assertionValidity,
		certIssuedAt:   cert.IssuedAt,
		signKey:        signKey,
		clock:          clock,
	}, nil
}

// now returns the signing time, nudged past the certificate's issue time
// so that everything signed comes after the certificate.
func (s *MailerIdSigner) now() (int64, error) {
	now := s.clock.unix()
	if now <= s.certIssuedAt {
		now = s.certIssuedAt + 1
	}
	if now >= s.CertExpiresAt {
		return 0, fmt.Errorf("signing key expired at %d, now is %d: %w",
			s.CertExpiresAt, now, ErrCertExpired)
	}
	return now, nil
}

// GenerateAssertionFor signs an assertion for a login into rpDomain with
// the given session id. validFor is clipped to the signer's validity
// period; zero means the full period.
func (s *MailerIdSigner) GenerateAssertionFor(rpDomain, sessionID string,
	validFor int64) (*SignedLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signKey == nil {
		return nil, ErrSignerDestroyed
	}
	switch {
	case validFor < 0:
		return nil, fmt.Errorf("requested validity %d: %w", validFor, ErrInvalidValidity)
	case validFor == 0, validFor > s.ValidityPeriod:
		validFor = s.ValidityPeriod
	}
	now, err := s.now()
	if err != nil {
		return nil, err
	}
	load, err := json.Marshal(&AssertionLoad{
		User:      s.Address,
		RPDomain:  rpDomain,
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now + validFor,
	})
	if err != nil {
		return nil, err
	}
	return signLoad(load, s.signKey)
}

// CertifyPublicKey certifies an application key with the user's own
// MailerId identity, as both principal and issuer.
func (s *MailerIdSigner) CertifyPublicKey(pkey *JSONKey, validFor int64) (*SignedLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signKey == nil {
		return nil, ErrSignerDestroyed
	}
	if validFor < 1 {
		return nil, fmt.Errorf("requested validity %d: %w", validFor, ErrInvalidValidity)
	}
	if pkey == nil {
		return nil, fmt.Errorf("missing key: %w", ErrKeyMalformed)
	}
	now, err := s.now()
	if err != nil {
		return nil, err
	}
	key := &Key{K: pkey.K, Kid: pkey.Kid, Use: pkey.Use, Alg: pkey.Alg}
	return MakeCert(key, s.Address, s.Address, now, now+validFor, s.signKey)
}

// CertsChain returns the chain for assertions of this signer under the
// given root certificate.
func (s *MailerIdSigner) CertsChain(root *SignedLoad) *CertsChain {
	return &CertsChain{Root: root, Prov: s.ProviderCert, User: s.UserCert}
}

// Destroy wipes the signing key. It is safe to call more than once.
func (s *MailerIdSigner) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signKey == nil {
		return
	}
	s.signKey.Wipe()
	s.signKey = nil
}
