package protocol

import (
	"fmt"
	"sync"
)

// An IdProviderCertifier holds a provider's secret signing key and
// certifies users' signing keys with it. It owns the key: Destroy wipes
// it, and every call after Destroy fails with ErrCertifierDestroyed.
type IdProviderCertifier struct {
	mu             sync.Mutex
	issuer         string
	validityPeriod int64
	signKey        *Key
	clock          Clock
}

// NewIdProviderCertifier creates a certifier issuing certificates for
// at most validityPeriod seconds, which must be in
// (0, MaxUserCertValidity]. The certifier takes its own copy of the
// provider key; the caller should wipe skey.
func NewIdProviderCertifier(issuer string, validityPeriod int64,
	skey *JSONKey, clock Clock) (*IdProviderCertifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("missing issuer: %w", ErrCertsMismatch)
	}
	if validityPeriod < 1 || validityPeriod > MaxUserCertValidity {
		return nil, fmt.Errorf("user certificate validity %d: %w",
			validityPeriod, ErrInvalidValidity)
	}
	signKey, err := signSecretKeyFromJSON(skey, KeyUseProvider)
	if err != nil {
		return nil, err
	}
	return &IdProviderCertifier{
		issuer:         issuer,
		validityPeriod: validityPeriod,
		signKey:        signKey,
		clock:          clock,
	}, nil
}

// Certify signs the user's public key into a certificate for address.
// validFor is clipped to the certifier's validity period; zero means
// the full period, and a negative value is rejected.
func (c *IdProviderCertifier) Certify(pkey *JSONKey, address string,
	validFor int64) (*SignedLoad, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signKey == nil {
		return nil, ErrCertifierDestroyed
	}
	userKey, err := signPublicKeyFromJSON(pkey, KeyUseSign)
	if err != nil {
		return nil, err
	}
	switch {
	case validFor < 0:
		return nil, fmt.Errorf("requested validity %d: %w", validFor, ErrInvalidValidity)
	case validFor == 0, validFor > c.validityPeriod:
		validFor = c.validityPeriod
	}
	now := c.clock.unix()
	return MakeCert(userKey, address, c.issuer, now, now+validFor, c.signKey)
}

// Issuer returns the domain in the issuer field of certificates.
func (c *IdProviderCertifier) Issuer() string {
	return c.issuer
}

// Destroy wipes the provider key. It is safe to call more than once.
func (c *IdProviderCertifier) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signKey == nil {
		return
	}
	c.signKey.Wipe()
	c.signKey = nil
}

