package protocol

import (
	"testing"
	"time"
)

const (
	testDomain  = "example.com"
	testUser    = "alice@example.com"
	testStart   = int64(1700000000)
	rootValid   = int64(365 * 24 * 60 * 60)
	provValid   = int64(10 * 24 * 60 * 60)
	assertValid = int64(15 * 60)
)

type fakeClock struct {
	sec int64
}

func (c *fakeClock) clock() Clock {
	return func() time.Time { return time.Unix(c.sec, 0) }
}

type testProvider struct {
	clock     *fakeClock
	rootCert  *SignedLoad
	rootSKey  *JSONKey
	provCert  *SignedLoad
	provKey   *JSONKey
	certifier *IdProviderCertifier
}

func newTestProvider(t *testing.T) *testProvider {
	c := &fakeClock{sec: testStart}
	rootCert, rootSKey, err := GenerateRootKey(testDomain, rootValid, nil, c.clock())
	if err != nil {
		t.Fatal(err)
	}
	provCert, provSKey, err := GenerateProviderKey(testDomain, provValid, rootSKey, nil, c.clock())
	if err != nil {
		t.Fatal(err)
	}
	certifier, err := NewIdProviderCertifier(testDomain, MaxUserCertValidity, provSKey, c.clock())
	if err != nil {
		t.Fatal(err)
	}
	return &testProvider{
		clock:     c,
		rootCert:  rootCert,
		rootSKey:  rootSKey,
		provCert:  provCert,
		provKey:   provSKey,
		certifier: certifier,
	}
}

// newUser certifies a fresh signing key for address at the provider's
// current time.
func (p *testProvider) newUser(t *testing.T, address string, validFor int64) (*JSONKey, *SignedLoad) {
	pkey, skey, err := GenerateSigningKeyPair(KeyUseSign, nil)
	if err != nil {
		t.Fatal(err)
	}
	userCert, err := p.certifier.Certify(KeyToJSON(pkey), address, validFor)
	if err != nil {
		t.Fatal(err)
	}
	return KeyToJSON(skey), userCert
}

func (p *testProvider) newSigner(t *testing.T, address string) *MailerIdSigner {
	skey, userCert := p.newUser(t, address, 0)
	signer, err := NewMailerIdSigner(skey, userCert, p.provCert, assertValid, p.clock.clock())
	if err != nil {
		t.Fatal(err)
	}
	return signer
}

func (p *testProvider) chain(userCert *SignedLoad) *CertsChain {
	return &CertsChain{Root: p.rootCert, Prov: p.provCert, User: userCert}
}

// provSKey returns a copy of the provider secret key.
func (p *testProvider) provSKey(t *testing.T) *JSONKey {
	k := make([]byte, len(p.provKey.K))
	copy(k, p.provKey.K)
	return &JSONKey{K: k, Kid: p.provKey.Kid, Use: p.provKey.Use, Alg: p.provKey.Alg}
}
