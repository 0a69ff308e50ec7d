package protocol

import (
	"errors"
	"testing"
)

func TestCertifierClipsValidity(t *testing.T) {
	p := newTestProvider(t)
	const maxValidity = 2 * 60 * 60
	skey := p.provSKey(t)
	certifier, err := NewIdProviderCertifier(testDomain, maxValidity, skey, p.clock.clock())
	if err != nil {
		t.Fatal(err)
	}
	defer certifier.Destroy()
	pkey, _, err := GenerateSigningKeyPair(KeyUseSign, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, validFor := range []int64{0, 1, 60, maxValidity - 1, maxValidity, maxValidity + 1, MaxUserCertValidity, 1 << 40} {
		cert, err := certifier.Certify(KeyToJSON(pkey), testUser, validFor)
		if err != nil {
			t.Fatal(err)
		}
		kc, err := DecodeKeyCert(cert)
		if err != nil {
			t.Fatal(err)
		}
		got := kc.ExpiresAt - kc.IssuedAt
		if got > maxValidity {
			t.Errorf("Certificate for %d seconds lasts %d seconds", validFor, got)
		}
		if validFor > 0 && validFor <= maxValidity && got != validFor {
			t.Errorf("Expect validity %d, got %d", validFor, got)
		}
		if kc.Issuer != testDomain || kc.Cert.Principal.Address != testUser {
			t.Error("Unexpected issuer or principal", kc.Issuer, kc.Cert.Principal.Address)
		}
	}
	if _, err := certifier.Certify(KeyToJSON(pkey), testUser, -1); !errors.Is(err, ErrInvalidValidity) {
		t.Error("Expect negative validity to be rejected, got", err)
	}
}

func TestCertifierRejectsWrongKeys(t *testing.T) {
	p := newTestProvider(t)
	rootPKey, _, err := GenerateSigningKeyPair(KeyUseRoot, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.certifier.Certify(KeyToJSON(rootPKey), testUser, 0); !errors.Is(err, ErrKeyUseMismatch) {
		t.Error("Expect use mismatch, got", err)
	}
	// a root key cannot be used as a provider key
	if _, err := NewIdProviderCertifier(testDomain, MaxUserCertValidity, p.rootSKey, nil); !errors.Is(err, ErrKeyUseMismatch) {
		t.Error("Expect use mismatch, got", err)
	}
}

func TestCertifierValidityBounds(t *testing.T) {
	p := newTestProvider(t)
	skey := p.provSKey(t)
	for _, v := range []int64{0, -5, MaxUserCertValidity + 1} {
		if _, err := NewIdProviderCertifier(testDomain, v, skey, nil); !errors.Is(err, ErrInvalidValidity) {
			t.Error("Expect illegal validity for", v, "got", err)
		}
	}
	if _, err := NewIdProviderCertifier("", MaxUserCertValidity, skey, nil); err == nil {
		t.Error("Expect missing issuer to be rejected")
	}
}

func TestCertifierDestroy(t *testing.T) {
	p := newTestProvider(t)
	pkey, _, err := GenerateSigningKeyPair(KeyUseSign, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.certifier.Destroy()
	p.certifier.Destroy()
	if _, err := p.certifier.Certify(KeyToJSON(pkey), testUser, 0); err != ErrCertifierDestroyed {
		t.Fatal("Expect destroyed certifier, got", err)
	}
}
