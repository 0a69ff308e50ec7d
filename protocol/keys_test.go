package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/3nsoft/mailerid-go/crypto/box"
	"github.com/3nsoft/mailerid-go/crypto/sign"
)

func TestKeyJSONRoundTrip(t *testing.T) {
	pkey, skey, err := GenerateSigningKeyPair(KeyUseSign, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		key    *Key
		keyLen int
	}{
		{pkey, sign.PublicKeySize},
		{skey, sign.PrivateKeySize},
	} {
		jkey := KeyToJSON(tc.key)
		loaded, err := KeyFromJSON(jkey, KeyUseSign, sign.AlgName, tc.keyLen)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(KeyToJSON(loaded), jkey) {
			t.Fatal("Expect the same JSON key after a round trip")
		}
		loaded.Wipe()
		if bytes.Equal(loaded.K, jkey.K) {
			t.Fatal("Expect loaded key to own its bytes")
		}
	}
}

func TestKeyFromJSONChecks(t *testing.T) {
	pkey, _, err := GenerateSigningKeyPair(KeyUseRoot, nil)
	if err != nil {
		t.Fatal(err)
	}
	jkey := KeyToJSON(pkey)
	if _, err := KeyFromJSON(jkey, KeyUseProvider, sign.AlgName, sign.PublicKeySize); !errors.Is(err, ErrKeyUseMismatch) {
		t.Error("Expect use mismatch, got", err)
	}
	if _, err := KeyFromJSON(jkey, KeyUseRoot, box.AlgName, sign.PublicKeySize); !errors.Is(err, ErrAlgMismatch) {
		t.Error("Expect algorithm mismatch, got", err)
	}
	if _, err := KeyFromJSON(jkey, KeyUseRoot, sign.AlgName, sign.PrivateKeySize); !errors.Is(err, ErrKeyMalformed) {
		t.Error("Expect malformed key, got", err)
	}
	if _, err := KeyFromJSON(nil, KeyUseRoot, sign.AlgName, sign.PublicKeySize); !errors.Is(err, ErrKeyMalformed) {
		t.Error("Expect malformed key, got", err)
	}
}

func TestCanonicalAddress(t *testing.T) {
	for _, tc := range []struct {
		in, canonical, domain string
	}{
		{"Alice@Example.com", "alice@example.com", "example.com"},
		{" bob @ example.com\t", "bob@example.com", "example.com"},
		{"Example.COM", "example.com", "example.com"},
	} {
		if got := CanonicalAddress(tc.in); got != tc.canonical {
			t.Errorf("CanonicalAddress(%q) = %q, want %q", tc.in, got, tc.canonical)
		}
		if got := AddressDomain(tc.in); got != tc.domain {
			t.Errorf("AddressDomain(%q) = %q, want %q", tc.in, got, tc.domain)
		}
	}
}

func TestErrorCodeMessages(t *testing.T) {
	for code := ErrAlgMismatch; code <= ErrSignerDestroyed; code++ {
		if _, ok := errorMessages[code]; !ok {
			t.Error("Missing message for error code", int(code))
		}
	}
	if ErrorCode(0).Error() == "" {
		t.Error("Expect a message for unknown codes")
	}
}
