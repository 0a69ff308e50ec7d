package server

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/protocol"
)

func newTestProvider(t *testing.T, rootPath string, policies *Policies,
	clock *fakeClock) *IdProvider {
	p, err := NewIdProvider(testDomain, rootPath, policies, clock.Now, application.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Destroy)
	return p
}

func TestBootstrapAndLoadRoot(t *testing.T) {
	rootPath := filepath.Join(t.TempDir(), "root-certs.json")
	clock := newFakeClock()
	p := newTestProvider(t, rootPath, nil, clock)

	buf, err := os.ReadFile(rootPath)
	if err != nil {
		t.Fatal(err)
	}
	rf := new(rootFile)
	if err := json.Unmarshal(buf, rf); err != nil {
		t.Fatal(err)
	}
	if rf.SKey == nil || rf.SKey.Use != protocol.KeyUseRoot {
		t.Fatal("Root secret key is not persisted")
	}
	if !rf.Certs.Current.Equal(p.RootCert()) || len(rf.Certs.Previous) != 0 {
		t.Fatal("Persisted certs differ from served ones")
	}
	kc, _ := protocol.DecodeKeyCert(p.RootCert())
	if kc.ExpiresAt-kc.IssuedAt != RootCertValidity {
		t.Fatal("Unexpected root validity", kc.ExpiresAt-kc.IssuedAt)
	}

	// a second start loads the same root
	p2 := newTestProvider(t, rootPath, nil, clock)
	if !p2.RootCert().Equal(p.RootCert()) {
		t.Fatal("Root was regenerated on load")
	}
}

func TestLoadRootDomainMismatch(t *testing.T) {
	rootPath := filepath.Join(t.TempDir(), "root-certs.json")
	clock := newFakeClock()
	newTestProvider(t, rootPath, nil, clock)
	_, err := NewIdProvider("other.example", rootPath, nil, clock.Now, application.NewNopLogger())
	if !errors.Is(err, ErrDomainMismatch) {
		t.Fatal("Expected", ErrDomainMismatch, "got", err)
	}
}

func TestRootRotation(t *testing.T) {
	rootPath := filepath.Join(t.TempDir(), "root-certs.json")
	clock := newFakeClock()
	policies := &Policies{RootCertValidity: 30 * 24 * 60 * 60}
	p := newTestProvider(t, rootPath, policies, clock)
	oldRoot := p.RootCert()

	// 25 days later the root cannot cover a 10 days provider cert
	clock.Advance(25 * 24 * time.Hour)
	p2 := newTestProvider(t, rootPath, policies, clock)
	if p2.RootCert().Equal(oldRoot) {
		t.Fatal("Root was not rotated")
	}
	prev := p2.PrevCerts()
	if len(prev) != 1 || !prev[0].Equal(oldRoot) {
		t.Fatal("Old root is not kept as previous")
	}
	buf, _ := os.ReadFile(rootPath)
	rf := new(rootFile)
	json.Unmarshal(buf, rf)
	if !rf.Certs.Current.Equal(p2.RootCert()) || len(rf.Certs.Previous) != 1 {
		t.Fatal("Rotation was not persisted")
	}

	// the new provider cert chains to the new root
	chain := &protocol.CertsChain{Root: p2.RootCert(), Prov: p2.Certifier().ProvCert}
	_, err := protocol.VerifyCertAndGetPubKey(chain.Prov, protocol.KeyUseProvider,
		clock.Now().Unix(), testDomain, rootPubKey(t, chain.Root))
	if err != nil {
		t.Fatal(err)
	}
}

func rootPubKey(t *testing.T, root *protocol.SignedLoad) *protocol.Key {
	kc, err := protocol.DecodeKeyCert(root)
	if err != nil {
		t.Fatal(err)
	}
	info, err := protocol.VerifyCertAndGetPubKey(root, protocol.KeyUseRoot,
		kc.IssuedAt, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	return info.PKey
}

func TestProviderUpdateCycle(t *testing.T) {
	clock := newFakeClock()
	p := newTestProvider(t, filepath.Join(t.TempDir(), "root-certs.json"), nil, clock)
	first := p.Certifier()

	// before expiry minus two update periods nothing changes
	clock.Advance(time.Duration(ProviderCertValidity-2*UpdatePeriod-60) * time.Second)
	p.Update()
	if p.Certifier() != first {
		t.Fatal("Provider updated too early")
	}

	clock.Advance(2 * time.Minute)
	p.Update()
	second := p.Certifier()
	if second == first {
		t.Fatal("Provider was not updated")
	}
	if second.ProvCert.Equal(first.ProvCert) {
		t.Fatal("Provider cert was not replaced")
	}
	pkey, _, _ := protocol.GenerateSigningKeyPair(protocol.KeyUseSign, nil)
	if _, err := first.Certify(protocol.KeyToJSON(pkey), testUser, 0); !errors.Is(err, protocol.ErrCertifierDestroyed) {
		t.Fatal("Old certifier still works:", err)
	}
}

func TestCertifierBoundedByProvider(t *testing.T) {
	clock := newFakeClock()
	p := newTestProvider(t, filepath.Join(t.TempDir(), "root-certs.json"), nil, clock)
	pkey, _, err := protocol.GenerateSigningKeyPair(protocol.KeyUseSign, nil)
	if err != nil {
		t.Fatal(err)
	}

	// one hour before the provider cert expires
	clock.Advance(time.Duration(ProviderCertValidity-3600) * time.Second)
	reply, err := p.Certifier().Certify(protocol.KeyToJSON(pkey), testUser, 0)
	if err != nil {
		t.Fatal(err)
	}
	user, _ := protocol.DecodeKeyCert(reply.UserCert)
	prov, _ := protocol.DecodeKeyCert(reply.ProvCert)
	if user.ExpiresAt > prov.ExpiresAt {
		t.Fatal("User cert outlives the provider cert")
	}

	clock.Advance(2 * time.Hour)
	if _, err := p.Certifier().Certify(protocol.KeyToJSON(pkey), testUser, 0); !errors.Is(err, protocol.ErrCertExpired) {
		t.Fatal("Expected", protocol.ErrCertExpired, "got", err)
	}
}

func TestPoliciesCheck(t *testing.T) {
	_, err := NewIdProvider(testDomain, filepath.Join(t.TempDir(), "r.json"),
		&Policies{UpdatePeriod: ProviderCertValidity}, nil, application.NewNopLogger())
	if err != ErrUpdatePeriod {
		t.Fatal("Expected", ErrUpdatePeriod, "got", err)
	}
	_, err = NewIdProvider(testDomain, filepath.Join(t.TempDir(), "r.json"),
		&Policies{UserCertValidity: protocol.MaxUserCertValidity + 1}, nil, application.NewNopLogger())
	if !errors.Is(err, protocol.ErrInvalidValidity) {
		t.Fatal("Expected", protocol.ErrInvalidValidity, "got", err)
	}
}
