package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/utils"
)

// ErrDomainMismatch is returned when the persisted root certificate
// belongs to another domain than the configured one.
var ErrDomainMismatch = errors.New("[midserver] Root certificate is for another domain")

// rootFile is the persisted root key with the root certificate history.
type rootFile struct {
	SKey  *protocol.JSONKey   `json:"skey"`
	Certs *protocol.RootCerts `json:"certs"`
}

// A Certifier is a provider certifier together with the provider
// certificate of its key.
type Certifier struct {
	certifier *protocol.IdProviderCertifier
	ProvCert  *protocol.SignedLoad
	expiresAt int64
	clock     protocol.Clock
}

// Certify issues a user certificate for address, never valid past
// the provider certificate.
func (c *Certifier) Certify(pkey *protocol.JSONKey, address string,
	validFor int64) (*protocol.CertifyReply, error) {
	remaining := c.expiresAt - unixNow(c.clock)
	if remaining < 1 {
		return nil, protocol.ErrCertExpired
	}
	if validFor == 0 || validFor > remaining {
		validFor = remaining
	}
	userCert, err := c.certifier.Certify(pkey, address, validFor)
	if err != nil {
		return nil, err
	}
	return &protocol.CertifyReply{UserCert: userCert, ProvCert: c.ProvCert}, nil
}

// Destroy wipes the provider key.
func (c *Certifier) Destroy() {
	c.certifier.Destroy()
}

func unixNow(clock protocol.Clock) int64 {
	if clock == nil {
		return time.Now().Unix()
	}
	return clock().Unix()
}

// An IdProvider owns the provider's root key and its current certifier.
// The certifier is replaced as a whole on every provider key update;
// requests read it through Certifier and never see a partly built one.
type IdProvider struct {
	domain   string
	rootPath string
	policies *Policies
	clock    protocol.Clock
	logger   *application.Logger

	// mu serializes updates of the root and provider keys.
	mu         sync.Mutex
	rootSKey   *protocol.JSONKey
	updateTime int64

	rootCerts atomic.Pointer[protocol.RootCerts]
	certifier atomic.Pointer[Certifier]
}

// NewIdProvider loads the root key at rootPath, creating it on first
// run, and issues a first provider key. A persisted root of another
// domain and inconsistent policies are errors.
func NewIdProvider(domain, rootPath string, policies *Policies,
	clock protocol.Clock, logger *application.Logger) (*IdProvider, error) {
	policies, err := policies.withDefaults()
	if err != nil {
		return nil, err
	}
	p := &IdProvider{
		domain:   protocol.CanonicalAddress(domain),
		rootPath: rootPath,
		policies: policies,
		clock:    clock,
		logger:   logger,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadRoot(); err != nil {
		return nil, err
	}
	if err := p.updateProvider(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *IdProvider) loadRoot() error {
	buf, err := os.ReadFile(p.rootPath)
	if os.IsNotExist(err) {
		return p.bootstrapRoot()
	}
	if err != nil {
		return err
	}
	rf := new(rootFile)
	if err := json.Unmarshal(buf, rf); err != nil {
		return fmt.Errorf("[midserver] Cannot parse %s: %v", p.rootPath, err)
	}
	if rf.SKey == nil || rf.Certs == nil || rf.Certs.Current == nil {
		return fmt.Errorf("[midserver] Incomplete root file %s", p.rootPath)
	}
	addr, err := protocol.PrincipalAddress(rf.Certs.Current)
	if err != nil {
		return err
	}
	if addr != p.domain {
		return fmt.Errorf("%w: %s instead of %s", ErrDomainMismatch, addr, p.domain)
	}
	p.rootSKey = rf.SKey
	p.rootCerts.Store(rf.Certs)
	p.logger.Info("Loaded root certificate", "domain", p.domain, "file", p.rootPath)
	return nil
}

// bootstrapRoot creates the root key file. The file is created
// exclusively, so two servers starting together cannot both write one.
func (p *IdProvider) bootstrapRoot() error {
	cert, skey, err := protocol.GenerateRootKey(p.domain,
		p.policies.RootCertValidity, nil, p.clock)
	if err != nil {
		return err
	}
	rf := &rootFile{
		SKey:  skey,
		Certs: &protocol.RootCerts{Current: cert, Previous: []*protocol.SignedLoad{}},
	}
	buf, err := json.Marshal(rf)
	if err != nil {
		return err
	}
	if err := utils.WriteFile(p.rootPath, buf, 0600); err != nil {
		skey.Wipe()
		return err
	}
	p.rootSKey = skey
	p.rootCerts.Store(rf.Certs)
	p.logger.Info("Created root certificate", "domain", p.domain, "file", p.rootPath)
	return nil
}

// ensureRoot rotates the root key when its certificate would not cover
// a provider certificate issued now.
func (p *IdProvider) ensureRoot() error {
	certs := p.rootCerts.Load()
	checkAt := unixNow(p.clock) + p.policies.ProviderCertValidity
	_, err := protocol.VerifyCertAndGetPubKey(certs.Current, protocol.KeyUseRoot, checkAt, "", nil)
	if err == nil {
		return nil
	}
	p.logger.Info("Root certificate needs rotation", "domain", p.domain, "reason", err.Error())

	cert, skey, err := protocol.GenerateRootKey(p.domain,
		p.policies.RootCertValidity, nil, p.clock)
	if err != nil {
		return err
	}
	previous := make([]*protocol.SignedLoad, 0, len(certs.Previous)+1)
	previous = append(previous, certs.Current)
	previous = append(previous, certs.Previous...)
	rf := &rootFile{
		SKey:  skey,
		Certs: &protocol.RootCerts{Current: cert, Previous: previous},
	}
	buf, err := json.Marshal(rf)
	if err != nil {
		skey.Wipe()
		return err
	}
	if err := utils.ReplaceFile(p.rootPath, buf, 0600); err != nil {
		skey.Wipe()
		return err
	}
	p.rootSKey.Wipe()
	p.rootSKey = skey
	p.rootCerts.Store(rf.Certs)
	rootRotations.Inc()
	p.logger.Info("Rotated root certificate", "domain", p.domain)
	return nil
}

// updateProvider mints a new provider key and swaps in its certifier.
// The old certifier is destroyed only after the swap.
func (p *IdProvider) updateProvider() error {
	if err := p.ensureRoot(); err != nil {
		return err
	}
	provCert, provSKey, err := protocol.GenerateProviderKey(p.domain,
		p.policies.ProviderCertValidity, p.rootSKey, nil, p.clock)
	if err != nil {
		return err
	}
	defer provSKey.Wipe()
	certifier, err := protocol.NewIdProviderCertifier(p.domain,
		p.policies.UserCertValidity, provSKey, p.clock)
	if err != nil {
		return err
	}
	kc, err := protocol.DecodeKeyCert(provCert)
	if err != nil {
		certifier.Destroy()
		return err
	}
	next := &Certifier{
		certifier: certifier,
		ProvCert:  provCert,
		expiresAt: kc.ExpiresAt,
		clock:     p.clock,
	}
	if old := p.certifier.Swap(next); old != nil {
		old.Destroy()
	}
	p.updateTime = kc.ExpiresAt - 2*p.policies.UpdatePeriod
	providerUpdates.Inc()
	p.logger.Info("Issued provider certificate", "domain", p.domain,
		"kid", kc.Cert.PublicKey.Kid, "expires", time.Unix(kc.ExpiresAt, 0).UTC())
	return nil
}

// Update runs one step of the provider update cycle: once the current
// provider certificate gets within two update periods of its expiry,
// a new provider key replaces it.
func (p *IdProvider) Update() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if unixNow(p.clock) < p.updateTime {
		return
	}
	if err := p.updateProvider(); err != nil {
		p.logger.Error("Provider update failed", "domain", p.domain, "error", err.Error())
	}
}

// UpdatePeriod returns the period of the update cycle.
func (p *IdProvider) UpdatePeriod() time.Duration {
	return time.Duration(p.policies.UpdatePeriod) * time.Second
}

// Domain returns the provider's domain.
func (p *IdProvider) Domain() string {
	return p.domain
}

// Certifier returns the current certifier.
func (p *IdProvider) Certifier() *Certifier {
	return p.certifier.Load()
}

// RootCert returns the current root certificate.
func (p *IdProvider) RootCert() *protocol.SignedLoad {
	return p.rootCerts.Load().Current
}

// PrevCerts returns the previous root certificates, latest first.
func (p *IdProvider) PrevCerts() []*protocol.SignedLoad {
	return p.rootCerts.Load().Previous
}

// Destroy wipes the root and provider keys.
func (p *IdProvider) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.certifier.Swap(nil); c != nil {
		c.Destroy()
	}
	p.rootSKey.Wipe()
}
