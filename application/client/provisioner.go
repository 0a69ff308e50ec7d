package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/crypto/box"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/protocol/pkl"
)

// A Provisioner gets MailerId certificates from a provider: it logs in
// with the user's login key and has a fresh signing key certified.
type Provisioner struct {
	serviceURL *url.URL
	client     *http.Client
	clock      protocol.Clock
	logger     *application.Logger
}

// NewProvisioner returns a Provisioner for the provider at serviceURL.
// A nil httpClient gets a client with DefaultTimeout, and a nil logger
// discards.
func NewProvisioner(serviceURL string, httpClient *http.Client,
	clock protocol.Clock, logger *application.Logger) (*Provisioner, error) {
	if !strings.HasSuffix(serviceURL, "/") {
		serviceURL += "/"
	}
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = application.NewNopLogger()
	}
	return &Provisioner{
		serviceURL: u,
		client:     defaultHTTPClient(httpClient),
		clock:      clock,
		logger:     logger,
	}, nil
}

// Provision logs address in and returns a signer holding a fresh
// signing key certified for validFor seconds (zero for the provider's
// maximum). The chain the provider returns is checked against its
// current root before the signer is made.
func (p *Provisioner) Provision(ctx context.Context, address string,
	loginKey LoginKeyFunc, validFor int64) (*protocol.MailerIdSigner, *protocol.SignedLoad, error) {
	root, err := FetchServiceRoot(ctx, p.client, p.serviceURL.String())
	if err != nil {
		return nil, nil, err
	}
	provURL, err := p.serviceURL.Parse(root.Provisioning)
	if err != nil {
		return nil, nil, err
	}

	ex, err := p.login(ctx, provURL, address, loginKey)
	if err != nil {
		return nil, nil, err
	}
	defer ex.Destroy()
	reply, skey, err := p.certify(ctx, provURL, ex, validFor)
	if err != nil {
		return nil, nil, err
	}
	defer skey.Wipe()

	chain := &protocol.CertsChain{Root: root.CurrentCert, Prov: reply.ProvCert, User: reply.UserCert}
	kc, err := protocol.DecodeKeyCert(reply.UserCert)
	if err != nil {
		return nil, nil, err
	}
	rootAddr, err := protocol.PrincipalAddress(root.CurrentCert)
	if err != nil {
		return nil, nil, err
	}
	info, err := protocol.VerifyChainAndGetUserKey(chain, rootAddr, kc.IssuedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("provider returned a bad chain: %w", err)
	}
	if info.Address != protocol.CanonicalAddress(address) {
		return nil, nil, fmt.Errorf("certificate is for %s: %w", info.Address, protocol.ErrCertsMismatch)
	}
	signer, err := protocol.NewMailerIdSigner(skey, reply.UserCert, reply.ProvCert, 0, p.clock)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Info("Provisioned MailerId certificate", "address", info.Address,
		"expires", kc.ExpiresAt)
	return signer, root.CurrentCert, nil
}

func (p *Provisioner) login(ctx context.Context, provURL *url.URL, address string,
	loginKey LoginKeyFunc) (*pkl.ClientExchange, error) {
	startURL, _ := provURL.Parse("pkl/start")
	completeURL, _ := provURL.Parse("pkl/complete")

	req, err := json.Marshal(&pkl.StartRequest{UserID: protocol.CanonicalAddress(address)})
	if err != nil {
		return nil, err
	}
	buf, header, err := post(ctx, p.client, startURL, "", application.ContentTypeJSON, req)
	if err != nil {
		return nil, err
	}
	reply := new(pkl.StartReply)
	if err := json.Unmarshal(buf, reply); err != nil {
		return nil, err
	}
	if reply.SessionID == "" {
		reply.SessionID = header.Get(pkl.SessionHeader)
	}

	sk, err := loginKey(reply.KeyDerivParams)
	if err != nil {
		return nil, err
	}
	ex, err := pkl.NewClientExchange(reply, sk)
	box.WipeKey(sk)
	if err != nil {
		return nil, err
	}
	resp, err := ex.Response()
	if err != nil {
		ex.Destroy()
		return nil, err
	}
	tag, _, err := post(ctx, p.client, completeURL, ex.SessionID(), application.ContentTypeBinary, resp)
	if err != nil {
		ex.Destroy()
		return nil, err
	}
	if err := ex.VerifyServer(tag); err != nil {
		ex.Destroy()
		return nil, err
	}
	return ex, nil
}

func (p *Provisioner) certify(ctx context.Context, provURL *url.URL, ex *pkl.ClientExchange,
	validFor int64) (*protocol.CertifyReply, *protocol.JSONKey, error) {
	certifyURL, _ := provURL.Parse("certify")
	pkey, skey, err := protocol.GenerateSigningKeyPair(protocol.KeyUseSign, nil)
	if err != nil {
		return nil, nil, err
	}
	jskey := protocol.KeyToJSON(skey)
	skey.Wipe()

	req, err := json.Marshal(&protocol.CertifyRequest{PKey: protocol.KeyToJSON(pkey), Duration: validFor})
	if err != nil {
		jskey.Wipe()
		return nil, nil, err
	}
	c, err := ex.Encryptor().Pack(req)
	if err != nil {
		jskey.Wipe()
		return nil, nil, err
	}
	buf, _, err := post(ctx, p.client, certifyURL, ex.SessionID(), application.ContentTypeBinary, c)
	if err != nil {
		jskey.Wipe()
		return nil, nil, err
	}
	plain, err := ex.Encryptor().Open(buf)
	ex.Encryptor().Destroy()
	if err != nil {
		jskey.Wipe()
		return nil, nil, err
	}
	reply := new(protocol.CertifyReply)
	if err := json.Unmarshal(plain, reply); err != nil || reply.UserCert == nil || reply.ProvCert == nil {
		jskey.Wipe()
		return nil, nil, protocol.ErrCertMalformed
	}
	return reply, jskey, nil
}
