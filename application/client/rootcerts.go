package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/3nsoft/mailerid-go/protocol"
)

// ErrNoService is returned for a user domain without a known provider.
var ErrNoService = errors.New("[client] No MailerId service for domain")

// A ServiceLocator finds the service url of the provider of a domain.
type ServiceLocator func(ctx context.Context, domain string) (string, error)

// StaticLocator locates providers from a fixed domain to url map.
func StaticLocator(services map[string]string) ServiceLocator {
	canonical := make(map[string]string, len(services))
	for domain, u := range services {
		canonical[protocol.CanonicalAddress(domain)] = u
	}
	return func(_ context.Context, domain string) (string, error) {
		u, ok := canonical[protocol.CanonicalAddress(domain)]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNoService, domain)
		}
		return u, nil
	}
}

// A RootCertsCache keeps providers' root certificates for relying
// parties. A chain that verifies against none of the cached roots gets
// one more try with freshly fetched ones.
type RootCertsCache struct {
	locate ServiceLocator
	client *http.Client

	mu    sync.Mutex
	roots map[string]*protocol.ServiceRoot
}

// NewRootCertsCache returns an empty cache. A nil httpClient gets a
// client with DefaultTimeout.
func NewRootCertsCache(locate ServiceLocator, httpClient *http.Client) *RootCertsCache {
	return &RootCertsCache{
		locate: locate,
		client: defaultHTTPClient(httpClient),
		roots:  make(map[string]*protocol.ServiceRoot),
	}
}

// Get returns the service root of the provider of domain, fetching it
// when it is not cached or refresh is set.
func (c *RootCertsCache) Get(ctx context.Context, domain string, refresh bool) (*protocol.ServiceRoot, error) {
	serviceURL, err := c.locate(ctx, domain)
	if err != nil {
		return nil, err
	}
	if !refresh {
		c.mu.Lock()
		root, ok := c.roots[serviceURL]
		c.mu.Unlock()
		if ok {
			return root, nil
		}
	}
	root, err := FetchServiceRoot(ctx, c.client, serviceURL)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.roots[serviceURL] = root
	c.mu.Unlock()
	return root, nil
}

// VerifyAssertion verifies an assertion bundle at validAt against the
// root certificates of the provider of the user's domain, current one
// first.
func (c *RootCertsCache) VerifyAssertion(ctx context.Context, bundle *protocol.AssertionBundle,
	validAt int64) (*protocol.AssertionInfo, error) {
	if bundle == nil || bundle.Assertion == nil || bundle.UserCert == nil || bundle.ProvCert == nil {
		return nil, protocol.ErrCertMalformed
	}
	user, err := protocol.PrincipalAddress(bundle.UserCert)
	if err != nil {
		return nil, err
	}
	domain := protocol.AddressDomain(user)

	root, err := c.Get(ctx, domain, false)
	if err != nil {
		return nil, err
	}
	info, err := verifyWithRoots(bundle, root, validAt)
	if err == nil {
		return info, nil
	}
	root, ferr := c.Get(ctx, domain, true)
	if ferr != nil {
		return nil, err
	}
	return verifyWithRoots(bundle, root, validAt)
}

func verifyWithRoots(bundle *protocol.AssertionBundle, root *protocol.ServiceRoot,
	validAt int64) (*protocol.AssertionInfo, error) {
	rootAddr, err := protocol.PrincipalAddress(root.CurrentCert)
	if err != nil {
		return nil, err
	}
	certs := append([]*protocol.SignedLoad{root.CurrentCert}, root.PreviousCerts...)
	var firstErr error
	for _, rootCert := range certs {
		chain := &protocol.CertsChain{Root: rootCert, Prov: bundle.ProvCert, User: bundle.UserCert}
		info, err := protocol.VerifyAssertion(bundle.Assertion, chain, rootAddr, validAt)
		if err == nil {
			return info, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
