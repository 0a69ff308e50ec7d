package server

import (
	"errors"
	"fmt"

	"github.com/3nsoft/mailerid-go/protocol"
)

// Default key lifetimes and the provider update period, in seconds.
const (
	RootCertValidity     int64 = 365 * 24 * 60 * 60
	ProviderCertValidity int64 = 10 * 24 * 60 * 60
	UpdatePeriod         int64 = 8 * 60 * 60
)

// ErrUpdatePeriod is returned for an update period that cannot keep
// the provider certificate ahead of its expiry.
var ErrUpdatePeriod = errors.New("[midserver] Update period must be shorter than provider certificate validity")

// Policies contains a provider's key management policies: validity
// periods of root, provider and user certificates and the period of
// the provider update cycle, all in seconds. Zero values take the
// defaults.
type Policies struct {
	RootCertValidity     int64 `toml:"root_cert_validity,omitempty"`
	ProviderCertValidity int64 `toml:"provider_cert_validity,omitempty"`
	UserCertValidity     int64 `toml:"user_cert_validity,omitempty"`
	UpdatePeriod         int64 `toml:"update_period,omitempty"`
}

// NewPolicies returns the default policies.
func NewPolicies() *Policies {
	return &Policies{
		RootCertValidity:     RootCertValidity,
		ProviderCertValidity: ProviderCertValidity,
		UserCertValidity:     protocol.MaxUserCertValidity,
		UpdatePeriod:         UpdatePeriod,
	}
}

// withDefaults fills zero fields with the defaults and checks the
// result.
func (p *Policies) withDefaults() (*Policies, error) {
	def := NewPolicies()
	if p == nil {
		return def, nil
	}
	res := *p
	if res.RootCertValidity == 0 {
		res.RootCertValidity = def.RootCertValidity
	}
	if res.ProviderCertValidity == 0 {
		res.ProviderCertValidity = def.ProviderCertValidity
	}
	if res.UserCertValidity == 0 {
		res.UserCertValidity = def.UserCertValidity
	}
	if res.UpdatePeriod == 0 {
		res.UpdatePeriod = def.UpdatePeriod
	}
	switch {
	case res.RootCertValidity < 1, res.ProviderCertValidity < 1, res.UpdatePeriod < 1:
		return nil, fmt.Errorf("[midserver] Negative validity in policies: %w", protocol.ErrInvalidValidity)
	case res.UserCertValidity < 1 || res.UserCertValidity > protocol.MaxUserCertValidity:
		return nil, fmt.Errorf("[midserver] User certificate validity %d: %w",
			res.UserCertValidity, protocol.ErrInvalidValidity)
	case res.UpdatePeriod >= res.ProviderCertValidity:
		return nil, ErrUpdatePeriod
	}
	return &res, nil
}
