package server

import (
	"time"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/utils"
)

// DefaultSessionTimeout is the lifetime of an idle login session.
const DefaultSessionTimeout = 120

// A Config contains configuration values
// which are read at initialization time from
// a TOML format configuration file.
type Config struct {
	*application.CommonConfig
	// Domain is the provider's own domain, the principal of its root
	// certificate and the issuer of user certificates.
	Domain string `toml:"domain"`
	// Domains lists further user domains served by this provider.
	Domains []string `toml:"domains,omitempty"`
	// Redirects maps user domains served elsewhere to the service
	// url of their provider.
	Redirects map[string]string `toml:"redirects,omitempty"`
	// RootCertsPath is the file with the root key and certificates.
	RootCertsPath string `toml:"root_certs_path"`
	// UsersDBPath is the directory of the users database.
	UsersDBPath string `toml:"users_db_path"`
	// SessionTimeout is the idle login session lifetime in seconds.
	SessionTimeout int64 `toml:"session_timeout,omitempty"`
	// Metrics enables the /metrics route.
	Metrics bool `toml:"metrics,omitempty"`
	// Policies contains the key management policies.
	Policies *Policies `toml:"policies,omitempty"`
	// Addresses contains the server's connections configuration.
	Addresses []*application.ServerAddress `toml:"addresses"`
}

var _ application.AppConfig = (*Config)(nil)

// NewConfig initializes a new server configuration for domain with
// the given addresses and logger configuration. Data files are named
// relative to the config file.
func NewConfig(file, encoding, domain string, addrs []*application.ServerAddress,
	logConfig *application.LoggerConfig) *Config {
	return &Config{
		CommonConfig:   application.NewCommonConfig(file, encoding, logConfig),
		Domain:         protocol.CanonicalAddress(domain),
		RootCertsPath:  "root-certs.json",
		UsersDBPath:    "users.db",
		SessionTimeout: DefaultSessionTimeout,
		Policies:       NewPolicies(),
		Addresses:      addrs,
	}
}

// Load initializes a server configuration from the corresponding
// config file. Relative paths in it are resolved against the config
// file's directory.
func (conf *Config) Load(file, encoding string) error {
	conf.CommonConfig = application.NewCommonConfig(file, encoding, nil)
	if err := conf.GetLoader().Decode(conf); err != nil {
		return err
	}
	conf.Domain = protocol.CanonicalAddress(conf.Domain)
	conf.RootCertsPath = utils.ResolvePath(conf.RootCertsPath, file)
	conf.UsersDBPath = utils.ResolvePath(conf.UsersDBPath, file)
	for _, addr := range conf.Addresses {
		if addr.TLSCertPath != "" {
			addr.TLSCertPath = utils.ResolvePath(addr.TLSCertPath, file)
		}
		if addr.TLSKeyPath != "" {
			addr.TLSKeyPath = utils.ResolvePath(addr.TLSKeyPath, file)
		}
	}
	if conf.Logger != nil && conf.Logger.Path != "" {
		conf.Logger.Path = utils.ResolvePath(conf.Logger.Path, file)
	}
	return nil
}

// Save writes the configuration to its file, refusing to overwrite.
func (conf *Config) Save() error {
	return conf.GetLoader().Encode(conf)
}

// sessionTimeout returns the configured session timeout.
func (conf *Config) sessionTimeout() time.Duration {
	if conf.SessionTimeout <= 0 {
		return DefaultSessionTimeout * time.Second
	}
	return time.Duration(conf.SessionTimeout) * time.Second
}

// serves reports whether users of domain get their certificates here.
func (conf *Config) serves(domain string) bool {
	if domain == conf.Domain {
		return true
	}
	for _, d := range conf.Domains {
		if protocol.CanonicalAddress(d) == domain {
			return true
		}
	}
	return false
}
