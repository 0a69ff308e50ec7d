package client

import (
	"github.com/3nsoft/mailerid-go/application"
)

// Config contains the client's configuration needed to get
// certificates from a MailerId provider: the provider's service url,
// the user's address and, optionally, the login key id to use.
type Config struct {
	*application.CommonConfig

	ServiceURL string `toml:"service_url"`
	Address    string `toml:"address"`
	LoginKeyID string `toml:"login_kid,omitempty"`
}

var _ application.AppConfig = (*Config)(nil)

// NewConfig initializes a new client configuration at the
// given file path, with the given config encoding, provider service
// url and user address.
func NewConfig(file, encoding, serviceURL, address string) *Config {
	return &Config{
		CommonConfig: application.NewCommonConfig(file, encoding,
			&application.LoggerConfig{Environment: "production"}),
		ServiceURL: serviceURL,
		Address:    address,
	}
}

// Load initializes a client's configuration from the given file
// using the given encoding.
func (conf *Config) Load(file, encoding string) error {
	conf.CommonConfig = application.NewCommonConfig(file, encoding, nil)
	return conf.GetLoader().Decode(conf)
}

// Save writes a client's configuration.
func (conf *Config) Save() error {
	return conf.GetLoader().Encode(conf)
}
