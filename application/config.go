package application

import (
	"fmt"
	"os"
)

// AppConfig provides an abstraction of the
// underlying encoding format for the configs.
type AppConfig interface {
	Load(file, encoding string) error
	Save() error
	GetPath() string
}

// CommonConfig is the generic type used to specify the configuration of
// any kind of MailerId application-level executable (the provider
// server or the client). It contains the file path, the logger
// configuration, and the config loader.
type CommonConfig struct {
	Path     string        `toml:"-"`
	Logger   *LoggerConfig `toml:"logger"`
	Encoding string        `toml:"-"`
	loader   ConfigLoader
}

// NewCommonConfig initializes an application's config file path,
// its loader for the given encoding, and the logger configuration.
// Note: This constructor must be called in each Load() method
// implementation of an AppConfig.
func NewCommonConfig(file, encoding string, logger *LoggerConfig) *CommonConfig {
	return &CommonConfig{
		Path:     file,
		Logger:   logger,
		Encoding: encoding,
		loader:   newConfigLoader(encoding),
	}
}

// GetLoader returns the config's loader.
func (conf *CommonConfig) GetLoader() ConfigLoader {
	return conf.loader
}

// GetPath returns the config file path.
func (conf *CommonConfig) GetPath() string {
	return conf.Path
}

// LoadConfig loads the config at file into conf.
// It fails early with a readable error when the file is missing.
func LoadConfig(conf AppConfig, file, encoding string) error {
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("Cannot read config file: %v", err)
	}
	return conf.Load(file, encoding)
}
