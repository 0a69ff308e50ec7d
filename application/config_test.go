package application

import (
	"path/filepath"
	"testing"
)

type testConfig struct {
	*CommonConfig
	Domain string `toml:"domain"`
}

func (conf *testConfig) Load(file, encoding string) error {
	conf.CommonConfig = NewCommonConfig(file, encoding, nil)
	return conf.GetLoader().Decode(conf)
}

func (conf *testConfig) Save() error {
	return conf.GetLoader().Encode(conf)
}

func TestConfigSaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	conf := &testConfig{
		CommonConfig: NewCommonConfig(file, "toml", &LoggerConfig{Environment: "development"}),
		Domain:       "example.com",
	}
	if err := conf.Save(); err != nil {
		t.Fatal(err)
	}
	if err := conf.Save(); err == nil {
		t.Fatal("Expected saving over an existing config to fail")
	}

	loaded := new(testConfig)
	if err := LoadConfig(loaded, file, "toml"); err != nil {
		t.Fatal(err)
	}
	if loaded.Domain != "example.com" || loaded.Logger == nil ||
		loaded.Logger.Environment != "development" {
		t.Fatalf("Unexpected config %+v", loaded)
	}
	if loaded.GetPath() != file {
		t.Fatal("Config lost its path")
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if err := LoadConfig(new(testConfig), filepath.Join(t.TempDir(), "none.toml"), "toml"); err == nil {
		t.Fatal("Expected an error for a missing config")
	}
}
