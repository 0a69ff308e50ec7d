package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/3nsoft/mailerid-go/application/client"
	"github.com/spf13/cobra"
)

const configMissingUsage = `
Couldn't load client's config-file.

To create a valid config, run
  midclient init --service https://mid.example.com/ --address alice@example.com

The client looks for a file called 'config.toml' in its current working directory.
If you prefer the config-file to be named or stored somewhere different you can
specify where to look for the config with the --config flag.`

func loadConfig(cmd *cobra.Command) (*client.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	conf := new(client.Config)
	if err := conf.Load(file, "toml"); err != nil {
		return nil, fmt.Errorf("%v\n%s", err, configMissingUsage)
	}
	return conf, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
