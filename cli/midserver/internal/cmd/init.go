package cmd

import (
	"path/filepath"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/application/server"
	"github.com/3nsoft/mailerid-go/application/testutil"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file for a MailerId provider.",
	Long: `Create a configuration file for a MailerId provider.

The root key and certificate are made at the first run.`,
	Args: cobra.NoArgs,
	RunE: initRunFunc,
}

func init() {
	RootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("dir", "d", ".", "Location of directory for storing generated files")
	initCmd.Flags().String("domain", "", "Domain of the provider (required)")
	initCmd.Flags().BoolP("cert", "c", false, "Generate self-signed ssl keys/cert with sane defaults")
	initCmd.MarkFlagRequired("domain")
}

func initRunFunc(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	domain, _ := cmd.Flags().GetString("domain")
	if err := mkConfig(dir, domain); err != nil {
		return err
	}
	if cert, _ := cmd.Flags().GetBool("cert"); cert {
		return testutil.CreateTLSCert(dir)
	}
	return nil
}

func mkConfig(dir, domain string) error {
	file := filepath.Join(dir, "config.toml")
	addrs := []*application.ServerAddress{
		{
			Address: "unix:///tmp/mailerid.sock",
		},
		{
			Address:     "tcp://0.0.0.0:8443",
			TLSCertPath: "server.pem",
			TLSKeyPath:  "server.key",
		},
	}
	logger := &application.LoggerConfig{
		EnableStacktrace: true,
		Environment:      "development",
		Path:             "midserver.log",
	}
	return server.NewConfig(file, "toml", domain, addrs, logger).Save()
}
