package cmd

import (
	"path/filepath"

	"github.com/3nsoft/mailerid-go/application/client"
	"github.com/3nsoft/mailerid-go/cli"
	"github.com/spf13/cobra"
)

var initCmd = cli.NewInitCommand("MailerId client", mkConfig)

func init() {
	RootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("dir", "d", ".", "Location of directory for storing generated files")
	initCmd.Flags().String("service", "", "Service url of the provider (required)")
	initCmd.Flags().String("address", "", "MailerId address of the user (required)")
	initCmd.MarkFlagRequired("service")
	initCmd.MarkFlagRequired("address")
}

func mkConfig(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	service, _ := cmd.Flags().GetString("service")
	address, _ := cmd.Flags().GetString("address")
	conf := client.NewConfig(filepath.Join(dir, "config.toml"), "toml", service, address)
	return conf.Save()
}
