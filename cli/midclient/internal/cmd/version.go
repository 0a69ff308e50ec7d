package cmd

import (
	"github.com/3nsoft/mailerid-go/cli"
)

var versionCmd = cli.NewVersionCommand("midclient")

func init() {
	RootCmd.AddCommand(versionCmd)
}
