package cmd

import (
	"github.com/3nsoft/mailerid-go/cli"
)

var versionCmd = cli.NewVersionCommand("midserver")

func init() {
	RootCmd.AddCommand(versionCmd)
}
