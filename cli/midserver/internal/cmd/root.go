// Package cmd implements the CLI commands for a MailerId provider.
package cmd

import (
	"github.com/3nsoft/mailerid-go/cli"
)

// RootCmd represents the base "midserver" command when called without any subcommands.
var RootCmd = cli.NewRootCommand("midserver",
	"MailerId identity provider",
	`midserver certifies the signing keys of its users' MailerId
addresses after a public key login, and publishes the root
certificates relying parties verify them with.`)
