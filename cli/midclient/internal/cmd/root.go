// Package cmd implements the CLI commands for a MailerId client.
package cmd

import (
	"github.com/3nsoft/mailerid-go/cli"
)

// RootCmd represents the base "midclient" command when called without any
// subcommands (provision, verify, ...).
var RootCmd = cli.NewRootCommand("midclient",
	"MailerId client",
	`midclient logs in to a MailerId provider to get a certified signing
key, signs assertions with it, and verifies assertions of others.`)
