// Executable MailerId client: provisions certificates from a provider
// and verifies assertions as a relying party.
package main

import (
	"github.com/3nsoft/mailerid-go/cli"
	"github.com/3nsoft/mailerid-go/cli/midclient/internal/cmd"
)

func main() {
	cli.ExecuteRoot(cmd.RootCmd)
}
