// Executable MailerId identity provider. See README for
// usage instructions.
package main

import (
	"github.com/3nsoft/mailerid-go/cli"
	"github.com/3nsoft/mailerid-go/cli/midserver/internal/cmd"
)

func main() {
	cli.ExecuteRoot(cmd.RootCmd)
}
