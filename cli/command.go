// Package cli builds the cobra commands shared by the MailerId
// executables.
package cli

import (
	"github.com/spf13/cobra"
)

// cobraCommand is used to implement any type of cobra command
// for any of the MailerId command-line tools.
type cobraCommand interface {
	Build() *cobra.Command
}
