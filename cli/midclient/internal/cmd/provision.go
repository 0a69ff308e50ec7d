package cmd

import (
	"context"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/application/client"
	"github.com/3nsoft/mailerid-go/cli"
	"github.com/3nsoft/mailerid-go/crypto"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision <relying-party-domain> <session-id>",
	Short: "Get a certified key and print an assertion for a relying party.",
	Long: `Log in to the provider with the passphrase login key, get a fresh
signing key certified, and print an assertion bundle for the given
relying party session.`,
	Args: cobra.ExactArgs(2),
	RunE: provision,
}

func init() {
	RootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringP("config", "c", "config.toml", "Config file for the client")
	provisionCmd.Flags().Int64("validity", 0, "Requested certificate validity in seconds (0 for the provider's maximum)")
}

func provision(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := application.NewLogger(conf.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()
	validity, _ := cmd.Flags().GetInt64("validity")

	pass, err := cli.ReadPassphrase("Login passphrase for "+conf.Address+": ", false)
	if err != nil {
		return err
	}
	defer crypto.Wipe(pass)

	p, err := client.NewProvisioner(conf.ServiceURL, nil, nil, logger)
	if err != nil {
		return err
	}
	signer, _, err := p.Provision(context.Background(), conf.Address,
		client.PassphraseLoginKey(pass), validity)
	if err != nil {
		return err
	}
	defer signer.Destroy()

	assertion, err := signer.GenerateAssertionFor(args[0], args[1], 0)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), &protocol.AssertionBundle{
		Assertion: assertion,
		UserCert:  signer.UserCert,
		ProvCert:  signer.ProviderCert,
	})
}
