package cmd

import (
	"fmt"

	"github.com/3nsoft/mailerid-go/application/client"
	"github.com/3nsoft/mailerid-go/application/server"
	"github.com/3nsoft/mailerid-go/cli"
	"github.com/3nsoft/mailerid-go/crypto"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/storage/kv/leveldbkv"
	"github.com/3nsoft/mailerid-go/storage/users"
	"github.com/spf13/cobra"
)

var addUserCmd = &cobra.Command{
	Use:   "adduser <address>",
	Short: "Add a user with a passphrase login key.",
	Long: `Add a user with a passphrase login key.

The users database is locked by a running provider, so stop it first.`,
	Args: cobra.ExactArgs(1),
	RunE: addUser,
}

func init() {
	RootCmd.AddCommand(addUserCmd)
	addUserCmd.Flags().StringP("config", "c", "config.toml", "Path to server configuration file")
}

func addUser(cmd *cobra.Command, args []string) error {
	confPath, _ := cmd.Flags().GetString("config")
	conf := new(server.Config)
	if err := conf.Load(confPath, "toml"); err != nil {
		return err
	}
	address := protocol.CanonicalAddress(args[0])
	if domain := protocol.AddressDomain(address); domain != conf.Domain {
		found := false
		for _, d := range conf.Domains {
			found = found || protocol.CanonicalAddress(d) == domain
		}
		if !found {
			return fmt.Errorf("domain %s is not served here", domain)
		}
	}

	pass, err := cli.ReadPassphrase("Login passphrase for "+address+": ", true)
	if err != nil {
		return err
	}
	defer crypto.Wipe(pass)
	pkey, params, err := client.NewLoginKey(pass)
	if err != nil {
		return err
	}

	db, err := leveldbkv.OpenDB(conf.UsersDBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	err = users.New(db).Add(&users.Record{
		ID:        address,
		LoginKeys: []*users.LoginKey{{PKey: pkey, KDParams: params}},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s with login key %s\n", address, pkey.Kid)
	return nil
}
