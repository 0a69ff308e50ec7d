package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/3nsoft/mailerid-go/application/server"
	"github.com/3nsoft/mailerid-go/storage/kv/leveldbkv"
	"github.com/3nsoft/mailerid-go/storage/users"
	"github.com/spf13/cobra"
)

var listUsersCmd = &cobra.Command{
	Use:   "listusers",
	Short: "List the users and their login key ids.",
	Long: `List the users and their login key ids, default key first.

The users database is locked by a running provider, so stop it first.`,
	Args: cobra.NoArgs,
	RunE: listUsers,
}

func init() {
	RootCmd.AddCommand(listUsersCmd)
	listUsersCmd.Flags().StringP("config", "c", "config.toml", "Path to server configuration file")
}

func listUsers(cmd *cobra.Command, args []string) error {
	confPath, _ := cmd.Flags().GetString("config")
	conf := new(server.Config)
	if err := conf.Load(confPath, "toml"); err != nil {
		return err
	}
	db, err := leveldbkv.OpenDB(conf.UsersDBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return printUsers(cmd.OutOrStdout(), users.New(db))
}

func printUsers(w io.Writer, st *users.Store) error {
	ids, err := st.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		rec, err := st.Get(id)
		if err != nil {
			return err
		}
		kids := make([]string, 0, len(rec.LoginKeys))
		for _, lk := range rec.LoginKeys {
			kids = append(kids, lk.PKey.Kid)
		}
		fmt.Fprintf(w, "%s\t%s\n", id, strings.Join(kids, ","))
	}
	return nil
}
