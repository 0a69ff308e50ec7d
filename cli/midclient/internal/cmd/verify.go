package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/3nsoft/mailerid-go/application/client"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <bundle-file>",
	Short: "Verify an assertion bundle as a relying party.",
	Long: `Verify an assertion bundle against the root certificates of the
provider of the user's domain, and print who it asserts.`,
	Args: cobra.ExactArgs(1),
	RunE: verify,
}

func init() {
	RootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringToString("service", nil,
		"Provider service url per user domain, e.g. example.com=https://mid.example.com/")
	verifyCmd.Flags().String("rp", "", "Expected relying party domain")
}

func verify(cmd *cobra.Command, args []string) error {
	services, _ := cmd.Flags().GetStringToString("service")
	rp, _ := cmd.Flags().GetString("rp")
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	bundle := new(protocol.AssertionBundle)
	if err := json.Unmarshal(buf, bundle); err != nil {
		return err
	}

	cache := client.NewRootCertsCache(client.StaticLocator(services), nil)
	info, err := cache.VerifyAssertion(context.Background(), bundle, time.Now().Unix())
	if err != nil {
		return err
	}
	if rp != "" && protocol.CanonicalAddress(rp) != protocol.CanonicalAddress(info.RPDomain) {
		return fmt.Errorf("assertion is for %s, not %s", info.RPDomain, rp)
	}
	return printJSON(cmd.OutOrStdout(), info)
}
