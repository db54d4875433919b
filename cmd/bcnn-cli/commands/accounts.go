package commands

import (
	"fmt"
	"os"

	"bcnn-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts attached to the logged-in user.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		info, err := client.FetchAccounts(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to fetch accounts", err)
		}
		for _, acc := range info.Accounts {
			fmt.Println(acc)
		}
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the account's address record as returned by the portal.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		address, err := client.FetchAddress(cmd.Context(), requireAccount())
		if err != nil {
			serviceutil.Fatal("failed to fetch address", err)
		}
		os.Stdout.Write(address)
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(addressCmd)
}
