package commands

import (
	"fmt"
	"os"

	"bcnn-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var billOut *string

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Download the account's payment bill as a PDF.",
	Run: func(cmd *cobra.Command, args []string) {
		account := requireAccount()
		client := createClient()
		pdf, err := client.FetchBill(cmd.Context(), account)
		if err != nil {
			serviceutil.Fatal("failed to fetch bill", err)
		}

		out := *billOut
		if out == "" {
			out = fmt.Sprintf("bill_%s.pdf", account)
		}
		err = os.WriteFile(out, pdf, 0644)
		if err != nil {
			serviceutil.Fatal("failed to write bill", err)
		}
		fmt.Println("wrote", out)
	},
}

func init() {
	billOut = billCmd.Flags().String("out", "", "Path to write the PDF to, defaults to bill_<account>.pdf.")
	rootCmd.AddCommand(billCmd)
}
