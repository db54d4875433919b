package commands

import (
	"fmt"

	"bcnn-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var chargesCmd = &cobra.Command{
	Use:   "charges",
	Short: "Print the account's billing history by period.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		periods, err := client.FetchCharges(cmd.Context(), requireAccount())
		if err != nil {
			serviceutil.Fatal("failed to fetch charges", err)
		}
		for _, p := range periods {
			fmt.Printf("%s\topening=%s accrued=%s paid=%s due=%s\n",
				p.Period.Format("2006-01"),
				p.OpeningBalance, p.Accrued, p.Paid, p.Due)
			for _, s := range p.Services {
				fmt.Printf("\t%s\topening=%s accrued=%s paid=%s due=%s\n",
					s.Service, s.OpeningBalance, s.Accrued, s.Paid, s.Due)
			}
		}
	},
}

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Print the latest statement period only.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		payment, err := client.FetchCurrentPayment(cmd.Context(), requireAccount())
		if err != nil {
			serviceutil.Fatal("failed to fetch current payment", err)
		}
		if payment == nil {
			fmt.Println("no statement periods found")
			return
		}
		fmt.Printf("%s\topening=%s accrued=%s paid=%s due=%s\n",
			payment.Period.Format("2006-01"),
			payment.OpeningBalance, payment.Accrued, payment.Paid, payment.Due)
	},
}

func init() {
	rootCmd.AddCommand(chargesCmd)
	rootCmd.AddCommand(paymentCmd)
}
