package commands

import (
	"fmt"

	"bcnn-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the account's water meters and their last readings.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient()
		devices, err := client.FetchDevices(cmd.Context(), requireAccount())
		if err != nil {
			serviceutil.Fatal("failed to fetch devices", err)
		}
		for _, d := range devices {
			fmt.Printf("%s\t%s\tprev=%s\tcur=%s\tused=%s\n",
				d.Number, d.Type, d.PrevValue, d.CurValue, d.AmountWater)
		}
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
