package commands

import (
	"fmt"
	"strings"

	"bcnn-backend/lib/scrapers/bcnn"
	"bcnn-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <device=value>...",
	Short: "Submit meter readings, one device=value pair per argument.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var readings []bcnn.Reading
		for _, arg := range args {
			device, value, ok := strings.Cut(arg, "=")
			if !ok {
				serviceutil.Fatal("bad argument", fmt.Errorf("expected device=value, got %q", arg))
			}
			readings = append(readings, bcnn.Reading{
				DeviceNumber: device,
				Value:        value,
			})
		}

		client := createClient()
		err := client.SubmitReadings(cmd.Context(), requireAccount(), readings)
		if err != nil {
			serviceutil.Fatal("failed to submit readings", err)
		}
		fmt.Println("readings accepted")
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
