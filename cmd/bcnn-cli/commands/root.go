package commands

import (
	"context"
	"fmt"
	"os"

	"bcnn-backend/lib/configutil"
	"bcnn-backend/lib/restyutil"
	"bcnn-backend/lib/scrapers/bcnn"
	"bcnn-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bcnn-cli",
	Short: "bcnn-cli talks to the Center-SBK cabinet: meter readings, charges and bills.",
}

var account *string
var debugHttp *bool

func init() {
	account = rootCmd.PersistentFlags().String("account", "", "The account number to operate on.")
	debugHttp = rootCmd.PersistentFlags().Bool("debug-http", false, "Dump portal request/response pairs to .dev/resty.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	BaseUrl  string `json:"base_url"`
}

func createClient() *bcnn.Client {
	cfg, err := configutil.ReadRecursively[Config]("bcnn.json5")
	if err != nil {
		serviceutil.Fatal("failed to read bcnn.json5", err)
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = "https://lk.bcnn.ru"
	}

	if *debugHttp {
		bcnn.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty"))
	}

	client, err := bcnn.NewClient(bcnn.ClientOptions{
		BaseUrl:  cfg.BaseUrl,
		Login:    cfg.Login,
		Password: cfg.Password,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize portal client", err)
	}
	return client
}

func requireAccount() string {
	if *account == "" {
		serviceutil.Fatal("missing flag", fmt.Errorf("--account is required"))
	}
	return *account
}
