package main

import (
	"context"

	"bcnn-backend/cmd/bcnn-cli/commands"
	"bcnn-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "bcnn-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
