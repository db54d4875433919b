package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"bcnn-backend/lib/configutil"
	"bcnn-backend/lib/readingstore"
	readingsdb "bcnn-backend/lib/readingstore/db"
	"bcnn-backend/lib/serviceutil"
	"bcnn-backend/lib/telemetry"
	"bcnn-backend/services/coordinator"
)

type Config struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	// account numbers to poll, all must belong to the same login
	Accounts []string `json:"accounts"`
	// sqlite file the reading history is kept in
	Database string `json:"database"`
	// directory bills are downloaded into
	BillDir string `json:"bill_dir"`
	// seconds between refresh cycles, defaults to 6 hours
	IntervalSeconds int `json:"interval_seconds"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "bcnnd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InitSlog(false)

	sqlite, err := sql.Open("sqlite", config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	_, err = sqlite.ExecContext(ctx, readingsdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to migrate database", err)
	}
	store := readingstore.NewStore(sqlite)

	clients := coordinator.NewClientCache()
	client, err := clients.Get(config.Login, config.Password)
	if err != nil {
		serviceutil.Fatal("failed to initialize portal client", err)
	}

	var coordinators []*coordinator.Coordinator
	for _, account := range config.Accounts {
		coordinators = append(coordinators, coordinator.New(coordinator.Options{
			Account: account,
			Client:  client,
			Store:   &store,
			BillDir: config.BillDir,
		}))
	}

	interval := time.Duration(config.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	refreshAll(ctx, coordinators)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshAll(ctx, coordinators)
		}
	}
}

func refreshAll(ctx context.Context, coordinators []*coordinator.Coordinator) {
	for _, c := range coordinators {
		data, err := c.Refresh(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "refresh failed", "account", c.Account(), "err", err)
			continue
		}
		slog.InfoContext(ctx, "refreshed account",
			"account", c.Account(), "devices", len(data.Devices))
	}
}
