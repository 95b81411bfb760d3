package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/inkbridge/inkbridge-backend/internal/replay"
	"github.com/inkbridge/inkbridge-backend/pkg/config"
	"github.com/inkbridge/inkbridge-backend/pkg/db"
	"github.com/inkbridge/inkbridge-backend/pkg/forwardlog"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

// Exit codes are part of the CLI contract: operators script against them.
const (
	exitUsage   = 2
	exitNoMatch = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logg := logger.New(logger.Options{ServiceName: "replay"})

	if len(args) < 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "usage: replay <idempotency_key_or_order_number> [target_url]")
		return exitUsage
	}
	needle := args[0]

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: loading config: %v\n", err)
		return exitUsage
	}

	targetURL := cfg.Forward.TargetURL
	if len(args) > 1 && args[1] != "" {
		targetURL = args[1]
	}
	if targetURL == "" {
		fmt.Fprintln(os.Stderr, "replay: no target url given and none configured")
		return exitUsage
	}

	if cfg.DB.IsSQLite() {
		if _, err := os.Stat(cfg.DB.SQLitePath); err != nil {
			fmt.Fprintf(os.Stderr, "replay: forward log store %s not found\n", cfg.DB.SQLitePath)
			return exitUsage
		}
	}

	ctx := context.Background()
	dbClient, err := db.New(ctx, cfg.DB, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: opening forward log store: %v\n", err)
		return exitUsage
	}
	defer dbClient.Close()

	svc, err := replay.NewService(replay.ServiceParams{
		Log:    forwardlog.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 1
	}

	result, err := svc.Replay(ctx, needle, targetURL)
	if err != nil {
		if errors.Is(err, replay.ErrNoMatch) {
			fmt.Fprintf(os.Stderr, "replay: no log entry matches %q\n", needle)
			return exitNoMatch
		}
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 1
	}

	// Report, don't interpret: a non-2xx from the target is still a
	// completed replay.
	fmt.Printf("replayed entry %s (key %s) to %s, target responded %d\n",
		result.Entry.ID, result.Entry.IdempotencyKey, targetURL, result.StatusCode)
	return 0
}
