package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"wishfund/internal/infra"
	"wishfund/migrations"
)

func main() {
	var (
		cmdFlag     string
		versionFlag int64
		timeoutFlag time.Duration
	)
	flag.StringVar(&cmdFlag, "cmd", "up", "migration command (up, down, status, version, up-to, down-to)")
	flag.Int64Var(&versionFlag, "version", 0, "target version for up-to and down-to")
	flag.DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "migrate").Logger()

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to open database: %w", err))
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load migrations: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	var results []*goose.MigrationResult
	switch strings.ToLower(strings.TrimSpace(cmdFlag)) {
	case "up":
		results, err = provider.Up(ctx)
	case "down":
		var res *goose.MigrationResult
		res, err = provider.Down(ctx)
		if res != nil {
			results = append(results, res)
		}
	case "up-to":
		results, err = provider.UpTo(ctx, versionFlag)
	case "down-to":
		results, err = provider.DownTo(ctx, versionFlag)
	case "status":
		statuses, serr := provider.Status(ctx)
		if serr != nil {
			exitWithError(fmt.Errorf("status: %w", serr))
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%5d  %-30s  %s\n", s.Source.Version, s.Source.Path, applied)
		}
		return
	case "version":
		v, verr := provider.GetDBVersion(ctx)
		if verr != nil {
			exitWithError(fmt.Errorf("version: %w", verr))
		}
		fmt.Println(v)
		return
	default:
		exitWithError(fmt.Errorf("unsupported command %q", cmdFlag))
	}

	for _, r := range results {
		logger.Info().
			Int64("version", r.Source.Version).
			Str("direction", r.Direction).
			Dur("took", r.Duration).
			Msg("migration applied")
	}
	if err != nil {
		exitWithError(fmt.Errorf("%s: %w", cmdFlag, err))
	}
	if len(results) == 0 {
		logger.Info().Msg("no migrations to run")
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
