package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
)

func main() {
	var (
		scopeFlag string
		grantFlag int
		showFlag  bool
	)

	flag.StringVar(&scopeFlag, "scope", "global", "owner scope (tenant id) to operate on")
	flag.IntVar(&grantFlag, "grant", -1, "set the remaining quota to this value (omit to leave unchanged)")
	flag.BoolVar(&showFlag, "show", false, "print the current remaining quota")
	flag.Parse()

	_ = godotenv.Load()

	scope := strings.TrimSpace(scopeFlag)
	if scope == "" {
		exitWithError(errors.New("-scope is required"))
	}
	if grantFlag < 0 && !showFlag {
		exitWithError(errors.New("nothing to do: pass -grant N and/or -show"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	quotas := repo.NewQuotaRepository(pool)

	if grantFlag >= 0 {
		if err := quotas.Grant(ctx, scope, grantFlag); err != nil {
			exitWithError(fmt.Errorf("failed to grant quota: %w", err))
		}
		fmt.Printf("scope %s: remaining quota set to %d\n", scope, grantFlag)
	}

	if showFlag {
		remaining, err := quotas.Remaining(ctx, scope)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				exitWithError(fmt.Errorf("scope %s has no quota row", scope))
			}
			exitWithError(fmt.Errorf("failed to read quota: %w", err))
		}
		fmt.Printf("scope %s: %d remaining\n", scope, remaining)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
