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

	"wishfund/internal/adapter/repo"
	"wishfund/internal/domain"
	"wishfund/internal/infra"
)

func main() {
	var (
		idFlag       string
		roleFlag     string
		createFlag   bool
		usernameFlag string
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&roleFlag, "role", "blogger", "role to assign (user, blogger, admin)")
	flag.BoolVar(&createFlag, "create", false, "create the user instead of updating an existing one")
	flag.StringVar(&usernameFlag, "username", "", "username for -create")
	flag.Parse()

	_ = godotenv.Load()

	userID := strings.TrimSpace(idFlag)
	role := domain.UserRole(strings.TrimSpace(strings.ToLower(roleFlag)))
	if !role.Valid() {
		exitWithError(fmt.Errorf("unsupported role %q", roleFlag))
	}
	if !createFlag && userID == "" {
		exitWithError(errors.New("-id must be provided"))
	}
	if createFlag && strings.TrimSpace(usernameFlag) == "" {
		exitWithError(errors.New("-username is required with -create"))
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

	logger := infra.NewLogger("cli").With().Str("cmd", "userrole").Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	if createFlag {
		u := &domain.User{ID: userID, Username: strings.TrimSpace(usernameFlag), Role: role}
		if err := users.Create(ctx, u); err != nil {
			exitWithError(fmt.Errorf("failed to create user: %w", err))
		}
		fmt.Printf("User %s (%s) created with role %s\n", u.ID, u.Username, u.Role)
		return
	}

	if err := users.SetRole(ctx, userID, role); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			exitWithError(fmt.Errorf("user %s not found", userID))
		}
		exitWithError(fmt.Errorf("failed to update user role: %w", err))
	}
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to reload user: %w", err))
	}
	fmt.Printf("User %s (%s) updated to role %s\n", u.ID, u.Username, u.Role)
	fmt.Printf("balance=%s\n", u.Balance.StringFixed(2))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
