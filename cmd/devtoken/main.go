package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"wishfund/internal/domain"
	"wishfund/internal/middleware"
)

// devtoken prints a bearer token signed with JWT_SECRET, for local testing of
// the authenticated routes.
func main() {
	var (
		userFlag   string
		roleFlag   string
		localeFlag string
		ttlFlag    time.Duration
	)
	flag.StringVar(&userFlag, "user", "", "user ID to put in the subject (UUID); random when empty")
	flag.StringVar(&roleFlag, "role", "user", "role claim (user, blogger, admin)")
	flag.StringVar(&localeFlag, "locale", "", "optional locale claim (ru, en)")
	flag.DurationVar(&ttlFlag, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		exitWithError(errors.New("JWT_SECRET is required"))
	}

	role := domain.UserRole(strings.ToLower(strings.TrimSpace(roleFlag)))
	if !role.Valid() {
		exitWithError(fmt.Errorf("unsupported role %q", roleFlag))
	}
	userID := strings.TrimSpace(userFlag)
	if userID == "" {
		userID = uuid.NewString()
	} else if _, err := uuid.Parse(userID); err != nil {
		exitWithError(fmt.Errorf("invalid -user: %w", err))
	}

	claims := middleware.NewClaims(userID, role, ttlFlag)
	claims.Locale = strings.TrimSpace(localeFlag)
	token, err := middleware.SignJWT(secret, claims)
	if err != nil {
		exitWithError(fmt.Errorf("failed to sign token: %w", err))
	}
	fmt.Fprintf(os.Stderr, "subject=%s role=%s expires=%s\n", userID, role, claims.ExpiresAt.Time.Format(time.RFC3339))
	fmt.Println(token)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
