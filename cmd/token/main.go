// Command token issues a bearer token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"ridebook/internal/auth"
	"ridebook/internal/config"
	"ridebook/internal/domain"
)

func main() {
	userID := flag.String("user", "", "user ID (token subject)")
	role := flag.String("role", string(domain.RoleCustomer), "RIDER, CUSTOMER or STAFF")
	staff := flag.Bool("staff", false, "grant staff rights")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	r := domain.Role(*role)
	if *userID == "" || !r.Valid() {
		logger.Error("a user ID and a valid role are required", "user", *userID, "role", *role)
		os.Exit(2)
	}

	cfg := config.Load()
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	token, err := tokens.GenerateToken(&domain.User{ID: *userID, Role: r, IsStaff: *staff || r == domain.RoleStaff})
	if err != nil {
		logger.Error("failed to sign token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
