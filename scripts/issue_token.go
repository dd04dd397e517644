//go:build ignore

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"shopfront/internal/auth"

	"github.com/google/uuid"
)

// Prints a bearer token for local testing, signed with JWT_SECRET.
//
//	go run scripts/issue_token.go -role admin
func main() {
	role := flag.String("role", auth.RoleUser, "token role (user or admin)")
	userID := flag.String("user", "", "user id (random when empty)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set")
		os.Exit(1)
	}

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid user id: %v\n", err)
			os.Exit(1)
		}
		id = parsed
	}

	token, err := auth.NewTokens(secret).Issue(auth.Identity{UserID: id, Role: *role}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("user: %s\nrole: %s\n\n%s\n", id, *role, token)
}
