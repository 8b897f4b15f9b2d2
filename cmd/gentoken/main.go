// Package main provides a small utility for provisioning API credentials:
// it hashes admin passwords for ADMIN_PASSWORD_HASH and mints tokens for
// non-interactive clients.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/droidwrap/droidwrap/internal/auth"
)

func main() {
	var (
		password = flag.String("password", "", "admin password to hash (prints a bcrypt hash)")
		secret   = flag.String("secret", os.Getenv("JWT_SECRET"), "JWT signing secret (defaults to $JWT_SECRET)")
		subject  = flag.String("subject", "admin", "token subject")
		expiry   = flag.Duration("expiry", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	switch {
	case *password != "":
		hash, err := auth.HashPassword(*password)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Println(hash)

	case *secret != "":
		svc := auth.NewService(&auth.Config{
			JWTSecret:   []byte(*secret),
			TokenExpiry: *expiry,
		}, nil)
		token, err := svc.GenerateToken(*subject)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Println(token)

	default:
		fmt.Fprintln(os.Stderr, "usage: gentoken -password <pw> | gentoken -secret <jwt-secret> [-subject s] [-expiry d]")
		os.Exit(2)
	}
}
