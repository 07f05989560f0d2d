package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/DamionHane/FHEReporting/internal/auth"
	"github.com/DamionHane/FHEReporting/internal/config"
)

// mint-token prints a bearer token for the given principal address, signed
// with the JWT secret from the environment. Useful for exercising the API
// from curl during development.
func main() {
	address := flag.String("address", "", "principal address to mint a token for")
	flag.Parse()

	if *address == "" {
		fmt.Fprintln(os.Stderr, "usage: mint-token -address <principal>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	authService := auth.NewService(&cfg.JWT)
	token, expiresAt, err := authService.GenerateToken(*address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bearer token for %s (expires %s):\n\n%s\n", *address, expiresAt.Format("2006-01-02 15:04:05 MST"), token)
}
