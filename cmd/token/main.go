// Command token mints a dashboard JWT for local development and testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cleanup/dashboard/internal/auth"
	"github.com/cleanup/dashboard/internal/config"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/google/uuid"
)

func main() {
	// CLI flags
	userID := flag.String("user", "", "User ID (UUID); random if empty")
	store := flag.String("store", "", "Store ID the user belongs to")
	role := flag.String("role", "", "Role: admin, manager, operator, washer, ironer or packer")
	ttl := flag.Duration("ttl", auth.DefaultTTL, "Token lifetime")
	flag.Parse()

	// Fall back to environment variables
	if *store == "" {
		*store = os.Getenv("TOKEN_STORE")
	}
	if *role == "" {
		*role = os.Getenv("TOKEN_ROLE")
	}
	if *role == "" {
		*role = string(lifecycle.RoleOperator)
	}

	if !lifecycle.Role(*role).Valid() {
		log.Fatalf("Unknown role %q", *role)
	}
	if *store == "" && *role != string(lifecycle.RoleAdmin) && *role != string(lifecycle.RoleManager) {
		log.Fatalf("Role %s needs -store", *role)
	}

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			log.Fatalf("Invalid -user: %v", err)
		}
		id = parsed
	}

	cfg := config.Load()
	tok, err := auth.GenerateToken(cfg.JWTSecret, id, *store, *role, *ttl)
	if err != nil {
		log.Fatalf("Generate token: %v", err)
	}

	log.Printf("Token for user %s (role=%s store=%q, expires in %s)", id, *role, *store, *ttl)
	fmt.Println(tok)
}
