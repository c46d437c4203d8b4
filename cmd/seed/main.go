// seed inserts development users for local testing. Run via go run ./cmd/seed after ./cmd/migrate.
// Idempotent: existing usernames are skipped.
//
// With -unlock <username> it instead reactivates an account locked by LOCKOUT_THRESHOLD;
// that mode is allowed in production.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"asr-auth/internal/config"
	"asr-auth/internal/db"
	"asr-auth/internal/security"
	"asr-auth/internal/user"
	userrepo "asr-auth/internal/user/repository"
)

func main() {
	unlock := flag.String("unlock", "", "username of a locked account to reactivate")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	if *unlock == "" && cfg.Env == "production" {
		log.Fatal("refusing to seed development users when APP_ENV=production")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()
	repo := userrepo.NewPostgresRepository(conn)

	if *unlock != "" {
		changed, err := user.Unlock(context.Background(), repo, *unlock)
		if err != nil {
			log.Fatalf("unlock %s: %v", *unlock, err)
		}
		if !changed {
			log.Printf("%s is not locked. Nothing to do.", *unlock)
			return
		}
		log.Printf("%s unlocked.", *unlock)
		return
	}

	n, err := user.SeedDevUsers(context.Background(), repo, security.NewHasher(cfg.BcryptCost))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if n == 0 {
		log.Println("Seed already applied. Skipping.")
		return
	}
	log.Printf("Seed completed: %d users created.", n)
	fmt.Printf("User login: %s / %s\n", user.DevUser, user.DevPassword)
	fmt.Printf("Admin login: %s / %s\n", user.DevAdmin, user.DevPassword)
}
