// Package main seeds the first operator account so the dashboard has a
// login before any integration is connected.
//
// Usage:
//
//	seed -email ops@example.com -name "Ops" [-password secret]
//
// Without -password a random one is generated and printed once.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dirsync.io/dirsync/internal/config"
	"dirsync.io/dirsync/internal/infrastructure"
	"dirsync.io/dirsync/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	email := flag.String("email", "", "operator email (required)")
	name := flag.String("name", "Operator", "operator display name")
	password := flag.String("password", "", "operator password; generated when empty")
	flag.Parse()

	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	generated := false
	if *password == "" {
		raw := make([]byte, 16)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		*password = hex.EncodeToString(raw)
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	operator, err := db.Store.Operators.Create(ctx, *email, *name, string(hash))
	if err != nil {
		return fmt.Errorf("create operator: %w", err)
	}

	logger.Info("Operator created",
		zap.String("id", operator.ID.String()),
		zap.String("email", operator.Email),
	)
	if generated {
		fmt.Printf("generated password for %s: %s\n", operator.Email, *password)
	}
	return nil
}
