package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/campus-ops/equiploan-api/internal/repository"
	"github.com/campus-ops/equiploan-api/internal/service"
	"github.com/campus-ops/equiploan-api/pkg/config"
	"github.com/campus-ops/equiploan-api/pkg/database"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
	"github.com/campus-ops/equiploan-api/pkg/logger"
)

// The bootstrap account is deliberately fixed. Rotate the password through
// the change-password flow after first login.
const (
	adminEmail    = "admin@campus.edu"
	adminPassword = "ChangeMe_Admin1!"
	adminFullName = "System Administrator"
)

const runTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logr, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		return 1
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	svc := service.NewBootstrapService(repository.NewUserRepository(db), logr)
	result, err := svc.EnsureAdmin(ctx, adminEmail, adminPassword, adminFullName)
	if err != nil {
		report(err)
		return 1
	}

	if result.Created {
		fmt.Printf("admin account created: %s (%s)\n", adminEmail, result.UserID)
	} else {
		fmt.Printf("admin account already existed, credentials reset: %s (%s)\n", adminEmail, result.UserID)
	}
	return 0
}

// report classifies the failure before printing. Duplicates get their own
// category so operators do not mistake a unique-index race for bad input,
// and anything unclassified surfaces the raw driver message.
func report(err error) {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.ErrValidation.Code:
			fmt.Fprintf(os.Stderr, "validation failed:\n")
			for _, violation := range strings.Split(appErr.Message, "; ") {
				fmt.Fprintf(os.Stderr, "  - %s\n", violation)
			}
		case appErrors.ErrDuplicate.Code:
			fmt.Fprintf(os.Stderr, "duplicate: %s\n", appErr.Message)
		default:
			fmt.Fprintf(os.Stderr, "bootstrap failed: %s\n", appErr.Message)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
}
