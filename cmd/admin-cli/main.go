// Command admin-cli provisions administrator accounts and runs enrollment from a shell.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/credential"
	"github.com/pp-coaching/coaching-api/internal/repository"
	"github.com/pp-coaching/coaching-api/internal/service"
	"github.com/pp-coaching/coaching-api/pkg/config"
	"github.com/pp-coaching/coaching-api/pkg/database"
	"github.com/pp-coaching/coaching-api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	users := repository.NewUserRepository(db)
	admissions := repository.NewAdmissionRepository(db)
	deriver := credential.NewDeriver(credential.Options{
		InstitutionTag:     cfg.Enrollment.InstitutionTag,
		AllowClassFallback: cfg.Enrollment.AllowClassFallback,
		Logger:             logr,
	})

	cli := commandLine{
		admins: service.NewAuthService(users, nil, logr, service.AuthConfig{
			AccessTokenSecret:  cfg.JWT.Secret,
			AccessTokenExpiry:  cfg.JWT.Expiration,
			RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
			Issuer:             cfg.JWT.Issuer,
		}),
		enrollments: service.NewEnrollmentService(repository.NewEnrollmentRepository(db), admissions, users, deriver, nil, nil, logr, service.EnrollmentConfig{
			CollisionRetries: cfg.Enrollment.CollisionRetries,
		}),
		out: os.Stdout,
	}

	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		return 1
	}
	return 0
}
