package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	invite "github.com/goliatone/go-auth-invite"
	"github.com/goliatone/go-auth-invite/activitymap"
	"github.com/goliatone/go-auth-invite/adapters/zlog"
	"github.com/goliatone/go-auth-invite/config"
	"github.com/goliatone/go-auth-invite/mailer"
	"github.com/goliatone/go-auth-invite/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %s\n", err)
		os.Exit(1)
	}

	lgr := zlog.NewFromLevel(os.Stdout, cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Debug {
		fmt.Println(print.MaybeHighlightJSON(redacted(cfg)))
	}

	ctx := context.Background()

	client, repo, err := repository.Bootstrap(ctx, repository.Options{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		AutoMigrate:  cfg.Database.AutoMigrate,
		Debug:        cfg.Debug,
		Logger:       lgr.With("component", "persistence").Formatted(),
	})
	if err != nil {
		lgr.Error("database bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if report := client.Report(); report != nil {
		lgr.Info("migrations applied", "group", report.ID, "count", len(report.Migrations))
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:      cfg.HTTP.AppName,
			UnescapePath: true,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
		}))
	})

	if err := setupRegistration(cfg, repo, lgr, srv.Router()); err != nil {
		lgr.Error("registration setup failed", "error", err)
		os.Exit(1)
	}

	lgr.Info("listening", "addr", cfg.HTTP.Addr)
	srv.Serve(cfg.HTTP.Addr)

	WaitExitSignal()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("shutdown", "error", err)
	}
}

func setupRegistration[T any](cfg config.Config, repo invite.RepositoryManager, lgr *zlog.Logger, r router.Router[T]) error {
	var notifier invite.NotificationSink = invite.LogSink{Logger: lgr.With("component", "notify")}
	if cfg.MailEnabled() {
		m, err := mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, lgr.With("component", "mailer"))
		if err != nil {
			return err
		}
		notifier = m
	}

	activityLog := activitymap.NewLogSink(lgr.With("component", "activity"))

	tokens := invite.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetSessionTTL(),
		cfg.GetSessionIssuer(),
		jwt.ClaimStrings(cfg.GetSessionAudience()),
		lgr.With("component", "session"),
	)

	invitations := invite.NewInvitationService(repo).
		WithConfig(cfg).
		WithNotificationSink(notifier).
		WithActivitySink(activityLog).
		WithLogger(lgr.With("component", "invitations"))

	confirmations := invite.NewConfirmationService(repo, tokens).
		WithConfig(cfg).
		WithActivitySink(activityLog).
		WithLogger(lgr.With("component", "confirmations"))

	accountSinks := invite.ActivitySinks{activityLog}
	if cfg.Admin.Mirror {
		mirror := invite.NewAdminMirrorService(repo.AdminIdentities()).
			WithConfig(cfg).
			WithNotificationSink(notifier).
			WithActivitySink(activityLog).
			WithLogger(lgr.With("component", "admin-mirror"))
		accountSinks = append(accountSinks, mirror)
	}

	accounts := invite.NewAccountService(repo).
		WithInvitationService(invitations).
		WithActivitySink(accountSinks).
		WithLogger(lgr.With("component", "accounts"))

	invite.RegisterRegistrationRoutes(r,
		invite.WithInvitationService(invitations),
		invite.WithConfirmationService(confirmations),
		invite.WithAccountService(accounts),
		invite.WithAdminAPIKey(cfg.Admin.APIKey),
		invite.WithOpenAdminRoutes(cfg.Admin.Open),
		invite.WithControllerLogger(lgr.With("component", "http")),
		invite.WithControllerDebug(cfg.Debug),
	)

	invite.RegisterSessionRoutes(r, tokens, repo, lgr.With("component", "session-http"))

	return nil
}

func redacted(cfg config.Config) config.Config {
	if cfg.Session.SigningKey != "" {
		cfg.Session.SigningKey = "***"
	}
	if cfg.Admin.APIKey != "" {
		cfg.Admin.APIKey = "***"
	}
	if cfg.SMTP.Password != "" {
		cfg.SMTP.Password = "***"
	}
	return cfg
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
