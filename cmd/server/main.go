package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	accountspg "github.com/tasklane/identity/accounts/postgresrepo"
	"github.com/tasklane/identity/authn"
	"github.com/tasklane/identity/authn/ticketstore"
	"github.com/tasklane/identity/federation"
	"github.com/tasklane/identity/internal/config"
	"github.com/tasklane/identity/mailer"
	"github.com/tasklane/identity/migrations"
	"github.com/tasklane/identity/profileimg"
	"github.com/tasklane/identity/secrets"
	"github.com/tasklane/identity/secrets/redisstore"
	"github.com/tasklane/identity/server"
	"github.com/tasklane/identity/sessions"
	sessionsredis "github.com/tasklane/identity/sessions/redisrepo"
	workspacespg "github.com/tasklane/identity/workspaces/postgresrepo"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Err(err).Msg("server exited with error")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	displayAppname(cfg.AppName)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	accountRepo := accountspg.New(db)
	membershipRepo := workspacespg.New(db)
	sessionRepo := sessionsredis.New(redisClient)
	secretStore := redisstore.New(redisClient)
	ticketRepo := ticketstore.NewRedisRepo(redisClient)
	stateRepo := federation.NewRedisStateRepo(redisClient)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Account, cfg.SMTP.Password, cfg.AppName)

	issuer, err := secrets.NewIssuer(secretStore, smtpMailer, cfg.PublicBaseURL,
		secrets.WithEmailVerifyTTL(cfg.EmailVerifyTTL))
	if err != nil {
		return err
	}

	establisherOptions := []sessions.EstablisherOption{sessions.WithTTL(cfg.SessionTTL)}
	if cfg.S3Enabled() {
		signer, err := profileimg.NewSigner(ctx, profileimg.Config{
			Region:       cfg.S3.Region,
			BaseEndpoint: cfg.S3.BaseEndpoint,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
		})
		if err != nil {
			return err
		}
		establisherOptions = append(establisherOptions, sessions.WithImageSigner(signer))
	}

	establisher, err := sessions.NewEstablisher(sessionRepo, accountRepo, establisherOptions...)
	if err != nil {
		return err
	}

	ticketKey, err := cfg.DecodedTicketKey()
	if err != nil {
		return err
	}

	authnService, err := authn.NewService(accountRepo, issuer, establisher, ticketRepo, ticketKey)
	if err != nil {
		return err
	}

	providers, err := oidcProviders(ctx, cfg)
	if err != nil {
		return err
	}

	bridge, err := federation.NewBridge(stateRepo, accountRepo, establisher, providers)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(cfg, authnService, bridge, establisher, membershipRepo),
	}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations.Up: %w", err)
	}
	return db, nil
}

func oidcProviders(ctx context.Context, cfg config.Config) ([]federation.Provider, error) {
	type candidate struct {
		name string
		conf config.OIDC
	}
	var providers []federation.Provider
	for _, c := range []candidate{{"google", cfg.Google}, {"okta", cfg.Okta}} {
		if !c.conf.Enabled() {
			continue
		}
		redirectURL := cfg.PublicBaseURL + server.RouteOAuthCallback
		provider, err := federation.NewOIDCProvider(ctx, c.name, c.conf.Issuer, c.conf.ClientID, c.conf.ClientSecret, redirectURL)
		if err != nil {
			return nil, fmt.Errorf("oidc provider %s: %w", c.name, err)
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

func listenAndServe(httpServer *http.Server) error {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
