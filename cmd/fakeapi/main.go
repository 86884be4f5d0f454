// Command fakeapi serves a local stand-in for the Fishmap backend: admin and
// user login, cookie based token refresh and a JWKS for the issued tokens.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/common-nighthawk/go-figure"
	"github.com/fishmapai/fishmap-gateway/fakeapi"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type fakeConfig struct {
	Port       string        `env:"FAKEAPI_PORT" envDefault:":5000"`
	Issuer     string        `env:"FAKEAPI_ISSUER" envDefault:"http://localhost:5000"`
	AccessTTL  time.Duration `env:"FAKEAPI_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"FAKEAPI_REFRESH_TTL" envDefault:"168h"`

	SeedName     string `env:"FAKEAPI_SEED_NAME" envDefault:"Super Admin"`
	SeedEmail    string `env:"FAKEAPI_SEED_EMAIL" envDefault:"admin@fishmap.id"`
	SeedPassword string `env:"FAKEAPI_SEED_PASSWORD" envDefault:"Fishmap123!"`
	SeedRole     string `env:"FAKEAPI_SEED_ROLE" envDefault:"super_admin"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("fake backend stopped")
	}
}

func run() error {
	var c fakeConfig
	if err := env.Parse(&c); err != nil {
		return fmt.Errorf("env.Parse: %w", err)
	}

	backend, err := fakeapi.New(
		fakeapi.WithIssuer(c.Issuer),
		fakeapi.WithAccessTTL(c.AccessTTL),
		fakeapi.WithRefreshTTL(c.RefreshTTL),
	)
	if err != nil {
		return fmt.Errorf("fakeapi.New: %w", err)
	}
	if _, err := backend.SeedAdmin(c.SeedName, c.SeedEmail, c.SeedPassword, c.SeedRole); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	figure.NewFigure("fakeapi", "cybermedium", true).Print()
	fmt.Println()
	log.Info().Str("addr", c.Port).Str("admin", c.SeedEmail).Str("role", c.SeedRole).Msg("fake backend listening")

	srv := &http.Server{Addr: c.Port, Handler: backend, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
