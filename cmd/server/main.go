package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/masapp-server/internal/config"
	"github.com/jrsteele09/masapp-server/kvstore"
	"github.com/jrsteele09/masapp-server/kvstore/pgstore"
	orderrepofakes "github.com/jrsteele09/masapp-server/orders/repofakes"
	"github.com/jrsteele09/masapp-server/qrsession"
	restaurantrepofakes "github.com/jrsteele09/masapp-server/restaurants/repofakes"
	"github.com/jrsteele09/masapp-server/server"
	fakeuserrepo "github.com/jrsteele09/masapp-server/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	c := config.New()
	setupLogging(c)

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	store, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	repos := server.Repos{
		Users:       fakeuserrepo.NewFakeUserRepo(),
		Restaurants: restaurantrepofakes.NewFakeRestaurantRepo(),
		QRSessions:  qrsession.NewInMemoryRepo(),
		Orders:      orderrepofakes.NewFakeOrderRepo(),
	}
	handler, err := server.New(c, repos, store)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler.RunSweepers(ctx, c.GetSweepInterval())

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// openStore picks the Postgres store when STORE_DSN is set, otherwise an in-process one.
func openStore(c config.Config) (kvstore.Store, func(), error) {
	dsn := c.GetStoreDSN()
	if dsn == "" {
		log.Info().Msg("using in-memory store: revocations and rate limits are lost on restart")
		return kvstore.NewMemoryStore(), func() {}, nil
	}
	pg, err := pgstore.Open(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgstore.Open: %w", err)
	}
	log.Info().Msg("using postgres store")
	return pg, func() {
		if err := pg.Close(); err != nil {
			log.Err(err).Msg("failed to close store")
		}
	}, nil
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
