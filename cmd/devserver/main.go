package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/temoins-console/devserver"
	"github.com/jrsteele09/temoins-console/internal/config"
	"github.com/jrsteele09/temoins-console/internal/logging"
	fakeuserrepo "github.com/jrsteele09/temoins-console/users/repofake"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const revokedCleanupInterval = 10 * time.Minute

func main() {
	configPath := pflag.StringP("config", "c", "", "YAML configuration file")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before the configuration")
	pflag.Parse()

	config.LoadDotEnv(*envFile)
	c, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		os.Exit(1)
	}
	logging.Setup(c.GetLogLevel(), c.GetEnv(), os.Stderr)

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	repo := fakeuserrepo.NewFakeUserRepo()
	seeds, err := devserver.LoadSeedUsers(c.GetSeedUsersFile())
	if err != nil {
		return err
	}
	if err := devserver.Seed(repo, seeds); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := devserver.New(c, repo)
	go cleanupRevokedTokens(ctx, s)

	server := &http.Server{Addr: c.GetPort(), Handler: s}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(server) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func cleanupRevokedTokens(ctx context.Context, s *devserver.Server) {
	ticker := time.NewTicker(revokedCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupRevokedTokens()
		}
	}
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
