package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/temoins-console/internal/config"
	"github.com/jrsteele09/temoins-console/internal/logging"
	"github.com/spf13/pflag"
)

const usage = `Usage: temoins [flags] <command> [args]

Commands:
  login [--email <email>]   ouvre une session
  logout                    ferme la session
  whoami                    affiche l'utilisateur connecté
  get <chemin>              requête GET authentifiée
  shell                     console interactive sous surveillance de session

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	fs := pflag.NewFlagSet("temoins", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.StringP("config", "c", "", "YAML configuration file")
	envFile := fs.String("env-file", ".env", "dotenv file loaded before the configuration")
	storeBackend := fs.String("store", "", "session store: memory, file or redis (overrides STORE_BACKEND)")
	apiURL := fs.String("api-url", "", "backend base URL (overrides API_URL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	config.LoadDotEnv(*envFile)
	// flags win over the environment, which wins over the file
	if *storeBackend != "" {
		os.Setenv("STORE_BACKEND", *storeBackend)
	}
	if *apiURL != "" {
		os.Setenv("API_URL", *apiURL)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		return 1
	}
	logging.Setup(cfg.GetLogLevel(), cfg.GetEnv(), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	defer a.close()

	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:], in); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string, in io.Reader) error {
	switch cmd {
	case "login":
		return a.login(ctx, args, in)
	case "logout":
		a.logout()
		return nil
	case "whoami":
		a.whoami()
		return nil
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get <chemin>")
		}
		// between invocations only inactivity is checked; an expired access token is
		// refreshed by the request itself
		if a.manager.IsAuthenticated() && a.newMonitor().CheckInactivity() {
			a.sessionEnded()
			return nil
		}
		return a.get(ctx, args[0])
	case "shell":
		return a.shell(ctx, in)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
