package main

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jrsteele09/temoins-console/session"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

const shellHelp = `Commandes:
  get <chemin>    requête GET authentifiée, ex. get api/geographic-data/regions/
  whoami          utilisateur et état de la session
  menu [entrée]   affiche ou change l'entrée de menu active
  logout          déconnexion
  stats           compteurs de session
  exit            quitter
`

// shell runs an interactive session under the timeout monitor. Every input line counts
// as keyboard activity. The shell ends on exit, end of input, ctx cancellation, or when
// the session is terminated and the router is sent to the login route.
func (a *app) shell(ctx context.Context, in io.Reader) error {
	if !a.manager.RequireAuth(a.cfg.GetHomePath()) {
		a.printf("Non connecté: lancez `login` d'abord\n")
		return nil
	}

	tracker := session.NewEventTracker(a.store)
	monitor := a.newMonitor(session.WithTracker(tracker))

	ended := make(chan struct{})
	var endOnce sync.Once
	a.router.OnNavigate(func(path string) {
		if path != a.manager.LoginPath() {
			return
		}
		// the logout may come from one of the monitor's own checks
		go monitor.Stop()
		endOnce.Do(func() { close(ended) })
	})
	defer a.router.OnNavigate(nil)

	monitor.Start(ctx)
	defer monitor.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			case <-ended:
				return
			}
		}
	}()

	a.printf("%s", shellHelp)
	for {
		select {
		case <-ended:
			a.sessionEnded()
			return nil
		default:
		}
		a.printf("> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ended:
			a.printf("\n")
			a.sessionEnded()
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}
		tracker.Notify(session.EventKeyDown)

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch cmd, args := fields[0], fields[1:]; cmd {
		case "get":
			if len(args) != 1 {
				a.printf("usage: get <chemin>\n")
				continue
			}
			if err := a.get(ctx, args[0]); err != nil {
				a.printf("erreur: %s\n", err)
			}
		case "whoami":
			a.whoami()
		case "menu":
			if len(args) > 0 {
				a.manager.SetActiveMenuItem(strings.Join(args, " "))
			}
			a.printf("Menu actif: %s\n", a.manager.ActiveMenuItem())
		case "logout":
			a.logout()
			return nil
		case "stats":
			a.stats()
		case "help", "?":
			a.printf("%s", shellHelp)
		case "exit", "quit":
			return nil
		default:
			a.printf("commande inconnue %q, tapez help\n", cmd)
		}
	}
}

func (a *app) sessionEnded() {
	msg := a.manager.TakeLogoutMessage()
	if msg == "" {
		msg = "Session terminée. Veuillez vous reconnecter."
	}
	a.printf("%s\n", msg)
}

// stats prints every counter of the session registry.
func (a *app) stats() {
	families, err := a.registry.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("failed to gather metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			a.printf("%s%s %g\n", mf.GetName(), formatLabels(m.GetLabel()), m.GetCounter().GetValue())
		}
	}
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}
