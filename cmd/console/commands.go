package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/temoins-console/apiclient"
	"github.com/jrsteele09/temoins-console/internal/config"
	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const passwordEnvVar = "TEMOINS_PASSWORD"

func (a *app) login(ctx context.Context, args []string, in io.Reader) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := fs.StringP("email", "e", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if msg := a.manager.TakeLogoutMessage(); msg != "" {
		a.printf("%s\n", msg)
	}

	reader := bufio.NewReader(in)
	if *email == "" {
		a.printf("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read email: %w", err)
		}
		*email = strings.TrimSpace(line)
	}
	password, err := a.readPassword(reader)
	if err != nil {
		return err
	}

	route, err := a.manager.Login(ctx, *email, password)
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return fmt.Errorf("identifiants invalides")
	case apperrors.Is(err, apperrors.ErrInvalidLoginInput):
		return fmt.Errorf("email et mot de passe requis")
	case err != nil:
		return err
	}

	role, name := a.manager.CurrentUser()
	a.printf("Connecté en tant que %s (%s)\n", name, role)
	if route != a.cfg.GetHomePath() {
		a.printf("Reprise de %s\n", route)
	}
	return nil
}

// readPassword takes the password from the environment, the terminal without echo, or
// the next input line, in that order.
func (a *app) readPassword(reader *bufio.Reader) (string, error) {
	if password := config.GetEnv(passwordEnvVar, ""); password != "" {
		return password, nil
	}
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		a.printf("Mot de passe: ")
		password, err := term.ReadPassword(fd)
		a.printf("\n")
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(password), nil
	}
	a.printf("Mot de passe: ")
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) logout() {
	if !a.manager.IsAuthenticated() {
		a.printf("Aucune session active\n")
		return
	}
	a.manager.Logout()
	a.printf("%s\n", a.manager.TakeLogoutMessage())
}

func (a *app) whoami() {
	if !a.manager.IsAuthenticated() {
		a.printf("Non connecté\n")
		return
	}
	role, name := a.manager.CurrentUser()
	a.printf("Utilisateur: %s\nRôle:        %s\n", name, role)
	if exp, ok := tokenstore.Expiry(a.store); ok {
		a.printf("Jeton:       expire le %s\n", exp.Local().Format(time.DateTime))
	}
	if last, ok := tokenstore.LastActivityTime(a.store); ok {
		a.printf("Activité:    %s\n", last.Local().Format(time.DateTime))
	}
	if item := a.manager.ActiveMenuItem(); item != "" {
		a.printf("Menu:        %s\n", item)
	}
}

// get fetches path and prints the response body, indenting JSON.
func (a *app) get(ctx context.Context, path string) error {
	if !a.manager.RequireAuth(path) {
		return fmt.Errorf("%w: connectez-vous avec `login`", apperrors.ErrNotAuthenticated)
	}

	req, err := a.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRefreshFailed) {
			return fmt.Errorf("%s: %w", a.manager.TakeLogoutMessage(), apperrors.ErrRefreshFailed)
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(&apiclient.StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body})
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	a.printf("%s\n", bytes.TrimRight(body, "\n"))
	return nil
}

// classifyStatus tags a failed response with the matching sentinel, keeping the response
// in the chain for its details.
func classifyStatus(err *apiclient.StatusError) error {
	switch {
	case err.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", apperrors.ErrForbidden, err)
	case err.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	case err.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", apperrors.ErrInternal, err)
	}
	return err
}
