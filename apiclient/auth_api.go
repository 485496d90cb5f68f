package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
)

const (
	TokenObtainPath  = "api/token/"
	TokenRefreshPath = "api/token/refresh/"
)

// TokenPair is the body returned by the token obtain endpoint
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthAPI calls the token endpoints directly, bypassing the authenticating Transport:
// a failing login or refresh must never trigger another refresh.
type AuthAPI struct {
	baseURL *url.URL
	http    *http.Client
}

func NewAuthAPI(baseURL string, httpClient *http.Client) (*AuthAPI, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AuthAPI{baseURL: base, http: httpClient}, nil
}

// ObtainPair exchanges credentials for an access/refresh pair.
func (a *AuthAPI) ObtainPair(ctx context.Context, email, password string) (*TokenPair, error) {
	var pair TokenPair
	err := a.post(ctx, TokenObtainPath, map[string]string{"email": email, "password": password}, &pair)

	var statusErr *StatusError
	if apperrors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidCredentials, err)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidLoginInput, err)
		}
	}
	if err != nil {
		return nil, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, fmt.Errorf("%w: token response is missing access or refresh", apperrors.ErrMalformedToken)
	}
	return &pair, nil
}

// Refresh trades refreshToken for a new access token. It implements refresh.Exchanger.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var body struct {
		Access string `json:"access"`
	}
	err := a.post(ctx, TokenRefreshPath, map[string]string{"refresh": refreshToken}, &body)

	var statusErr *StatusError
	if apperrors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %w", apperrors.ErrInvalidRefreshToken, err)
		}
	}
	if err != nil {
		return "", err
	}
	if body.Access == "" {
		return "", fmt.Errorf("%w: refresh response has no access token", apperrors.ErrInvalidRefreshToken)
	}
	return body.Access, nil
}

func (a *AuthAPI) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resolve(a.baseURL, path), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
