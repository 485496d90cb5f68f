package jwt

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/temoins-console/internal/errors"
)

// Claims holds the access token payload fields the console relies on.
type Claims struct {
	Exp       time.Time // Expiry, required
	Role      string    // Console role, present on access tokens
	Email     string    // User email, present on access tokens
	TokenType string    // "access" or "refresh"
}

// Expired reports whether the token has expired at now. A token is expired from the
// instant of its exp claim onwards.
func (c *Claims) Expired(now time.Time) bool {
	return !now.Before(c.Exp)
}

// Decode reads the payload of rawToken without verifying its signature. The console has
// no verification key; the backend remains the authority on validity. Any decode failure
// or a missing exp claim is reported as ErrMalformedToken.
func Decode(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("%w: empty token", apperrors.ErrMalformedToken)
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformedToken, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: error extracting claims", apperrors.ErrMalformedToken)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformedToken, err)
	}
	if exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", apperrors.ErrMalformedToken)
	}

	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	tokenType, _ := claims["token_type"].(string)

	return &Claims{
		Exp:       exp.Time,
		Role:      role,
		Email:     email,
		TokenType: tokenType,
	}, nil
}
