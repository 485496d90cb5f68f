package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/temoins-console/token"
	"github.com/jrsteele09/temoins-console/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Creator issues SimpleJWT style access/refresh pairs for the development backend
type Creator struct {
	signer        token.Signer
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewCreator creates a new JWT creator
func NewCreator(signer token.Signer, accessExpiry, refreshExpiry time.Duration) *Creator {
	return &Creator{
		signer:        signer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// SetAccessExpiry changes the lifetime of access tokens issued from now on
func (c *Creator) SetAccessExpiry(d time.Duration) {
	c.accessExpiry = d
}

// CreateAccessToken creates an access token carrying the role and email claims
func (c *Creator) CreateAccessToken(user *users.User) (string, error) {
	claims := c.baseClaims(user, TokenTypeAccess, c.accessExpiry)
	claims["role"] = string(user.Role)
	claims["email"] = user.Email
	return c.sign(claims)
}

// CreateRefreshToken creates a refresh token; it carries identity only
func (c *Creator) CreateRefreshToken(user *users.User) (string, error) {
	return c.sign(c.baseClaims(user, TokenTypeRefresh, c.refreshExpiry))
}

func (c *Creator) baseClaims(user *users.User, tokenType string, expiry time.Duration) jwtlib.MapClaims {
	now := NowTimeFunc()
	return jwtlib.MapClaims{
		"token_type": tokenType,
		"user_id":    user.ID,
		"iat":        now.Unix(),
		"exp":        now.Add(expiry).Unix(),
		"jti":        uuid.New().String(),
	}
}

func (c *Creator) sign(claims jwtlib.MapClaims) (string, error) {
	signedToken, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signedToken, nil
}
