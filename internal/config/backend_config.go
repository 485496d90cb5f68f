package config

import (
	"fmt"
	"time"
)

// BackendConfig configures the development backend (cmd/devserver).
type BackendConfig interface {
	GetPort() string
	GetSigningSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetSeedUsersFile() string
}

type Backend struct {
	v values
}

var _ BackendConfig = Backend{}

func (b Backend) GetPort() string {
	port := b.v.get("PORT", "8000")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (b Backend) GetSigningSecret() string {
	return b.v.get("SIGNING_SECRET", "dev-signing-secret-change-me")
}

func (b Backend) GetAccessTokenExpiry() time.Duration {
	return b.v.duration("ACCESS_TOKEN_EXPIRY", 5*time.Minute)
}

func (b Backend) GetRefreshTokenExpiry() time.Duration {
	return b.v.duration("REFRESH_TOKEN_EXPIRY", 24*time.Hour)
}

func (b Backend) GetSeedUsersFile() string {
	return b.v.get("SEED_USERS_FILE", "")
}
