package config

import "time"

type SessionConfig interface {
	GetInactivityTimeout() time.Duration
	GetExpiryCheckInterval() time.Duration
	GetInactivityCheckInterval() time.Duration
	GetLoginPath() string
	GetHomePath() string
}

type Session struct {
	v values
}

var _ SessionConfig = Session{}

func (s Session) GetInactivityTimeout() time.Duration {
	return s.v.duration("INACTIVITY_TIMEOUT", time.Hour)
}

func (s Session) GetExpiryCheckInterval() time.Duration {
	return s.v.duration("EXPIRY_CHECK_INTERVAL", time.Hour)
}

func (s Session) GetInactivityCheckInterval() time.Duration {
	return s.v.duration("INACTIVITY_CHECK_INTERVAL", time.Hour)
}

func (s Session) GetLoginPath() string {
	return s.v.get("LOGIN_PATH", "/login")
}

// GetHomePath is where a successful login lands when no route was saved beforehand.
func (s Session) GetHomePath() string {
	return s.v.get("HOME_PATH", "/Autorisation")
}
