package config

import "os"

const (
	apiURLVar   = "API_URL"
	appNameVar  = "APP_NAME"
	logLevelVar = "LOG_LEVEL"
)

type EnvVars struct {
	v values
}

var _ EnvConfig = EnvVars{}

// GetAPIURL returns the backend base URL. Endpoint paths such as "api/token/" are resolved
// against it, so it should end with a slash.
func (e EnvVars) GetAPIURL() string {
	return e.v.get(apiURLVar, "http://localhost:8000/")
}

func (e EnvVars) GetAppName() string {
	return e.v.get(appNameVar, "Temoins Console")
}

func (e EnvVars) GetEnv() string {
	return e.v.get("ENV", "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.v.get(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
