package config

import (
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	envVar         = "ENV"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct {
	settings
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.get(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.get(appNameVar, "Tenant Portal")
}

// GetBaseURL returns the public URL of the portal (e.g. "https://app.example.com").
// Links sent by email, such as the password reset callback, are built from it.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.get(baseURLVar, "http://localhost:8080"), "/")
}

func (e EnvVars) GetLogLevel() string {
	return e.get(logLevelEnvVar, "info")
}

func (e EnvVars) GetSmtpPassword() string {
	return e.get("SMTP_PASSWORD", "")
}

func (e EnvVars) GetSmtpAccount() string {
	return e.get("SMTP_ACCOUNT", "")
}

// GetSmtpHost is empty unless mail delivery is configured.
func (e EnvVars) GetSmtpHost() string {
	return e.get("SMTP_HOST", "")
}

func (e EnvVars) GetSmtpPort() string {
	return e.get("SMTP_PORT", "587")
}

func (e EnvVars) GetSmtpSender() string {
	return e.get("SMTP_SENDER", "no-reply@localhost")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.get(envVar, "DEV"))
}
