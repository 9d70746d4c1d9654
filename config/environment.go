package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

const (
	// EnvironmentDevelopment exposes the canonical development environment
	// identifier for callers outside the config package.
	EnvironmentDevelopment = environmentDevelopment
	// EnvironmentProduction exposes the canonical production environment
	// identifier.
	EnvironmentProduction = environmentProduction
	// EnvironmentStaging exposes the canonical staging environment
	// identifier.
	EnvironmentStaging = environmentStaging
)

var environmentAliases = map[string]string{
	"prod":  environmentProduction,
	"stag":  environmentStaging,
	"stage": environmentStaging,
}

// getAppEnvironment reads the application environment from APP_ENV and
// defaults to development when no value is provided.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// ResolveConfigPath selects an environment specific configuration file when
// one exists beside the requested one: with APP_ENV=production and the
// default path config/config.yml, config/config.production.yml wins when
// present. An explicitly overridden path is always used as given.
func ResolveConfigPath(path, defaultPath string) string {
	if path == "" {
		path = defaultPath
	}
	if path != defaultPath {
		return path
	}

	ext := filepath.Ext(path)
	envPath := strings.TrimSuffix(path, ext) + "." + getAppEnvironment() + ext
	if _, err := os.Stat(envPath); err == nil {
		return envPath
	}
	return path
}

// AppEnvironment exposes the current application environment as configured
// through the APP_ENV environment variable, normalised with the same alias
// rules used to resolve environment specific files.
func AppEnvironment() string {
	return getAppEnvironment()
}

// IsProductionLike reports whether the provided environment should behave
// like a production deployment. Production-like environments are stricter
// about disabled mirrors and non structured log output.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}
