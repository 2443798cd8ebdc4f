// Package config loads and validates the orchestrator's process-wide
// configuration from environment variables. No other package reads the
// environment directly - leaf components receive an explicit config value.
package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/validator.v2"
)

// AppConfig is the orchestrator's complete runtime configuration.
type AppConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // LogLevel is the log level for the application

	HTTPPort uint16 `env:"HTTP_PORT" envDefault:"80" validate:"min=1,max=65535"` // HTTPPort is the port the HTTP server will listen on

	DeploymentsMountDir string `env:"DEPLOYMENTS_MOUNT_DIR,required"`        // DeploymentsMountDir is the clone root
	LockFileBasePath    string `env:"LOCK_FILE_BASE_PATH"`                   // LockFileBasePath defaults to the system temp dir
	NginxProxyConfDir   string `env:"NGINX_PROXY_CONF_LOCATION" envDefault:"/etc/nginx/conf.d"`
	DeploymentHost      string `env:"DEPLOYMENT_HOST" envDefault:"host.docker.internal"`
	DeploymentPortStart int    `env:"DEPLOYMENT_PORT_START" envDefault:"15000"`
	DeploymentPortEnd   int    `env:"DEPLOYMENT_PORT_END" envDefault:"25000"`
	DomainName          string `env:"DOMAIN_NAME" envDefault:"localhost"`

	VaultBaseURL string `env:"VAULT_BASE_URL,required"` // VaultBaseURL is the secret store's base URL
	VaultToken   string `env:"VAULT_TOKEN,required"`    // VaultToken is the static token sent on every secret store call

	SecretText string `env:"SECRET_TEXT,required"` // SecretText signs and verifies bearer JWTs

	Env string `env:"ENV" envDefault:"production"` // Env, when uppercased equal to LOCAL, enables debug logging
}

// IsLocal reports whether ENV, uppercased, equals LOCAL - the switch that
// enables debug logging.
func (cfg *AppConfig) IsLocal() bool {
	return strings.ToUpper(cfg.Env) == "LOCAL"
}

// GetAppConfig parses and validates the configuration from the environment.
func GetAppConfig() (*AppConfig, error) {
	cfg := AppConfig{}
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.LockFileBasePath == "" {
		cfg.LockFileBasePath = os.TempDir()
	}

	if cfg.IsLocal() {
		cfg.LogLevel = "debug"
	}

	logLvl := strings.ToLower(cfg.LogLevel)
	if logLvl != "debug" && logLvl != "info" && logLvl != "warn" && logLvl != "error" {
		return nil, ErrInvalidLogLevel
	}

	if cfg.DeploymentPortStart >= cfg.DeploymentPortEnd {
		return nil, ErrInvalidPortRange
	}

	if err := validator.Validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
