// Package config loads the gateway's environment-variable configuration,
// the same caarlos0/env + sync.OnceValue singleton pattern the teacher uses
// for its own Config (mcpsvc/config).
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment variable spec.md §6 names.
type Config struct {
	RabbitMQHost string `env:"RABBITMQ_HOST" envDefault:"localhost"`
	RabbitMQPort int    `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUser string `env:"RABBITMQ_USER" envDefault:"guest"`
	RabbitMQPass string `env:"RABBITMQ_PASS" envDefault:"guest"`

	ExecutionQueue string `env:"EXECUTION_QUEUE" envDefault:"npl.execution.requests"`

	ContextTTLMs int64 `env:"CONTEXT_TTL_MS" envDefault:"300000"`

	ServicesConfigPath string `env:"SERVICES_CONFIG_PATH" envDefault:"services.yaml"`

	CredentialProxyURL string `env:"CREDENTIAL_PROXY_URL"`

	ExecutionTimeoutMs int64 `env:"EXECUTION_TIMEOUT_MS" envDefault:"120000"`

	PolicyServiceURL string `env:"POLICY_SERVICE_URL" envDefault:"http://localhost:9000"`

	// CallbackBaseURL is this gateway's own externally-reachable base URL,
	// used to build the callbackUrl field of every ExecutionNotification.
	CallbackBaseURL string `env:"CALLBACK_BASE_URL" envDefault:"http://localhost:8080"`

	// ExecutorAuthToken guards /context/* and /callback; empty disables the check.
	ExecutorAuthToken string `env:"EXECUTOR_AUTH_TOKEN"`

	Port string `env:"PORT" envDefault:"8080"`
}

func (c *Config) validate() error {
	if c.RabbitMQHost == "" {
		return errors.New("no RabbitMQ host specified")
	}
	if c.ExecutionQueue == "" {
		return errors.New("no execution queue name specified")
	}
	if c.ServicesConfigPath == "" {
		return errors.New("no services config path specified")
	}
	if c.ContextTTLMs <= 0 {
		return errors.New("CONTEXT_TTL_MS must be positive")
	}
	if c.ExecutionTimeoutMs <= 0 {
		return errors.New("EXECUTION_TIMEOUT_MS must be positive")
	}
	return nil
}

// ContextTTL is ContextTTLMs as a time.Duration.
func (c *Config) ContextTTL() time.Duration { return time.Duration(c.ContextTTLMs) * time.Millisecond }

// ExecutionTimeout is ExecutionTimeoutMs as a time.Duration.
func (c *Config) ExecutionTimeout() time.Duration {
	return time.Duration(c.ExecutionTimeoutMs) * time.Millisecond
}

// Get returns the process-wide Config, parsed once on first call.
var Get = sync.OnceValue(func() *Config {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err == nil {
		err = cfg.validate()
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cfg
})
