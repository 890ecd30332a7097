package config

import "testing"

func TestConfig_validate(t *testing.T) {
	base := func() Config {
		return Config{
			RabbitMQHost:       "localhost",
			ExecutionQueue:     "npl.execution.requests",
			ServicesConfigPath: "services.yaml",
			ContextTTLMs:       300000,
			ExecutionTimeoutMs: 120000,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing rabbitmq host", mutate: func(c *Config) { c.RabbitMQHost = "" }, wantErr: true},
		{name: "missing execution queue", mutate: func(c *Config) { c.ExecutionQueue = "" }, wantErr: true},
		{name: "missing services config path", mutate: func(c *Config) { c.ServicesConfigPath = "" }, wantErr: true},
		{name: "zero context ttl", mutate: func(c *Config) { c.ContextTTLMs = 0 }, wantErr: true},
		{name: "negative execution timeout", mutate: func(c *Config) { c.ExecutionTimeoutMs = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error = %v", err)
			}
		})
	}
}
