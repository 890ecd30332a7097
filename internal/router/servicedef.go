// Package router implements the tool-namespace router (C1): parsing
// "<service>.<tool>" names, resolving them against the services registry and
// the Policy service's enabled-state, and answering tools/list.
package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jk-nd/npl-gateway/internal/mcp"
)

// ServiceType enumerates how a service's tools are actually invoked by the
// Executor; the router never dials out to a service itself, it only carries
// this through to tools/list.
type ServiceType string

const (
	ServiceTypeHTTPMCP ServiceType = "http-mcp"
	ServiceTypeStdio   ServiceType = "stdio"
)

// ToolDefinition is a single tool exposed by a service.
type ToolDefinition struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	InputSchema mcp.JSONSchema `yaml:"inputSchema" json:"inputSchema"`
	Enabled     bool           `yaml:"enabled" json:"enabled"`
}

// ServiceDefinition is the static shape of one upstream tool service, as
// loaded from the YAML services registry.
type ServiceDefinition struct {
	Name                string           `yaml:"name" json:"name"`
	DisplayName         string           `yaml:"displayName" json:"displayName"`
	Type                ServiceType      `yaml:"type" json:"type"`
	Endpoint            string           `yaml:"endpoint" json:"endpoint"`
	RequiresCredentials bool             `yaml:"requiresCredentials" json:"requiresCredentials"`
	Description         string           `yaml:"description" json:"description"`
	Enabled             bool             `yaml:"enabled" json:"enabled"`
	Tools               []ToolDefinition `yaml:"tools" json:"tools"`
}

// servicesFile is the top-level shape of the YAML services registry.
type servicesFile struct {
	Services []ServiceDefinition `yaml:"services"`
}

// ServicesConfig is the in-memory, parsed services registry, keyed by
// service name in the order the file declared them (order matters for the
// raw-name fallback lookup).
type ServicesConfig struct {
	byName map[string]*ServiceDefinition
	order  []string
}

// LoadServicesConfig reads and parses the YAML services registry at path.
// Per spec.md §6, this is "reloaded on demand; not hot-reloaded within a
// request" — callers reload by calling this again and swapping the result.
func LoadServicesConfig(path string) (*ServicesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading services config: %w", err)
	}
	var sf servicesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing services config: %w", err)
	}
	return newServicesConfig(sf.Services), nil
}

func newServicesConfig(services []ServiceDefinition) *ServicesConfig {
	sc := &ServicesConfig{byName: make(map[string]*ServiceDefinition, len(services))}
	for i := range services {
		svc := services[i]
		sc.byName[svc.Name] = &svc
		sc.order = append(sc.order, svc.Name)
	}
	return sc
}

// Service returns the named service definition, or nil if unknown.
func (sc *ServicesConfig) Service(name string) *ServiceDefinition {
	return sc.byName[name]
}

// OrderedServices returns service definitions in the order declared in the
// config file.
func (sc *ServicesConfig) OrderedServices() []*ServiceDefinition {
	out := make([]*ServiceDefinition, 0, len(sc.order))
	for _, name := range sc.order {
		out = append(out, sc.byName[name])
	}
	return out
}

// Tool finds the named tool within the service, returning nil if the
// service or tool does not exist.
func (sd *ServiceDefinition) Tool(name string) *ToolDefinition {
	if sd == nil {
		return nil
	}
	for i := range sd.Tools {
		if sd.Tools[i].Name == name {
			return &sd.Tools[i]
		}
	}
	return nil
}
