package config

import (
	"fmt"
	"strings"
)

// Environment selects which upstream deployment the integration talks to.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// EndpointSet holds the upstream URLs derived from an Environment.
type EndpointSet struct {
	TokenURL   string
	APIBaseURL string
}

// endpoints is the only place environments are mapped to URLs.
var endpoints = map[Environment]EndpointSet{
	Sandbox: {
		TokenURL:   "https://goapi.poweroffice.net/Demo/OAuth/Token",
		APIBaseURL: "https://goapi.poweroffice.net/Demo/v2",
	},
	Production: {
		TokenURL:   "https://goapi.poweroffice.net/OAuth/Token",
		APIBaseURL: "https://goapi.poweroffice.net/v2",
	},
}

// RawCredentials is unvalidated input as read from a credential source.
type RawCredentials struct {
	ApplicationKey  string `json:"application_key"`
	ClientKey       string `json:"client_key"`
	SubscriptionKey string `json:"subscription_key"`
	Environment     string `json:"environment,omitempty"`
}

// IntegrationConfig is a validated, immutable credential set for one
// upstream identity.
type IntegrationConfig struct {
	applicationKey  string
	clientKey       string
	subscriptionKey string
	environment     Environment
	endpoints       EndpointSet
}

func (c IntegrationConfig) ApplicationKey() string   { return c.applicationKey }
func (c IntegrationConfig) ClientKey() string        { return c.clientKey }
func (c IntegrationConfig) SubscriptionKey() string  { return c.subscriptionKey }
func (c IntegrationConfig) Environment() Environment { return c.environment }
func (c IntegrationConfig) Endpoints() EndpointSet   { return c.endpoints }

// ParseEnvironment accepts "sandbox" or "production" in any case. An empty
// value selects the sandbox.
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(strings.ToLower(strings.TrimSpace(s)))
	if env == "" {
		return Sandbox, nil
	}
	if _, ok := endpoints[env]; !ok {
		return "", &ConfigurationError{Reason: fmt.Sprintf("unknown environment %q (want sandbox or production)", s)}
	}
	return env, nil
}

// Resolve returns the endpoints for env.
func Resolve(env Environment) (EndpointSet, error) {
	set, ok := endpoints[env]
	if !ok {
		return EndpointSet{}, &ConfigurationError{Reason: fmt.Sprintf("unknown environment %q", env)}
	}
	return set, nil
}

// Build validates raw and produces an IntegrationConfig for env. The
// Environment field of raw is ignored in favour of env.
func Build(raw RawCredentials, env Environment) (IntegrationConfig, error) {
	cfg := IntegrationConfig{
		applicationKey:  strings.TrimSpace(raw.ApplicationKey),
		clientKey:       strings.TrimSpace(raw.ClientKey),
		subscriptionKey: strings.TrimSpace(raw.SubscriptionKey),
		environment:     env,
	}

	var missing []string
	if cfg.applicationKey == "" {
		missing = append(missing, "applicationKey")
	}
	if cfg.clientKey == "" {
		missing = append(missing, "clientKey")
	}
	if cfg.subscriptionKey == "" {
		missing = append(missing, "subscriptionKey")
	}
	if len(missing) > 0 {
		return IntegrationConfig{}, &ConfigurationError{Missing: missing}
	}

	set, err := Resolve(env)
	if err != nil {
		return IntegrationConfig{}, err
	}
	cfg.endpoints = set
	return cfg, nil
}

// FromRaw parses raw.Environment and builds the config in one step.
func FromRaw(raw RawCredentials) (IntegrationConfig, error) {
	env, err := ParseEnvironment(raw.Environment)
	if err != nil {
		return IntegrationConfig{}, err
	}
	return Build(raw, env)
}
