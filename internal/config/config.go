// Package config loads server configuration from an optional YAML file and
// the environment. Environment variables win over file values.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the HTTP port used when none is configured.
const DefaultPort = 8080

// Config is the complete server configuration.
type Config struct {
	DatabaseURL string         `yaml:"database_url"`
	Port        int            `yaml:"port"`
	Webhooks    WebhookConfig  `yaml:"webhooks"`
	JWT         JWTConfig      `yaml:"jwt"`
	Password    PasswordConfig `yaml:"password"`
}

// WebhookConfig holds the automation endpoints.
type WebhookConfig struct {
	GenerateImageURL string        `yaml:"generate_image_url"`
	PublishPostURL   string        `yaml:"publish_post_url"`
	SendEmailURL     string        `yaml:"send_email_url"`
	JobIntakeURL     string        `yaml:"job_intake_url"`
	Secret           string        `yaml:"secret"`
	Timeout          time.Duration `yaml:"timeout"`
}

// LookupFunc reads a variable, reporting whether it was set.
type LookupFunc func(key string) (string, bool)

// Load reads the YAML file at path (skipped when path is empty), overlays the
// process environment and validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses a YAML configuration file without validating it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	setString(lookup, &c.DatabaseURL, "DATABASE_URL")
	if err := setInt(lookup, &c.Port, "PORT"); err != nil {
		return err
	}

	w := &c.Webhooks
	// The NEXT_PUBLIC_* and N8N_* names are accepted for existing deployments.
	setString(lookup, &w.GenerateImageURL, "NEXT_PUBLIC_N8N_GENERATE_IMAGE_WEBHOOK_URL", "GENERATE_IMAGE_WEBHOOK_URL")
	setString(lookup, &w.PublishPostURL, "NEXT_PUBLIC_N8N_PUBLISH_POST_WEBHOOK_URL", "PUBLISH_POST_WEBHOOK_URL")
	setString(lookup, &w.SendEmailURL, "NEXT_PUBLIC_SEND_EMAIL_WEBHOOK_URL", "SEND_EMAIL_WEBHOOK_URL")
	setString(lookup, &w.JobIntakeURL, "JOB_INTAKE_WEBHOOK_URL")
	setString(lookup, &w.Secret, "N8N_WEBHOOK_SECRET", "WEBHOOK_SECRET")
	if raw, ok := lookup("WEBHOOK_TIMEOUT"); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid WEBHOOK_TIMEOUT: %v", err)
		}
		w.Timeout = d
	}

	if err := c.JWT.applyEnv(lookup); err != nil {
		return err
	}
	return c.Password.applyEnv(lookup)
}

// Validate fills defaults and checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port out of range: %d", c.Port)
	}

	for name, raw := range map[string]string{
		"generate_image_url": c.Webhooks.GenerateImageURL,
		"publish_post_url":   c.Webhooks.PublishPostURL,
		"send_email_url":     c.Webhooks.SendEmailURL,
		"job_intake_url":     c.Webhooks.JobIntakeURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: webhooks.%s is not an absolute URL: %q", name, raw)
		}
	}
	if c.Webhooks.Timeout < 0 {
		return fmt.Errorf("config error: webhook timeout must be non-negative")
	}

	if err := c.JWT.normalize(); err != nil {
		return err
	}
	return c.Password.normalize()
}

// setString assigns the last non-empty variable among keys, so later keys
// take precedence over earlier ones.
func setString(lookup LookupFunc, dst *string, keys ...string) {
	for _, key := range keys {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
}

func setInt(lookup LookupFunc, dst *int, key string) error {
	raw, ok := lookup(key)
	if !ok || raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %v", key, err)
	}
	*dst = n
	return nil
}
