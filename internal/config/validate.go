package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProxy(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validatePrecache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProxy() error {
	if _, _, err := net.SplitHostPort(c.Proxy.Listen); err != nil {
		return fmt.Errorf("proxy.listen must be host:port: %w", err)
	}
	parsed, err := url.Parse(c.Proxy.Upstream)
	if err != nil {
		return fmt.Errorf("proxy.upstream: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("proxy.upstream must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("proxy.upstream must include a host")
	}
	return nil
}

func (c *Config) validateCache() error {
	if err := validateToken("cache.namespace", c.Cache.Namespace); err != nil {
		return err
	}
	return validateToken("cache.version", c.Cache.Version)
}

// validateToken enforces the character set used in cache store names so
// store-name parsing stays unambiguous.
func validateToken(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", field)
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_':
		default:
			return fmt.Errorf("%s contains unsupported character %q (letters, digits, '.', '_' only)", field, r)
		}
	}
	return nil
}

func (c *Config) validatePrecache() error {
	if len(c.Precache.URLs) == 0 {
		return errors.New("precache.urls must list at least one URL")
	}
	for _, u := range c.Precache.URLs {
		if !strings.HasPrefix(u, "/") {
			return fmt.Errorf("precache.urls entries must be root-relative, got %q", u)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
