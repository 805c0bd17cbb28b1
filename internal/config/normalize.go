package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProxy()
	c.normalizeCache()
	c.normalizePrecache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProxy() {
	c.Proxy.Listen = strings.TrimSpace(c.Proxy.Listen)
	if c.Proxy.Listen == "" {
		c.Proxy.Listen = defaultListen
	}
	c.Proxy.Upstream = strings.TrimRight(strings.TrimSpace(c.Proxy.Upstream), "/")
	if c.Proxy.Upstream == "" {
		c.Proxy.Upstream = defaultUpstream
	}
	if c.Proxy.RequestTimeout <= 0 {
		c.Proxy.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Namespace = strings.TrimSpace(c.Cache.Namespace)
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = defaultNamespace
	}
	c.Cache.Version = strings.TrimSpace(c.Cache.Version)
	if c.Cache.Version == "" {
		c.Cache.Version = defaultVersion
	}
}

func (c *Config) normalizePrecache() {
	if len(c.Precache.URLs) == 0 {
		c.Precache.URLs = defaultPrecacheURLs()
		return
	}
	urls := make([]string, 0, len(c.Precache.URLs))
	seen := map[string]struct{}{}
	for _, raw := range c.Precache.URLs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		urls = append(urls, trimmed)
	}
	c.Precache.URLs = urls
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
