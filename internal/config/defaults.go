package config

const (
	defaultDataDir        = "~/.local/share/shellcache"
	defaultLogDir         = "~/.local/share/shellcache/logs"
	defaultListen         = "127.0.0.1:8787"
	defaultUpstream       = "http://127.0.0.1:3000"
	defaultRequestTimeout = 15
	defaultNamespace      = "shellcache"
	defaultVersion        = "v1"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

func defaultPrecacheURLs() []string {
	return []string{
		"/",
		"/index.html",
		"/manifest.json",
		"/icons/icon-192x192.png",
		"/icons/icon-512x512.png",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Proxy: Proxy{
			Listen:         defaultListen,
			Upstream:       defaultUpstream,
			RequestTimeout: defaultRequestTimeout,
		},
		Cache: Cache{
			Namespace: defaultNamespace,
			Version:   defaultVersion,
		},
		Precache: Precache{
			URLs: defaultPrecacheURLs(),
		},
		Controller: Controller{
			SkipWaiting: true,
		},
		Push: Push{
			Enabled: false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
