// Package config loads and validates shellcache configuration.
//
// Configuration lives in a TOML file, by default at
// ~/.config/shellcache/config.toml, with a project-local
// shellcache.toml as fallback. Load applies defaults, expands paths,
// and validates every section before handing the result to the daemon
// or CLI. CreateSample writes an annotated starter file for
// `shellcache config init`.
package config
