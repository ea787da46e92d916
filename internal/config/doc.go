// Package config provides configuration management for the policy
// administration point.
//
// Configuration is read from a single YAML file. Values may reference
// environment variables with ${VAR} or ${VAR:-default}; "$$" escapes a
// literal dollar sign. Missing sections fall back to DefaultConfig and
// the result is checked by Validate before use.
//
// A Watcher observes the file with fsnotify. A valid change to the
// Reload set (resources, backend base URL, log level) is handed to a
// ReloadFunc; changes to any other section are reported by
// RestartRequired and logged, but not applied.
package config
