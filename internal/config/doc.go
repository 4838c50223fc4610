// Package config manages user-level settings stored at ~/.pcrelease/config.yaml.
// Every key can be overridden by a PCRELEASE_ environment variable (dots become
// underscores) and resolves into a typed Settings value consumed by the CLI.
package config
