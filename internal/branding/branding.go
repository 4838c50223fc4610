// Package branding provides compile-time identity values for the CLI and the
// application it releases.
//
// The values live in branding.yaml next to this file and are baked into the
// binary with //go:embed. Hard defaults apply when a key is missing.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	AppName     string `yaml:"app_name"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GitHubRepo  string `yaml:"github_repo"`
}

func load() {
	once.Do(func() {
		defaults = brand{
			CLIName:     "pcrelease",
			DisplayName: "Papercraft Release",
			Description: "Multi-platform release builder for Papercraft",
			AppName:     "Papercraft",
			HomeDir:     ".pcrelease",
			EnvPrefix:   "PCRELEASE",
			GitHubRepo:  "rodrigorc/papercraft",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "pcrelease").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable tool name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short tool description.
func Description() string { load(); return defaults.Description }

// AppName returns the name of the released application (e.g., "Papercraft").
// It prefixes every artifact name.
func AppName() string { load(); return defaults.AppName }

// HomeDir returns the dot-directory name under $HOME (e.g., ".pcrelease").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "PCRELEASE").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the default "owner/repo" releases are published to.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("workspace") → "PCRELEASE_WORKSPACE".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
