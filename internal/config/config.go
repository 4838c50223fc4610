package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papercraft-labs/pcrelease/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood by the CLI.
const (
	KeyWorkspace     = "workspace"
	KeySource        = "source"
	KeyPipeline      = "pipeline"
	KeyStoreBackend  = "store.backend"
	KeyStorePath     = "store.path"
	KeyRedisAddr     = "store.redis.addr"
	KeyRedisPassword = "store.redis.password"
	KeyRedisDB       = "store.redis.db"
	KeyRedisTTL      = "store.redis.ttl"
	KeyGitHubRepo    = "github.repo"
	KeyGitHubToken   = "github.token"
	KeyGitHubAPI     = "github.api_url"
	KeyGitHubUpload  = "github.upload_url"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
)

// Store backends.
const (
	BackendFS    = "fs"
	BackendRedis = "redis"
)

// Settings is the resolved configuration.
type Settings struct {
	Workspace string
	Source    string
	Pipeline  string

	Store StoreSettings

	GitHub GitHubSettings

	LogLevel  string
	LogFormat string
}

// StoreSettings configures the artifact store.
type StoreSettings struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// GitHubSettings configures release publication.
type GitHubSettings struct {
	Repo      string
	Token     string
	APIURL    string
	UploadURL string
}

// Dir returns the path to the config directory (~/.pcrelease/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.pcrelease/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault(KeyWorkspace, filepath.Join(Dir(), "workspace"))
	viper.SetDefault(KeySource, ".")
	viper.SetDefault(KeyStoreBackend, BackendFS)
	viper.SetDefault(KeyRedisAddr, "localhost:6379")
	viper.SetDefault(KeyRedisTTL, 7*24*time.Hour)
	viper.SetDefault(KeyGitHubRepo, branding.GitHubRepo())
	viper.SetDefault(KeyGitHubAPI, "https://api.github.com")
	viper.SetDefault(KeyGitHubUpload, "https://uploads.github.com")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "console")
}

// Resolve reads the current Viper state into Settings. The GitHub token falls
// back to GITHUB_TOKEN and the store path defaults to <workspace>/artifacts.
func Resolve() Settings {
	s := Settings{
		Workspace: viper.GetString(KeyWorkspace),
		Source:    viper.GetString(KeySource),
		Pipeline:  viper.GetString(KeyPipeline),
		Store: StoreSettings{
			Backend:       viper.GetString(KeyStoreBackend),
			Path:          viper.GetString(KeyStorePath),
			RedisAddr:     viper.GetString(KeyRedisAddr),
			RedisPassword: viper.GetString(KeyRedisPassword),
			RedisDB:       viper.GetInt(KeyRedisDB),
			RedisTTL:      viper.GetDuration(KeyRedisTTL),
		},
		GitHub: GitHubSettings{
			Repo:      viper.GetString(KeyGitHubRepo),
			Token:     viper.GetString(KeyGitHubToken),
			APIURL:    viper.GetString(KeyGitHubAPI),
			UploadURL: viper.GetString(KeyGitHubUpload),
		},
		LogLevel:  viper.GetString(KeyLogLevel),
		LogFormat: viper.GetString(KeyLogFormat),
	}
	if s.GitHub.Token == "" {
		s.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if s.Store.Path == "" {
		s.Store.Path = filepath.Join(s.Workspace, "artifacts")
	}
	return s
}

// Override sets a key for the lifetime of the process, typically from a flag.
// Empty values are ignored.
func Override(key, value string) {
	if value != "" {
		viper.Set(key, value)
	}
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
