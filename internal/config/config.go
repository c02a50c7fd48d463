// Package config loads NotionDev configuration.
//
// Local mode reads ~/.notion-dev/config.yml (one developer's own tokens).
// Remote mode reads SERVICE_* environment variables (shared service tokens
// plus per-request user identity); see remote.go.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigDirName is the directory under $HOME holding config and state.
const ConfigDirName = ".notion-dev"

// Config holds local-mode configuration.
type Config struct {
	Notion  NotionConfig  `mapstructure:"notion"`
	Asana   AsanaConfig   `mapstructure:"asana"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// NotionConfig describes Notion API access and the two databases.
type NotionConfig struct {
	Token              string `mapstructure:"token"`
	DatabaseModulesID  string `mapstructure:"database_modules_id"`
	DatabaseFeaturesID string `mapstructure:"database_features_id"`
}

// AsanaConfig describes Asana API access for one developer.
type AsanaConfig struct {
	AccessToken       string `mapstructure:"access_token"`
	WorkspaceGID      string `mapstructure:"workspace_gid"`
	UserGID           string `mapstructure:"user_gid"`
	PortfolioGID      string `mapstructure:"portfolio_gid"`
	DefaultProjectGID string `mapstructure:"default_project_gid"`
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Notion.Token == "" {
		return fmt.Errorf("notion.token is required")
	}
	if c.Notion.DatabaseModulesID == "" || c.Notion.DatabaseFeaturesID == "" {
		return fmt.Errorf("notion database IDs are required")
	}
	if c.Asana.AccessToken == "" {
		return fmt.Errorf("asana.access_token is required")
	}
	if c.Asana.WorkspaceGID == "" {
		return fmt.Errorf("asana.workspace_gid is required")
	}
	return nil
}

// Dir returns the NotionDev config directory (~/.notion-dev).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigDirName
	}
	return filepath.Join(home, ConfigDirName)
}

// Path returns the config file path (~/.notion-dev/config.yml).
func Path() string {
	return filepath.Join(Dir(), "config.yml")
}

// Exists reports whether the config file is present.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// Load reads the local config file using viper with typed defaults and
// validation. Environment variables (NOTIONDEV_NOTION_TOKEN, ...) override
// file values.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config file from an explicit path. Split out for tests.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("NOTIONDEV")
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ProjectInfo describes the working directory the context is exported to.
type ProjectInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Cache     string `json:"cache"`
	IsGitRepo bool   `json:"is_git_repo"`
}

// GetProjectInfo inspects dir (cwd when empty) and returns its identity:
// directory name, absolute path, config cache location, git presence.
func GetProjectInfo(dir string) ProjectInfo {
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		} else {
			dir = "."
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	_, gitErr := os.Stat(filepath.Join(abs, ".git"))

	return ProjectInfo{
		Name:      filepath.Base(abs),
		Path:      abs,
		Cache:     Dir(),
		IsGitRepo: gitErr == nil,
	}
}
