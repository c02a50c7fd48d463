package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = ".env"

// Remote holds remote-mode configuration: shared service tokens plus the
// workspace/portfolio/database identifiers. Tokens may legitimately be
// absent here — their absence only surfaces when the dependent client is
// first acquired (see remote.Backend), never at startup.
type Remote struct {
	ServiceNotionToken string `mapstructure:"service_notion_token"`
	ServiceAsanaToken  string `mapstructure:"service_asana_token"`

	WorkspaceGID      string `mapstructure:"asana_workspace_gid"`
	PortfolioGID      string `mapstructure:"asana_portfolio_gid"`
	DefaultProjectGID string `mapstructure:"asana_default_project_gid"`

	ModulesDatabaseID  string `mapstructure:"notion_modules_database_id"`
	FeaturesDatabaseID string `mapstructure:"notion_features_database_id"`

	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
}

// IsConfigured reports whether both service tokens are present.
func (r Remote) IsConfigured() bool {
	return r.ServiceNotionToken != "" && r.ServiceAsanaToken != ""
}

// LoadRemote reads remote-mode configuration from the environment.
// A .env file in the working directory seeds missing variables first,
// so local runs and container deployments share one code path.
func LoadRemote() Remote {
	if envMap, err := godotenv.Read(envFile); err == nil {
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", "0.0.0.0:8000")
	v.SetDefault("log_level", "info")

	for _, k := range []string{
		"service_notion_token",
		"service_asana_token",
		"asana_workspace_gid",
		"asana_portfolio_gid",
		"asana_default_project_gid",
		"notion_modules_database_id",
		"notion_features_database_id",
		"listen_addr",
		"log_level",
	} {
		_ = v.BindEnv(k)
	}

	var r Remote
	// AutomaticEnv alone doesn't populate Unmarshal; read explicitly.
	r.ServiceNotionToken = v.GetString("service_notion_token")
	r.ServiceAsanaToken = v.GetString("service_asana_token")
	r.WorkspaceGID = v.GetString("asana_workspace_gid")
	r.PortfolioGID = v.GetString("asana_portfolio_gid")
	r.DefaultProjectGID = v.GetString("asana_default_project_gid")
	r.ModulesDatabaseID = v.GetString("notion_modules_database_id")
	r.FeaturesDatabaseID = v.GetString("notion_features_database_id")
	r.ListenAddr = v.GetString("listen_addr")
	r.LogLevel = v.GetString("log_level")
	return r
}
