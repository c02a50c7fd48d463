package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
notion:
  token: "secret_abc"
  database_modules_id: "mod-db"
  database_features_id: "feat-db"
asana:
  access_token: "asana-token"
  workspace_gid: "ws-1"
  user_gid: "user-1"
  portfolio_gid: "pf-1"
  default_project_gid: "proj-1"
`

func TestLoadFrom_Valid(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "secret_abc", cfg.Notion.Token)
	assert.Equal(t, "mod-db", cfg.Notion.DatabaseModulesID)
	assert.Equal(t, "feat-db", cfg.Notion.DatabaseFeaturesID)
	assert.Equal(t, "asana-token", cfg.Asana.AccessToken)
	assert.Equal(t, "ws-1", cfg.Asana.WorkspaceGID)
	assert.Equal(t, "proj-1", cfg.Asana.DefaultProjectGID)
	assert.Equal(t, "info", cfg.Logging.Level, "default log level")
}

func TestLoadFrom_MissingToken(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, `
notion:
  database_modules_id: "mod-db"
  database_features_id: "feat-db"
asana:
  access_token: "asana-token"
  workspace_gid: "ws-1"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token")
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoadRemote_ReadsEnv(t *testing.T) {
	t.Setenv("SERVICE_NOTION_TOKEN", "svc-notion")
	t.Setenv("SERVICE_ASANA_TOKEN", "svc-asana")
	t.Setenv("ASANA_WORKSPACE_GID", "ws-123")
	t.Setenv("ASANA_PORTFOLIO_GID", "pf-456")
	t.Setenv("ASANA_DEFAULT_PROJECT_GID", "proj-789")
	t.Setenv("NOTION_MODULES_DATABASE_ID", "mods")
	t.Setenv("NOTION_FEATURES_DATABASE_ID", "feats")

	r := LoadRemote()

	assert.Equal(t, "svc-notion", r.ServiceNotionToken)
	assert.Equal(t, "svc-asana", r.ServiceAsanaToken)
	assert.Equal(t, "ws-123", r.WorkspaceGID)
	assert.Equal(t, "pf-456", r.PortfolioGID)
	assert.Equal(t, "proj-789", r.DefaultProjectGID)
	assert.Equal(t, "mods", r.ModulesDatabaseID)
	assert.Equal(t, "feats", r.FeaturesDatabaseID)
	assert.True(t, r.IsConfigured())
	assert.Equal(t, "0.0.0.0:8000", r.ListenAddr, "default listen addr")
}

func TestLoadRemote_NotConfiguredWithoutTokens(t *testing.T) {
	t.Setenv("SERVICE_NOTION_TOKEN", "")
	t.Setenv("SERVICE_ASANA_TOKEN", "")

	r := LoadRemote()
	assert.False(t, r.IsConfigured())
}

func TestGetProjectInfo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	info := GetProjectInfo(dir)
	assert.Equal(t, filepath.Base(dir), info.Name)
	assert.True(t, info.IsGitRepo)

	plain := t.TempDir()
	assert.False(t, GetProjectInfo(plain).IsGitRepo)
}
