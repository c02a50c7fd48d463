package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/models"
)

type stubSource struct {
	features map[string]*models.Feature
	err      error
}

func (s *stubSource) GetFeatureByCode(_ context.Context, code string) (*models.Feature, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.features[code], nil
}

func testProject() config.ProjectInfo {
	return config.ProjectInfo{Name: "shop", Path: "/work/shop", IsGitRepo: true}
}

func testFeature() *models.Feature {
	return &models.Feature{
		NotionID: "feat-1",
		Code:     "CC01",
		Name:     "Login",
		Status:   models.StatusValidated,
		Plan:     []string{"premium"},
		Module: &models.Module{
			Name:        "Customer Care",
			CodePrefix:  "CC",
			Description: "Handles customer accounts.",
		},
		Content: "Feature body.",
	}
}

func newTestBuilder(src *stubSource) *Builder {
	return New(src, testProject(), zap.NewNop())
}

func TestBuildFeatureContext(t *testing.T) {
	src := &stubSource{features: map[string]*models.Feature{"CC01": testFeature()}}
	b := newTestBuilder(src)

	fc, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.NoError(t, err)
	require.NotNil(t, fc)

	assert.Contains(t, fc.Rules, "CC01 - Login")
	assert.Contains(t, fc.Rules, "Handles customer accounts.")
	assert.Contains(t, fc.Rules, "NOTION FEATURES: CC01")
	assert.Contains(t, fc.AIInstructions, "feature **CC01 - Login**")
	assert.NotContains(t, fc.AIInstructions, "Current Ticket")
	assert.Nil(t, fc.Task)
}

func TestBuildFeatureContext_NotFound(t *testing.T) {
	b := newTestBuilder(&stubSource{features: map[string]*models.Feature{}})

	fc, err := b.BuildFeatureContext(context.Background(), "ZZ99")
	require.NoError(t, err)
	assert.Nil(t, fc)
}

func TestBuildFeatureContext_FetchError(t *testing.T) {
	b := newTestBuilder(&stubSource{err: errors.New("boom")})

	_, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CC01")
}

func TestBuildTaskContext(t *testing.T) {
	src := &stubSource{features: map[string]*models.Feature{"CC01": testFeature()}}
	b := newTestBuilder(src)

	task := &models.Task{GID: "t-1", Name: "CC01: fix login", Notes: "details"}
	fc, err := b.BuildTaskContext(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, fc)

	assert.Same(t, task, fc.Task)
	assert.Contains(t, fc.AIInstructions, "Current Ticket")
	assert.Contains(t, fc.AIInstructions, "CC01: fix login")
}

func TestBuildTaskContext_NoCode(t *testing.T) {
	b := newTestBuilder(&stubSource{})

	fc, err := b.BuildTaskContext(context.Background(), &models.Task{GID: "t-2", Name: "chore"})
	require.NoError(t, err)
	assert.Nil(t, fc)
}

func TestRulesTruncation(t *testing.T) {
	feature := testFeature()
	feature.Content = strings.Repeat("x", contentBudget+200)
	src := &stubSource{features: map[string]*models.Feature{"CC01": feature}}
	b := newTestBuilder(src)

	fc, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.NoError(t, err)

	assert.Contains(t, fc.Rules, strings.Repeat("x", contentBudget)+"...")
	assert.NotContains(t, fc.Rules, strings.Repeat("x", contentBudget+1))
}

func TestRulesTruncationKeepsValidUTF8(t *testing.T) {
	feature := testFeature()
	// "日" is 3 bytes; the offset puts the budget boundary mid-rune.
	feature.Content = "x" + strings.Repeat("日", contentBudget)
	src := &stubSource{features: map[string]*models.Feature{"CC01": feature}}
	b := newTestBuilder(src)

	fc, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(fc.Rules), "truncation must not split a rune")
	assert.Contains(t, fc.Rules, "日...")
}

func TestRulesModuleUnavailable(t *testing.T) {
	feature := testFeature()
	feature.Module = nil
	src := &stubSource{features: map[string]*models.Feature{"CC01": feature}}
	b := newTestBuilder(src)

	fc, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.NoError(t, err)
	assert.Contains(t, fc.Rules, moduleUnavailable)
}

func TestExport_WritesThreeFiles(t *testing.T) {
	src := &stubSource{features: map[string]*models.Feature{"CC01": testFeature()}}
	b := newTestBuilder(src)

	fc, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.NoError(t, err)

	dir := t.TempDir()
	require.True(t, b.Export(fc, dir))

	for _, name := range []string{"rules.md", "context.md", "project-info.md"} {
		data, err := os.ReadFile(filepath.Join(dir, ".cursor", name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	info, err := os.ReadFile(filepath.Join(dir, ".cursor", "project-info.md"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "Code: CC01")
}

func TestExport_OverwritesExisting(t *testing.T) {
	src := &stubSource{features: map[string]*models.Feature{"CC01": testFeature()}}
	b := newTestBuilder(src)

	fc, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.NoError(t, err)

	dir := t.TempDir()
	cursorDir := filepath.Join(dir, ".cursor")
	require.NoError(t, os.MkdirAll(cursorDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cursorDir, "rules.md"), []byte("stale"), 0o644))

	require.True(t, b.Export(fc, dir))

	data, err := os.ReadFile(filepath.Join(cursorDir, "rules.md"))
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))
}

func TestExport_FailureReturnsFalse(t *testing.T) {
	src := &stubSource{features: map[string]*models.Feature{"CC01": testFeature()}}
	b := newTestBuilder(src)

	fc, err := b.BuildFeatureContext(context.Background(), "CC01")
	require.NoError(t, err)

	dir := t.TempDir()
	// A file where the .cursor directory should be makes MkdirAll fail.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cursor"), []byte(""), 0o644))

	assert.False(t, b.Export(fc, dir))
}
