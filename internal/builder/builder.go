// Package builder renders fetched feature documentation into the documents
// an AI coding assistant consumes, and exports them into the working
// directory's .cursor folder.
package builder

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/models"
)

// contentBudget caps how much feature content is inlined in the rules
// document; longer content is truncated with an ellipsis marker.
const contentBudget = 1500

// moduleUnavailable is rendered when a feature's code prefix matches no
// known module.
const moduleUnavailable = "Module information not available"

// FeatureSource is the slice of the Notion client the builder needs.
type FeatureSource interface {
	GetFeatureByCode(ctx context.Context, code string) (*models.Feature, error)
}

// Builder assembles and exports feature contexts.
type Builder struct {
	notion  FeatureSource
	project config.ProjectInfo
	log     *zap.Logger

	now func() time.Time
}

// New creates a Builder for the given project.
func New(notion FeatureSource, project config.ProjectInfo, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{notion: notion, project: project, log: log, now: time.Now}
}

// Context is the fully rendered documentation set for one feature.
type Context struct {
	Feature        *models.Feature
	Project        config.ProjectInfo
	FullContext    string
	Rules          string
	AIInstructions string

	// Task is set only for task-driven contexts.
	Task *models.Task
}

// BuildFeatureContext fetches the feature and renders both documents.
// Returns (nil, nil) when the feature doesn't exist.
func (b *Builder) BuildFeatureContext(ctx context.Context, code string) (*Context, error) {
	feature, err := b.notion.GetFeatureByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("fetching feature %s: %w", code, err)
	}
	if feature == nil {
		b.log.Warn("feature not found", zap.String("code", code))
		return nil, nil
	}

	return &Context{
		Feature:        feature,
		Project:        b.project,
		FullContext:    feature.FullContext(),
		Rules:          b.renderRules(feature),
		AIInstructions: b.renderInstructions(feature, nil),
	}, nil
}

// BuildTaskContext builds the feature context referenced by an Asana task.
// Returns (nil, nil) when the task carries no feature code or the feature
// doesn't exist.
func (b *Builder) BuildTaskContext(ctx context.Context, task *models.Task) (*Context, error) {
	code := task.FeatureCode()
	if code == "" {
		b.log.Warn("task has no feature code", zap.String("gid", task.GID))
		return nil, nil
	}

	fc, err := b.BuildFeatureContext(ctx, code)
	if err != nil || fc == nil {
		return fc, err
	}

	fc.Task = task
	fc.AIInstructions = b.renderInstructions(fc.Feature, task)
	return fc, nil
}

// ─── Rendering ───────────────────────────────────────────────────────────────

var rulesTmpl = template.Must(template.New("rules").Parse(`# Development Rules - {{.ProjectName}}

## Current Project
**{{.ProjectName}}**
- Path: {{.ProjectPath}}
- Git Repository: {{if .IsGitRepo}}yes{{else}}no{{end}}

## Current Feature
**{{.Code}} - {{.Name}}**
- Status: {{.Status}}
- Module: {{.ModuleName}}
- Plans: {{.Plans}}
- User Rights: {{.UserRights}}

## Mandatory Code Standards
Every created or modified file must carry a header:

` + "```" + `
/**
 * NOTION FEATURES: {{.Code}}
 * MODULES: {{.ModuleName}}
 * DESCRIPTION: [role of the file]
 * LAST_SYNC: {{.Date}}
 */
` + "```" + `

## Module Architecture
{{.ModuleDescription}}

## Feature Documentation
{{.Content}}
`))

var instructionsTmpl = template.Must(template.New("instructions").Parse(`# AI Instructions - Feature {{.Code}}

## Project Context
Project: **{{.ProjectName}}**
Repository: {{.ProjectPath}}

## Development Context
You are assisting a developer implementing feature **{{.Code}} - {{.Name}}**.
{{if .TaskSection}}
## Current Ticket
{{.TaskSection}}
{{end}}
## Objectives
- Follow the feature specification exactly
- Respect the {{.ModuleName}} module architecture
- Add the mandatory Notion headers
- Write testable, maintainable code
- Never modify code belonging to other features

## Complete Specification
{{.FullContext}}

## Code Requirements
1. Mandatory headers in every file
2. Unit tests for every function
3. Appropriate error handling
4. Inline documentation for non-obvious functions
5. Respect the module's existing patterns

## Validation
Before proposing code, verify:
- [ ] Notion header present
- [ ] Code aligned with the specs
- [ ] Error cases handled
- [ ] Unit tests included
`))

type rulesData struct {
	ProjectName       string
	ProjectPath       string
	IsGitRepo         bool
	Code              string
	Name              string
	Status            models.Status
	ModuleName        string
	ModuleDescription string
	Plans             string
	UserRights        string
	Content           string
	Date              string
}

func joinOrNA(values []string) string {
	if len(values) == 0 {
		return "N/A"
	}
	return strings.Join(values, ", ")
}

// truncate cuts content to the budget with an ellipsis marker; content at
// or under the budget is returned unmodified. The cut backs up to a rune
// boundary so multi-byte characters are never split.
func truncate(content string, budget int) string {
	if len(content) <= budget {
		return content
	}
	cut := budget
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

func (b *Builder) renderRules(feature *models.Feature) string {
	moduleDesc := moduleUnavailable
	if feature.Module != nil && feature.Module.Description != "" {
		moduleDesc = feature.Module.Description
	}

	data := rulesData{
		ProjectName:       b.project.Name,
		ProjectPath:       b.project.Path,
		IsGitRepo:         b.project.IsGitRepo,
		Code:              feature.Code,
		Name:              feature.Name,
		Status:            feature.Status,
		ModuleName:        feature.ModuleName(),
		ModuleDescription: moduleDesc,
		Plans:             joinOrNA(feature.Plan),
		UserRights:        joinOrNA(feature.UserRights),
		Content:           truncate(feature.Content, contentBudget),
		Date:              b.now().Format("2006-01-02"),
	}

	var out strings.Builder
	if err := rulesTmpl.Execute(&out, data); err != nil {
		// Templates are static; execution only fails on writer errors,
		// which strings.Builder never returns.
		b.log.Error("rules template", zap.Error(err))
		return ""
	}
	return out.String()
}

func (b *Builder) renderInstructions(feature *models.Feature, task *models.Task) string {
	taskSection := ""
	if task != nil {
		taskSection = fmt.Sprintf("# Task: %s\n\n%s", task.Name, task.Notes)
	}

	data := struct {
		ProjectName string
		ProjectPath string
		Code        string
		Name        string
		ModuleName  string
		FullContext string
		TaskSection string
	}{
		ProjectName: b.project.Name,
		ProjectPath: b.project.Path,
		Code:        feature.Code,
		Name:        feature.Name,
		ModuleName:  feature.ModuleName(),
		FullContext: feature.FullContext(),
		TaskSection: taskSection,
	}

	var out strings.Builder
	if err := instructionsTmpl.Execute(&out, data); err != nil {
		b.log.Error("instructions template", zap.Error(err))
		return ""
	}
	return out.String()
}
