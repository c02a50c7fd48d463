// Package prompts implements the MCP prompt handlers.
//
// Prompts are user-triggered workflows: the development methodology, the
// documentation templates, and the project bootstrap sequence.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Methodology is the feature-driven workflow document. Also served as the
// notiondev://methodology resource.
const Methodology = `# NotionDev Methodology

Development is feature-driven: every line of code belongs to a documented
feature, and every ticket references one.

## Workflow

1. **Pick a ticket** — list your tickets with get_my_tickets (or
   notion_dev_tickets). Each ticket's name starts with a feature code,
   e.g. "CC01: implement login".
2. **Load the context** — start the ticket with notion_dev_work. The
   feature's Notion documentation and its module's architecture notes are
   exported to .cursor/ so your AI assistant works from the spec.
3. **Code against the spec** — every created or modified file carries a
   header naming the feature code and module. Never touch code belonging
   to another feature.
4. **Document as you go** — keep the feature's Notion page current with
   update_feature_content. Undocumented behavior is a bug.
5. **Communicate** — post progress with notion_dev_comment (or
   add_comment). Close the ticket with notion_dev_done when the feature
   matches its documentation.

## Codes

- Modules carry a 2-3 letter uppercase prefix: CC, API, USR.
- Features are the prefix plus a two-digit number: CC01, API12.
- A ticket references a feature by starting its title with the code.
`

// MethodologyPrompt explains the feature-driven workflow.
type MethodologyPrompt struct{}

func NewMethodologyPrompt() *MethodologyPrompt {
	return &MethodologyPrompt{}
}

func (p *MethodologyPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("methodology",
		mcp.WithPromptDescription(
			"The NotionDev feature-driven development methodology: how tickets, "+
				"features, and modules fit together and how to work through them.",
		),
	)
}

func (p *MethodologyPrompt) Handle(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "NotionDev development methodology",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(Methodology + "\nFollow this methodology for all development work in this session."),
			},
		},
	}, nil
}

// ModuleTemplatePrompt returns the documentation skeleton for a module.
type ModuleTemplatePrompt struct{}

func NewModuleTemplatePrompt() *ModuleTemplatePrompt {
	return &ModuleTemplatePrompt{}
}

func (p *ModuleTemplatePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("module_template",
		mcp.WithPromptDescription("Documentation template for a new module. Use it as the content argument of create_module."),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Module name to fill into the template"),
		),
	)
}

func (p *ModuleTemplatePrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := "Module Name"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["name"]; ok && v != "" {
			name = v
		}
	}

	template := fmt.Sprintf(`# %s

## Purpose
What this module is responsible for, in one paragraph.

## Architecture
How the module is structured: entry points, storage, external services.

## Dependencies
Other modules this one relies on, and why.

## Conventions
Naming, error handling, and patterns specific to this module.
`, name)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Module documentation template: %s", name),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Fill in this module documentation template, then create the module with create_module:\n\n" + template,
				),
			},
		},
	}, nil
}

// FeatureTemplatePrompt returns the documentation skeleton for a feature.
type FeatureTemplatePrompt struct{}

func NewFeatureTemplatePrompt() *FeatureTemplatePrompt {
	return &FeatureTemplatePrompt{}
}

func (p *FeatureTemplatePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("feature_template",
		mcp.WithPromptDescription("Documentation template for a new feature. Use it as the content argument of create_feature."),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Feature name to fill into the template"),
		),
	)
}

func (p *FeatureTemplatePrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := "Feature Name"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["name"]; ok && v != "" {
			name = v
		}
	}

	template := fmt.Sprintf(`# %s

## Objective
What the feature does for the user, in one paragraph.

## Specification
Expected behavior, inputs, outputs, and business rules.

## Edge Cases
What happens on invalid input, missing data, concurrent use.

## Acceptance Criteria
- [ ] ...
- [ ] ...
`, name)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Feature documentation template: %s", name),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Fill in this feature documentation template, then create the feature with create_feature:\n\n" + template,
				),
			},
		},
	}, nil
}

// InitProjectPrompt walks a new codebase through module/feature setup.
type InitProjectPrompt struct{}

func NewInitProjectPrompt() *InitProjectPrompt {
	return &InitProjectPrompt{}
}

func (p *InitProjectPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("init_project",
		mcp.WithPromptDescription(
			"Bootstrap NotionDev documentation for a codebase: analyze the "+
				"project, propose modules, and create them in Notion.",
		),
		mcp.WithArgument("project_name",
			mcp.ArgumentDescription("Name of the project to document"),
		),
	)
}

func (p *InitProjectPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	projectName := "this project"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["project_name"]; ok && v != "" {
			projectName = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Initialize NotionDev documentation for %s", projectName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to document '%s' with NotionDev.\n\n"+
						"Please:\n"+
						"1. Run list_modules to see what already exists\n"+
						"2. Analyze the codebase and propose a module breakdown, each with "+
						"a unique 2-3 letter prefix (e.g. CC, API, USR)\n"+
						"3. After I confirm, create each module with create_module using "+
						"the module_template structure\n"+
						"4. For the most important module, propose its first features and "+
						"create them with create_feature\n",
					projectName,
				)),
			},
		},
	}, nil
}
