// Package server wires the MCP components and creates the server instance.
//
// This is the composition root: it builds the concrete clients, stores,
// and backend, and injects them into the tools, prompts, and resources.
// No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/prompts"
	"github.com/phumblot-gs/notiondev/internal/remote"
	"github.com/phumblot-gs/notiondev/internal/resources"
	"github.com/phumblot-gs/notiondev/internal/runner"
	"github.com/phumblot-gs/notiondev/internal/state"
	"github.com/phumblot-gs/notiondev/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewLocal creates the stdio MCP server for one developer's machine.
// Ticket operations delegate to the notion-dev CLI so both surfaces share
// configuration and work-session state; documentation operations talk to
// Notion directly.
//
// The returned cleanup closes the state store and must be called on
// shutdown. It is always non-nil.
func NewLocal(cfg *config.Config, log *zap.Logger) (*server.MCPServer, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	s := server.NewMCPServer(
		"notion-dev",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// CLI-delegating tools.
	run := runner.New("", "", log.Named("runner"))

	checkTool := tools.NewCheckInstallationTool(run)
	s.AddTool(checkTool.Definition(), checkTool.Handle)

	installTool := tools.NewInstallInstructionsTool()
	s.AddTool(installTool.Definition(), installTool.Handle)

	infoTool := tools.NewInfoTool(run)
	s.AddTool(infoTool.Definition(), infoTool.Handle)

	ticketsTool := tools.NewTicketsTool(run)
	s.AddTool(ticketsTool.Definition(), ticketsTool.Handle)

	workTool := tools.NewWorkTool(run)
	s.AddTool(workTool.Definition(), workTool.Handle)

	commentTool := tools.NewCommentTool(run)
	s.AddTool(commentTool.Definition(), commentTool.Handle)

	doneTool := tools.NewDoneTool(run)
	s.AddTool(doneTool.Definition(), doneTool.Handle)

	// Documentation tools go straight to Notion with the local token.
	// The backend abstraction is reused with the developer's own
	// credentials standing in for service tokens.
	docBackend := remote.New(config.Remote{
		ServiceNotionToken: cfg.Notion.Token,
		ModulesDatabaseID:  cfg.Notion.DatabaseModulesID,
		FeaturesDatabaseID: cfg.Notion.DatabaseFeaturesID,
	}, log.Named("notion"))
	registerDocTools(s, docBackend)

	registerPrompts(s)

	// Resources need the work-session store the CLI writes to.
	cleanup := func() {}
	store, err := state.Open(config.Dir())
	if err != nil {
		log.Warn("work session store unavailable", zap.Error(err))
		store = nil
	} else {
		cleanup = func() { _ = store.Close() }
	}

	rh := resources.NewLocalHandler(cfg, store)
	s.AddResource(rh.ConfigResource(), rh.HandleConfig)
	s.AddResource(rh.CurrentTaskResource(), rh.HandleCurrentTask)
	s.AddResource(rh.MethodologyResource(), rh.HandleMethodology)

	return s, cleanup, nil
}

// NewRemote creates the hosted MCP server: one process, many developers,
// served over streamable HTTP behind an OAuth proxy.
func NewRemote(cfg config.Remote, log *zap.Logger) (*server.StreamableHTTPServer, *remote.Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.IsConfigured() {
		return nil, nil, fmt.Errorf("remote backend not configured: service tokens missing")
	}

	backend := remote.New(cfg, log.Named("backend"))

	s := server.NewMCPServer(
		"notion-dev",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	listTickets := tools.NewListTicketsTool(backend)
	s.AddTool(listTickets.Definition(), listTickets.Handle)

	getTicket := tools.NewGetTicketTool(backend)
	s.AddTool(getTicket.Definition(), getTicket.Handle)

	createTicket := tools.NewCreateTicketTool(backend)
	s.AddTool(createTicket.Definition(), createTicket.Handle)

	updateTicket := tools.NewUpdateTicketTool(backend)
	s.AddTool(updateTicket.Definition(), updateTicket.Handle)

	addComment := tools.NewAddCommentTool(backend)
	s.AddTool(addComment.Definition(), addComment.Handle)

	listProjects := tools.NewListProjectsTool(backend)
	s.AddTool(listProjects.Definition(), listProjects.Handle)

	backendInfo := tools.NewBackendInfoTool(backend)
	s.AddTool(backendInfo.Definition(), backendInfo.Handle)

	registerDocTools(s, backend)
	registerPrompts(s)

	rh := resources.NewRemoteHandler(backend)
	s.AddResource(rh.ConfigResource(), rh.HandleConfig)
	s.AddResource(rh.MethodologyResource(), rh.HandleMethodology)

	httpServer := server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(identityContextFunc(backend, log)),
	)
	return httpServer, backend, nil
}

// identityContextFunc binds the identity forwarded by the OAuth proxy to
// each request's context. Resolution failures leave the context without a
// user; the tools then return structured errors instead of panicking the
// transport.
func identityContextFunc(backend *remote.Backend, log *zap.Logger) server.HTTPContextFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		email := r.Header.Get("X-Forwarded-Email")
		if email == "" {
			return ctx
		}
		name := r.Header.Get("X-Forwarded-User")

		user, err := backend.ResolveUser(ctx, email, name)
		if err != nil {
			log.Warn("identity resolution failed", zap.String("email", email), zap.Error(err))
			return ctx
		}
		return remote.WithUser(ctx, user)
	}
}

// registerDocTools registers the Notion documentation tools shared by both
// server modes.
func registerDocTools(s *server.MCPServer, backend *remote.Backend) {
	listModules := tools.NewListModulesTool(backend)
	s.AddTool(listModules.Definition(), listModules.Handle)

	getModule := tools.NewGetModuleTool(backend)
	s.AddTool(getModule.Definition(), getModule.Handle)

	createModule := tools.NewCreateModuleTool(backend)
	s.AddTool(createModule.Definition(), createModule.Handle)

	listFeatures := tools.NewListFeaturesTool(backend)
	s.AddTool(listFeatures.Definition(), listFeatures.Handle)

	getFeature := tools.NewGetFeatureTool(backend)
	s.AddTool(getFeature.Definition(), getFeature.Handle)

	createFeature := tools.NewCreateFeatureTool(backend)
	s.AddTool(createFeature.Definition(), createFeature.Handle)

	updateContent := tools.NewUpdateFeatureContentTool(backend)
	s.AddTool(updateContent.Definition(), updateContent.Handle)
}

func registerPrompts(s *server.MCPServer) {
	methodology := prompts.NewMethodologyPrompt()
	s.AddPrompt(methodology.Definition(), methodology.Handle)

	moduleTemplate := prompts.NewModuleTemplatePrompt()
	s.AddPrompt(moduleTemplate.Definition(), moduleTemplate.Handle)

	featureTemplate := prompts.NewFeatureTemplatePrompt()
	s.AddPrompt(featureTemplate.Definition(), featureTemplate.Handle)

	initProject := prompts.NewInitProjectPrompt()
	s.AddPrompt(initProject.Definition(), initProject.Handle)
}

// serverInstructions tells the AI how to use NotionDev.
func serverInstructions() string {
	return `You have access to NotionDev, which connects Notion documentation
(modules and features) with Asana ticket tracking.

## Core concepts
- Modules are documented functional domains with a 2-3 letter uppercase
  prefix (CC, API, USR).
- Features are documented capabilities coded as prefix + two digits
  (CC01, API12).
- Asana tickets reference a feature by starting their title with its code.

## Workflow
1. List tickets to see what is assigned to the developer.
2. Start a ticket: the feature's documentation becomes the working
   context, exported to .cursor/ files locally.
3. Code strictly within the ticket's feature. Every created or modified
   file carries a header naming the feature code and module.
4. Keep Notion documentation current with update_feature_content; post
   progress comments on the ticket.
5. Complete the ticket when the code matches the documentation.

## Rules
- Never write code for an undocumented feature; create the feature first.
- Never modify code belonging to another feature's scope.
- Use the module_template and feature_template prompts when creating
  documentation, and the methodology prompt to review the workflow.`
}
