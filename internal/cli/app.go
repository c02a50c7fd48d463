// Package cli implements the notion-dev commands. Each command renders
// human-readable output by default and a JSON envelope with --json, which
// is what the MCP tools consume when they delegate to the CLI.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/asana"
	"github.com/phumblot-gs/notiondev/internal/builder"
	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/models"
	"github.com/phumblot-gs/notiondev/internal/notion"
	"github.com/phumblot-gs/notiondev/internal/state"
)

// App holds the wired dependencies for one CLI invocation.
type App struct {
	cfg     *config.Config
	notion  *notion.Client
	asana   *asana.Client
	store   *state.Store
	project config.ProjectInfo
	log     *zap.Logger
	out     io.Writer

	// JSON switches every command to machine-readable output.
	JSON bool
}

// New wires an App from loaded configuration. workDir is the project the
// developer runs the command from.
func New(cfg *config.Config, workDir string, log *zap.Logger) (*App, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	store, err := state.Open(config.Dir())
	if err != nil {
		return nil, nil, fmt.Errorf("opening state store: %w", err)
	}

	app := &App{
		cfg: cfg,
		notion: notion.New(notion.Options{
			Token:              cfg.Notion.Token,
			ModulesDatabaseID:  cfg.Notion.DatabaseModulesID,
			FeaturesDatabaseID: cfg.Notion.DatabaseFeaturesID,
			Logger:             log.Named("notion"),
		}),
		asana: asana.New(asana.Options{
			AccessToken:       cfg.Asana.AccessToken,
			WorkspaceGID:      cfg.Asana.WorkspaceGID,
			UserGID:           cfg.Asana.UserGID,
			PortfolioGID:      cfg.Asana.PortfolioGID,
			DefaultProjectGID: cfg.Asana.DefaultProjectGID,
			Logger:            log.Named("asana"),
		}),
		store:   store,
		project: config.GetProjectInfo(workDir),
		log:     log,
		out:     os.Stdout,
	}
	return app, func() { _ = store.Close() }, nil
}

func (a *App) emit(human string, payload any) error {
	if a.JSON {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}
	fmt.Fprint(a.out, human)
	return nil
}

// Info reports configuration status, API connectivity, and the active
// work session.
func (a *App) Info(ctx context.Context) error {
	conn := a.asana.TestConnection(ctx)

	notionOK := true
	notionErr := ""
	if _, err := a.notion.GetModules(ctx); err != nil {
		notionOK = false
		notionErr = err.Error()
	}

	session, err := a.store.Current()
	if err != nil {
		return fmt.Errorf("reading work session: %w", err)
	}

	payload := map[string]any{
		"project": a.project,
		"notion":  map[string]any{"connected": notionOK, "error": notionErr},
		"asana":   conn,
		"session": session,
	}

	var human string
	human += fmt.Sprintf("Project: %s (%s)\n", a.project.Name, a.project.Path)
	if notionOK {
		human += "Notion:  connected\n"
	} else {
		human += fmt.Sprintf("Notion:  FAILED (%s)\n", notionErr)
	}
	if conn.Success {
		human += fmt.Sprintf("Asana:   connected as %s\n", conn.UserName)
	} else {
		human += fmt.Sprintf("Asana:   FAILED (%s)\n", conn.Error)
	}
	if session != nil {
		human += fmt.Sprintf("Working: %s (%s)\n", session.TaskName, session.TaskGID)
	} else {
		human += "Working: no active session\n"
	}

	return a.emit(human, payload)
}

// Tickets lists the developer's open tickets.
func (a *App) Tickets(ctx context.Context) error {
	tasks, err := a.asana.GetMyTasks(ctx)
	if err != nil {
		return fmt.Errorf("listing tickets: %w", err)
	}

	type row struct {
		GID         string `json:"gid"`
		Name        string `json:"name"`
		FeatureCode string `json:"feature_code,omitempty"`
		DueOn       string `json:"due_on,omitempty"`
		URL         string `json:"url"`
	}
	rows := make([]row, 0, len(tasks))
	human := fmt.Sprintf("%d open ticket(s)\n", len(tasks))
	for _, t := range tasks {
		rows = append(rows, row{
			GID:         t.GID,
			Name:        t.Name,
			FeatureCode: t.FeatureCode(),
			DueOn:       t.DueOn,
			URL:         t.URL(),
		})
		code := t.FeatureCode()
		if code == "" {
			code = "--"
		}
		human += fmt.Sprintf("  [%s] %s  %s\n", code, t.GID, t.Name)
	}

	return a.emit(human, map[string]any{"tickets": rows, "count": len(rows)})
}

// Work starts a work session on a ticket: loads the linked feature's
// documentation and exports the context files into the project.
func (a *App) Work(ctx context.Context, ticketID string) error {
	task, err := a.asana.GetTask(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("fetching ticket: %w", err)
	}
	if task == nil {
		return fmt.Errorf("ticket %s not found", ticketID)
	}

	b := builder.New(a.notion, a.project, a.log.Named("builder"))
	fc, err := b.BuildTaskContext(ctx, task)
	if err != nil {
		return fmt.Errorf("building context: %w", err)
	}

	exported := false
	featureCode := task.FeatureCode()
	if fc != nil {
		exported = b.Export(fc, a.project.Path)
		featureCode = fc.Feature.Code
	} else {
		a.log.Warn("no feature context for ticket", zap.String("gid", ticketID))
	}

	session, err := a.store.Start(task.GID, task.Name, featureCode, a.project.Path)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	payload := map[string]any{
		"session":  session,
		"ticket":   map[string]any{"gid": task.GID, "name": task.Name, "url": task.URL()},
		"feature":  featureCode,
		"exported": exported,
	}

	human := fmt.Sprintf("Working on %s: %s\n", task.GID, task.Name)
	if exported {
		human += "Context exported to .cursor/ (rules.md, context.md, project-info.md)\n"
	} else if fc == nil {
		human += "No feature documentation found for this ticket; context not exported.\n"
	} else {
		human += "Context export failed; see logs.\n"
	}

	return a.emit(human, payload)
}

// Comment posts a message on the active session's ticket.
func (a *App) Comment(ctx context.Context, message string) error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}

	if err := a.asana.AddComment(ctx, session.TaskGID, message); err != nil {
		return fmt.Errorf("adding comment: %w", err)
	}

	return a.emit(
		fmt.Sprintf("Comment added to %s\n", session.TaskGID),
		map[string]any{"ok": true, "ticket": session.TaskGID},
	)
}

// Done completes the active session's ticket and closes the session.
func (a *App) Done(ctx context.Context) error {
	session, err := a.requireSession()
	if err != nil {
		return err
	}

	completed := true
	task, err := a.asana.UpdateTask(ctx, session.TaskGID, asana.UpdateTaskParams{Completed: &completed})
	if err != nil {
		return fmt.Errorf("completing ticket: %w", err)
	}
	if task == nil {
		return fmt.Errorf("ticket %s no longer exists", session.TaskGID)
	}

	closed, err := a.store.End()
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}

	return a.emit(
		fmt.Sprintf("Ticket %s completed.\n", session.TaskGID),
		map[string]any{"ok": true, "ticket": session.TaskGID, "session": closed},
	)
}

// Modules lists the documented modules.
func (a *App) Modules(ctx context.Context) error {
	modules, err := a.notion.GetModules(ctx)
	if err != nil {
		return fmt.Errorf("listing modules: %w", err)
	}

	human := fmt.Sprintf("%d module(s)\n", len(modules))
	for _, m := range modules {
		human += fmt.Sprintf("  %-4s %-24s %s\n", m.CodePrefix, m.Name, m.Description)
	}
	return a.emit(human, map[string]any{"modules": modules, "count": len(modules)})
}

// Features lists features, optionally for one module prefix.
func (a *App) Features(ctx context.Context, prefix string) error {
	var (
		features []*models.Feature
		err      error
	)
	if prefix != "" {
		features, err = a.notion.GetFeaturesByModule(ctx, prefix)
	} else {
		features, err = a.notion.GetAllFeatures(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing features: %w", err)
	}

	human := fmt.Sprintf("%d feature(s)\n", len(features))
	for _, f := range features {
		human += fmt.Sprintf("  %-6s %-32s %s\n", f.Code, f.Name, f.Status)
	}
	return a.emit(human, map[string]any{"features": features, "count": len(features)})
}

func (a *App) requireSession() (*state.Session, error) {
	session, err := a.store.Current()
	if err != nil {
		return nil, fmt.Errorf("reading work session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("no active work session; run 'notion-dev work <ticket-id>' first")
	}
	return session, nil
}
