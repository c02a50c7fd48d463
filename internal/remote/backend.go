// Package remote implements the multi-user backend behind the hosted MCP
// server. A single process serves many developers: service tokens talk to
// Notion and Asana, and each request is scoped to the identity the OAuth
// proxy forwarded.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/asana"
	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/models"
	"github.com/phumblot-gs/notiondev/internal/notion"
)

var (
	// ErrNotConfigured is returned when a service token or database ID
	// required for the requested client is missing from the environment.
	ErrNotConfigured = errors.New("remote backend not configured")

	// ErrNoUser is returned by user-scoped operations when the request
	// context carries no identity.
	ErrNoUser = errors.New("no user in request context")

	// ErrUserUnresolved is returned when the forwarded email matched no
	// Asana account.
	ErrUserUnresolved = errors.New("user has no Asana account")
)

// User is one authenticated developer as seen by the backend.
type User struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	AsanaGID string `json:"asana_gid,omitempty"`
}

// Resolved reports whether the email matched an Asana account.
func (u *User) Resolved() bool {
	return u != nil && u.AsanaGID != ""
}

// Backend holds the service clients and the process-wide identity cache.
type Backend struct {
	cfg config.Remote
	log *zap.Logger

	notionOnce sync.Once
	notionC    *notion.Client
	notionErr  error

	asanaOnce sync.Once
	asanaC    *asana.Client
	asanaErr  error

	// users caches email → identity for the process lifetime. The Asana
	// lookup runs outside the lock: two racing requests for the same
	// fresh email may both hit the API, and the last write wins.
	mu    sync.Mutex
	users map[string]*User
}

// New creates a Backend from environment configuration.
func New(cfg config.Remote, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		cfg:   cfg,
		log:   log,
		users: make(map[string]*User),
	}
}

// Notion returns the service Notion client, constructing it on first use.
func (b *Backend) Notion() (*notion.Client, error) {
	b.notionOnce.Do(func() {
		if b.cfg.ServiceNotionToken == "" {
			b.notionErr = fmt.Errorf("%w: SERVICE_NOTION_TOKEN missing", ErrNotConfigured)
			return
		}
		b.notionC = notion.New(notion.Options{
			Token:              b.cfg.ServiceNotionToken,
			ModulesDatabaseID:  b.cfg.ModulesDatabaseID,
			FeaturesDatabaseID: b.cfg.FeaturesDatabaseID,
			Logger:             b.log.Named("notion"),
		})
	})
	return b.notionC, b.notionErr
}

// Asana returns the service Asana client, constructing it on first use.
// The service client carries no user identity; use UserScopedAsana for
// per-developer operations.
func (b *Backend) Asana() (*asana.Client, error) {
	b.asanaOnce.Do(func() {
		if b.cfg.ServiceAsanaToken == "" {
			b.asanaErr = fmt.Errorf("%w: SERVICE_ASANA_TOKEN missing", ErrNotConfigured)
			return
		}
		b.asanaC = asana.New(asana.Options{
			AccessToken:       b.cfg.ServiceAsanaToken,
			WorkspaceGID:      b.cfg.WorkspaceGID,
			PortfolioGID:      b.cfg.PortfolioGID,
			DefaultProjectGID: b.cfg.DefaultProjectGID,
			Logger:            b.log.Named("asana"),
		})
	})
	return b.asanaC, b.asanaErr
}

// ResolveUser returns the identity for an email, looking it up in Asana
// on first sight and caching the result, including misses and failed
// lookups. Each email costs at most one lookup for the process lifetime.
func (b *Backend) ResolveUser(ctx context.Context, email, name string) (*User, error) {
	if email == "" {
		return nil, ErrNoUser
	}

	b.mu.Lock()
	if user, ok := b.users[email]; ok {
		b.mu.Unlock()
		return user, nil
	}
	b.mu.Unlock()

	client, err := b.Asana()
	if err != nil {
		return nil, err
	}

	user := &User{Email: email, Name: name}
	account, err := client.FindUserByEmail(ctx, email)
	switch {
	case err != nil:
		// Resolution failure is non-fatal: the user is cached unresolved
		// and identity-scoped operations report ErrUserUnresolved.
		b.log.Warn("user lookup failed", zap.String("email", email), zap.Error(err))
	case account != nil:
		user.AsanaGID = account.GID
		if user.Name == "" {
			user.Name = account.Name
		}
		b.log.Info("user resolved", zap.String("email", email), zap.String("gid", account.GID))
	default:
		b.log.Warn("no Asana account for email", zap.String("email", email))
	}

	b.mu.Lock()
	b.users[email] = user
	b.mu.Unlock()
	return user, nil
}

// CachedUsers returns how many identities the cache holds.
func (b *Backend) CachedUsers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.users)
}

// UserScopedAsana returns an Asana client acting as the user bound to the
// request context.
func (b *Backend) UserScopedAsana(ctx context.Context) (*asana.Client, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrNoUser
	}
	if !user.Resolved() {
		return nil, fmt.Errorf("%w: %s", ErrUserUnresolved, user.Email)
	}

	client, err := b.Asana()
	if err != nil {
		return nil, err
	}
	return client.WithUser(user.AsanaGID), nil
}

// ─── Ticket operations ───────────────────────────────────────────────────────

// GetUserTickets lists the context user's open tickets.
func (b *Backend) GetUserTickets(ctx context.Context) ([]*models.Task, error) {
	client, err := b.UserScopedAsana(ctx)
	if err != nil {
		return nil, err
	}
	return client.GetMyTasks(ctx)
}

// GetTicket fetches one ticket by GID using the service identity.
// Returns (nil, nil) when the ticket doesn't exist.
func (b *Backend) GetTicket(ctx context.Context, gid string) (*models.Task, error) {
	client, err := b.Asana()
	if err != nil {
		return nil, err
	}
	return client.GetTask(ctx, gid)
}

// CreateTicket creates a ticket assigned to the context user. When no
// project is given the configured default project applies. Returns
// (nil, nil) when Asana responds without a task.
func (b *Backend) CreateTicket(ctx context.Context, p asana.CreateTaskParams) (*models.Task, error) {
	client, err := b.UserScopedAsana(ctx)
	if err != nil {
		return nil, err
	}
	return client.CreateTask(ctx, p)
}

// UpdateTicket applies a partial update as the context user.
func (b *Backend) UpdateTicket(ctx context.Context, gid string, p asana.UpdateTaskParams) (*models.Task, error) {
	client, err := b.UserScopedAsana(ctx)
	if err != nil {
		return nil, err
	}
	return client.UpdateTask(ctx, gid, p)
}

// AddComment posts a comment on a ticket as the context user.
func (b *Backend) AddComment(ctx context.Context, gid, text string) error {
	client, err := b.UserScopedAsana(ctx)
	if err != nil {
		return err
	}
	return client.AddComment(ctx, gid, text)
}

// GetProjects lists the projects of the configured portfolio using the
// service identity.
func (b *Backend) GetProjects(ctx context.Context) ([]models.Project, error) {
	client, err := b.Asana()
	if err != nil {
		return nil, err
	}
	return client.GetPortfolioProjects(ctx)
}

// ─── Documentation operations ────────────────────────────────────────────────

// GetModules lists all modules from the service Notion workspace.
func (b *Backend) GetModules(ctx context.Context) ([]*models.Module, error) {
	client, err := b.Notion()
	if err != nil {
		return nil, err
	}
	return client.GetModules(ctx)
}

// GetModule fetches one module by prefix, content included.
func (b *Backend) GetModule(ctx context.Context, prefix string) (*models.Module, error) {
	client, err := b.Notion()
	if err != nil {
		return nil, err
	}
	return client.GetModuleByPrefix(ctx, prefix)
}

// CreateModule creates a module page.
func (b *Backend) CreateModule(ctx context.Context, p notion.CreateModuleParams) (*models.Module, error) {
	client, err := b.Notion()
	if err != nil {
		return nil, err
	}
	return client.CreateModule(ctx, p)
}

// GetFeatures lists features, optionally restricted to one module prefix.
func (b *Backend) GetFeatures(ctx context.Context, prefix string) ([]*models.Feature, error) {
	client, err := b.Notion()
	if err != nil {
		return nil, err
	}
	if prefix != "" {
		return client.GetFeaturesByModule(ctx, prefix)
	}
	return client.GetAllFeatures(ctx)
}

// GetFeature fetches one feature by code, content and module included.
func (b *Backend) GetFeature(ctx context.Context, code string) (*models.Feature, error) {
	client, err := b.Notion()
	if err != nil {
		return nil, err
	}
	return client.GetFeatureByCode(ctx, code)
}

// CreateFeature creates a feature page, allocating the next code in the
// module when none is given.
func (b *Backend) CreateFeature(ctx context.Context, p notion.CreateFeatureParams) (*models.Feature, error) {
	client, err := b.Notion()
	if err != nil {
		return nil, err
	}
	return client.CreateFeature(ctx, p)
}

// UpdateFeatureContent rewrites or appends a feature page's body.
func (b *Backend) UpdateFeatureContent(ctx context.Context, code, markdown string, replace bool) (*models.Feature, error) {
	client, err := b.Notion()
	if err != nil {
		return nil, err
	}
	feature, err := client.GetFeatureByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, nil
	}
	if err := client.UpdatePageContent(ctx, feature.NotionID, markdown, replace); err != nil {
		return nil, err
	}
	return feature, nil
}

// ─── Introspection ───────────────────────────────────────────────────────────

// Info summarizes the backend's configuration state for health checks.
// Token values are never included.
func (b *Backend) Info(ctx context.Context) map[string]any {
	info := map[string]any{
		"mode":              "remote",
		"configured":        b.cfg.IsConfigured(),
		"notion_configured": b.cfg.ServiceNotionToken != "",
		"asana_configured":  b.cfg.ServiceAsanaToken != "",
		"workspace_gid":     b.cfg.WorkspaceGID,
		"default_project":   b.cfg.DefaultProjectGID != "",
		"cached_users":      b.CachedUsers(),
	}
	if client, err := b.Asana(); err == nil {
		info["asana"] = client.TestConnection(ctx)
	}
	if user := UserFromContext(ctx); user != nil {
		info["user"] = map[string]any{
			"email":    user.Email,
			"name":     user.Name,
			"resolved": user.Resolved(),
		}
	}
	return info
}
