// Package asana wraps the Asana REST API (v1.0).
//
// All calls are single-attempt: failures are returned to the caller, never
// retried here. A missing resource is a nil value, not an error, so callers
// must check presence.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/models"
)

const defaultBaseURL = "https://app.asana.com/api/1.0"

// taskOptFields is the field projection requested on every task read.
const taskOptFields = "name,notes,completed,due_on,assignee.gid,created_by.gid," +
	"memberships.project.gid,memberships.project.name"

// Client is an Asana API client acting as one principal (a developer's own
// token in local mode, or the service token scoped to one resolved user in
// remote mode).
type Client struct {
	accessToken       string
	workspaceGID      string
	userGID           string
	portfolioGID      string
	defaultProjectGID string

	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Options configures a Client.
type Options struct {
	AccessToken       string
	WorkspaceGID      string
	UserGID           string
	PortfolioGID      string
	DefaultProjectGID string

	// BaseURL overrides the API endpoint (tests).
	BaseURL string
	// HTTPClient overrides the transport (tests). Defaults to a 30s-timeout client.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New creates an Asana client.
func New(opts Options) *Client {
	c := &Client{
		accessToken:       opts.AccessToken,
		workspaceGID:      opts.WorkspaceGID,
		userGID:           opts.UserGID,
		portfolioGID:      opts.PortfolioGID,
		defaultProjectGID: opts.DefaultProjectGID,
		baseURL:           opts.BaseURL,
		http:              opts.HTTPClient,
		log:               opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// WithUser returns a copy of the client acting as a different user.
// Used by the remote backend to scope "my tasks" queries per request.
func (c *Client) WithUser(userGID string) *Client {
	clone := *c
	clone.userGID = userGID
	return &clone
}

// apiError is Asana's error envelope.
type apiError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *apiError) message() string {
	if len(e.Errors) > 0 {
		return e.Errors[0].Message
	}
	return "unknown error"
}

// taskData is the wire shape of a task.
type taskData struct {
	GID       string `json:"gid"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	Completed bool   `json:"completed"`
	DueOn     string `json:"due_on"`
	Assignee  *struct {
		GID string `json:"gid"`
	} `json:"assignee"`
	CreatedBy *struct {
		GID string `json:"gid"`
	} `json:"created_by"`
	Memberships []struct {
		Project struct {
			GID  string `json:"gid"`
			Name string `json:"name"`
		} `json:"project"`
	} `json:"memberships"`
}

func (d *taskData) toModel() *models.Task {
	t := &models.Task{
		GID:       d.GID,
		Name:      d.Name,
		Notes:     d.Notes,
		Completed: d.Completed,
		DueOn:     d.DueOn,
	}
	if d.Assignee != nil {
		t.AssigneeGID = d.Assignee.GID
	}
	if d.CreatedBy != nil {
		t.CreatedByGID = d.CreatedBy.GID
	}
	if len(d.Memberships) > 0 {
		t.ProjectGID = d.Memberships[0].Project.GID
		t.ProjectName = d.Memberships[0].Project.Name
	}
	return t
}

// do performs a request and decodes the {"data": ...} envelope into out.
// A 404 returns (false, nil) so callers can map missing resources to nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) (bool, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(map[string]any{"data": body})
		if err != nil {
			return false, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		if err := json.Unmarshal(raw, &ae); err == nil && len(ae.Errors) > 0 {
			return false, fmt.Errorf("asana %s %s: %s (status %d)", method, path, ae.message(), resp.StatusCode)
		}
		return false, fmt.Errorf("asana %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		envelope := struct {
			Data json.RawMessage `json:"data"`
		}{}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return false, fmt.Errorf("decode envelope: %w", err)
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return false, fmt.Errorf("decode data: %w", err)
		}
	}
	return true, nil
}

// ConnectionInfo is the result of TestConnection, used by health checks.
type ConnectionInfo struct {
	Success   bool   `json:"success"`
	UserName  string `json:"user,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TestConnection verifies the token by fetching the current principal
// and, when configured, the workspace and portfolio names.
func (c *Client) TestConnection(ctx context.Context) ConnectionInfo {
	var me struct {
		Name string `json:"name"`
	}
	ok, err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &me)
	if err != nil || !ok {
		info := ConnectionInfo{Success: false}
		if err != nil {
			info.Error = err.Error()
		}
		return info
	}

	info := ConnectionInfo{Success: true, UserName: me.Name}

	if c.workspaceGID != "" {
		var ws struct {
			Name string `json:"name"`
		}
		if ok, err := c.do(ctx, http.MethodGet, "/workspaces/"+c.workspaceGID, nil, nil, &ws); err == nil && ok {
			info.Workspace = ws.Name
		}
	}
	if c.portfolioGID != "" {
		var pf struct {
			Name string `json:"name"`
		}
		if ok, err := c.do(ctx, http.MethodGet, "/portfolios/"+c.portfolioGID, nil, nil, &pf); err == nil && ok {
			info.Portfolio = pf.Name
		}
	}
	return info
}

// GetMyTasks lists incomplete tasks assigned to the client's user in the
// configured workspace. Identity-scoped: the Asana side filters by assignee.
func (c *Client) GetMyTasks(ctx context.Context) ([]*models.Task, error) {
	if c.userGID == "" {
		return nil, fmt.Errorf("no user configured for task listing")
	}

	q := url.Values{}
	q.Set("assignee", c.userGID)
	q.Set("workspace", c.workspaceGID)
	q.Set("completed_since", "now")
	q.Set("opt_fields", taskOptFields)

	var data []taskData
	ok, err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	tasks := make([]*models.Task, 0, len(data))
	for i := range data {
		tasks = append(tasks, data[i].toModel())
	}
	return tasks, nil
}

// GetTask fetches one task by GID. Returns (nil, nil) when it doesn't exist.
func (c *Client) GetTask(ctx context.Context, gid string) (*models.Task, error) {
	q := url.Values{}
	q.Set("opt_fields", taskOptFields)

	var data taskData
	ok, err := c.do(ctx, http.MethodGet, "/tasks/"+gid, q, nil, &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return data.toModel(), nil
}

// CreateTaskParams holds input for CreateTask. ProjectGID falls back to the
// client's configured default project when empty; an explicit value always
// wins and the default is then not sent at all.
type CreateTaskParams struct {
	Name        string
	Notes       string
	ProjectGID  string
	AssigneeGID string
	DueOn       string // YYYY-MM-DD
}

// CreateTask creates a task. Returns (nil, nil) when the API responds
// without a task payload.
func (c *Client) CreateTask(ctx context.Context, p CreateTaskParams) (*models.Task, error) {
	body := map[string]any{
		"name":      p.Name,
		"workspace": c.workspaceGID,
	}
	if p.Notes != "" {
		body["notes"] = p.Notes
	}

	project := p.ProjectGID
	if project == "" {
		project = c.defaultProjectGID
	}
	if project != "" {
		body["projects"] = []string{project}
	}

	assignee := p.AssigneeGID
	if assignee == "" {
		assignee = c.userGID
	}
	if assignee != "" {
		body["assignee"] = assignee
	}
	if p.DueOn != "" {
		body["due_on"] = p.DueOn
	}

	var data taskData
	ok, err := c.do(ctx, http.MethodPost, "/tasks", nil, body, &data)
	if err != nil {
		return nil, err
	}
	if !ok || data.GID == "" {
		c.log.Warn("create task returned no task", zap.String("name", p.Name))
		return nil, nil
	}

	task := data.toModel()
	if task.ProjectGID == "" {
		task.ProjectGID = project
	}
	c.log.Info("task created", zap.String("gid", task.GID), zap.String("name", task.Name))
	return task, nil
}

// UpdateTaskParams holds partial update fields. Nil pointers are left
// untouched on the Asana side.
type UpdateTaskParams struct {
	Name        *string
	Notes       *string
	AppendNotes bool
	DueOn       *string
	AssigneeGID *string
	Completed   *bool
}

// UpdateTask applies a partial update and returns the fresh task.
// Returns (nil, nil) when the task doesn't exist.
func (c *Client) UpdateTask(ctx context.Context, gid string, p UpdateTaskParams) (*models.Task, error) {
	body := map[string]any{}

	if p.Name != nil {
		body["name"] = *p.Name
	}
	if p.Notes != nil {
		notes := *p.Notes
		if p.AppendNotes {
			current, err := c.GetTask(ctx, gid)
			if err != nil {
				return nil, err
			}
			if current == nil {
				return nil, nil
			}
			if current.Notes != "" {
				notes = current.Notes + "\n\n" + notes
			}
		}
		body["notes"] = notes
	}
	if p.DueOn != nil {
		body["due_on"] = *p.DueOn
	}
	if p.AssigneeGID != nil {
		body["assignee"] = *p.AssigneeGID
	}
	if p.Completed != nil {
		body["completed"] = *p.Completed
	}

	if len(body) == 0 {
		return c.GetTask(ctx, gid)
	}

	var data taskData
	ok, err := c.do(ctx, http.MethodPut, "/tasks/"+gid, nil, body, &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return data.toModel(), nil
}

// AddComment posts a story (comment) on a task.
func (c *Client) AddComment(ctx context.Context, taskGID, text string) error {
	body := map[string]any{"text": text}
	ok, err := c.do(ctx, http.MethodPost, "/tasks/"+taskGID+"/stories", nil, body, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %s not found", taskGID)
	}
	return nil
}

// FindUserByEmail resolves a workspace user by email address.
// Returns (nil, nil) when no user matches.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := url.Values{}
	q.Set("opt_fields", "name,email")
	q.Set("workspace", c.workspaceGID)

	var data struct {
		GID   string `json:"gid"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	// Asana accepts an email as the user identifier.
	ok, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email), q, nil, &data)
	if err != nil {
		return nil, err
	}
	if !ok || data.GID == "" {
		return nil, nil
	}
	return &models.User{GID: data.GID, Name: data.Name, Email: data.Email}, nil
}

// GetPortfolioProjects lists projects from the configured portfolio.
func (c *Client) GetPortfolioProjects(ctx context.Context) ([]models.Project, error) {
	if c.portfolioGID == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("opt_fields", "name")

	var data []struct {
		GID  string `json:"gid"`
		Name string `json:"name"`
	}
	ok, err := c.do(ctx, http.MethodGet, "/portfolios/"+c.portfolioGID+"/items", q, nil, &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	projects := make([]models.Project, 0, len(data))
	for _, d := range data {
		projects = append(projects, models.Project{GID: d.GID, Name: d.Name})
	}
	return projects, nil
}
