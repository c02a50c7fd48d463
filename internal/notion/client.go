// Package notion wraps the Notion REST API for the two NotionDev databases
// (modules and features). Page content is fetched as rendered markdown and
// written back as markdown converted to blocks.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/phumblot-gs/notiondev/internal/models"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
)

// Client is a Notion API client bound to one modules database and one
// features database.
type Client struct {
	token       string
	modulesDB   string
	featuresDB  string
	baseURL     string
	http        *http.Client
	log         *zap.Logger
}

// Options configures a Client.
type Options struct {
	Token              string
	ModulesDatabaseID  string
	FeaturesDatabaseID string

	// BaseURL overrides the API endpoint (tests).
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New creates a Notion client.
func New(opts Options) *Client {
	c := &Client{
		token:      opts.Token,
		modulesDB:  opts.ModulesDatabaseID,
		featuresDB: opts.FeaturesDatabaseID,
		baseURL:    opts.BaseURL,
		http:       opts.HTTPClient,
		log:        opts.Logger,
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

// do performs a request against the Notion API. A 404 returns (false, nil).
func (c *Client) do(ctx context.Context, method, path string, body any, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
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
		var ne struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &ne); err == nil && ne.Message != "" {
			return false, fmt.Errorf("notion %s %s: %s (status %d)", method, path, ne.Message, resp.StatusCode)
		}
		return false, fmt.Errorf("notion %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
	}
	return true, nil
}

// ─── Property extraction ─────────────────────────────────────────────────────

// page is the wire shape of a Notion page with its property bag.
type page struct {
	ID         string                     `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type queryResult struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

func plainText(parts []struct {
	PlainText string `json:"plain_text"`
}) string {
	var out string
	for _, p := range parts {
		out += p.PlainText
	}
	return out
}

func (p page) text(name string) string {
	raw, ok := p.Properties[name]
	if !ok {
		return ""
	}
	var prop struct {
		Title []struct {
			PlainText string `json:"plain_text"`
		} `json:"title"`
		RichText []struct {
			PlainText string `json:"plain_text"`
		} `json:"rich_text"`
	}
	if err := json.Unmarshal(raw, &prop); err != nil {
		return ""
	}
	if len(prop.Title) > 0 {
		return plainText(prop.Title)
	}
	return plainText(prop.RichText)
}

func (p page) selectValue(name string) string {
	raw, ok := p.Properties[name]
	if !ok {
		return ""
	}
	var prop struct {
		Select *struct {
			Name string `json:"name"`
		} `json:"select"`
	}
	if err := json.Unmarshal(raw, &prop); err != nil || prop.Select == nil {
		return ""
	}
	return prop.Select.Name
}

func (p page) multiSelect(name string) []string {
	raw, ok := p.Properties[name]
	if !ok {
		return nil
	}
	var prop struct {
		MultiSelect []struct {
			Name string `json:"name"`
		} `json:"multi_select"`
	}
	if err := json.Unmarshal(raw, &prop); err != nil {
		return nil
	}
	var out []string
	for _, m := range prop.MultiSelect {
		out = append(out, m.Name)
	}
	return out
}

func (p page) toModule() *models.Module {
	return &models.Module{
		NotionID:    p.ID,
		Name:        p.text("name"),
		Description: p.text("description"),
		CodePrefix:  p.text("code_prefix"),
		Application: models.Application(p.selectValue("application")),
		Status:      models.Status(p.selectValue("status")),
	}
}

func (p page) toFeature() *models.Feature {
	return &models.Feature{
		NotionID:   p.ID,
		Code:       p.text("code"),
		Name:       p.text("name"),
		Status:     models.Status(p.selectValue("status")),
		Plan:       p.multiSelect("plan"),
		UserRights: p.multiSelect("user_rights"),
	}
}

// queryDatabase runs a filtered query, following pagination.
func (c *Client) queryDatabase(ctx context.Context, databaseID string, filter map[string]any) ([]page, error) {
	var pages []page
	cursor := ""
	for {
		body := map[string]any{"page_size": 100}
		if filter != nil {
			body["filter"] = filter
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var result queryResult
		ok, err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", body, &result)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("database %s not found", databaseID)
		}

		pages = append(pages, result.Results...)
		if !result.HasMore || result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}
	return pages, nil
}

// ─── Modules ─────────────────────────────────────────────────────────────────

// GetModules lists all modules, without page content, sorted by prefix.
func (c *Client) GetModules(ctx context.Context) ([]*models.Module, error) {
	pages, err := c.queryDatabase(ctx, c.modulesDB, nil)
	if err != nil {
		return nil, err
	}
	modules := make([]*models.Module, 0, len(pages))
	for _, p := range pages {
		modules = append(modules, p.toModule())
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].CodePrefix < modules[j].CodePrefix })
	return modules, nil
}

// GetModuleByPrefix fetches one module, with its page content rendered as
// markdown. Returns (nil, nil) when the prefix matches nothing.
func (c *Client) GetModuleByPrefix(ctx context.Context, prefix string) (*models.Module, error) {
	pages, err := c.queryDatabase(ctx, c.modulesDB, map[string]any{
		"property":  "code_prefix",
		"rich_text": map[string]any{"equals": prefix},
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}

	module := pages[0].toModule()
	content, err := c.PageContent(ctx, module.NotionID)
	if err != nil {
		c.log.Warn("module content fetch failed", zap.String("prefix", prefix), zap.Error(err))
	} else {
		module.Content = content
	}
	return module, nil
}

// CreateModuleParams holds input for CreateModule.
type CreateModuleParams struct {
	Name            string
	Description     string
	CodePrefix      string
	Application     string
	Status          string
	ContentMarkdown string
}

// CreateModule creates a module page in the modules database.
func (c *Client) CreateModule(ctx context.Context, p CreateModuleParams) (*models.Module, error) {
	if err := models.ValidateModulePrefix(p.CodePrefix); err != nil {
		return nil, err
	}
	if err := models.ValidateApplication(p.Application); err != nil {
		return nil, err
	}
	status := p.Status
	if status == "" {
		status = string(models.StatusDraft)
	}

	body := map[string]any{
		"parent": map[string]any{"database_id": c.modulesDB},
		"properties": map[string]any{
			"name":        titleProperty(p.Name),
			"description": richTextProperty(p.Description),
			"code_prefix": richTextProperty(p.CodePrefix),
			"application": selectProperty(p.Application),
			"status":      selectProperty(status),
		},
	}
	if p.ContentMarkdown != "" {
		body["children"] = MarkdownToBlocks(p.ContentMarkdown)
	}

	var created page
	ok, err := c.do(ctx, http.MethodPost, "/pages", body, &created)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("modules database not found")
	}

	c.log.Info("module created", zap.String("prefix", p.CodePrefix), zap.String("page", created.ID))
	return &models.Module{
		NotionID:    created.ID,
		Name:        p.Name,
		Description: p.Description,
		CodePrefix:  p.CodePrefix,
		Application: models.Application(p.Application),
		Status:      models.Status(status),
		Content:     p.ContentMarkdown,
	}, nil
}

// ─── Features ────────────────────────────────────────────────────────────────

// GetAllFeatures lists every feature, without page content, sorted by code.
func (c *Client) GetAllFeatures(ctx context.Context) ([]*models.Feature, error) {
	pages, err := c.queryDatabase(ctx, c.featuresDB, nil)
	if err != nil {
		return nil, err
	}
	features := make([]*models.Feature, 0, len(pages))
	for _, p := range pages {
		features = append(features, p.toFeature())
	}
	sort.Slice(features, func(i, j int) bool { return features[i].Code < features[j].Code })
	return features, nil
}

// GetFeaturesByModule lists features whose code starts with the module prefix.
func (c *Client) GetFeaturesByModule(ctx context.Context, prefix string) ([]*models.Feature, error) {
	pages, err := c.queryDatabase(ctx, c.featuresDB, map[string]any{
		"property":  "code",
		"rich_text": map[string]any{"starts_with": prefix},
	})
	if err != nil {
		return nil, err
	}
	features := make([]*models.Feature, 0, len(pages))
	for _, p := range pages {
		features = append(features, p.toFeature())
	}
	sort.Slice(features, func(i, j int) bool { return features[i].Code < features[j].Code })
	return features, nil
}

// GetFeatureByCode fetches one feature with its content and, when the code
// prefix matches a known module, the resolved module. A feature whose prefix
// matches no module is still returned — module-dependent rendering falls back
// to a placeholder downstream.
func (c *Client) GetFeatureByCode(ctx context.Context, code string) (*models.Feature, error) {
	pages, err := c.queryDatabase(ctx, c.featuresDB, map[string]any{
		"property":  "code",
		"rich_text": map[string]any{"equals": code},
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}

	feature := pages[0].toFeature()
	if content, err := c.PageContent(ctx, feature.NotionID); err != nil {
		c.log.Warn("feature content fetch failed", zap.String("code", code), zap.Error(err))
	} else {
		feature.Content = content
	}

	if prefix := feature.ModulePrefix(); prefix != "" {
		module, err := c.GetModuleByPrefix(ctx, prefix)
		if err != nil {
			c.log.Warn("module lookup failed", zap.String("prefix", prefix), zap.Error(err))
		} else {
			feature.Module = module
		}
	}
	return feature, nil
}

// NextFeatureCode returns the next unused code for a module prefix
// (CC01, CC02, ... zero-padded to two digits).
func (c *Client) NextFeatureCode(ctx context.Context, prefix string) (string, error) {
	if err := models.ValidateModulePrefix(prefix); err != nil {
		return "", err
	}
	features, err := c.GetFeaturesByModule(ctx, prefix)
	if err != nil {
		return "", err
	}

	max := 0
	for _, f := range features {
		if len(f.Code) <= len(prefix) {
			continue
		}
		n, err := strconv.Atoi(f.Code[len(prefix):])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%02d", prefix, max+1), nil
}

// CreateFeatureParams holds input for CreateFeature.
type CreateFeatureParams struct {
	Code            string
	Name            string
	ModuleID        string
	Status          string
	Plan            []string
	UserRights      []string
	ContentMarkdown string
}

// CreateFeature creates a feature page in the features database.
func (c *Client) CreateFeature(ctx context.Context, p CreateFeatureParams) (*models.Feature, error) {
	status := p.Status
	if status == "" {
		status = string(models.StatusDraft)
	}

	props := map[string]any{
		"name":   titleProperty(p.Name),
		"code":   richTextProperty(p.Code),
		"status": selectProperty(status),
	}
	if len(p.Plan) > 0 {
		props["plan"] = multiSelectProperty(p.Plan)
	}
	if len(p.UserRights) > 0 {
		props["user_rights"] = multiSelectProperty(p.UserRights)
	}
	if p.ModuleID != "" {
		props["module"] = map[string]any{
			"relation": []map[string]any{{"id": p.ModuleID}},
		}
	}

	body := map[string]any{
		"parent":     map[string]any{"database_id": c.featuresDB},
		"properties": props,
	}
	if p.ContentMarkdown != "" {
		body["children"] = MarkdownToBlocks(p.ContentMarkdown)
	}

	var created page
	ok, err := c.do(ctx, http.MethodPost, "/pages", body, &created)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("features database not found")
	}

	c.log.Info("feature created", zap.String("code", p.Code), zap.String("page", created.ID))
	return &models.Feature{
		NotionID:   created.ID,
		Code:       p.Code,
		Name:       p.Name,
		Status:     models.Status(status),
		Plan:       p.Plan,
		UserRights: p.UserRights,
		Content:    p.ContentMarkdown,
	}, nil
}

// ─── Page content ────────────────────────────────────────────────────────────

// PageContent fetches a page's block children and renders them as markdown.
func (c *Client) PageContent(ctx context.Context, pageID string) (string, error) {
	var blocks []block
	cursor := ""
	for {
		path := "/blocks/" + pageID + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + cursor
		}

		var result struct {
			Results    []block `json:"results"`
			HasMore    bool    `json:"has_more"`
			NextCursor string  `json:"next_cursor"`
		}
		ok, err := c.do(ctx, http.MethodGet, path, nil, &result)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("page %s not found", pageID)
		}

		blocks = append(blocks, result.Results...)
		if !result.HasMore || result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}
	return BlocksToMarkdown(blocks), nil
}

// UpdatePageContent writes markdown to a page. Replace mode archives the
// existing children first; append mode just adds blocks at the end.
func (c *Client) UpdatePageContent(ctx context.Context, pageID, markdown string, replace bool) error {
	if replace {
		var existing struct {
			Results []struct {
				ID string `json:"id"`
			} `json:"results"`
		}
		ok, err := c.do(ctx, http.MethodGet, "/blocks/"+pageID+"/children?page_size=100", nil, &existing)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("page %s not found", pageID)
		}
		for _, b := range existing.Results {
			if _, err := c.do(ctx, http.MethodDelete, "/blocks/"+b.ID, nil, nil); err != nil {
				return fmt.Errorf("deleting block %s: %w", b.ID, err)
			}
		}
	}

	blocks := MarkdownToBlocks(markdown)
	// Notion caps children per append call at 100.
	for start := 0; start < len(blocks); start += 100 {
		end := start + 100
		if end > len(blocks) {
			end = len(blocks)
		}
		body := map[string]any{"children": blocks[start:end]}
		ok, err := c.do(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", body, nil)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("page %s not found", pageID)
		}
	}

	c.log.Info("page content updated", zap.String("page", pageID), zap.Bool("replace", replace))
	return nil
}

// ─── Property builders ───────────────────────────────────────────────────────

func titleProperty(text string) map[string]any {
	return map[string]any{
		"title": []map[string]any{
			{"text": map[string]any{"content": text}},
		},
	}
}

func richTextProperty(text string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": text}},
		},
	}
}

func selectProperty(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func multiSelectProperty(names []string) map[string]any {
	opts := make([]map[string]any, 0, len(names))
	for _, n := range names {
		opts = append(opts, map[string]any{"name": n})
	}
	return map[string]any{"multi_select": opts}
}
