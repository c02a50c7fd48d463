// Package models defines the domain records exchanged with Notion and Asana.
//
// Everything here is a value record fetched fresh from the remote APIs —
// nothing is persisted locally, so there are no IDs of our own and no
// lifecycle beyond one API round trip.
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Application classifies which part of the product a module belongs to.
type Application string

const (
	ApplicationBackend  Application = "Backend"
	ApplicationFrontend Application = "Frontend"
	ApplicationService  Application = "Service"
)

// Status is the documentation lifecycle state shared by modules and features.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusReview    Status = "Review"
	StatusValidated Status = "Validated"
	StatusObsolete  Status = "Obsolete"
)

// ValidateApplication checks that s is a known application value.
func ValidateApplication(s string) error {
	switch Application(s) {
	case ApplicationBackend, ApplicationFrontend, ApplicationService:
		return nil
	}
	return fmt.Errorf("invalid application %q (want Backend, Frontend or Service)", s)
}

// modulePrefixRe matches a module code prefix: 2-3 uppercase letters.
var modulePrefixRe = regexp.MustCompile(`^[A-Z]{2,3}$`)

// featureCodeRe matches a feature code anywhere in free text:
// module prefix followed by a 2-digit number (e.g. CC01, API12).
var featureCodeRe = regexp.MustCompile(`\b([A-Z]{2,3})(\d{2})\b`)

// ValidateModulePrefix checks the 2-3 uppercase letter constraint.
func ValidateModulePrefix(prefix string) error {
	if !modulePrefixRe.MatchString(prefix) {
		return fmt.Errorf("invalid module prefix %q (want 2-3 uppercase letters)", prefix)
	}
	return nil
}

// Module is a documented functional domain of the tracked project.
type Module struct {
	NotionID    string      `json:"notion_id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CodePrefix  string      `json:"code_prefix"`
	Application Application `json:"application"`
	Status      Status      `json:"status"`
	Content     string      `json:"content,omitempty"`
}

// Feature is a documented capability within a module, identified by a
// short code like "CC01". The module is a weak reference: it is resolved
// by prefix lookup, never owned.
type Feature struct {
	NotionID   string   `json:"notion_id,omitempty"`
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Status     Status   `json:"status"`
	Plan       []string `json:"plan,omitempty"`
	UserRights []string `json:"user_rights,omitempty"`
	Content    string   `json:"content,omitempty"`

	// Module is filled in by lookup when available. A feature whose
	// prefix matches no known module still renders, with placeholders.
	Module *Module `json:"module,omitempty"`
}

// ModulePrefix returns the leading letters of the feature code
// ("CC01" -> "CC"). Empty when the code has no valid prefix.
func (f *Feature) ModulePrefix() string {
	m := featureCodeRe.FindStringSubmatch(f.Code)
	if m == nil {
		return ""
	}
	return m[1]
}

// ModuleName returns the owning module's name, or the bare prefix when
// the module could not be resolved.
func (f *Feature) ModuleName() string {
	if f.Module != nil {
		return f.Module.Name
	}
	return f.ModulePrefix()
}

// FullContext renders the feature (and its module, when resolved) as a
// single markdown document, used for AI instruction generation.
func (f *Feature) FullContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Feature %s - %s\n\n", f.Code, f.Name)
	fmt.Fprintf(&b, "**Status**: %s\n", f.Status)
	if len(f.Plan) > 0 {
		fmt.Fprintf(&b, "**Plans**: %s\n", strings.Join(f.Plan, ", "))
	}
	if len(f.UserRights) > 0 {
		fmt.Fprintf(&b, "**User Rights**: %s\n", strings.Join(f.UserRights, ", "))
	}
	b.WriteString("\n")
	if f.Content != "" {
		b.WriteString(f.Content)
		b.WriteString("\n")
	}
	if f.Module != nil {
		fmt.Fprintf(&b, "\n---\n\n# Module %s - %s\n\n", f.Module.CodePrefix, f.Module.Name)
		if f.Module.Description != "" {
			b.WriteString(f.Module.Description)
			b.WriteString("\n\n")
		}
		if f.Module.Content != "" {
			b.WriteString(f.Module.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ParseFeatureCode extracts the first feature code found in free text
// (a ticket name or notes). Returns "" when none is present.
func ParseFeatureCode(text string) string {
	return featureCodeRe.FindString(text)
}

// Task mirrors an Asana task. Asana is the source of truth; this record
// is a per-call snapshot, never written back wholesale.
type Task struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	Notes        string `json:"notes,omitempty"`
	ProjectGID   string `json:"project_gid,omitempty"`
	ProjectName  string `json:"project_name,omitempty"`
	AssigneeGID  string `json:"assignee_gid,omitempty"`
	CreatedByGID string `json:"created_by_gid,omitempty"`
	Completed    bool   `json:"completed"`
	DueOn        string `json:"due_on,omitempty"` // YYYY-MM-DD
}

// FeatureCode returns the feature code referenced by the task, parsed
// from the name first, then the notes.
func (t *Task) FeatureCode() string {
	if code := ParseFeatureCode(t.Name); code != "" {
		return code
	}
	return ParseFeatureCode(t.Notes)
}

// URL returns the Asana web URL for the task.
func (t *Task) URL() string {
	project := t.ProjectGID
	if project == "" {
		project = "0"
	}
	return fmt.Sprintf("https://app.asana.com/0/%s/%s", project, t.GID)
}

// Project is an Asana project listed from the configured portfolio.
type Project struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// User is an Asana user, resolved by email lookup.
type User struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
