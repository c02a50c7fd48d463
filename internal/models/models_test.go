package models

import (
	"strings"
	"testing"
)

func TestParseFeatureCode(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"CC01 - Implement login", "CC01"},
		{"Fix the thing (API12)", "API12"},
		{"## Feature Code\nUSR03\n\nDetails", "USR03"},
		{"no code here", ""},
		{"lowercase cc01 is not a code", ""},
		{"ABCD01 prefix too long", ""},
		{"C01 prefix too short", ""},
		{"CC1 number too short", ""},
	}
	for _, c := range cases {
		if got := ParseFeatureCode(c.text); got != c.want {
			t.Errorf("ParseFeatureCode(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestTaskFeatureCode_NameWinsOverNotes(t *testing.T) {
	task := &Task{Name: "CC01 - Login", Notes: "relates to API02"}
	if got := task.FeatureCode(); got != "CC01" {
		t.Errorf("FeatureCode() = %q, want CC01", got)
	}

	task = &Task{Name: "Login", Notes: "## Feature Code\nAPI02"}
	if got := task.FeatureCode(); got != "API02" {
		t.Errorf("FeatureCode() = %q, want API02", got)
	}
}

func TestTaskURL_FallsBackWithoutProject(t *testing.T) {
	task := &Task{GID: "123", ProjectGID: "456"}
	if got := task.URL(); got != "https://app.asana.com/0/456/123" {
		t.Errorf("URL() = %q", got)
	}

	task = &Task{GID: "123"}
	if got := task.URL(); got != "https://app.asana.com/0/0/123" {
		t.Errorf("URL() without project = %q", got)
	}
}

func TestValidateModulePrefix(t *testing.T) {
	for _, ok := range []string{"CC", "API", "US"} {
		if err := ValidateModulePrefix(ok); err != nil {
			t.Errorf("ValidateModulePrefix(%q): unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "C", "ABCD", "cc", "C1"} {
		if err := ValidateModulePrefix(bad); err == nil {
			t.Errorf("ValidateModulePrefix(%q): expected error", bad)
		}
	}
}

func TestFeatureModuleName_FallsBackToPrefix(t *testing.T) {
	f := &Feature{Code: "CC01", Name: "Login"}
	if got := f.ModuleName(); got != "CC" {
		t.Errorf("ModuleName() without module = %q, want CC", got)
	}

	f.Module = &Module{Name: "Customer Care", CodePrefix: "CC"}
	if got := f.ModuleName(); got != "Customer Care" {
		t.Errorf("ModuleName() with module = %q", got)
	}
}

func TestFeatureFullContext_IncludesModuleSection(t *testing.T) {
	f := &Feature{
		Code:       "CC01",
		Name:       "Login",
		Status:     StatusValidated,
		Plan:       []string{"free", "premium"},
		UserRights: []string{"admin"},
		Content:    "Login spec body.",
		Module: &Module{
			CodePrefix:  "CC",
			Name:        "Customer Care",
			Description: "Handles customers.",
			Content:     "Module body.",
		},
	}

	ctx := f.FullContext()
	for _, want := range []string{
		"# Feature CC01 - Login",
		"**Plans**: free, premium",
		"**User Rights**: admin",
		"Login spec body.",
		"# Module CC - Customer Care",
		"Module body.",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("FullContext() missing %q", want)
		}
	}
}
