package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotion simulates the two databases and page content endpoints.
type fakeNotion struct {
	modules  []map[string]any // pages in the modules DB
	features []map[string]any // pages in the features DB
	contents map[string][]map[string]any
}

func titleProp(text string) map[string]any {
	return map[string]any{"title": []map[string]any{{"plain_text": text}}}
}

func richProp(text string) map[string]any {
	return map[string]any{"rich_text": []map[string]any{{"plain_text": text}}}
}

func selectProp(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func (f *fakeNotion) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query"):
			var body struct {
				Filter map[string]any `json:"filter"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			pages := f.features
			if strings.Contains(r.URL.Path, "modules-db") {
				pages = f.modules
			}

			var results []map[string]any
			for _, p := range pages {
				if matchesFilter(p, body.Filter) {
					results = append(results, p)
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"results": results, "has_more": false})

		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/blocks/"):
			pageID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/blocks/"), "/children")
			blocks, ok := f.contents[pageID]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"results": blocks, "has_more": false})

		default:
			http.NotFound(w, r)
		}
	}
}

func matchesFilter(page, filter map[string]any) bool {
	if filter == nil {
		return true
	}
	propName, _ := filter["property"].(string)
	cond, _ := filter["rich_text"].(map[string]any)
	prop, _ := page["properties"].(map[string]any)[propName].(map[string]any)
	spans, _ := prop["rich_text"].([]map[string]any)

	var value string
	if len(spans) > 0 {
		value, _ = spans[0]["plain_text"].(string)
	} else if raw, ok := prop["rich_text"].([]any); ok && len(raw) > 0 {
		value, _ = raw[0].(map[string]any)["plain_text"].(string)
	}

	if eq, ok := cond["equals"].(string); ok {
		return value == eq
	}
	if prefix, ok := cond["starts_with"].(string); ok {
		return strings.HasPrefix(value, prefix)
	}
	return true
}

func newFakeClient(t *testing.T, fake *fakeNotion) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return New(Options{
		Token:              "secret",
		ModulesDatabaseID:  "modules-db",
		FeaturesDatabaseID: "features-db",
		BaseURL:            srv.URL,
	})
}

func modulePage(id, prefix, name string) map[string]any {
	return map[string]any{
		"id": id,
		"properties": map[string]any{
			"name":        titleProp(name),
			"description": richProp(name + " description"),
			"code_prefix": richProp(prefix),
			"application": selectProp("Backend"),
			"status":      selectProp("Validated"),
		},
	}
}

func featurePage(id, code, name string) map[string]any {
	return map[string]any{
		"id": id,
		"properties": map[string]any{
			"name":   titleProp(name),
			"code":   richProp(code),
			"status": selectProp("Draft"),
			"plan": map[string]any{
				"multi_select": []map[string]any{{"name": "premium"}},
			},
		},
	}
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{
		"type": "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{{"plain_text": text}},
		},
	}
}

func TestGetFeatureByCode_ResolvesModule(t *testing.T) {
	fake := &fakeNotion{
		modules:  []map[string]any{modulePage("mod-1", "CC", "Customer Care")},
		features: []map[string]any{featurePage("feat-1", "CC01", "Login")},
		contents: map[string][]map[string]any{
			"feat-1": {paragraphBlock("Feature body.")},
			"mod-1":  {paragraphBlock("Module body.")},
		},
	}
	client := newFakeClient(t, fake)

	feature, err := client.GetFeatureByCode(context.Background(), "CC01")
	require.NoError(t, err)
	require.NotNil(t, feature)

	assert.Equal(t, "CC01", feature.Code)
	assert.Equal(t, "Login", feature.Name)
	assert.Equal(t, []string{"premium"}, feature.Plan)
	assert.Contains(t, feature.Content, "Feature body.")
	require.NotNil(t, feature.Module)
	assert.Equal(t, "Customer Care", feature.Module.Name)
	assert.Contains(t, feature.Module.Content, "Module body.")
}

func TestGetFeatureByCode_OrphanFeatureStillReturned(t *testing.T) {
	fake := &fakeNotion{
		features: []map[string]any{featurePage("feat-2", "XX01", "Orphan")},
		contents: map[string][]map[string]any{"feat-2": {paragraphBlock("body")}},
	}
	client := newFakeClient(t, fake)

	feature, err := client.GetFeatureByCode(context.Background(), "XX01")
	require.NoError(t, err)
	require.NotNil(t, feature)
	assert.Nil(t, feature.Module, "unknown prefix leaves module unresolved")
	assert.Equal(t, "XX", feature.ModuleName(), "falls back to bare prefix")
}

func TestGetFeatureByCode_NotFoundIsNil(t *testing.T) {
	client := newFakeClient(t, &fakeNotion{})

	feature, err := client.GetFeatureByCode(context.Background(), "ZZ99")
	require.NoError(t, err)
	assert.Nil(t, feature)
}

func TestNextFeatureCode(t *testing.T) {
	fake := &fakeNotion{
		features: []map[string]any{
			featurePage("f1", "CC01", "One"),
			featurePage("f2", "CC07", "Seven"),
			featurePage("f3", "API02", "Other module"),
		},
	}
	client := newFakeClient(t, fake)

	code, err := client.NextFeatureCode(context.Background(), "CC")
	require.NoError(t, err)
	assert.Equal(t, "CC08", code)

	code, err = client.NextFeatureCode(context.Background(), "USR")
	require.NoError(t, err)
	assert.Equal(t, "USR01", code, "first feature of a module is 01")

	_, err = client.NextFeatureCode(context.Background(), "bad")
	require.Error(t, err)
}

func TestGetModules_Sorted(t *testing.T) {
	fake := &fakeNotion{
		modules: []map[string]any{
			modulePage("m2", "USR", "Users"),
			modulePage("m1", "API", "API"),
		},
	}
	client := newFakeClient(t, fake)

	modules, err := client.GetModules(context.Background())
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "API", modules[0].CodePrefix)
	assert.Equal(t, "USR", modules[1].CodePrefix)
}
