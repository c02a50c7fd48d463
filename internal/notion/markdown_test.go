package notion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockTypes(blocks []map[string]any) []string {
	var types []string
	for _, b := range blocks {
		types = append(types, b["type"].(string))
	}
	return types
}

func TestMarkdownToBlocks_StructureMapping(t *testing.T) {
	md := "# Title\n\nSome paragraph.\n\n## Section\n\n- one\n- two\n\n1. first\n2. second\n\n> quoted\n\n```go\nfmt.Println(\"hi\")\n```\n\n---\n"

	blocks := MarkdownToBlocks(md)
	assert.Equal(t, []string{
		"heading_1", "paragraph", "heading_2",
		"bulleted_list_item", "bulleted_list_item",
		"numbered_list_item", "numbered_list_item",
		"quote", "code", "divider",
	}, blockTypes(blocks))

	code := blocks[8]["code"].(map[string]any)
	assert.Equal(t, "go", code["language"])
	spans := code["rich_text"].([]map[string]any)
	require.Len(t, spans, 1)
	assert.Equal(t, `fmt.Println("hi")`, spans[0]["text"].(map[string]any)["content"])
}

func TestMarkdownToBlocks_DeepHeadingClampedToThree(t *testing.T) {
	blocks := MarkdownToBlocks("##### deep heading\n")
	require.Len(t, blocks, 1)
	assert.Equal(t, "heading_3", blocks[0]["type"])
}

func TestMarkdownToBlocks_LongTextChunked(t *testing.T) {
	long := strings.Repeat("a", richTextLimit+500)
	blocks := MarkdownToBlocks(long + "\n")
	require.Len(t, blocks, 1)

	spans := blocks[0]["paragraph"].(map[string]any)["rich_text"].([]map[string]any)
	require.Len(t, spans, 2)
	assert.Len(t, spans[0]["text"].(map[string]any)["content"], richTextLimit)
	assert.Len(t, spans[1]["text"].(map[string]any)["content"], 500)
}

func TestBlocksToMarkdown_RendersKnownTypes(t *testing.T) {
	spans := func(text string) []richText {
		return []richText{{PlainText: text}}
	}
	blocks := []block{
		{Type: "heading_1", Heading1: &textContainer{RichText: spans("Title")}},
		{Type: "paragraph", Para: &textContainer{RichText: spans("Body text.")}},
		{Type: "bulleted_list_item", Bulleted: &textContainer{RichText: spans("point")}},
		{Type: "numbered_list_item", Numbered: &textContainer{RichText: spans("step one")}},
		{Type: "numbered_list_item", Numbered: &textContainer{RichText: spans("step two")}},
		{Type: "code", Code: &codeContainer{RichText: spans("x := 1"), Language: "go"}},
		{Type: "to_do", ToDo: &todoContainer{RichText: spans("ship it"), Checked: true}},
		{Type: "divider", Divider: &struct{}{}},
	}

	md := BlocksToMarkdown(blocks)
	for _, want := range []string{
		"# Title",
		"Body text.",
		"- point",
		"1. step one",
		"2. step two",
		"```go\nx := 1\n```",
		"- [x] ship it",
		"---",
	} {
		assert.Contains(t, md, want)
	}
}

func TestBlocksToMarkdown_NumberingResetsBetweenLists(t *testing.T) {
	spans := func(text string) []richText { return []richText{{PlainText: text}} }
	blocks := []block{
		{Type: "numbered_list_item", Numbered: &textContainer{RichText: spans("a")}},
		{Type: "paragraph", Para: &textContainer{RichText: spans("break")}},
		{Type: "numbered_list_item", Numbered: &textContainer{RichText: spans("b")}},
	}

	md := BlocksToMarkdown(blocks)
	assert.Contains(t, md, "1. a")
	assert.Contains(t, md, "1. b")
	assert.NotContains(t, md, "2. b")
}
