package notion

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// richTextLimit is Notion's per-rich-text content cap.
const richTextLimit = 2000

// richText is the wire shape of one rich text span.
type richText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type textContainer struct {
	RichText []richText `json:"rich_text"`
}

type codeContainer struct {
	RichText []richText `json:"rich_text"`
	Language string     `json:"language"`
}

type todoContainer struct {
	RichText []richText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

// block is the wire shape of a Notion block, covering the types NotionDev
// reads and writes. Unknown types render as nothing.
type block struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type"`
	Para     *textContainer `json:"paragraph,omitempty"`
	Heading1 *textContainer `json:"heading_1,omitempty"`
	Heading2 *textContainer `json:"heading_2,omitempty"`
	Heading3 *textContainer `json:"heading_3,omitempty"`
	Bulleted *textContainer `json:"bulleted_list_item,omitempty"`
	Numbered *textContainer `json:"numbered_list_item,omitempty"`
	Quote    *textContainer `json:"quote,omitempty"`
	Code     *codeContainer `json:"code,omitempty"`
	ToDo     *todoContainer `json:"to_do,omitempty"`
	Divider  *struct{}      `json:"divider,omitempty"`
}

func spansText(spans []richText) string {
	var b strings.Builder
	for _, s := range spans {
		if s.PlainText != "" {
			b.WriteString(s.PlainText)
		} else if s.Text != nil {
			b.WriteString(s.Text.Content)
		}
	}
	return b.String()
}

// BlocksToMarkdown renders fetched blocks as a markdown document.
func BlocksToMarkdown(blocks []block) string {
	var b strings.Builder
	numbered := 0

	for _, blk := range blocks {
		if blk.Type != "numbered_list_item" {
			numbered = 0
		}

		switch blk.Type {
		case "paragraph":
			text := spansText(blk.Para.RichText)
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n\n")
			}
		case "heading_1":
			fmt.Fprintf(&b, "# %s\n\n", spansText(blk.Heading1.RichText))
		case "heading_2":
			fmt.Fprintf(&b, "## %s\n\n", spansText(blk.Heading2.RichText))
		case "heading_3":
			fmt.Fprintf(&b, "### %s\n\n", spansText(blk.Heading3.RichText))
		case "bulleted_list_item":
			fmt.Fprintf(&b, "- %s\n", spansText(blk.Bulleted.RichText))
		case "numbered_list_item":
			numbered++
			fmt.Fprintf(&b, "%d. %s\n", numbered, spansText(blk.Numbered.RichText))
		case "quote":
			fmt.Fprintf(&b, "> %s\n\n", spansText(blk.Quote.RichText))
		case "code":
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", blk.Code.Language, spansText(blk.Code.RichText))
		case "to_do":
			mark := " "
			if blk.ToDo.Checked {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, spansText(blk.ToDo.RichText))
		case "divider":
			b.WriteString("---\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// chunkRichText splits text into Notion-sized rich text spans.
func chunkRichText(text string) []map[string]any {
	if text == "" {
		return []map[string]any{}
	}
	var spans []map[string]any
	for len(text) > 0 {
		n := len(text)
		if n > richTextLimit {
			n = richTextLimit
		}
		spans = append(spans, map[string]any{
			"type": "text",
			"text": map[string]any{"content": text[:n]},
		})
		text = text[n:]
	}
	return spans
}

func textBlock(blockType, text string) map[string]any {
	return map[string]any{
		"object":  "block",
		"type":    blockType,
		blockType: map[string]any{"rich_text": chunkRichText(text)},
	}
}

// MarkdownToBlocks converts a markdown document into Notion block payloads.
// Uses goldmark's AST so that lists, fenced code, and quotes survive the
// round trip; inline formatting is flattened to plain text.
func MarkdownToBlocks(markdown string) []map[string]any {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(source))

	var blocks []map[string]any
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			level := n.Level
			if level > 3 {
				level = 3
			}
			blocks = append(blocks, textBlock(fmt.Sprintf("heading_%d", level), nodeText(n, source)))
		case *ast.Paragraph:
			blocks = append(blocks, textBlock("paragraph", nodeText(n, source)))
		case *ast.List:
			itemType := "bulleted_list_item"
			if n.IsOrdered() {
				itemType = "numbered_list_item"
			}
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				blocks = append(blocks, textBlock(itemType, nodeText(item, source)))
			}
		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			if lang == "" {
				lang = "plain text"
			}
			blocks = append(blocks, map[string]any{
				"object": "block",
				"type":   "code",
				"code": map[string]any{
					"rich_text": chunkRichText(codeText(n, source)),
					"language":  lang,
				},
			})
		case *ast.CodeBlock:
			blocks = append(blocks, map[string]any{
				"object": "block",
				"type":   "code",
				"code": map[string]any{
					"rich_text": chunkRichText(codeText(n, source)),
					"language":  "plain text",
				},
			})
		case *ast.Blockquote:
			blocks = append(blocks, textBlock("quote", nodeText(n, source)))
		case *ast.ThematicBreak:
			blocks = append(blocks, map[string]any{
				"object":  "block",
				"type":    "divider",
				"divider": map[string]any{},
			})
		}
	}
	return blocks
}

// nodeText flattens a node's inline content to plain text.
func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// codeText reassembles the raw lines of a code block.
func codeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return strings.TrimRight(buf.String(), "\n")
}
