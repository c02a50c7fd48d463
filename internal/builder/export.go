package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// exportDir is the folder under the project root that receives the
// generated documents.
const exportDir = ".cursor"

// Export writes the three context documents under <dir>/.cursor/.
// Existing files are overwritten. Returns false when any write fails;
// files written before the failure are left in place.
func (b *Builder) Export(fc *Context, dir string) bool {
	target := filepath.Join(dir, exportDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		b.log.Error("creating export directory", zap.String("dir", target), zap.Error(err))
		return false
	}

	files := []struct {
		name    string
		content string
	}{
		{"rules.md", fc.Rules},
		{"context.md", fc.AIInstructions},
		{"project-info.md", b.renderProjectInfo(fc)},
	}

	ok := true
	for _, f := range files {
		path := filepath.Join(target, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			b.log.Error("writing context file", zap.String("path", path), zap.Error(err))
			ok = false
			continue
		}
		b.log.Info("exported context file", zap.String("path", path))
	}
	return ok
}

func (b *Builder) renderProjectInfo(fc *Context) string {
	moduleName := fc.Feature.ModuleName()
	taskLine := ""
	if fc.Task != nil {
		taskLine = fmt.Sprintf("- Ticket: %s (%s)\n", fc.Task.Name, fc.Task.GID)
	}
	return fmt.Sprintf(`# Project Information

## Project
- Name: %s
- Path: %s
- Git Repository: %t

## Active Feature
- Code: %s
- Name: %s
- Module: %s
- Status: %s
%s
Generated on %s by notion-dev.
`,
		fc.Project.Name, fc.Project.Path, fc.Project.IsGitRepo,
		fc.Feature.Code, fc.Feature.Name, moduleName, fc.Feature.Status,
		taskLine, b.now().Format("2006-01-02 15:04"))
}
