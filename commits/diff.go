package commits

import (
	"fmt"
	"strings"

	"github.com/poiesic/stackalchemy/github"
)

// FormatDiff renders a commit's changed files as the text handed to the
// summarizer: one "File/Changes/patch" block per file, separated by a blank
// line. Files without a patch (binary or too large) keep an empty patch line.
func FormatDiff(files []github.FileChange) string {
	blocks := make([]string, len(files))
	for i, f := range files {
		blocks[i] = fmt.Sprintf("File: %s\nChanges: %d\n%s", f.Filename, f.Changes, f.Patch)
	}
	return strings.Join(blocks, "\n\n")
}
