package reposync

import (
	"context"
	"strings"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

// DiffRetriever fetches the diff of one file and reshapes it for display.
type DiffRetriever struct {
	eng git.Service
}

// NewDiffRetriever returns a DiffRetriever.
func NewDiffRetriever(eng git.Service) *DiffRetriever {
	return &DiffRetriever{eng: eng}
}

// Get returns the reconstructed diff of path. An empty diff is not an error.
func (r *DiffRetriever) Get(ctx context.Context, path string, staged bool) (DiffHunk, error) {
	if strings.TrimSpace(path) == "" {
		return DiffHunk{}, syncerr.Validation("diff", "No file selected.")
	}
	out, err := r.eng.Diff(ctx, path, staged)
	if err != nil {
		return DiffHunk{}, err
	}
	return ParseUnifiedDiff(path, staged, out), nil
}

// headerPrefixes are unified-diff lines that carry no file content.
var headerPrefixes = []string{
	"diff --git ", "index ", "--- ", "+++ ", "@@",
	"old mode ", "new mode ", "deleted file mode ", "new file mode ",
	"similarity index ", "dissimilarity index ", "rename from ", "rename to ",
	"copy from ", "copy to ", "Binary files ", `\ No newline`,
}

// ParseUnifiedDiff reconstructs old and new text from unified-diff output:
// "-" lines go to old, "+" lines to new, context lines to both.
func ParseUnifiedDiff(path string, staged bool, out string) DiffHunk {
	h := DiffHunk{Path: path, Staged: staged, OldLines: []string{}, NewLines: []string{}}
	if out == "" {
		return h
	}
	lines := strings.Split(out, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	inHunk := false
	for _, line := range lines {
		if isHeader(line, inHunk) {
			if strings.HasPrefix(line, "@@") {
				inHunk = true
			} else if strings.HasPrefix(line, "diff --git ") {
				inHunk = false
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "-"):
			h.OldLines = append(h.OldLines, line[1:])
		case strings.HasPrefix(line, "+"):
			h.NewLines = append(h.NewLines, line[1:])
		case strings.HasPrefix(line, " "):
			h.OldLines = append(h.OldLines, line[1:])
			h.NewLines = append(h.NewLines, line[1:])
		case inHunk:
			// Some tools strip the leading space of empty context lines.
			h.OldLines = append(h.OldLines, line)
			h.NewLines = append(h.NewLines, line)
		}
	}
	return h
}

// isHeader reports whether line is diff metadata. Inside a hunk only the
// hunk header, the next file header and the no-newline marker qualify, so
// content such as "--- a" removed from a file is kept.
func isHeader(line string, inHunk bool) bool {
	if inHunk {
		return strings.HasPrefix(line, "@@") ||
			strings.HasPrefix(line, "diff --git ") ||
			strings.HasPrefix(line, `\ No newline`)
	}
	for _, p := range headerPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
