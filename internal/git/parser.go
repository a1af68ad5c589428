package git

import (
	"regexp"
	"strconv"
	"strings"
)

// ── Status parsing ──────────────────────────────────────────────────────────

// ParseStatusOutput parses `git status --porcelain=v1 --branch -z`.
// NUL-delimited scanning avoids allocating a massive []string for repos
// with thousands of changed files.
func ParseStatusOutput(out string) *StatusResult {
	result := &StatusResult{}
	if len(out) == 0 {
		return result
	}

	result.Entries = make([]FileStatus, 0, 32)

	// Scan NUL-separated entries without strings.Split.
	for len(out) > 0 {
		nul := strings.IndexByte(out, '\x00')
		var entry string
		if nul < 0 {
			entry = out
			out = ""
		} else {
			entry = out[:nul]
			out = out[nul+1:]
		}
		if strings.HasPrefix(entry, "## ") {
			result.Branch = ParseBranchHeader(entry)
			continue
		}
		if len(entry) < 4 {
			continue
		}

		staging := StatusCode(entry[0])
		worktree := StatusCode(entry[1])
		fs := FileStatus{Staging: staging, Worktree: worktree, Path: entry[3:]}

		// Renames/copies have an extra NUL-separated entry for the original path.
		if staging == StatusRenamed || staging == StatusCopied ||
			worktree == StatusRenamed || worktree == StatusCopied {
			nul2 := strings.IndexByte(out, '\x00')
			if nul2 < 0 {
				fs.OrigPath = out
				out = ""
			} else {
				fs.OrigPath = out[:nul2]
				out = out[nul2+1:]
			}
		}
		result.Entries = append(result.Entries, fs)
	}
	return result
}

// ParseBranchHeader parses the `## ` line emitted by `git status --branch`.
//
//	## main
//	## main...origin/main [ahead 1, behind 2]
//	## main...origin/main [gone]
//	## No commits yet on main
//	## HEAD (no branch)
func ParseBranchHeader(line string) BranchInfo {
	var b BranchInfo
	s := strings.TrimSpace(strings.TrimPrefix(line, "## "))

	if i := strings.LastIndex(s, " ["); i >= 0 && strings.HasSuffix(s, "]") {
		for _, part := range strings.Split(s[i+2:len(s)-1], ",") {
			fields := strings.Fields(part)
			switch {
			case len(fields) == 1 && fields[0] == "gone":
				b.Gone = true
			case len(fields) == 2 && fields[0] == "ahead":
				b.Ahead, _ = strconv.Atoi(fields[1])
			case len(fields) == 2 && fields[0] == "behind":
				b.Behind, _ = strconv.Atoi(fields[1])
			}
		}
		s = s[:i]
	}

	for _, prefix := range []string{"No commits yet on ", "Initial commit on "} {
		if strings.HasPrefix(s, prefix) {
			b.NoCommits = true
			s = strings.TrimPrefix(s, prefix)
		}
	}

	if s == "HEAD (no branch)" || strings.HasPrefix(s, "HEAD (") {
		b.Detached = true
		return b
	}

	if local, upstream, ok := strings.Cut(s, "..."); ok {
		b.Head = local
		b.Upstream = upstream
	} else {
		b.Head = s
	}
	return b
}

// ParseLeftRightCount parses `git rev-list --left-right --count A...B`.
func ParseLeftRightCount(out string) (left, right int, ok bool) {
	parts := strings.Fields(strings.TrimSpace(out))
	if len(parts) != 2 {
		return 0, 0, false
	}
	l, err1 := strconv.Atoi(parts[0])
	r, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return l, r, true
}

// ── Commit parsing ──────────────────────────────────────────────────────────

var (
	reFilesChanged = regexp.MustCompile(`(\d+) files? changed`)
	reInsertions   = regexp.MustCompile(`(\d+) insertions?\(\+\)`)
	reDeletions    = regexp.MustCompile(`(\d+) deletions?\(-\)`)
)

// ParseCommitOutput parses the summary `git commit` prints on success:
//
//	[main (root-commit) 1a2b3c4] subject
//	 2 files changed, 3 insertions(+), 1 deletion(-)
func ParseCommitOutput(out string) CommitResult {
	var res CommitResult
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && res.Hash == "" {
			end := strings.IndexByte(line, ']')
			if end < 0 {
				continue
			}
			inner := line[1:end]
			if strings.Contains(inner, "(root-commit)") {
				res.RootCommit = true
				inner = strings.Replace(inner, "(root-commit)", "", 1)
			}
			fields := strings.Fields(inner)
			if len(fields) > 0 {
				res.Hash = fields[len(fields)-1]
				res.Branch = strings.Join(fields[:len(fields)-1], " ")
			}
			continue
		}
		if m := reFilesChanged.FindStringSubmatch(line); m != nil {
			res.Changes, _ = strconv.Atoi(m[1])
			if m := reInsertions.FindStringSubmatch(line); m != nil {
				res.Insertions, _ = strconv.Atoi(m[1])
			}
			if m := reDeletions.FindStringSubmatch(line); m != nil {
				res.Deletions, _ = strconv.Atoi(m[1])
			}
		}
	}
	return res
}

// ── Remote parsing ──────────────────────────────────────────────────────────

// ParseRemoteOutput parses `git remote -v`.
func ParseRemoteOutput(out string) []Remote {
	if len(out) == 0 {
		return nil
	}
	seen := map[string]*Remote{}
	var order []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		name := fields[0]
		url := fields[1]
		kind := strings.Trim(fields[2], "()")
		r, ok := seen[name]
		if !ok {
			r = &Remote{Name: name}
			seen[name] = r
			order = append(order, name)
		}
		switch kind {
		case "fetch":
			r.FetchURL = url
		case "push":
			r.PushURL = url
		}
	}
	remotes := make([]Remote, 0, len(order))
	for _, name := range order {
		remotes = append(remotes, *seen[name])
	}
	return remotes
}

// FindRemote returns the remote with the given name.
func FindRemote(remotes []Remote, name string) (Remote, bool) {
	for _, r := range remotes {
		if r.Name == name {
			return r, true
		}
	}
	return Remote{}, false
}
