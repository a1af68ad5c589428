package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/hosting"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/reposync"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

func TestRenderStatus(t *testing.T) {
	snap := reposync.Snapshot{Status: reposync.RepoStatus{
		CurrentBranch:  "main",
		TrackingBranch: "origin/main",
		Ahead:          2,
		RemoteURL:      "https://github.com/octo/app.git",
		Files: []reposync.FileChange{
			{Path: "a.go", IndexState: reposync.StateModified, WorkingState: reposync.StateNone},
			{Path: "new.go", IndexState: reposync.StateNone, WorkingState: reposync.StateUntracked},
		},
		Conflicted: []string{},
	}}
	out := RenderStatus(DefaultStyles(), snap)

	assert.Contains(t, out, "main")
	assert.Contains(t, out, "origin/main")
	assert.Contains(t, out, "↑2 ↓0")
	assert.Contains(t, out, "https://github.com/octo/app.git")
	assert.Contains(t, out, "Staged changes")
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "Changes not staged")
	assert.Contains(t, out, "new.go")
	assert.NotContains(t, out, "Working tree clean")
}

func TestRenderStatusStates(t *testing.T) {
	styles := DefaultStyles()

	out := RenderStatus(styles, reposync.Snapshot{NotARepository: true})
	assert.Contains(t, out, "Not a Git repository")

	out = RenderStatus(styles, reposync.Snapshot{Status: reposync.RepoStatus{CurrentBranch: "main", Unborn: true}})
	assert.Contains(t, out, "no commits yet")
	assert.Contains(t, out, "untracked")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "Working tree clean")

	out = RenderStatus(styles, reposync.Snapshot{Status: reposync.RepoStatus{Conflicted: []string{"x"}}})
	assert.Contains(t, out, "HEAD detached")
	assert.Contains(t, out, "1 conflicted file(s)")
}

func TestRenderDiff(t *testing.T) {
	h := reposync.DiffHunk{Path: "f.txt", Staged: true, OldLines: []string{"old"}, NewLines: []string{"new", "extra"}}
	out := RenderDiff(DefaultStyles(), h, 80)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "f.txt")
	assert.Contains(t, lines[0], "staged")
	assert.Contains(t, lines[1], "old")
	assert.Contains(t, lines[1], "new")
	assert.Contains(t, lines[2], "extra")

	out = RenderDiff(DefaultStyles(), reposync.DiffHunk{Path: "f.txt"}, 80)
	assert.Contains(t, out, "No changes.")
	assert.Contains(t, out, "unstaged")
}

func TestRenderError(t *testing.T) {
	err := syncerr.New(syncerr.NonFastForward, "push", "Local branch is behind remote. Pull first.")
	out := RenderError(DefaultStyles(), err, 60)
	assert.Contains(t, out, "NonFastForward")
	assert.Contains(t, out, "Local branch is behind")

	out = RenderError(DefaultStyles(), errors.New("boom"), 60)
	assert.Contains(t, out, "Unknown")
	assert.Contains(t, out, "boom")
}

func TestRenderOutcomes(t *testing.T) {
	styles := DefaultStyles()

	out := RenderCommit(styles, git.CommitResult{Hash: "abc1234", Branch: "main", RootCommit: true, Changes: 2, Insertions: 3})
	assert.Contains(t, out, "abc1234")
	assert.Contains(t, out, "root commit")
	assert.Contains(t, out, "2 file(s) changed, 3 insertion(s), 0 deletion(s)")

	assert.Contains(t, RenderPush(styles, reposync.PushOutcome{Branch: "main", Published: true}), "Published")
	assert.Contains(t, RenderPush(styles, reposync.PushOutcome{Branch: "main", Commits: 3}), "3 commit(s)")

	link := reposync.LinkResult{
		Remote:      "origin",
		URL:         "https://github.com/octo/app.git",
		Repo:        &hosting.RepoDescriptor{FullName: "octo/app"},
		UpstreamErr: syncerr.New(syncerr.UpstreamNotSet, "set upstream", "The remote branch might not exist."),
	}
	out = RenderLink(styles, link, 80)
	assert.Contains(t, out, "octo/app")
	assert.Contains(t, out, "Upstream not set")

	out = RenderRepos(styles, []hosting.RepoDescriptor{{FullName: "octo/app", Private: true, CloneURL: "u1"}, {FullName: "octo/lib", CloneURL: "u2"}}, 80)
	assert.Contains(t, out, "private")
	assert.Contains(t, out, "octo/lib")
	assert.Contains(t, RenderRepos(styles, nil, 80), "No repositories.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab…", Truncate("abcd", 3))
	assert.Equal(t, "…", Truncate("abcd", 1))
}

func TestRunWithSpinnerWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	called := false
	err := RunWithSpinner(context.Background(), &buf, DefaultStyles(), "fetching", func(context.Context) error {
		called = true
		return errors.New("offline")
	})
	assert.EqualError(t, err, "offline")
	assert.True(t, called)
	assert.Empty(t, buf.String())
	assert.False(t, IsTerminal(&buf))
}
