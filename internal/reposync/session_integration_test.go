package reposync

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func runGitIn(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func openCLI(path string) (git.Service, error) {
	svc, err := git.NewCLIService(path)
	if err != nil {
		return nil, err
	}
	return git.NewCachedService(svc, 2*time.Second), nil
}

func commitNext(t *testing.T, s *Session, dir string, n int) {
	t.Helper()
	ctx := context.Background()
	name := "f" + strconv.Itoa(n) + ".txt"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name+"\n"), 0o644))
	_, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Stage(ctx, name))
	s.SetCommitMessage("add " + name)
	_, err = s.Commit(ctx)
	require.NoError(t, err)
}

func TestSessionInitCommitPublishPush(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	bare := t.TempDir()
	runGitIn(t, bare, "init", "-q", "--bare")
	runGitIn(t, bare, "symbolic-ref", "HEAD", "refs/heads/main")

	s, err := NewSession(dir, openCLI)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, snap.NotARepository)

	require.NoError(t, s.Init(ctx))
	ok, err := s.IsRepository(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	st := s.Snapshot().Status
	assert.Empty(t, st.TrackingBranch)
	assert.Empty(t, st.RemoteURL)
	assert.Zero(t, st.Ahead)
	assert.Zero(t, st.Behind)

	// Linking before the first commit cannot track anything yet.
	res, err := s.LinkExisting(ctx, bare)
	require.NoError(t, err)
	assert.False(t, res.UpstreamSet)
	require.NotNil(t, res.UpstreamErr)
	assert.Equal(t, syncerr.UpstreamNotSet, res.UpstreamErr.Kind)

	commitNext(t, s, dir, 0)
	out, err := s.PushOrPublish(ctx, git.Credential{})
	require.NoError(t, err)
	assert.True(t, out.Published)
	assert.Equal(t, "origin/main", s.Snapshot().Status.TrackingBranch)

	for i := 1; i <= 3; i++ {
		commitNext(t, s, dir, i)
	}
	assert.Equal(t, 3, s.Snapshot().Status.Ahead)

	out, err = s.PushOrPublish(ctx, git.Credential{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Commits)
	assert.Zero(t, s.Snapshot().Status.Ahead)
	assert.Equal(t, SyncUpToDate, s.Snapshot().Status.SyncState())
}

func TestSessionPublishRejectsDivergedRemote(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	bare := t.TempDir()
	runGitIn(t, bare, "init", "-q", "--bare")
	runGitIn(t, bare, "symbolic-ref", "HEAD", "refs/heads/main")

	// Someone else publishes two commits on main first.
	other := t.TempDir()
	runGitIn(t, other, "init", "-q")
	runGitIn(t, other, "symbolic-ref", "HEAD", "refs/heads/main")
	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(other, "o.txt"), []byte(strconv.Itoa(i)), 0o644))
		runGitIn(t, other, "add", "o.txt")
		runGitIn(t, other, "commit", "-q", "-m", "other "+strconv.Itoa(i))
	}
	runGitIn(t, other, "push", "-q", bare, "main")

	dir := t.TempDir()
	s, err := NewSession(dir, openCLI)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.AddRemote(ctx, "origin", bare))
	commitNext(t, s, dir, 0)

	_, err = s.PushOrPublish(ctx, git.Credential{})
	require.Error(t, err)
	assert.True(t, syncerr.Is(err, syncerr.NonFastForward))
	assert.Contains(t, err.Error(), "2 commit(s)")

	// Nothing was pushed: the remote still has only the other commits.
	cmd := exec.Command("git", "rev-list", "--count", "main")
	cmd.Dir = bare
	count, err := cmd.Output()
	require.NoError(t, err)
	assert.Equal(t, "2\n", string(count))
}
