package reposync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/logging"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

func TestCheckPush(t *testing.T) {
	r := NewRemoteSync(newFakeRepo("main"), "origin", logging.Discard())
	base := RepoStatus{CurrentBranch: "main", RemoteURL: "u"}

	tests := []struct {
		name string
		mut  func(*RepoStatus)
		kind syncerr.Kind
		ok   bool
	}{
		{"no branch", func(s *RepoStatus) { s.CurrentBranch = "" }, syncerr.ValidationError, false},
		{"no remote", func(s *RepoStatus) { s.RemoteURL = "" }, syncerr.ValidationError, false},
		{"unborn", func(s *RepoStatus) { s.Unborn = true }, syncerr.ValidationError, false},
		{"untracked goes to publish", func(*RepoStatus) {}, 0, true},
		{"behind", func(s *RepoStatus) { s.TrackingBranch, s.Ahead, s.Behind = "origin/main", 1, 1 }, syncerr.NonFastForward, false},
		{"up to date", func(s *RepoStatus) { s.TrackingBranch = "origin/main" }, syncerr.ValidationError, false},
		{"ahead", func(s *RepoStatus) { s.TrackingBranch, s.Ahead = "origin/main", 2 }, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := base
			tt.mut(&st)
			err := r.CheckPush(st)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, syncerr.KindOf(err))
		})
	}
}

func TestCheckPull(t *testing.T) {
	r := NewRemoteSync(newFakeRepo("main"), "origin", logging.Discard())

	assert.Error(t, r.CheckPull(RepoStatus{RemoteURL: "u"}))
	assert.Error(t, r.CheckPull(RepoStatus{CurrentBranch: "main"}))
	assert.Error(t, r.CheckPull(RepoStatus{CurrentBranch: "main", RemoteURL: "u", TrackingBranch: "origin/main"}))
	assert.NoError(t, r.CheckPull(RepoStatus{CurrentBranch: "main", RemoteURL: "u"}))
	assert.NoError(t, r.CheckPull(RepoStatus{CurrentBranch: "main", RemoteURL: "u", TrackingBranch: "origin/main", Behind: 1}))
}

func TestPublishFirstTime(t *testing.T) {
	eng := newFakeRepo("main").withOrigin()
	r := NewRemoteSync(eng, "origin", logging.Discard())
	st := RepoStatus{CurrentBranch: "main", RemoteURL: "u"}
	refreshed := 0
	refresh := func(ctx context.Context) (Snapshot, error) {
		refreshed++
		return Snapshot{Status: st}, nil
	}

	out, err := r.PushOrPublish(context.Background(), st, git.Credential{}, refresh)
	require.NoError(t, err)
	assert.Equal(t, PushOutcome{Branch: "main", Published: true}, out)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, []string{"fetch", "compare", "push"}, eng.calls)
	assert.True(t, eng.lastPush.SetUpstream)
}

func TestPublishBranchSwitchedDuringFetch(t *testing.T) {
	eng := newFakeRepo("main").withOrigin()
	r := NewRemoteSync(eng, "origin", logging.Discard())
	st := RepoStatus{CurrentBranch: "main", RemoteURL: "u"}
	refresh := func(context.Context) (Snapshot, error) {
		return Snapshot{Status: RepoStatus{CurrentBranch: "other", RemoteURL: "u"}}, nil
	}

	_, err := r.PushOrPublish(context.Background(), st, git.Credential{}, refresh)
	assert.True(t, syncerr.Is(err, syncerr.ValidationError))
	assert.Zero(t, eng.count("push"))
}

func TestPublishRemoteBranchAlreadyContained(t *testing.T) {
	eng := newFakeRepo("main").withOrigin()
	eng.refs["origin/main"] = refCompare{ahead: 2}
	r := NewRemoteSync(eng, "origin", logging.Discard())
	st := RepoStatus{CurrentBranch: "main", RemoteURL: "u"}

	out, err := r.PushOrPublish(context.Background(), st, git.Credential{},
		func(context.Context) (Snapshot, error) { return Snapshot{Status: st}, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, out.Commits)
	assert.True(t, out.Published)
}

func TestCheckPublishTracked(t *testing.T) {
	eng := newFakeRepo("main")
	r := NewRemoteSync(eng, "origin", logging.Discard())

	check, err := r.CheckPublish(context.Background(), RepoStatus{CurrentBranch: "main", TrackingBranch: "origin/main", Ahead: 1, Behind: 3})
	require.NoError(t, err)
	assert.Equal(t, PublishCheck{RemoteBranchExists: true, Ahead: 1, Behind: 3}, check)
	assert.Zero(t, eng.count("compare"))
}
