package reposync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
)

func TestNormalizeStatus(t *testing.T) {
	remotes := []git.Remote{{Name: "origin", FetchURL: "git@github.com:octo/app.git"}}

	tests := []struct {
		name string
		raw  *git.StatusResult
		want RepoStatus
	}{
		{
			name: "nil status",
			raw:  nil,
			want: RepoStatus{Files: []FileChange{}, Conflicted: []string{}},
		},
		{
			name: "tracked with counts",
			raw: &git.StatusResult{Branch: git.BranchInfo{Head: "main", Upstream: "origin/main", Ahead: 2, Behind: 1}},
			want: RepoStatus{
				CurrentBranch: "main", TrackingBranch: "origin/main", Ahead: 2, Behind: 1,
				RemoteURL: "git@github.com:octo/app.git", Files: []FileChange{}, Conflicted: []string{},
			},
		},
		{
			name: "gone upstream is untracked",
			raw:  &git.StatusResult{Branch: git.BranchInfo{Head: "main", Upstream: "origin/main", Gone: true, Ahead: 4}},
			want: RepoStatus{
				CurrentBranch: "main", RemoteURL: "git@github.com:octo/app.git",
				Files: []FileChange{}, Conflicted: []string{},
			},
		},
		{
			name: "detached head",
			raw:  &git.StatusResult{Branch: git.BranchInfo{Detached: true}},
			want: RepoStatus{RemoteURL: "git@github.com:octo/app.git", Files: []FileChange{}, Conflicted: []string{}},
		},
		{
			name: "unborn branch",
			raw:  &git.StatusResult{Branch: git.BranchInfo{Head: "main", NoCommits: true}},
			want: RepoStatus{
				CurrentBranch: "main", Unborn: true, RemoteURL: "git@github.com:octo/app.git",
				Files: []FileChange{}, Conflicted: []string{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw, remotes, "origin"))
		})
	}
}

func TestNormalizeStatusFiles(t *testing.T) {
	raw := &git.StatusResult{
		Branch: git.BranchInfo{Head: "main"},
		Entries: []git.FileStatus{
			{Staging: git.StatusModified, Worktree: git.StatusModified, Path: "both.go"},
			{Staging: git.StatusUntracked, Worktree: git.StatusUntracked, Path: "new.go"},
			{Staging: git.StatusRenamed, Worktree: git.StatusUnmodified, Path: "b.go", OrigPath: "a.go"},
			{Staging: git.StatusUnmodified, Worktree: git.StatusTypeChanged, Path: "link"},
			{Staging: git.StatusUnmerged, Worktree: git.StatusUnmerged, Path: "c.go"},
			{Staging: git.StatusAdded, Worktree: git.StatusAdded, Path: "d.go"},
		},
	}
	st := NormalizeStatus(raw, nil, "origin")

	require.Len(t, st.Files, 6)
	assert.Equal(t, FileChange{Path: "both.go", IndexState: StateModified, WorkingState: StateModified}, st.Files[0])
	assert.Equal(t, FileChange{Path: "new.go", IndexState: StateNone, WorkingState: StateUntracked}, st.Files[1])
	assert.Equal(t, FileChange{Path: "b.go", OrigPath: "a.go", IndexState: StateRenamed, WorkingState: StateNone}, st.Files[2])
	assert.Equal(t, StateModified, st.Files[3].WorkingState)
	assert.Equal(t, FileChange{Path: "c.go", IndexState: StateUnmerged, WorkingState: StateUnmerged}, st.Files[4])
	assert.Equal(t, FileChange{Path: "d.go", IndexState: StateUnmerged, WorkingState: StateUnmerged}, st.Files[5])
	assert.Equal(t, []string{"c.go", "d.go"}, st.Conflicted)
	assert.Empty(t, st.RemoteURL)

	assert.Equal(t, []string{"b.go", "both.go", "c.go", "d.go"}, st.StagedPaths())
	assert.Equal(t, []string{"both.go", "c.go", "d.go", "link", "new.go"}, st.UnstagedPaths())
}

func TestNormalizeNotARepository(t *testing.T) {
	eng := newFakeRepo("main")
	eng.isRepo = false

	snap, err := Normalizer{RemoteName: "origin"}.Normalize(context.Background(), eng)
	require.NoError(t, err)
	assert.True(t, snap.NotARepository)
	assert.NotNil(t, snap.Status.Files)
	assert.Zero(t, eng.count("status"))
}

func TestNormalizeEngineError(t *testing.T) {
	eng := newFakeRepo("main")
	eng.errs["remotes"] = cmdErr("fatal: bad config line 1")

	_, err := Normalizer{RemoteName: "origin"}.Normalize(context.Background(), eng)
	assert.Error(t, err)
}

func TestRepoStatusDerivedStates(t *testing.T) {
	assert.Equal(t, SyncUntracked, RepoStatus{Ahead: 3}.SyncState())
	assert.Equal(t, SyncDiverged, RepoStatus{TrackingBranch: "origin/main", Ahead: 1, Behind: 1}.SyncState())
	assert.Equal(t, SyncAhead, RepoStatus{TrackingBranch: "origin/main", Ahead: 1}.SyncState())

	assert.Equal(t, SetupNoRepo, SetupStateOf(Snapshot{NotARepository: true}))
	assert.Equal(t, SetupRepoNoRemote, SetupStateOf(Snapshot{}))
	assert.Equal(t, SetupRepoWithRemoteNoTracking, SetupStateOf(Snapshot{Status: RepoStatus{RemoteURL: "u"}}))
	assert.Equal(t, SetupReady, SetupStateOf(Snapshot{Status: RepoStatus{RemoteURL: "u", TrackingBranch: "origin/main"}}))
}
