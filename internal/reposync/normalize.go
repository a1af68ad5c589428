package reposync

import (
	"context"
	"errors"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
)

// Normalizer turns raw engine output into a Snapshot. It is read-only.
type Normalizer struct {
	RemoteName string
}

// Normalize queries status and remotes. A working copy that is not a
// repository yields a NotARepository snapshot, not an error.
func (n Normalizer) Normalize(ctx context.Context, eng git.Service) (Snapshot, error) {
	isRepo, err := eng.IsRepository(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if !isRepo {
		return Snapshot{NotARepository: true, Status: emptyStatus()}, nil
	}

	raw, err := eng.Status(ctx)
	if errors.Is(err, git.ErrNotARepo) {
		return Snapshot{NotARepository: true, Status: emptyStatus()}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	remotes, err := eng.Remotes(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Status: NormalizeStatus(raw, remotes, n.RemoteName)}, nil
}

func emptyStatus() RepoStatus {
	return RepoStatus{Files: []FileChange{}, Conflicted: []string{}}
}

// NormalizeStatus coerces raw status into a RepoStatus. A gone upstream
// counts as no tracking, and ahead/behind are zero whenever tracking is
// absent.
func NormalizeStatus(raw *git.StatusResult, remotes []git.Remote, remoteName string) RepoStatus {
	st := emptyStatus()
	if raw == nil {
		return st
	}

	b := raw.Branch
	if !b.Detached {
		st.CurrentBranch = b.Head
	}
	st.Unborn = b.NoCommits
	if b.Upstream != "" && !b.Gone {
		st.TrackingBranch = b.Upstream
		st.Ahead = max(b.Ahead, 0)
		st.Behind = max(b.Behind, 0)
	}
	if r, ok := git.FindRemote(remotes, remoteName); ok {
		st.RemoteURL = r.URL()
	}

	for _, e := range raw.Entries {
		fc := FileChange{
			Path:         e.Path,
			OrigPath:     e.OrigPath,
			IndexState:   indexState(e.Staging),
			WorkingState: workingState(e.Worktree),
		}
		if e.IsConflict() {
			fc.IndexState, fc.WorkingState = StateUnmerged, StateUnmerged
			st.Conflicted = append(st.Conflicted, e.Path)
		}
		st.Files = append(st.Files, fc)
	}
	return st
}

func indexState(c git.StatusCode) FileState {
	switch c {
	case git.StatusUntracked, git.StatusIgnored:
		return StateNone
	}
	return commonState(c)
}

func workingState(c git.StatusCode) FileState {
	switch c {
	case git.StatusUntracked:
		return StateUntracked
	case git.StatusIgnored:
		return StateIgnored
	}
	return commonState(c)
}

func commonState(c git.StatusCode) FileState {
	switch c {
	case git.StatusAdded:
		return StateAdded
	case git.StatusModified, git.StatusTypeChanged:
		return StateModified
	case git.StatusDeleted:
		return StateDeleted
	case git.StatusRenamed:
		return StateRenamed
	case git.StatusCopied:
		return StateCopied
	case git.StatusUnmerged:
		return StateUnmerged
	default:
		return StateNone
	}
}
