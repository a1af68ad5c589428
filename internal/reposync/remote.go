package reposync

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

// PushOutcome reports what PushOrPublish did.
type PushOutcome struct {
	Branch    string `json:"branch" yaml:"branch"`
	Published bool   `json:"published" yaml:"published"`
	Commits   int    `json:"commits" yaml:"commits"`
}

// RefreshFunc re-derives the status from the engine.
type RefreshFunc func(ctx context.Context) (Snapshot, error)

// RemoteSync reconciles the current branch with the configured remote. It
// never patches ahead/behind itself; every decision reads a status the
// caller derived from the engine.
type RemoteSync struct {
	eng        git.Service
	remoteName string
	logger     *log.Logger
}

// NewRemoteSync returns a RemoteSync.
func NewRemoteSync(eng git.Service, remoteName string, logger *log.Logger) *RemoteSync {
	return &RemoteSync{eng: eng, remoteName: remoteName, logger: logger}
}

// CheckFetch requires a configured remote.
func (r *RemoteSync) CheckFetch(st RepoStatus) error {
	if st.RemoteURL == "" {
		return syncerr.Validation("fetch", "Cannot fetch: remote not configured.")
	}
	return nil
}

// Fetch updates the remote-tracking refs.
func (r *RemoteSync) Fetch(ctx context.Context, st RepoStatus, cred git.Credential) error {
	if err := r.CheckFetch(st); err != nil {
		return err
	}
	if err := r.eng.Fetch(ctx, r.remoteName, cred); err != nil {
		return err
	}
	r.logger.Info("fetched", "remote", r.remoteName)
	return nil
}

// CheckPull allows a pull when behind a tracked upstream, or when untracked
// (an explicit pull of the same-named remote branch).
func (r *RemoteSync) CheckPull(st RepoStatus) error {
	switch {
	case st.CurrentBranch == "":
		return syncerr.Validation("pull", "Cannot pull: no current branch.")
	case st.RemoteURL == "":
		return syncerr.Validation("pull", "Cannot pull: remote not configured.")
	case st.HasTracking() && st.Behind == 0:
		return syncerr.Validation("pull", "Cannot pull: already up to date.")
	}
	return nil
}

// Pull merges the remote branch named like the current branch.
func (r *RemoteSync) Pull(ctx context.Context, st RepoStatus, cred git.Credential) error {
	if err := r.CheckPull(st); err != nil {
		return err
	}
	if err := r.eng.Pull(ctx, r.remoteName, st.CurrentBranch, cred); err != nil {
		return err
	}
	r.logger.Info("pulled", "remote", r.remoteName, "branch", st.CurrentBranch)
	return nil
}

// CheckPush validates the push-or-publish preconditions that do not need a
// fetch. For a tracked branch that is the whole regular-push decision.
func (r *RemoteSync) CheckPush(st RepoStatus) error {
	switch {
	case st.CurrentBranch == "" || st.RemoteURL == "":
		return syncerr.Validation("push", "Cannot push: current branch or remote URL is missing.")
	case st.Unborn:
		return syncerr.Validation("push", "Cannot push: the branch has no commits yet. Make a commit first.")
	case !st.HasTracking():
		return nil
	case st.Behind > 0:
		return syncerr.New(syncerr.NonFastForward, "push", "Local branch is behind remote. Pull first.")
	case st.Ahead == 0:
		return syncerr.Validation("push", "Already up to date with the remote.")
	}
	return nil
}

// PushOrPublish pushes a tracked branch, or publishes an untracked one.
func (r *RemoteSync) PushOrPublish(ctx context.Context, st RepoStatus, cred git.Credential, refresh RefreshFunc) (PushOutcome, error) {
	if err := r.CheckPush(st); err != nil {
		return PushOutcome{}, err
	}
	if st.HasTracking() {
		return r.push(ctx, st, cred)
	}
	return r.publish(ctx, st, cred, refresh)
}

func (r *RemoteSync) push(ctx context.Context, st RepoStatus, cred git.Credential) (PushOutcome, error) {
	err := r.eng.Push(ctx, r.remoteName, st.CurrentBranch, git.PushOptions{Credential: cred})
	if err != nil {
		return PushOutcome{}, err
	}
	r.logger.Info("pushed", "remote", r.remoteName, "branch", st.CurrentBranch, "commits", st.Ahead)
	return PushOutcome{Branch: st.CurrentBranch, Commits: st.Ahead}, nil
}

// publish runs in two phases with one decision between them: fetch and
// re-derive, then push only when the remote branch holds nothing unseen.
func (r *RemoteSync) publish(ctx context.Context, st RepoStatus, cred git.Credential, refresh RefreshFunc) (PushOutcome, error) {
	branch := st.CurrentBranch

	// Phase 1.
	if err := r.eng.Fetch(ctx, r.remoteName, cred); err != nil {
		return PushOutcome{}, err
	}
	snap, err := refresh(ctx)
	if err != nil {
		return PushOutcome{}, err
	}
	after := snap.Status
	if after.CurrentBranch != branch {
		return PushOutcome{}, syncerr.Validation("publish", "Branch changed while publishing; try again.")
	}
	check, err := r.CheckPublish(ctx, after)
	if err != nil {
		return PushOutcome{}, err
	}

	// Decision.
	if check.Behind > 0 {
		return PushOutcome{}, syncerr.New(syncerr.NonFastForward, "publish", fmt.Sprintf(
			"Remote branch %q already exists and contains %d commit(s) you do not have locally. Pull first.",
			branch, check.Behind))
	}
	if check.RemoteBranchExists && check.Ahead == 0 {
		r.logger.Warn("publishing branch with no commits ahead of remote", "branch", branch)
	}

	// Phase 2.
	if err := r.eng.Push(ctx, r.remoteName, branch, git.PushOptions{SetUpstream: true, Credential: cred}); err != nil {
		return PushOutcome{}, err
	}
	r.logger.Info("published", "remote", r.remoteName, "branch", branch)
	return PushOutcome{Branch: branch, Published: true, Commits: check.Ahead}, nil
}

// CheckPublish compares HEAD with the remote branch of the same name. For a
// tracked branch the status counts already answer the question.
func (r *RemoteSync) CheckPublish(ctx context.Context, st RepoStatus) (PublishCheck, error) {
	if st.HasTracking() {
		return PublishCheck{RemoteBranchExists: true, Ahead: st.Ahead, Behind: st.Behind}, nil
	}
	ahead, behind, found, err := r.eng.CompareRef(ctx, r.remoteName+"/"+st.CurrentBranch)
	if err != nil {
		return PublishCheck{}, err
	}
	return PublishCheck{RemoteBranchExists: found, Ahead: ahead, Behind: behind}, nil
}
