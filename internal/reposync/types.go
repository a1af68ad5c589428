// Package reposync is the synchronization core: it normalizes engine status,
// stages and commits, retrieves diffs, provisions remotes and reconciles
// the local branch with its remote through fetch, pull and push or publish.
// Session ties the components together and owns the status snapshot.
package reposync

import "sort"

// FileState is the normalized state of one side (index or worktree) of a
// changed path.
type FileState string

// File states. Untracked and Ignored only occur on the worktree side.
const (
	StateNone      FileState = "none"
	StateAdded     FileState = "added"
	StateModified  FileState = "modified"
	StateDeleted   FileState = "deleted"
	StateRenamed   FileState = "renamed"
	StateCopied    FileState = "copied"
	StateUnmerged  FileState = "unmerged"
	StateUntracked FileState = "untracked"
	StateIgnored   FileState = "ignored"
)

// FileChange is one changed path, relative to the repository root.
type FileChange struct {
	Path         string    `json:"path" yaml:"path"`
	OrigPath     string    `json:"origPath,omitempty" yaml:"origPath,omitempty"`
	IndexState   FileState `json:"indexState" yaml:"indexState"`
	WorkingState FileState `json:"workingState" yaml:"workingState"`
}

// Staged reports whether the path has changes in the index.
func (f FileChange) Staged() bool { return f.IndexState != StateNone }

// Unstaged reports whether the path has changes outside the index.
func (f FileChange) Unstaged() bool {
	return f.WorkingState != StateNone && f.WorkingState != StateIgnored
}

// RepoStatus is the normalized status of a repository. Empty strings stand
// for absent values: CurrentBranch is empty when HEAD is detached,
// TrackingBranch when no upstream is configured, RemoteURL when no remote
// of the configured name exists.
type RepoStatus struct {
	CurrentBranch  string       `json:"currentBranch" yaml:"currentBranch"`
	TrackingBranch string       `json:"trackingBranch" yaml:"trackingBranch"`
	Ahead          int          `json:"ahead" yaml:"ahead"`
	Behind         int          `json:"behind" yaml:"behind"`
	RemoteURL      string       `json:"remoteUrl" yaml:"remoteUrl"`
	Unborn         bool         `json:"unborn" yaml:"unborn"`
	Files          []FileChange `json:"files" yaml:"files"`
	Conflicted     []string     `json:"conflicted" yaml:"conflicted"`
}

// HasTracking reports whether an upstream is configured.
func (s RepoStatus) HasTracking() bool { return s.TrackingBranch != "" }

// StagedPaths returns the sorted staged paths.
func (s RepoStatus) StagedPaths() []string {
	return s.paths(FileChange.Staged)
}

// UnstagedPaths returns the sorted paths with worktree changes, including
// untracked files.
func (s RepoStatus) UnstagedPaths() []string {
	return s.paths(FileChange.Unstaged)
}

func (s RepoStatus) paths(keep func(FileChange) bool) []string {
	out := []string{}
	for _, f := range s.Files {
		if keep(f) {
			out = append(out, f.Path)
		}
	}
	sort.Strings(out)
	return out
}

// SyncState is the relationship of the current branch to its upstream.
type SyncState string

// Sync states.
const (
	SyncUntracked SyncState = "untracked"
	SyncUpToDate  SyncState = "up-to-date"
	SyncAhead     SyncState = "ahead"
	SyncBehind    SyncState = "behind"
	SyncDiverged  SyncState = "diverged"
)

// SyncState derives the sync state. Behind wins over Ahead unless both
// are set.
func (s RepoStatus) SyncState() SyncState {
	switch {
	case !s.HasTracking():
		return SyncUntracked
	case s.Ahead > 0 && s.Behind > 0:
		return SyncDiverged
	case s.Behind > 0:
		return SyncBehind
	case s.Ahead > 0:
		return SyncAhead
	default:
		return SyncUpToDate
	}
}

// Snapshot is the session's authoritative view of the working copy.
type Snapshot struct {
	NotARepository bool       `json:"notARepository" yaml:"notARepository"`
	Status         RepoStatus `json:"status" yaml:"status"`
}

// SetupState is the position of the working copy in the provisioning flow.
type SetupState string

// Setup states.
const (
	SetupNoRepo                   SetupState = "no-repo"
	SetupRepoNoRemote             SetupState = "repo-no-remote"
	SetupRepoWithRemoteNoTracking SetupState = "repo-with-remote-no-tracking"
	SetupReady                    SetupState = "ready"
)

// SetupStateOf derives the setup state of a snapshot.
func SetupStateOf(s Snapshot) SetupState {
	switch {
	case s.NotARepository:
		return SetupNoRepo
	case s.Status.RemoteURL == "":
		return SetupRepoNoRemote
	case !s.Status.HasTracking():
		return SetupRepoWithRemoteNoTracking
	default:
		return SetupReady
	}
}

// DiffHunk is the reconstructed old and new text of one file.
type DiffHunk struct {
	Path     string   `json:"path" yaml:"path"`
	Staged   bool     `json:"staged" yaml:"staged"`
	OldLines []string `json:"oldLines" yaml:"oldLines"`
	NewLines []string `json:"newLines" yaml:"newLines"`
}

// Empty reports whether there are no differences.
func (d DiffHunk) Empty() bool { return len(d.OldLines) == 0 && len(d.NewLines) == 0 }

// PublishCheck is the comparison of HEAD with the remote branch of the same
// name, taken after the publish flow's fetch.
type PublishCheck struct {
	RemoteBranchExists bool
	Ahead              int
	Behind             int
}
