package git

// StatusCode represents a single-character Git status indicator.
type StatusCode byte

// Git status codes as single-byte indicators.
const (
	StatusUnmodified  StatusCode = ' '
	StatusModified    StatusCode = 'M'
	StatusTypeChanged StatusCode = 'T'
	StatusAdded       StatusCode = 'A'
	StatusDeleted     StatusCode = 'D'
	StatusRenamed     StatusCode = 'R'
	StatusCopied      StatusCode = 'C'
	StatusUnmerged    StatusCode = 'U'
	StatusUntracked   StatusCode = '?'
	StatusIgnored     StatusCode = '!'
)

// String returns the single-character representation.
func (s StatusCode) String() string { return string(s) }

// FileStatus is one raw entry of `git status --porcelain`.
type FileStatus struct {
	Staging  StatusCode
	Worktree StatusCode
	Path     string
	OrigPath string // Only set for renames/copies.
}

// IsConflict reports whether the entry is an unmerged path.
func (f FileStatus) IsConflict() bool {
	return f.Staging == StatusUnmerged || f.Worktree == StatusUnmerged ||
		(f.Staging == StatusAdded && f.Worktree == StatusAdded) ||
		(f.Staging == StatusDeleted && f.Worktree == StatusDeleted)
}

// BranchInfo is the `## ...` header line of `git status --branch`.
type BranchInfo struct {
	Head      string // Empty when detached.
	Detached  bool
	Upstream  string // e.g. "origin/main"; empty when untracked.
	Ahead     int
	Behind    int
	Gone      bool // Upstream configured but the remote ref no longer exists.
	NoCommits bool // Unborn branch.
}

// StatusResult holds the raw status of the entire repository.
type StatusResult struct {
	Branch  BranchInfo
	Entries []FileStatus
}

// Remote represents a configured Git remote.
type Remote struct {
	Name     string
	FetchURL string
	PushURL  string
}

// URL returns the fetch URL, falling back to the push URL.
func (r Remote) URL() string {
	if r.FetchURL != "" {
		return r.FetchURL
	}
	return r.PushURL
}

// CommitResult summarises a successful commit.
type CommitResult struct {
	Hash       string `json:"hash" yaml:"hash"`
	Branch     string `json:"branch" yaml:"branch"`
	RootCommit bool   `json:"rootCommit" yaml:"rootCommit"`
	Changes    int    `json:"changes" yaml:"changes"`
	Insertions int    `json:"insertions" yaml:"insertions"`
	Deletions  int    `json:"deletions" yaml:"deletions"`
}

// Credential is an access token applied to a single network call.
// It is never written to the repository configuration.
type Credential struct {
	Username string // Defaults to the token itself when empty.
	Token    string
}

// IsZero reports whether no token is set.
func (c Credential) IsZero() bool { return c.Token == "" }

// PushOptions configures a push.
type PushOptions struct {
	SetUpstream bool
	Credential  Credential
}
