package git

import "context"

// Service defines the contract for every engine operation the sync core uses.
// The reposync package depends on this interface, never on exec.Command
// directly, so the state machines can be driven by a scripted fake in tests.
//
// A Service is bound to one working-copy path, which need not be a
// repository yet.
type Service interface {
	// ── Repository info ──────────────────────────────────────────────
	RepoRoot() string
	GitDir() string
	IsRepository(ctx context.Context) (bool, error)

	// ── Status & staging ─────────────────────────────────────────────
	Status(ctx context.Context) (*StatusResult, error)
	Stage(ctx context.Context, paths ...string) error
	Unstage(ctx context.Context, paths ...string) error

	// ── Diff & commit ────────────────────────────────────────────────
	Diff(ctx context.Context, path string, staged bool) (string, error)
	Commit(ctx context.Context, message string) (CommitResult, error)

	// ── Remotes ──────────────────────────────────────────────────────
	Remotes(ctx context.Context) ([]Remote, error)
	AddRemote(ctx context.Context, name, url string) error
	SetUpstream(ctx context.Context, localBranch, remote, remoteBranch string) error
	Fetch(ctx context.Context, remote string, cred Credential) error
	Pull(ctx context.Context, remote, branch string, cred Credential) error
	Push(ctx context.Context, remote, branch string, opts PushOptions) error

	// CompareRef counts commits only on HEAD (ahead) and only on ref
	// (behind). found is false when ref does not resolve.
	CompareRef(ctx context.Context, ref string) (ahead, behind int, found bool, err error)

	// ── Setup ────────────────────────────────────────────────────────
	Init(ctx context.Context, defaultBranch string) error
}
