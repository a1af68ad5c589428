package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Default timeouts. Local commands should finish quickly; network commands
// get longer but must still fail eventually instead of hanging.
const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultNetworkTimeout = 2 * time.Minute
)

// CLIService implements Service by shelling out to the git CLI.
//   - GIT_OPTIONAL_LOCKS=0 on all read commands (no lock contention)
//   - LC_ALL=C so failure text is stable for classification
//   - GIT_TERMINAL_PROMPT=0 on network commands (fail, don't prompt)
//   - Context-based timeouts prevent hangs
//   - Stdout/Stderr separated, stderr noise doesn't corrupt output
type CLIService struct {
	root           string // Absolute path to the working copy.
	cmdTimeout     time.Duration
	networkTimeout time.Duration
}

// Compile-time check that CLIService implements Service.
var _ Service = (*CLIService)(nil)

// Option configures a CLIService.
type Option func(*CLIService)

// WithCommandTimeout bounds every local git command.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *CLIService) {
		if d > 0 {
			s.cmdTimeout = d
		}
	}
}

// WithNetworkTimeout bounds fetch, pull and push.
func WithNetworkTimeout(d time.Duration) Option {
	return func(s *CLIService) {
		if d > 0 {
			s.networkTimeout = d
		}
	}
}

// NewCLIService binds a service to a working-copy directory. The directory
// must exist but does not have to be a repository.
func NewCLIService(path string, opts ...Option) (*CLIService, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, abs)
	}
	s := &CLIService{
		root:           abs,
		cmdTimeout:     DefaultCommandTimeout,
		networkTimeout: DefaultNetworkTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ── helpers ─────────────────────────────────────────────────────────────────

var (
	// baseEnv pins the message locale; the error classifier matches English text.
	baseEnv = []string{"LC_ALL=C"}

	// readEnv is the environment set on all read-only git commands.
	// GIT_OPTIONAL_LOCKS=0 prevents git from acquiring optional locks,
	// which is critical in large repos where lock contention stalls readers.
	readEnv = append([]string{"GIT_OPTIONAL_LOCKS=0"}, baseEnv...)

	// networkEnv disables interactive credential prompts.
	networkEnv = append([]string{"GIT_TERMINAL_PROMPT=0"}, baseEnv...)
)

// run executes a read command at the working copy with read-optimised env.
func (s *CLIService) run(ctx context.Context, args ...string) (string, error) {
	return runGit(ctx, invocation{dir: s.root, env: readEnv, timeout: s.cmdTimeout, args: args})
}

// runWrite executes a local write command (no optional-locks override).
func (s *CLIService) runWrite(ctx context.Context, args ...string) (string, error) {
	return runGit(ctx, invocation{dir: s.root, env: baseEnv, timeout: s.cmdTimeout, args: args})
}

// runNetwork executes fetch/pull/push against remote. A non-empty HTTPS
// credential is applied through a one-shot url.insteadOf rewrite so the
// remote-tracking refs still update and nothing lands in .git/config.
func (s *CLIService) runNetwork(ctx context.Context, remote string, cred Credential, args ...string) (string, error) {
	var prefix []string
	if !cred.IsZero() {
		url, err := s.remoteURL(ctx, remote)
		if err != nil {
			return "", err
		}
		prefix, err = credentialArgs(url, cred)
		if err != nil {
			return "", err
		}
	}
	return runGit(ctx, invocation{
		dir:     s.root,
		env:     networkEnv,
		timeout: s.networkTimeout,
		secret:  cred.Token,
		args:    append(prefix, args...),
	})
}

func (s *CLIService) remoteURL(ctx context.Context, remote string) (string, error) {
	out, err := s.run(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRemoteNotFound, remote, err)
	}
	return strings.TrimSpace(out), nil
}

type invocation struct {
	dir     string
	env     []string
	timeout time.Duration
	secret  string // Redacted from Args and Stderr of a returned CommandError.
	args    []string
	okCodes []int // Non-zero exit codes that still mean success.
}

// runGit executes a git command with a context timeout.
// Stdout and stderr are separated so stderr noise doesn't corrupt output.
func runGit(ctx context.Context, inv invocation) (string, error) {
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", inv.args...)
	cmd.Dir = inv.dir

	// Inherit environment, add extras.
	if len(inv.env) > 0 {
		cmd.Env = append(os.Environ(), inv.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
		for _, ok := range inv.okCodes {
			if exitCode == ok {
				return stdout.String(), nil
			}
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	// Some failures ("nothing to commit", merge CONFLICT lines) are reported
	// on stdout, so both streams are kept.
	errMsg := strings.TrimSpace(stderr.String())
	if out := strings.TrimSpace(stdout.String()); out != "" {
		if errMsg != "" {
			errMsg += "\n"
		}
		errMsg += out
	}
	return "", &CommandError{
		Args:     redactedArgs(inv.args, inv.secret),
		Stderr:   Redact(errMsg, inv.secret),
		ExitCode: exitCode,
		Err:      err,
	}
}

// ── Repository info ─────────────────────────────────────────────────────────

// RepoRoot returns the working-copy path.
func (s *CLIService) RepoRoot() string { return s.root }

// GitDir returns the absolute .git directory, or "" when the working copy is
// not a repository.
func (s *CLIService) GitDir() string {
	out, err := s.run(context.Background(), "rev-parse", "--absolute-git-dir")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// IsRepository reports whether the working copy is the top level of a
// repository. A subdirectory of some enclosing repository is not.
func (s *CLIService) IsRepository(ctx context.Context) (bool, error) {
	if _, err := os.Stat(s.root); err != nil {
		return false, fmt.Errorf("%w: %s", ErrNotADirectory, s.root)
	}
	out, err := s.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
			return false, nil
		}
		return false, err
	}
	return samePath(strings.TrimSpace(out), s.root), nil
}

func samePath(a, b string) bool {
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		ra = filepath.Clean(a)
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		rb = filepath.Clean(b)
	}
	return ra == rb
}

// ── Status & staging ────────────────────────────────────────────────────────

// Status returns the working tree status including the branch header.
func (s *CLIService) Status(ctx context.Context) (*StatusResult, error) {
	// --porcelain=v1 -z: machine-parseable, NUL-delimited.
	// -unormal only scans one level deep for untracked files.
	out, err := s.run(ctx, "status", "--porcelain=v1", "-z", "--branch",
		"--untracked-files=normal")
	if err != nil {
		if isNotARepo(err) {
			return nil, fmt.Errorf("%w: %w", ErrNotARepo, err)
		}
		return nil, fmt.Errorf("getting status: %w", err)
	}
	return ParseStatusOutput(out), nil
}

func isNotARepo(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) &&
		strings.Contains(strings.ToLower(cmdErr.Stderr), "not a git repository")
}

// Stage stages the given paths, including deletions.
func (s *CLIService) Stage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "-A", "--"}, paths...)
	_, err := s.runWrite(ctx, args...)
	return err
}

// Unstage removes the given paths from the index. `reset` also works on an
// unborn branch, where `restore --staged` does not.
func (s *CLIService) Unstage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"reset", "-q", "--"}, paths...)
	_, err := s.runWrite(ctx, args...)
	return err
}

// ── Diff & commit ───────────────────────────────────────────────────────────

// Diff returns the unified diff of one path. An unstaged untracked file is
// diffed against /dev/null so new files are not shown as empty.
func (s *CLIService) Diff(ctx context.Context, path string, staged bool) (string, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--", path)
	out, err := s.run(ctx, args...)
	if err != nil || out != "" || staged {
		return out, err
	}

	tracked, err := s.run(ctx, "ls-files", "--", path)
	if err != nil || strings.TrimSpace(tracked) != "" {
		return "", err
	}
	if info, statErr := os.Stat(filepath.Join(s.root, path)); statErr != nil || info.IsDir() {
		return "", nil
	}
	// --no-index exits 1 when the files differ.
	return runGit(ctx, invocation{
		dir:     s.root,
		env:     readEnv,
		timeout: s.cmdTimeout,
		args:    []string{"diff", "--no-color", "--no-ext-diff", "--no-index", "--", os.DevNull, path},
		okCodes: []int{1},
	})
}

// Commit records the index with message.
func (s *CLIService) Commit(ctx context.Context, message string) (CommitResult, error) {
	out, err := s.runWrite(ctx, "commit", "-m", message)
	if err != nil {
		return CommitResult{}, err
	}
	return ParseCommitOutput(out), nil
}

// ── Remotes ─────────────────────────────────────────────────────────────────

// Remotes returns all configured remotes.
func (s *CLIService) Remotes(ctx context.Context) ([]Remote, error) {
	out, err := s.run(ctx, "remote", "-v")
	if err != nil {
		return nil, err
	}
	return ParseRemoteOutput(out), nil
}

// AddRemote registers a remote.
func (s *CLIService) AddRemote(ctx context.Context, name, url string) error {
	_, err := s.runWrite(ctx, "remote", "add", name, url)
	return err
}

// SetUpstream configures localBranch to track remote/remoteBranch.
func (s *CLIService) SetUpstream(ctx context.Context, localBranch, remote, remoteBranch string) error {
	_, err := s.runWrite(ctx, "branch", "--set-upstream-to="+remote+"/"+remoteBranch, localBranch)
	return err
}

// Fetch fetches from remote and prunes deleted remote branches.
func (s *CLIService) Fetch(ctx context.Context, remote string, cred Credential) error {
	_, err := s.runNetwork(ctx, remote, cred, "fetch", "--prune", remote)
	return err
}

// Pull merges remote/branch into the current branch.
func (s *CLIService) Pull(ctx context.Context, remote, branch string, cred Credential) error {
	_, err := s.runNetwork(ctx, remote, cred, "pull", "--no-rebase", remote, branch)
	return err
}

// Push pushes branch to remote, optionally recording it as upstream.
func (s *CLIService) Push(ctx context.Context, remote, branch string, opts PushOptions) error {
	args := []string{"push"}
	if opts.SetUpstream {
		args = append(args, "--set-upstream")
	}
	args = append(args, remote, branch)
	_, err := s.runNetwork(ctx, remote, opts.Credential, args...)
	return err
}

// CompareRef counts commits unique to HEAD and to ref.
func (s *CLIService) CompareRef(ctx context.Context, ref string) (int, int, bool, error) {
	if _, err := s.run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}"); err != nil {
		return 0, 0, false, nil
	}
	if _, err := s.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		// Unborn HEAD: everything on ref is unseen.
		out, err := s.run(ctx, "rev-list", "--count", ref)
		if err != nil {
			return 0, 0, true, err
		}
		var behind int
		if _, err := fmt.Sscanf(strings.TrimSpace(out), "%d", &behind); err != nil {
			return 0, 0, true, fmt.Errorf("parsing rev-list count %q: %w", out, err)
		}
		return 0, behind, true, nil
	}
	out, err := s.run(ctx, "rev-list", "--left-right", "--count", "HEAD..."+ref)
	if err != nil {
		return 0, 0, true, err
	}
	ahead, behind, ok := ParseLeftRightCount(out)
	if !ok {
		return 0, 0, true, fmt.Errorf("unexpected rev-list output %q", out)
	}
	return ahead, behind, true, nil
}

// ── Setup ───────────────────────────────────────────────────────────────────

// Init creates a repository at the working copy with HEAD on defaultBranch.
func (s *CLIService) Init(ctx context.Context, defaultBranch string) error {
	if _, err := s.runWrite(ctx, "init", "-q"); err != nil {
		return err
	}
	if defaultBranch == "" {
		return nil
	}
	_, err := s.runWrite(ctx, "symbolic-ref", "HEAD", "refs/heads/"+defaultBranch)
	return err
}
