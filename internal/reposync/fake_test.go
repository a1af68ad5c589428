package reposync

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/hosting"
)

type refCompare struct {
	ahead, behind int
}

// fakeEngine is a scripted git.Service that keeps just enough repository
// state for the state machines to be exercised without a git binary.
type fakeEngine struct {
	mu sync.Mutex

	root    string
	isRepo  bool
	branch  git.BranchInfo
	entries []git.FileStatus
	remotes []git.Remote
	diffs   map[string]string
	refs    map[string]refCompare
	errs    map[string]error
	calls   []string

	commitResult git.CommitResult
	lastPush     git.PushOptions
	lastPull     string

	// Hooks run without the fake's lock held.
	onFetch func()
	onPush  func()
}

var _ git.Service = (*fakeEngine)(nil)

func newFakeRepo(branch string) *fakeEngine {
	return &fakeEngine{
		root:   "/work/repo",
		isRepo: true,
		branch: git.BranchInfo{Head: branch},
		diffs:  map[string]string{},
		refs:   map[string]refCompare{},
		errs:   map[string]error{},
	}
}

func (f *fakeEngine) withOrigin() *fakeEngine {
	f.remotes = append(f.remotes, git.Remote{Name: "origin", FetchURL: "https://github.com/octo/app.git", PushURL: "https://github.com/octo/app.git"})
	return f
}

func (f *fakeEngine) tracking(ahead, behind int) *fakeEngine {
	f.branch.Upstream = "origin/" + f.branch.Head
	f.branch.Ahead, f.branch.Behind = ahead, behind
	return f
}

func (f *fakeEngine) record(name string) error {
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeEngine) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeEngine) setErr(name string, err error) {
	f.mu.Lock()
	f.errs[name] = err
	f.mu.Unlock()
}

func cmdErr(stderr string) error {
	return &git.CommandError{Args: []string{"x"}, Stderr: stderr, ExitCode: 1, Err: errors.New("exit status 1")}
}

func (f *fakeEngine) RepoRoot() string { return f.root }
func (f *fakeEngine) GitDir() string   { return f.root + "/.git" }

func (f *fakeEngine) IsRepository(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isRepo, f.record("isrepo")
}

func (f *fakeEngine) Status(context.Context) (*git.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("status"); err != nil {
		return nil, err
	}
	if !f.isRepo {
		return nil, git.ErrNotARepo
	}
	return &git.StatusResult{Branch: f.branch, Entries: append([]git.FileStatus(nil), f.entries...)}, nil
}

func (f *fakeEngine) Stage(_ context.Context, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("stage"); err != nil {
		return err
	}
	for i, e := range f.entries {
		if !contains(paths, e.Path) {
			continue
		}
		switch e.Worktree {
		case git.StatusUntracked:
			f.entries[i].Staging = git.StatusAdded
		case git.StatusUnmodified:
		default:
			f.entries[i].Staging = e.Worktree
		}
		f.entries[i].Worktree = git.StatusUnmodified
	}
	return nil
}

func (f *fakeEngine) Unstage(_ context.Context, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("unstage"); err != nil {
		return err
	}
	for i, e := range f.entries {
		if !contains(paths, e.Path) {
			continue
		}
		if e.Staging == git.StatusAdded {
			f.entries[i].Staging, f.entries[i].Worktree = git.StatusUntracked, git.StatusUntracked
			continue
		}
		f.entries[i].Worktree = e.Staging
		f.entries[i].Staging = git.StatusUnmodified
	}
	return nil
}

func (f *fakeEngine) Diff(_ context.Context, path string, staged bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("diff"); err != nil {
		return "", err
	}
	return f.diffs[diffKey(path, staged)], nil
}

func diffKey(path string, staged bool) string {
	if staged {
		return "staged:" + path
	}
	return "unstaged:" + path
}

func (f *fakeEngine) Commit(_ context.Context, message string) (git.CommitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("commit"); err != nil {
		return git.CommitResult{}, err
	}
	kept := f.entries[:0]
	for _, e := range f.entries {
		switch e.Staging {
		case git.StatusUnmodified, git.StatusUntracked:
			kept = append(kept, e)
		default:
			if e.Worktree != git.StatusUnmodified {
				e.Staging = git.StatusUnmodified
				kept = append(kept, e)
			}
		}
	}
	f.entries = kept
	f.branch.NoCommits = false
	if f.branch.Upstream != "" {
		f.branch.Ahead++
	}
	res := f.commitResult
	res.Branch = f.branch.Head
	return res, nil
}

func (f *fakeEngine) Remotes(context.Context) ([]git.Remote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]git.Remote(nil), f.remotes...), f.record("remotes")
}

func (f *fakeEngine) AddRemote(_ context.Context, name, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("addremote"); err != nil {
		return err
	}
	if _, ok := git.FindRemote(f.remotes, name); ok {
		return cmdErr("error: remote " + name + " already exists.")
	}
	f.remotes = append(f.remotes, git.Remote{Name: name, FetchURL: url, PushURL: url})
	return nil
}

func (f *fakeEngine) SetUpstream(_ context.Context, localBranch, remote, remoteBranch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("setupstream"); err != nil {
		return err
	}
	if localBranch == f.branch.Head {
		f.branch.Upstream = remote + "/" + remoteBranch
	}
	return nil
}

func (f *fakeEngine) Fetch(context.Context, string, git.Credential) error {
	f.mu.Lock()
	err := f.record("fetch")
	hook := f.onFetch
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeEngine) Pull(_ context.Context, _ string, branch string, _ git.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("pull"); err != nil {
		return err
	}
	f.lastPull = branch
	f.branch.Behind = 0
	return nil
}

func (f *fakeEngine) Push(_ context.Context, remote, branch string, opts git.PushOptions) error {
	f.mu.Lock()
	err := f.record("push")
	f.lastPush = opts
	hook := f.onPush
	if err == nil {
		if opts.SetUpstream {
			f.branch.Upstream = remote + "/" + branch
		}
		f.branch.Ahead = 0
	}
	f.mu.Unlock()
	if err == nil && hook != nil {
		hook()
	}
	return err
}

func (f *fakeEngine) CompareRef(_ context.Context, ref string) (int, int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("compare"); err != nil {
		return 0, 0, false, err
	}
	c, ok := f.refs[ref]
	return c.ahead, c.behind, ok, nil
}

func (f *fakeEngine) Init(_ context.Context, defaultBranch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("init"); err != nil {
		return err
	}
	f.isRepo = true
	f.branch = git.BranchInfo{Head: defaultBranch, NoCommits: true}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fakeHosting is a scripted HostingClient.
type fakeHosting struct {
	repos     []hosting.RepoDescriptor
	created   []string
	createErr error
	listErr   error
}

func (h *fakeHosting) ListRepositories(_ context.Context, token string) ([]hosting.RepoDescriptor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, hosting.ErrCredentialRequired
	}
	return h.repos, h.listErr
}

func (h *fakeHosting) CreateRepository(_ context.Context, token, name string, private bool) (hosting.RepoDescriptor, error) {
	if strings.TrimSpace(token) == "" {
		return hosting.RepoDescriptor{}, hosting.ErrCredentialRequired
	}
	if h.createErr != nil {
		return hosting.RepoDescriptor{}, h.createErr
	}
	h.created = append(h.created, name)
	return hosting.RepoDescriptor{
		ID:       42,
		Name:     name,
		FullName: "octo/" + name,
		CloneURL: "https://github.com/octo/" + name + ".git",
		Private:  private,
	}, nil
}
