package reposync

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/hosting"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/logging"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

// OpClass groups operations that may not run concurrently. Fetch, pull and
// push share one class.
type OpClass string

// Operation classes.
const (
	ClassRemoteSync OpClass = "remote sync"
	ClassStaging    OpClass = "staging"
	ClassCommit     OpClass = "commit"
	ClassSetup      OpClass = "setup"
)

// ErrorSlot is where the last failure of an operation is kept.
type ErrorSlot string

// Error slots. Setup failures are shown in the setup flow, everything else
// in the general slot.
const (
	SlotGeneral ErrorSlot = "general"
	SlotSetup   ErrorSlot = "setup"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session closed")

// errStale is returned by refresh when the folder changed underneath it.
var errStale = errors.New("folder changed during operation")

// Opener binds an engine to a working-copy path.
type Opener func(path string) (git.Service, error)

// DiffSelection is the file whose diff is being shown.
type DiffSelection struct {
	Path   string `json:"path" yaml:"path"`
	Staged bool   `json:"staged" yaml:"staged"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

// WithHosting sets the hosting client used by the provisioning flow.
func WithHosting(h HostingClient) Option { return func(s *Session) { s.host = h } }

// WithRemoteName sets the remote the session reasons about.
func WithRemoteName(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.remoteName = name
		}
	}
}

// WithDefaultBranch sets the branch used by init and upstream linkage.
func WithDefaultBranch(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.defaultBranch = name
		}
	}
}

// WithOnSnapshot registers a callback run after every published snapshot.
// It is called without the session lock held.
func WithOnSnapshot(fn func(Snapshot)) Option { return func(s *Session) { s.onSnapshot = fn } }

// Session owns the authoritative snapshot of one working copy and wraps
// every operation in the same envelope: clear the error slot, take the
// operation class, run, refresh, classify.
type Session struct {
	opener        Opener
	host          HostingClient
	remoteName    string
	defaultBranch string
	logger        *log.Logger
	onSnapshot    func(Snapshot)

	mu          sync.Mutex
	closed      bool
	gen         uint64 // Bumped on folder change; stale results are dropped.
	path        string
	eng         git.Service
	snapshot    Snapshot
	hasSnapshot bool
	staged      map[string]struct{}
	commitMsg   string
	selection   *DiffSelection
	diff        *DiffHunk
	errs        map[ErrorSlot]*syncerr.SyncError
	inFlight    map[OpClass]bool
}

// NewSession opens path with opener. Call Refresh to load the first
// snapshot.
func NewSession(path string, opener Opener, opts ...Option) (*Session, error) {
	s := &Session{
		opener:        opener,
		remoteName:    "origin",
		defaultBranch: "main",
		logger:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	eng, err := opener(path)
	if err != nil {
		return nil, err
	}
	s.reset(path, eng)
	return s, nil
}

// reset discards all in-memory state. Callers hold mu or own s exclusively.
func (s *Session) reset(path string, eng git.Service) {
	s.gen++
	s.path = path
	s.eng = eng
	s.snapshot = Snapshot{}
	s.hasSnapshot = false
	s.staged = map[string]struct{}{}
	s.commitMsg = ""
	s.selection = nil
	s.diff = nil
	s.errs = map[ErrorSlot]*syncerr.SyncError{}
	s.inFlight = map[OpClass]bool{}
}

// ── envelope ────────────────────────────────────────────────────────────────

// opDef describes one enveloped operation.
type opDef struct {
	name      string
	class     OpClass
	slot      ErrorSlot
	noRefresh bool // Read-only operations skip the trailing refresh.
}

// opState is what an operation sees: the engine and status captured when
// it started.
type opState struct {
	eng    git.Service
	status RepoStatus
	snap   Snapshot
	gen    uint64
	staged int
}

// run executes fn inside the envelope. validate runs first against the
// current snapshot; a failure there is stored and returned without any
// engine call or refresh.
func (s *Session) run(ctx context.Context, op opDef, validate func(opState) error, fn func(context.Context, opState) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	delete(s.errs, op.slot)
	if s.inFlight[op.class] {
		se := syncerr.Validation(op.name, "Another "+string(op.class)+" operation is in progress.")
		s.errs[op.slot] = se
		s.mu.Unlock()
		return se
	}
	st := opState{
		eng:    s.eng,
		status: s.snapshot.Status,
		snap:   s.snapshot,
		gen:    s.gen,
		staged: len(s.staged),
	}
	if validate != nil {
		if err := validate(st); err != nil {
			se := syncerr.Classify(op.name, err)
			s.errs[op.slot] = se
			s.mu.Unlock()
			return se
		}
	}
	s.inFlight[op.class] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.gen == st.gen {
			delete(s.inFlight, op.class)
		}
		s.mu.Unlock()
	}()

	err := fn(ctx, st)
	if !op.noRefresh {
		if _, rerr := s.refresh(ctx, st.gen); rerr != nil {
			s.logger.Warn("refresh after operation failed", "op", op.name, "err", rerr)
		}
	}
	if err == nil {
		return nil
	}

	se := syncerr.Classify(op.name, err)
	s.mu.Lock()
	if s.gen == st.gen {
		s.errs[op.slot] = se
	}
	s.mu.Unlock()
	s.logger.Error("operation failed", "op", op.name, "kind", se.Kind, "err", se.Message)
	return se
}

// ── snapshot ────────────────────────────────────────────────────────────────

type invalidator interface{ Invalidate() }

// Refresh re-derives the snapshot from the engine, dropping any cached
// reads first.
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	gen, eng := s.gen, s.eng
	s.mu.Unlock()

	if c, ok := eng.(invalidator); ok {
		c.Invalidate()
	}
	snap, err := s.refresh(ctx, gen)
	if err != nil {
		se := syncerr.Classify("status", err)
		s.mu.Lock()
		if s.gen == gen {
			s.errs[SlotGeneral] = se
		}
		s.mu.Unlock()
		return Snapshot{}, se
	}
	return snap, nil
}

// refresh normalizes and publishes a snapshot for generation gen. The
// staged set is replaced wholesale from the new status.
func (s *Session) refresh(ctx context.Context, gen uint64) (Snapshot, error) {
	s.mu.Lock()
	if s.gen != gen || s.eng == nil {
		s.mu.Unlock()
		return Snapshot{}, errStale
	}
	eng := s.eng
	s.mu.Unlock()

	snap, err := Normalizer{RemoteName: s.remoteName}.Normalize(ctx, eng)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return snap, nil
	}
	s.snapshot = snap
	s.hasSnapshot = true
	s.staged = make(map[string]struct{}, len(snap.Status.Files))
	for _, p := range snap.Status.StagedPaths() {
		s.staged[p] = struct{}{}
	}
	cb := s.onSnapshot
	s.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
	return snap, nil
}

// Snapshot returns the last published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Loaded reports whether a snapshot has been published since the last
// folder change.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSnapshot
}

// StagedSet returns the sorted staged paths.
func (s *Session) StagedSet() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.staged))
	for p := range s.staged {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NeedsSetup reports whether the setup flow should be offered.
func (s *Session) NeedsSetup() bool {
	switch SetupStateOf(s.Snapshot()) {
	case SetupNoRepo, SetupRepoNoRemote:
		return true
	}
	return false
}

// Path returns the working-copy path.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Engine returns the engine bound to the current folder.
func (s *Session) Engine() git.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng
}

// IsRepository reports whether the working copy is a repository.
func (s *Session) IsRepository(ctx context.Context) (bool, error) {
	ok, err := s.Engine().IsRepository(ctx)
	if err != nil {
		return false, syncerr.Classify("is repository", err)
	}
	return ok, nil
}

// LastError returns the failure stored in slot, if any.
func (s *Session) LastError(slot ErrorSlot) *syncerr.SyncError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[slot]
}

// ClearError empties slot.
func (s *Session) ClearError(slot ErrorSlot) {
	s.mu.Lock()
	delete(s.errs, slot)
	s.mu.Unlock()
}

// InFlight reports whether an operation of class is running.
func (s *Session) InFlight(class OpClass) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[class]
}

// ChangeFolder discards all in-memory state and binds the session to path.
// Results of operations still running against the old folder are dropped.
func (s *Session) ChangeFolder(path string) error {
	eng, err := s.opener(path)
	if err != nil {
		return syncerr.Classify("open", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.reset(path, eng)
	s.logger.Info("folder changed", "path", path)
	return nil
}

// Close discards all state. Later operations return ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.reset("", nil)
	s.closed = true
	return nil
}

// ── staging ─────────────────────────────────────────────────────────────────

// Stage stages paths. The staged set is updated once the engine succeeds
// and is then replaced by the refresh.
func (s *Session) Stage(ctx context.Context, paths ...string) error {
	return s.stageOp(ctx, "stage", paths, false, true)
}

// Unstage unstages paths.
func (s *Session) Unstage(ctx context.Context, paths ...string) error {
	return s.stageOp(ctx, "unstage", paths, false, false)
}

// StageAll stages every path with worktree changes.
func (s *Session) StageAll(ctx context.Context) error {
	return s.stageOp(ctx, "stage all", nil, true, true)
}

// UnstageAll unstages every staged path.
func (s *Session) UnstageAll(ctx context.Context) error {
	return s.stageOp(ctx, "unstage all", nil, true, false)
}

// stageOp stages or unstages paths. With all set the paths are derived
// from the snapshot when the operation starts.
func (s *Session) stageOp(ctx context.Context, name string, paths []string, all, stage bool) error {
	op := opDef{name: name, class: ClassStaging, slot: SlotGeneral}
	validate := func(st opState) error {
		if all {
			if stage {
				paths = st.status.UnstagedPaths()
			} else {
				paths = st.status.StagedPaths()
			}
		}
		return CheckPaths(name, paths)
	}
	return s.run(ctx, op, validate, func(ctx context.Context, st opState) error {
		m := NewStagingManager(st.eng, s.logger)
		var err error
		if stage {
			err = m.Stage(ctx, paths)
		} else {
			err = m.Unstage(ctx, paths)
		}
		if err != nil {
			return err
		}
		s.applyStaged(st.gen, paths, stage)
		return nil
	})
}

func (s *Session) applyStaged(gen uint64, paths []string, stage bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	for _, p := range paths {
		if stage {
			s.staged[p] = struct{}{}
		} else {
			delete(s.staged, p)
		}
		if s.selection != nil && s.selection.Path == p {
			s.selection.Staged = stage
			s.diff = nil
		}
	}
}

// ── diff ────────────────────────────────────────────────────────────────────

// Diff retrieves the diff of path and makes it the current selection.
func (s *Session) Diff(ctx context.Context, path string, staged bool) (DiffHunk, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return DiffHunk{}, ErrSessionClosed
	}
	eng, gen := s.eng, s.gen
	delete(s.errs, SlotGeneral)
	s.mu.Unlock()

	hunk, err := NewDiffRetriever(eng).Get(ctx, path, staged)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		se := syncerr.Classify("diff", err)
		if s.gen == gen {
			s.errs[SlotGeneral] = se
		}
		return DiffHunk{}, se
	}
	if s.gen == gen {
		s.selection = &DiffSelection{Path: path, Staged: staged}
		s.diff = &hunk
	}
	return hunk, nil
}

// Selection returns the current diff selection and its hunk, if loaded.
func (s *Session) Selection() (*DiffSelection, *DiffHunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return nil, nil
	}
	sel := *s.selection
	if s.diff == nil {
		return &sel, nil
	}
	h := *s.diff
	return &sel, &h
}

// ClearSelection drops the current diff selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selection, s.diff = nil, nil
	s.mu.Unlock()
}

// ── commit ──────────────────────────────────────────────────────────────────

// SetCommitMessage sets the pending commit message.
func (s *Session) SetCommitMessage(msg string) {
	s.mu.Lock()
	s.commitMsg = msg
	s.mu.Unlock()
}

// CommitMessage returns the pending commit message.
func (s *Session) CommitMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitMsg
}

// Commit commits the staged changes with the pending message. On success
// the message and the diff selection are cleared.
func (s *Session) Commit(ctx context.Context) (git.CommitResult, error) {
	var (
		res git.CommitResult
		msg string
	)
	op := opDef{name: "commit", class: ClassCommit, slot: SlotGeneral}
	validate := func(st opState) error {
		msg = s.commitMsg
		return CheckCommit(msg, st.staged)
	}
	err := s.run(ctx, op, validate, func(ctx context.Context, st opState) error {
		var err error
		res, err = NewCommitExecutor(st.eng, s.logger).Commit(ctx, msg, st.staged)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if s.gen == st.gen {
			s.commitMsg = ""
			s.selection, s.diff = nil, nil
		}
		s.mu.Unlock()
		return nil
	})
	return res, err
}

// ── remote sync ─────────────────────────────────────────────────────────────

func (s *Session) remoteSync(eng git.Service) *RemoteSync {
	return NewRemoteSync(eng, s.remoteName, s.logger)
}

// Fetch updates remote-tracking refs. cred applies to HTTPS remotes only.
func (s *Session) Fetch(ctx context.Context, cred git.Credential) error {
	op := opDef{name: "fetch", class: ClassRemoteSync, slot: SlotGeneral}
	return s.run(ctx, op,
		func(st opState) error { return s.remoteSync(st.eng).CheckFetch(st.status) },
		func(ctx context.Context, st opState) error {
			return s.remoteSync(st.eng).Fetch(ctx, st.status, cred)
		})
}

// Pull merges the remote branch named like the current branch, then reports
// whether tracking is established.
func (s *Session) Pull(ctx context.Context, cred git.Credential) error {
	op := opDef{name: "pull", class: ClassRemoteSync, slot: SlotGeneral}
	var before RepoStatus
	err := s.run(ctx, op,
		func(st opState) error {
			before = st.status
			return s.remoteSync(st.eng).CheckPull(st.status)
		},
		func(ctx context.Context, st opState) error {
			if err := s.remoteSync(st.eng).Pull(ctx, st.status, cred); err != nil {
				return err
			}
			s.mu.Lock()
			if s.gen == st.gen {
				s.selection, s.diff = nil, nil
			}
			s.mu.Unlock()
			return nil
		})
	if err != nil {
		return err
	}

	after := s.Snapshot().Status
	switch {
	case !before.HasTracking() && after.HasTracking():
		s.logger.Info("tracking established", "branch", after.CurrentBranch, "upstream", after.TrackingBranch)
	case before.HasTracking() && !after.HasTracking():
		s.logger.Warn("tracking lost after pull", "branch", after.CurrentBranch)
	case !after.HasTracking():
		s.logger.Info("pulled without tracking; publish or set upstream to track", "branch", after.CurrentBranch)
	}
	return nil
}

// PushOrPublish pushes a tracked branch or publishes an untracked one.
func (s *Session) PushOrPublish(ctx context.Context, cred git.Credential) (PushOutcome, error) {
	var out PushOutcome
	op := opDef{name: "push", class: ClassRemoteSync, slot: SlotGeneral}
	err := s.run(ctx, op,
		func(st opState) error { return s.remoteSync(st.eng).CheckPush(st.status) },
		func(ctx context.Context, st opState) error {
			refresh := func(ctx context.Context) (Snapshot, error) { return s.refresh(ctx, st.gen) }
			var err error
			out, err = s.remoteSync(st.eng).PushOrPublish(ctx, st.status, cred, refresh)
			return err
		})
	return out, err
}

// ── provisioning ────────────────────────────────────────────────────────────

func (s *Session) provisioner(eng git.Service) *Provisioner {
	return NewProvisioner(eng, s.host, s.remoteName, s.defaultBranch, s.logger)
}

// Init creates a repository in the working copy.
func (s *Session) Init(ctx context.Context) error {
	op := opDef{name: "init", class: ClassSetup, slot: SlotSetup}
	return s.run(ctx, op,
		func(st opState) error {
			if s.hasSnapshot && !st.snap.NotARepository {
				return syncerr.Validation("init", "Folder is already a Git repository.")
			}
			return nil
		},
		func(ctx context.Context, st opState) error { return s.provisioner(st.eng).Init(ctx) })
}

// AddRemote registers a remote.
func (s *Session) AddRemote(ctx context.Context, name, url string) error {
	op := opDef{name: "add remote", class: ClassSetup, slot: SlotSetup}
	return s.run(ctx, op,
		func(opState) error { return CheckRemote(name, url) },
		func(ctx context.Context, st opState) error { return s.provisioner(st.eng).AddRemote(ctx, name, url) })
}

// SetUpstream configures tracking for localBranch.
func (s *Session) SetUpstream(ctx context.Context, localBranch, remote, remoteBranch string) error {
	op := opDef{name: "set upstream", class: ClassSetup, slot: SlotSetup}
	return s.run(ctx, op,
		func(opState) error { return CheckUpstream(localBranch, remote, remoteBranch) },
		func(ctx context.Context, st opState) error {
			return s.provisioner(st.eng).SetUpstream(ctx, localBranch, remote, remoteBranch)
		})
}

// LinkExisting links an existing hosted repository by clone URL.
func (s *Session) LinkExisting(ctx context.Context, url string) (LinkResult, error) {
	var res LinkResult
	op := opDef{name: "link", class: ClassSetup, slot: SlotSetup}
	err := s.run(ctx, op,
		func(opState) error { return CheckRemote(s.remoteName, url) },
		func(ctx context.Context, st opState) error {
			var err error
			res, err = s.provisioner(st.eng).LinkExisting(ctx, url)
			return err
		})
	return res, err
}

// CreateAndLink creates a hosted repository and links it.
func (s *Session) CreateAndLink(ctx context.Context, cred git.Credential, name string, private bool) (LinkResult, error) {
	var res LinkResult
	op := opDef{name: "create repository", class: ClassSetup, slot: SlotSetup}
	err := s.run(ctx, op,
		func(opState) error { return CheckCreate(name) },
		func(ctx context.Context, st opState) error {
			var err error
			res, err = s.provisioner(st.eng).CreateAndLink(ctx, cred, name, private)
			return err
		})
	return res, err
}

// ListHostedRepos lists repositories available for linking.
func (s *Session) ListHostedRepos(ctx context.Context, cred git.Credential) ([]hosting.RepoDescriptor, error) {
	var repos []hosting.RepoDescriptor
	op := opDef{name: "list repositories", class: ClassSetup, slot: SlotSetup, noRefresh: true}
	err := s.run(ctx, op, nil, func(ctx context.Context, st opState) error {
		var err error
		repos, err = s.provisioner(st.eng).ListHosted(ctx, cred)
		return err
	})
	return repos, err
}
