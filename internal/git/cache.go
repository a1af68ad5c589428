package git

import (
	"context"
	"sync"
	"time"
)

// CachedService wraps a Service implementation with a TTL-based cache for
// read operations. Every write operation invalidates the cache whether it
// succeeded or not, because a failed pull or push can still move refs or
// touch the index, and the refresh that follows must see the engine's truth.
//
// Within one refresh cycle the normalizer asks for IsRepository, Status and
// Remotes, and the watcher may fire while a refresh is already in flight.
// The cache keeps that to one git process per query.
//
// The cache is bounded by maxCacheEntries to prevent unbounded memory
// growth across long-running sessions (diffs are keyed per path).
type CachedService struct {
	inner Service
	ttl   time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// maxCacheEntries caps the number of entries in the cache. When exceeded,
// the entire cache is flushed.
const maxCacheEntries = 64

type cacheEntry struct {
	val    any
	err    error
	expiry time.Time
}

// Compile-time check.
var _ Service = (*CachedService)(nil)

// NewCachedService wraps an existing Service with a TTL cache.
// A TTL of 1-2 seconds covers a single refresh cycle.
func NewCachedService(inner Service, ttl time.Duration) *CachedService {
	return &CachedService{
		inner: inner,
		ttl:   ttl,
		cache: make(map[string]cacheEntry, 16),
	}
}

// Invalidate clears all cached entries. Called after any write operation
// and by the filesystem watcher.
func (c *CachedService) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cacheEntry, 16)
	c.mu.Unlock()
}

func (c *CachedService) get(key string) (val any, ok bool, err error) {
	if c.ttl <= 0 {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.cache[key]
	if !found || time.Now().After(e.expiry) {
		return nil, false, nil
	}
	return e.val, true, e.err
}

func (c *CachedService) set(key string, val any, err error) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	// Evict expired entries if the cache is getting large.
	if len(c.cache) >= maxCacheEntries {
		now := time.Now()
		for k, e := range c.cache {
			if now.After(e.expiry) {
				delete(c.cache, k)
			}
		}
		// If still over limit after eviction, flush entirely.
		if len(c.cache) >= maxCacheEntries {
			c.cache = make(map[string]cacheEntry, 16)
		}
	}
	c.cache[key] = cacheEntry{val: val, err: err, expiry: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// cached runs load unless a fresh entry for key exists. Context
// cancellations are never cached.
func cached[T any](c *CachedService, ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok, err := c.get(key); ok {
		return v.(T), err
	}
	v, err := load(ctx)
	if ctx.Err() == nil {
		c.set(key, v, err)
	}
	return v, err
}

// invalidateAndReturn is a helper for write methods.
func (c *CachedService) invalidateAndReturn(err error) error {
	c.Invalidate()
	return err
}

// ── Repository info (cached reads) ──────────────────────────────────────────

// RepoRoot delegates to the inner service.
func (c *CachedService) RepoRoot() string { return c.inner.RepoRoot() }

// GitDir delegates to the inner service (cached).
func (c *CachedService) GitDir() string {
	v, _ := cached(c, context.Background(), "gitdir", func(context.Context) (string, error) {
		return c.inner.GitDir(), nil
	})
	return v
}

// IsRepository delegates to the inner service (cached).
func (c *CachedService) IsRepository(ctx context.Context) (bool, error) {
	return cached(c, ctx, "isrepo", c.inner.IsRepository)
}

// Status returns the working tree status (cached).
func (c *CachedService) Status(ctx context.Context) (*StatusResult, error) {
	return cached(c, ctx, "status", c.inner.Status)
}

// Remotes returns configured remotes (cached).
func (c *CachedService) Remotes(ctx context.Context) ([]Remote, error) {
	return cached(c, ctx, "remotes", c.inner.Remotes)
}

// Diff returns the diff of one path (cached per path and side).
func (c *CachedService) Diff(ctx context.Context, path string, staged bool) (string, error) {
	key := "diff:unstaged:" + path
	if staged {
		key = "diff:staged:" + path
	}
	return cached(c, ctx, key, func(ctx context.Context) (string, error) {
		return c.inner.Diff(ctx, path, staged)
	})
}

type refComparison struct {
	ahead, behind int
	found         bool
}

// CompareRef delegates to the inner service (cached per ref).
func (c *CachedService) CompareRef(ctx context.Context, ref string) (int, int, bool, error) {
	v, err := cached(c, ctx, "cmp:"+ref, func(ctx context.Context) (refComparison, error) {
		a, b, found, err := c.inner.CompareRef(ctx, ref)
		return refComparison{a, b, found}, err
	})
	return v.ahead, v.behind, v.found, err
}

// ── Writes (always invalidate) ──────────────────────────────────────────────

// Stage delegates and invalidates.
func (c *CachedService) Stage(ctx context.Context, paths ...string) error {
	return c.invalidateAndReturn(c.inner.Stage(ctx, paths...))
}

// Unstage delegates and invalidates.
func (c *CachedService) Unstage(ctx context.Context, paths ...string) error {
	return c.invalidateAndReturn(c.inner.Unstage(ctx, paths...))
}

// Commit delegates and invalidates.
func (c *CachedService) Commit(ctx context.Context, message string) (CommitResult, error) {
	res, err := c.inner.Commit(ctx, message)
	return res, c.invalidateAndReturn(err)
}

// AddRemote delegates and invalidates.
func (c *CachedService) AddRemote(ctx context.Context, name, url string) error {
	return c.invalidateAndReturn(c.inner.AddRemote(ctx, name, url))
}

// SetUpstream delegates and invalidates.
func (c *CachedService) SetUpstream(ctx context.Context, localBranch, remote, remoteBranch string) error {
	return c.invalidateAndReturn(c.inner.SetUpstream(ctx, localBranch, remote, remoteBranch))
}

// Fetch delegates and invalidates.
func (c *CachedService) Fetch(ctx context.Context, remote string, cred Credential) error {
	return c.invalidateAndReturn(c.inner.Fetch(ctx, remote, cred))
}

// Pull delegates and invalidates.
func (c *CachedService) Pull(ctx context.Context, remote, branch string, cred Credential) error {
	return c.invalidateAndReturn(c.inner.Pull(ctx, remote, branch, cred))
}

// Push delegates and invalidates.
func (c *CachedService) Push(ctx context.Context, remote, branch string, opts PushOptions) error {
	return c.invalidateAndReturn(c.inner.Push(ctx, remote, branch, opts))
}

// Init delegates and invalidates.
func (c *CachedService) Init(ctx context.Context, defaultBranch string) error {
	return c.invalidateAndReturn(c.inner.Init(ctx, defaultBranch))
}
