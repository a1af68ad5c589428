// Package watcher turns changes to a repository's internal state into
// refresh requests. Only the .git directory is watched, never the working
// tree: the index, HEAD, FETCH_HEAD, MERGE_HEAD and the refs directories
// change on every operation that can alter the sync status, and watching
// them keeps the inotify budget independent of repository size.
//
// Worktree edits that never touch the index are picked up by the next
// explicit refresh.
package watcher

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Event is sent after a debounced burst of relevant changes. Path is the
// last file that changed in the burst.
type Event struct {
	Path string
}

// Watch monitors gitDir and sends an Event after every debounced burst of
// changes. gitDir must be the resolved git directory (for linked worktrees
// .git is a file pointing elsewhere). Call stop to tear the watcher down;
// the channel is closed afterwards.
func Watch(gitDir string, debounce time.Duration) (<-chan Event, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	for _, t := range targets(gitDir) {
		// Directories that do not exist yet (refs/remotes before the first
		// fetch) are skipped; the parent still reports their creation.
		_ = w.Add(t)
	}

	ch := make(chan Event, 1)
	done := make(chan struct{})

	// Jitter spreads the refresh load when several processes watch the
	// same repository.
	jitterRange := int64(debounce / 2)

	go func() {
		defer close(ch)
		var (
			timer *time.Timer
			last  string
		)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if shouldIgnore(ev.Name) {
					continue
				}
				last = ev.Name
				d := debounce
				if jitterRange > 0 {
					d += time.Duration(rand.Int63n(jitterRange))
				}
				if timer == nil {
					timer = time.NewTimer(d)
				} else {
					timer.Reset(d)
				}
			case <-timerChan(timer):
				timer = nil
				select {
				case ch <- Event{Path: last}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		_ = w.Close()
	}
	return ch, stop, nil
}

// Run watches gitDir until ctx is done, calling refresh after every burst.
// Refresh failures are logged and do not stop the watch.
func Run(ctx context.Context, gitDir string, debounce time.Duration, logger *log.Logger, refresh func(context.Context) error) error {
	events, stop, err := Watch(gitDir, debounce)
	if err != nil {
		return err
	}
	defer stop()

	logger.Info("watching", "dir", gitDir, "debounce", debounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			logger.Debug("repository changed", "path", ev.Path)
			if err := refresh(ctx); err != nil {
				logger.Warn("refresh failed", "err", err)
			}
		}
	}
}

func targets(gitDir string) []string {
	out := []string{
		gitDir, // HEAD, index, FETCH_HEAD, MERGE_HEAD, packed-refs
		filepath.Join(gitDir, "refs"),
		filepath.Join(gitDir, "refs", "heads"),
	}
	remotes := filepath.Join(gitDir, "refs", "remotes")
	if info, err := os.Stat(remotes); err == nil && info.IsDir() {
		out = append(out, remotes)
		// One level deep: refs/remotes/<name>.
		if entries, err := os.ReadDir(remotes); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					out = append(out, filepath.Join(remotes, e.Name()))
				}
			}
		}
	}
	return out
}

func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// shouldIgnore reports whether a change must not trigger a refresh.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)

	// Lock files appear while git itself is mid-operation; refreshing then
	// would race the lock holder.
	if strings.HasSuffix(base, ".lock") {
		return true
	}
	if strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".swo") ||
		strings.HasSuffix(base, "~") || strings.HasPrefix(base, ".#") {
		return true
	}
	switch base {
	case "COMMIT_EDITMSG", "gc.log", "ORIG_HEAD":
		return true
	}
	return strings.HasPrefix(base, "fsmonitor") || strings.HasPrefix(base, "tmp_obj_")
}
