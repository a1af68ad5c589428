package reposync

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

// StagingManager adds paths to and removes paths from the index. It never
// touches the staged set; the session does that once the engine succeeds.
type StagingManager struct {
	eng    git.Service
	logger *log.Logger
}

// NewStagingManager returns a StagingManager.
func NewStagingManager(eng git.Service, logger *log.Logger) *StagingManager {
	return &StagingManager{eng: eng, logger: logger}
}

// CheckPaths rejects an empty selection.
func CheckPaths(op string, paths []string) error {
	if len(paths) == 0 {
		return syncerr.Validation(op, "No files selected.")
	}
	return nil
}

// Stage adds paths to the index.
func (m *StagingManager) Stage(ctx context.Context, paths []string) error {
	if err := CheckPaths("stage", paths); err != nil {
		return err
	}
	if err := m.eng.Stage(ctx, paths...); err != nil {
		return err
	}
	m.logger.Debug("staged", "count", len(paths))
	return nil
}

// Unstage removes paths from the index, keeping worktree changes.
func (m *StagingManager) Unstage(ctx context.Context, paths []string) error {
	if err := CheckPaths("unstage", paths); err != nil {
		return err
	}
	if err := m.eng.Unstage(ctx, paths...); err != nil {
		return err
	}
	m.logger.Debug("unstaged", "count", len(paths))
	return nil
}
