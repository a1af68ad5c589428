package reposync

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

// CommitExecutor validates and records a commit.
type CommitExecutor struct {
	eng    git.Service
	logger *log.Logger
}

// NewCommitExecutor returns a CommitExecutor.
func NewCommitExecutor(eng git.Service, logger *log.Logger) *CommitExecutor {
	return &CommitExecutor{eng: eng, logger: logger}
}

// CheckCommit validates the preconditions of a commit without touching the
// engine.
func CheckCommit(message string, stagedCount int) error {
	if strings.TrimSpace(message) == "" {
		return syncerr.Validation("commit", "Commit message is required.")
	}
	if stagedCount == 0 {
		return syncerr.New(syncerr.NothingToCommit, "commit", "No files staged for commit.")
	}
	return nil
}

// Commit records the index with message.
func (c *CommitExecutor) Commit(ctx context.Context, message string, stagedCount int) (git.CommitResult, error) {
	if err := CheckCommit(message, stagedCount); err != nil {
		return git.CommitResult{}, err
	}
	res, err := c.eng.Commit(ctx, strings.TrimSpace(message))
	if err != nil {
		return git.CommitResult{}, err
	}
	c.logger.Info("committed", "hash", res.Hash, "branch", res.Branch, "files", res.Changes)
	return res, nil
}
