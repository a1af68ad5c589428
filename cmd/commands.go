package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/reposync"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/ui"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/watcher"
)

// statusReport is the structured form of `zgs status`.
type statusReport struct {
	reposync.Snapshot `yaml:",inline"`
	Setup             reposync.SetupState `json:"setupState" yaml:"setupState"`
	NeedsSetup        bool                `json:"needsSetup" yaml:"needsSetup"`
}

func (c *cli) printStatus(cmd *cobra.Command, snap reposync.Snapshot) error {
	report := statusReport{Snapshot: snap, Setup: reposync.SetupStateOf(snap), NeedsSetup: c.session.NeedsSetup()}
	return c.emit(cmd.OutOrStdout(), report, func() string { return ui.RenderStatus(c.styles, snap) })
}

// load publishes the first snapshot; every operation validates against it.
func (c *cli) load(ctx context.Context) (reposync.Snapshot, error) {
	return c.session.Refresh(ctx)
}

// spin runs fn behind a spinner on stderr.
func (c *cli) spin(cmd *cobra.Command, title string, fn func(context.Context) error) error {
	return ui.RunWithSpinner(cmd.Context(), cmd.ErrOrStderr(), c.styles, title, fn)
}

func buildStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show branch, tracking, remote and changed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := c.load(cmd.Context())
			if err != nil {
				return err
			}
			return c.printStatus(cmd, snap)
		},
	}
}

func buildDiffCmd(c *cli) *cobra.Command {
	var staged bool
	cmd := &cobra.Command{
		Use:   "diff <path>",
		Short: "Show the old and new text of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hunk, err := c.session.Diff(cmd.Context(), args[0], staged)
			if err != nil {
				return err
			}
			return c.emit(cmd.OutOrStdout(), hunk, func() string {
				return ui.RenderDiff(c.styles, hunk, terminalWidth())
			})
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "Diff the index against HEAD instead of the worktree against the index")
	return cmd
}

func buildStageCmd(c *cli, stage bool) *cobra.Command {
	var all bool
	use, short := "stage [paths...]", "Stage paths"
	if !stage {
		use, short = "unstage [paths...]", "Unstage paths, keeping worktree changes"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.load(ctx); err != nil {
				return err
			}
			var err error
			switch {
			case stage && all:
				err = c.session.StageAll(ctx)
			case stage:
				err = c.session.Stage(ctx, args...)
			case all:
				err = c.session.UnstageAll(ctx)
			default:
				err = c.session.Unstage(ctx, args...)
			}
			if err != nil {
				return err
			}
			return c.printStatus(cmd, c.session.Snapshot())
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "A", false, "Apply to every eligible path")
	return cmd
}

func buildCommitCmd(c *cli) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit the staged changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := c.load(ctx); err != nil {
				return err
			}
			c.session.SetCommitMessage(message)
			res, err := c.session.Commit(ctx)
			if err != nil {
				return err
			}
			return c.emit(cmd.OutOrStdout(), res, func() string { return ui.RenderCommit(c.styles, res) })
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	return cmd
}

func buildFetchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Update remote-tracking refs from the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			cred := c.credential()
			if err := c.spin(cmd, "Fetching…", func(ctx context.Context) error { return c.session.Fetch(ctx, cred) }); err != nil {
				return err
			}
			return c.printStatus(cmd, c.session.Snapshot())
		},
	}
}

func buildPullCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge the remote branch named like the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			cred := c.credential()
			if err := c.spin(cmd, "Pulling…", func(ctx context.Context) error { return c.session.Pull(ctx, cred) }); err != nil {
				return err
			}
			return c.printStatus(cmd, c.session.Snapshot())
		},
	}
}

func buildPushCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push the current branch, or publish it if it has no upstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			cred := c.credential()
			var out reposync.PushOutcome
			err := c.spin(cmd, "Pushing…", func(ctx context.Context) error {
				var err error
				out, err = c.session.PushOrPublish(ctx, cred)
				return err
			})
			if err != nil {
				return err
			}
			return c.emit(cmd.OutOrStdout(), out, func() string { return ui.RenderPush(c.styles, out) })
		},
	}
}

func buildSetUpstreamCmd(c *cli) *cobra.Command {
	var local, remote, branch string
	cmd := &cobra.Command{
		Use:   "set-upstream",
		Short: "Make a local branch track a remote branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			snap, err := c.load(ctx)
			if err != nil {
				return err
			}
			if local == "" {
				local = snap.Status.CurrentBranch
			}
			if remote == "" {
				remote = c.cfg.RemoteName
			}
			if branch == "" {
				branch = local
			}
			if err := c.session.SetUpstream(ctx, local, remote, branch); err != nil {
				return err
			}
			return c.printStatus(cmd, c.session.Snapshot())
		},
	}
	cmd.Flags().StringVar(&local, "local", "", "Local branch (default: current branch)")
	cmd.Flags().StringVar(&remote, "remote", "", "Remote name (default: remote_name from config)")
	cmd.Flags().StringVar(&branch, "branch", "", "Remote branch (default: same as local)")
	return cmd
}

func buildInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a repository with HEAD on the default branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := c.load(ctx); err != nil {
				return err
			}
			if err := c.session.Init(ctx); err != nil {
				return err
			}
			return c.printStatus(cmd, c.session.Snapshot())
		},
	}
}

func buildAddRemoteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add-remote <name> <url>",
		Short: "Register a remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.load(ctx); err != nil {
				return err
			}
			if err := c.session.AddRemote(ctx, args[0], args[1]); err != nil {
				return err
			}
			return c.printStatus(cmd, c.session.Snapshot())
		},
	}
}

func buildLinkCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "link <clone-url>",
		Short: "Link an existing hosted repository as the remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.load(ctx); err != nil {
				return err
			}
			res, err := c.session.LinkExisting(ctx, args[0])
			if err != nil {
				return err
			}
			return c.emit(cmd.OutOrStdout(), res, func() string { return ui.RenderLink(c.styles, res, terminalWidth()) })
		},
	}
}

func buildCreateCmd(c *cli) *cobra.Command {
	var private bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a hosted repository and link it as the remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.load(cmd.Context()); err != nil {
				return err
			}
			cred := c.credential()
			var res reposync.LinkResult
			err := c.spin(cmd, "Creating repository…", func(ctx context.Context) error {
				var err error
				res, err = c.session.CreateAndLink(ctx, cred, args[0], private)
				return err
			})
			if err != nil {
				return err
			}
			return c.emit(cmd.OutOrStdout(), res, func() string { return ui.RenderLink(c.styles, res, terminalWidth()) })
		},
	}
	cmd.Flags().BoolVar(&private, "private", false, "Create a private repository")
	return cmd
}

func buildReposCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List hosted repositories available for linking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repos, err := c.session.ListHostedRepos(cmd.Context(), c.credential())
			if err != nil {
				return err
			}
			return c.emit(cmd.OutOrStdout(), repos, func() string { return ui.RenderRepos(c.styles, repos, terminalWidth()) })
		},
	}
}

func buildWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the status again whenever the repository changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			snap, err := c.load(ctx)
			if err != nil {
				return err
			}
			if snap.NotARepository {
				return syncerr.New(syncerr.NotARepository, "watch", "Folder is not a Git repository.")
			}
			if err := c.printStatus(cmd, snap); err != nil {
				return err
			}
			gitDir := c.session.Engine().GitDir()
			if gitDir == "" {
				return fmt.Errorf("cannot resolve the git directory of %s", c.session.Path())
			}
			return watcher.Run(ctx, gitDir, c.cfg.WatchDebounce, c.logger, func(ctx context.Context) error {
				snap, err := c.session.Refresh(ctx)
				if err != nil {
					return err
				}
				return c.printStatus(cmd, snap)
			})
		},
	}
}
