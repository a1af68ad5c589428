package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/ui"
)

// Build-time variables injected via ldflags by GoReleaser / Taskfile.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := execute(buildRootCmd()); err != nil {
		fmt.Fprint(os.Stderr, ui.RenderError(ui.DefaultStyles(), err, terminalWidth()))
		os.Exit(1)
	}
}

// execute runs the command tree and releases the session and log file
// whether or not the command succeeded.
func execute(rootCmd *cobra.Command, c *cli) error {
	defer c.teardown()
	return rootCmd.Execute()
}

func buildRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:   "zgs",
		Short: "Synchronize a working copy with its hosted remote",
		Long: `zgs keeps a local Git working copy in sync with one hosted remote.

It stages and commits changes, pulls and pushes the current branch,
publishes branches that have never been pushed, and sets up new
repositories: init, link an existing hosted repository, or create one
on GitHub and link it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           version,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.teardown() },
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"zgs %s\n  commit:  %s\n  built:   %s\n  go:      %s\n  os/arch: %s/%s\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH,
	))

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&c.flags.path, "path", "p", ".", "Path to the working copy")
	pf.StringVar(&c.flags.configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/zgs/config.yaml)")
	pf.StringVarP(&c.flags.output, "output", "o", "", "Output format: text, json or yaml")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&c.flags.token, "token", "", "Access token for HTTPS remotes and the hosting API (default from $GITHUB_TOKEN)")

	rootCmd.AddCommand(
		buildStatusCmd(c),
		buildDiffCmd(c),
		buildStageCmd(c, true),
		buildStageCmd(c, false),
		buildCommitCmd(c),
		buildFetchCmd(c),
		buildPullCmd(c),
		buildPushCmd(c),
		buildSetUpstreamCmd(c),
		buildInitCmd(c),
		buildAddRemoteCmd(c),
		buildLinkCmd(c),
		buildCreateCmd(c),
		buildReposCmd(c),
		buildWatchCmd(c),
		buildVersionCmd(),
		buildCompletionCmd(),
	)
	return rootCmd, c
}

func buildVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Needs no config or working copy.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"date":    date,
				"go":      runtime.Version(),
				"os":      runtime.GOOS,
				"arch":    runtime.GOARCH,
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "zgs %s\n", version)
			fmt.Fprintf(out, "  commit:  %s\n", commit)
			fmt.Fprintf(out, "  built:   %s\n", date)
			fmt.Fprintf(out, "  go:      %s\n", runtime.Version())
			fmt.Fprintf(out, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	return cmd
}

func buildCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for zgs.

Examples:
  # Bash (add to ~/.bashrc)
  zgs completion bash > /etc/bash_completion.d/zgs

  # Zsh (add to ~/.zshrc before compinit)
  zgs completion zsh > "${fpath[1]}/_zgs"

  # Fish
  zgs completion fish > ~/.config/fish/completions/zgs.fish

  # PowerShell
  zgs completion powershell > zgs.ps1`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		PersistentPreRunE:     func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}

	return cmd
}
