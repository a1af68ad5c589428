package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/config"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/hosting"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/logging"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/reposync"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/ui"
)

// cli carries what every subcommand needs: resolved config, logger,
// styles and the session bound to --path.
type cli struct {
	flags struct {
		path       string
		configFile string
		output     string
		logLevel   string
		token      string
	}

	cfg     *config.Config
	logger  *log.Logger
	closer  io.Closer
	styles  ui.Styles
	session *reposync.Session
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if c.flags.configFile != "" {
		c.cfg, err = config.LoadFile(c.flags.configFile)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.flags.output != "" {
		c.cfg.Output = c.flags.output
	}
	if c.flags.logLevel != "" {
		c.cfg.LogLevel = c.flags.logLevel
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	logOpts := logging.Options{Level: c.cfg.LogLevel, File: c.cfg.LogFile}
	if logOpts.File == "" {
		logOpts.Out = cmd.ErrOrStderr()
	}
	c.logger, c.closer, err = logging.New(logOpts)
	if err != nil {
		return err
	}
	c.styles = ui.DefaultStyles()

	host := hosting.NewClient(hosting.Config{
		BaseURL:   c.cfg.Hosting.APIURL,
		UserAgent: c.cfg.Hosting.UserAgent,
		MaxPages:  c.cfg.Hosting.MaxPages,
	}, c.logger)

	c.session, err = reposync.NewSession(c.flags.path, c.open,
		reposync.WithLogger(c.logger),
		reposync.WithHosting(host),
		reposync.WithRemoteName(c.cfg.RemoteName),
		reposync.WithDefaultBranch(c.cfg.DefaultBranch),
	)
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.flags.path, err)
	}
	return nil
}

// open binds the git CLI engine, behind the read cache, to path.
func (c *cli) open(path string) (git.Service, error) {
	svc, err := git.NewCLIService(path,
		git.WithCommandTimeout(c.cfg.CommandTimeout),
		git.WithNetworkTimeout(c.cfg.NetworkTimeout),
	)
	if err != nil {
		return nil, err
	}
	return git.NewCachedService(svc, c.cfg.CacheTTL), nil
}

func (c *cli) teardown() {
	if c.session != nil {
		_ = c.session.Close()
	}
	if c.closer != nil {
		_ = c.closer.Close()
	}
}

// credential is the per-call credential: --token, else the environment
// variable named by hosting.token_env. It is never stored.
func (c *cli) credential() git.Credential {
	token := c.flags.token
	if token == "" {
		token = c.cfg.Hosting.Token()
	}
	if token == "" {
		return git.Credential{}
	}
	return git.Credential{Username: "x-access-token", Token: token}
}

// emit writes v as JSON or YAML, or text() in text mode.
func (c *cli) emit(w io.Writer, v any, text func() string) error {
	switch c.cfg.Output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, text())
		return err
	}
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
