package reposync

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/hosting"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

// HostingClient lists and creates repositories on the hosting service.
type HostingClient interface {
	ListRepositories(ctx context.Context, token string) ([]hosting.RepoDescriptor, error)
	CreateRepository(ctx context.Context, token, name string, private bool) (hosting.RepoDescriptor, error)
}

// LinkResult describes a completed link. Linking succeeds even when the
// upstream step fails; UpstreamErr then carries the UpstreamNotSet reason.
type LinkResult struct {
	Remote      string                  `json:"remote" yaml:"remote"`
	URL         string                  `json:"url" yaml:"url"`
	Repo        *hosting.RepoDescriptor `json:"repo,omitempty" yaml:"repo,omitempty"`
	UpstreamSet bool                    `json:"upstreamSet" yaml:"upstreamSet"`
	UpstreamErr *syncerr.SyncError      `json:"upstreamError,omitempty" yaml:"upstreamError,omitempty"`
}

// Provisioner drives repository setup: init, remote registration, hosted
// repository creation and the best-effort upstream linkage.
type Provisioner struct {
	eng           git.Service
	host          HostingClient
	remoteName    string
	defaultBranch string
	logger        *log.Logger
}

// NewProvisioner returns a Provisioner. host may be nil when no hosting
// service is configured.
func NewProvisioner(eng git.Service, host HostingClient, remoteName, defaultBranch string, logger *log.Logger) *Provisioner {
	return &Provisioner{
		eng:           eng,
		host:          host,
		remoteName:    remoteName,
		defaultBranch: defaultBranch,
		logger:        logger,
	}
}

// Init creates a repository with HEAD on the default branch.
func (p *Provisioner) Init(ctx context.Context) error {
	if err := p.eng.Init(ctx, p.defaultBranch); err != nil {
		return err
	}
	p.logger.Info("initialized repository", "path", p.eng.RepoRoot(), "branch", p.defaultBranch)
	return nil
}

// CheckRemote validates an add-remote request.
func CheckRemote(name, url string) error {
	if strings.TrimSpace(name) == "" {
		return syncerr.Validation("add remote", "Remote name is required.")
	}
	if strings.TrimSpace(url) == "" {
		return syncerr.Validation("add remote", "Remote URL is required.")
	}
	return nil
}

// AddRemote registers a remote.
func (p *Provisioner) AddRemote(ctx context.Context, name, url string) error {
	if err := CheckRemote(name, url); err != nil {
		return err
	}
	if err := p.eng.AddRemote(ctx, strings.TrimSpace(name), strings.TrimSpace(url)); err != nil {
		return err
	}
	p.logger.Info("added remote", "name", name, "url", url)
	return nil
}

// CheckUpstream validates a set-upstream request.
func CheckUpstream(localBranch, remote, remoteBranch string) error {
	if strings.TrimSpace(localBranch) == "" || strings.TrimSpace(remote) == "" || strings.TrimSpace(remoteBranch) == "" {
		return syncerr.Validation("set upstream", "Local branch, remote and remote branch are required.")
	}
	return nil
}

// SetUpstream configures tracking for localBranch.
func (p *Provisioner) SetUpstream(ctx context.Context, localBranch, remote, remoteBranch string) error {
	if err := CheckUpstream(localBranch, remote, remoteBranch); err != nil {
		return err
	}
	return p.eng.SetUpstream(ctx, localBranch, remote, remoteBranch)
}

// LinkExisting adds url as the configured remote, then tries to track the
// default branch.
func (p *Provisioner) LinkExisting(ctx context.Context, url string) (LinkResult, error) {
	if strings.TrimSpace(url) == "" {
		return LinkResult{}, syncerr.Validation("link", "Repository URL is required.")
	}
	if err := p.AddRemote(ctx, p.remoteName, url); err != nil {
		return LinkResult{}, err
	}
	res := LinkResult{Remote: p.remoteName, URL: strings.TrimSpace(url)}
	p.linkUpstream(ctx, &res)
	return res, nil
}

// CheckCreate validates a create-and-link request.
func CheckCreate(name string) error {
	if strings.TrimSpace(name) == "" {
		return syncerr.Validation("create repository", "Repository name is required.")
	}
	return nil
}

// CreateAndLink creates a hosted repository and links it as the remote.
func (p *Provisioner) CreateAndLink(ctx context.Context, cred git.Credential, name string, private bool) (LinkResult, error) {
	if err := CheckCreate(name); err != nil {
		return LinkResult{}, err
	}
	if p.host == nil {
		return LinkResult{}, syncerr.Validation("create repository", "No hosting service configured.")
	}
	repo, err := p.host.CreateRepository(ctx, cred.Token, name, private)
	if err != nil {
		return LinkResult{}, err
	}
	if err := p.AddRemote(ctx, p.remoteName, repo.CloneURL); err != nil {
		return LinkResult{Repo: &repo}, err
	}
	res := LinkResult{Remote: p.remoteName, URL: repo.CloneURL, Repo: &repo}
	p.linkUpstream(ctx, &res)
	return res, nil
}

// ListHosted lists repositories the credential's owner can link.
func (p *Provisioner) ListHosted(ctx context.Context, cred git.Credential) ([]hosting.RepoDescriptor, error) {
	if p.host == nil {
		return nil, syncerr.Validation("list repositories", "No hosting service configured.")
	}
	return p.host.ListRepositories(ctx, cred.Token)
}

// linkUpstream is best effort: a fresh branch without commits, or a remote
// without the branch, cannot be tracked yet.
func (p *Provisioner) linkUpstream(ctx context.Context, res *LinkResult) {
	err := p.eng.SetUpstream(ctx, p.defaultBranch, p.remoteName, p.defaultBranch)
	if err == nil {
		res.UpstreamSet = true
		return
	}
	se := syncerr.Classify("set upstream", err)
	se.Kind = syncerr.UpstreamNotSet
	res.UpstreamErr = se
	p.logger.Warn("upstream not set after linking", "branch", p.defaultBranch, "remote", p.remoteName, "err", se.Message)
}
