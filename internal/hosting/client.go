// Package hosting talks to the remote hosting REST API to list and create
// repositories for the authenticated user.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v66/github"
)

// ErrCredentialRequired is returned when a call is made without an access
// token. It is a distinct, user-actionable state.
var ErrCredentialRequired = errors.New("hosting access token is required")

// RepoDescriptor is a hosted repository as shown in the setup flow.
type RepoDescriptor struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	FullName string `json:"fullName" yaml:"fullName"`
	CloneURL string `json:"cloneUrl" yaml:"cloneUrl"`
	HTMLURL  string `json:"htmlUrl" yaml:"htmlUrl"`
	Private  bool   `json:"private" yaml:"private"`
}

// APIError is a non-2xx response from the hosting API.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hosting API %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.Status }

// Config configures a Client.
type Config struct {
	BaseURL    string // API root; public GitHub when empty.
	UserAgent  string
	MaxPages   int // Pages of 100 fetched by ListRepositories.
	HTTPClient *http.Client
}

// Client is a thin wrapper over the GitHub REST client. A fresh API client
// is built per call because the token is supplied per call and never kept.
type Client struct {
	cfg    Config
	logger *log.Logger
}

// NewClient returns a Client.
func NewClient(cfg Config, logger *log.Logger) *Client {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	return &Client{cfg: cfg, logger: logger}
}

func (c *Client) api(token string) (*github.Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrCredentialRequired
	}
	gh := github.NewClient(c.cfg.HTTPClient).WithAuthToken(token)
	if c.cfg.UserAgent != "" {
		gh.UserAgent = c.cfg.UserAgent
	}
	if c.cfg.BaseURL != "" {
		base := c.cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid hosting API URL %q: %w", c.cfg.BaseURL, err)
		}
		gh.BaseURL = u
	}
	return gh, nil
}

// ListRepositories lists repositories owned by the authenticated user, most
// recently updated first.
func (c *Client) ListRepositories(ctx context.Context, token string) ([]RepoDescriptor, error) {
	gh, err := c.api(token)
	if err != nil {
		return nil, err
	}

	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Type:        "owner",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	repos := []RepoDescriptor{}
	for page := 0; page < c.cfg.MaxPages; page++ {
		batch, resp, err := gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, wrapError("listing repositories", resp, err)
		}
		for _, r := range batch {
			repos = append(repos, descriptor(r))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	c.logger.Debug("listed hosted repositories", "count", len(repos))
	return repos, nil
}

// CreateRepository creates a repository for the authenticated user.
func (c *Client) CreateRepository(ctx context.Context, token, name string, private bool) (RepoDescriptor, error) {
	gh, err := c.api(token)
	if err != nil {
		return RepoDescriptor{}, err
	}
	name = strings.TrimSpace(name)
	repo, resp, err := gh.Repositories.Create(ctx, "", &github.Repository{
		Name:    github.String(name),
		Private: github.Bool(private),
	})
	if err != nil {
		return RepoDescriptor{}, wrapError("creating repository "+name, resp, err)
	}
	d := descriptor(repo)
	c.logger.Info("created hosted repository", "name", d.FullName, "private", d.Private)
	return d, nil
}

func descriptor(r *github.Repository) RepoDescriptor {
	return RepoDescriptor{
		ID:       r.GetID(),
		Name:     r.GetName(),
		FullName: r.GetFullName(),
		CloneURL: r.GetCloneURL(),
		HTMLURL:  r.GetHTMLURL(),
		Private:  r.GetPrivate(),
	}
}

// wrapError converts responses with a status into *APIError. Transport
// failures (no response) are returned wrapped but otherwise untouched.
func wrapError(op string, resp *github.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := err.Error()
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		msg = er.Message
		for _, e := range er.Errors {
			if e.Message != "" {
				msg += "; " + e.Message
			}
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg, Err: err}
}
