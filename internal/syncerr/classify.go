package syncerr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/hosting"
)

// rule maps engine output fragments to a kind. Patterns are lower case and
// matched as substrings; the first matching rule wins.
type rule struct {
	kind     Kind
	patterns []string
	message  string // Empty means pass the raw message through.
}

// rules is evaluated top to bottom. Order matters: a missing upstream
// branch prints a hint mentioning a branch that "already exists".
var rules = []rule{
	{NotARepository, []string{"not a git repository"},
		"Folder is not a Git repository."},
	{UnrelatedHistories, []string{"unrelated histories"},
		"Histories are unrelated. Merge manually with --allow-unrelated-histories if intended."},
	{MergeConflict, []string{"would be overwritten", "overwritten by merge"},
		"Local changes to tracked files would be overwritten by merge. Commit or stash them first."},
	{MergeConflict, []string{
		"conflict (", "merge conflict in", "needs merge", "you have unmerged files",
		"unmerged paths", "not concluded your merge",
	},
		"Merge conflicts detected. Resolve them manually."},
	{NothingToCommit, []string{"nothing to commit", "nothing added to commit", "no changes added to commit"},
		"No changes added to commit."},
	{AuthenticationFailed, []string{"permission denied (publickey)", "could not read username", "host key verification failed"},
		"Authentication error. Check SSH key setup or use HTTPS with a token."},
	{AuthenticationFailed, []string{
		"authentication failed", "invalid username or password", "terminal prompts disabled",
		"returned error: 401", "returned error: 403", "http basic: access denied",
	}, "Authentication error. Check the access token and its permissions."},
	{NetworkUnreachable, []string{
		"could not resolve host", "failed to connect", "connection refused", "connection timed out",
		"operation timed out", "network is unreachable", "could not resolve hostname", "connection reset",
	}, "Could not reach the remote host. Check the network connection and remote URL."},
	{Unknown, []string{"src refspec", "does not match any"},
		"Local branch has no commits to push. Make a commit first."},
	{NonFastForward, []string{"non-fast-forward", "[rejected]", "fetch first", "updates were rejected"},
		"Remote has changes you do not have locally. Pull first to integrate them."},
	{UpstreamNotSet, []string{
		"no tracking information", "no upstream", "has no upstream branch",
		"couldn't find remote ref", "requested upstream branch",
	}, "Could not determine upstream. The remote branch might not exist."},
	{RemoteAlreadyExists, []string{"already exists"},
		"Remote already exists. Use a different name or manage remotes manually."},
}

// urlPattern matches remote URLs and scp-like SSH addresses. They are masked
// before matching so repository names cannot select a rule.
var urlPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s']+|[\w.-]+@[\w.-]+:[^\s']+`)

// httpStatuser is implemented by hosting API errors.
type httpStatuser interface {
	HTTPStatus() int
}

// Classify maps err onto the taxonomy. A nil err yields nil and an existing
// SyncError is returned as is, with op filled in when missing.
func Classify(op string, err error) *SyncError {
	if err == nil {
		return nil
	}
	var se *SyncError
	if errors.As(err, &se) {
		if se.Op == "" {
			se.Op = op
		}
		return se
	}

	out := &SyncError{Kind: Unknown, Op: op, Message: err.Error(), Cause: err}

	switch {
	case errors.Is(err, git.ErrNotARepo):
		out.Kind, out.Message = NotARepository, "Folder is not a Git repository."
		return out
	case errors.Is(err, hosting.ErrCredentialRequired):
		out.Kind, out.Message = AuthenticationFailed, "An access token is required."
		return out
	}

	var hs httpStatuser
	if errors.As(err, &hs) {
		classifyStatus(out, hs.HTTPStatus(), err)
		return out
	}

	text := err.Error()
	var cmdErr *git.CommandError
	if errors.As(err, &cmdErr) {
		text = cmdErr.Stderr
		if text == "" {
			text = cmdErr.Error()
		}
		out.Message = text
	}
	if r, ok := match(text); ok {
		out.Kind = r.kind
		if r.message != "" {
			out.Message = r.message
		}
		return out
	}

	if isNetwork(err) {
		out.Kind = NetworkUnreachable
		out.Message = "Could not reach the remote host. Check the network connection and remote URL."
	}
	return out
}

func match(text string) (rule, bool) {
	lower := strings.ToLower(urlPattern.ReplaceAllString(text, "<url>"))
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(lower, p) {
				return r, true
			}
		}
	}
	return rule{}, false
}

func classifyStatus(out *SyncError, status int, err error) {
	apiMsg := err.Error()
	var apiErr *hosting.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		apiMsg = apiErr.Message
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		out.Kind = AuthenticationFailed
		out.Message = "Authentication failed. Check the access token and its permissions (needs 'repo' scope)."
	case http.StatusUnprocessableEntity:
		out.Kind = RemoteAlreadyExists
		out.Message = "Could not create repository: the name might already exist or is invalid. (" + apiMsg + ")"
	default:
		out.Message = "Hosting API error: " + apiMsg
	}
}

// isNetwork catches timeouts and transport errors that carry no engine text.
func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
