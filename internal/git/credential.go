package git

import (
	"fmt"
	"net/url"
	"strings"
)

// IsHTTPSRemote reports whether a remote URL uses HTTPS transport.
func IsHTTPSRemote(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(rawURL)), "https://")
}

// AuthenticatedURL embeds the credential into an HTTPS remote URL.
// SSH and scp-like remotes, or an empty credential, are returned unchanged
// with ok == false.
func AuthenticatedURL(rawURL string, cred Credential) (string, bool, error) {
	if cred.IsZero() || !IsHTTPSRemote(rawURL) {
		return rawURL, false, nil
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("invalid remote URL format for credential injection: %s", rawURL)
	}
	if cred.Username == "" {
		u.User = url.User(cred.Token)
	} else {
		u.User = url.UserPassword(cred.Username, cred.Token)
	}
	return u.String(), true, nil
}

// credentialArgs returns the `-c` options that make git talk to the
// authenticated URL while the remote keeps its configured URL. The rewrite
// exists only for the lifetime of one git process.
func credentialArgs(remoteURL string, cred Credential) ([]string, error) {
	authURL, ok, err := AuthenticatedURL(remoteURL, cred)
	if err != nil || !ok {
		return nil, err
	}
	return []string{"-c", "url." + authURL + ".insteadOf=" + strings.TrimSpace(remoteURL)}, nil
}
