package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Client acquires a materialized upstream tree for a requested ref. The sync
// core only ever sees the resulting directory.
type Client interface {
	// EnsureCheckout clones or updates a repository to the specified ref and
	// returns the resolved commit hash.
	EnsureCheckout(ctx context.Context, url, ref, destDir string) (string, error)
}

// GoGitClient implements Client with go-git.
type GoGitClient struct {
	sshKeyFile     string
	httpsTokenFile string
}

// NewGoGitClient creates a git client. Either auth file may be empty.
func NewGoGitClient(sshKeyFile, httpsTokenFile string) *GoGitClient {
	return &GoGitClient{
		sshKeyFile:     sshKeyFile,
		httpsTokenFile: httpsTokenFile,
	}
}

// EnsureCheckout clones the repository if destDir holds no checkout yet,
// fetches otherwise, then force-checks-out the requested ref.
func (c *GoGitClient) EnsureCheckout(ctx context.Context, url, ref, destDir string) (string, error) {
	auth, err := c.authMethod(url)
	if err != nil {
		return "", err
	}

	repo, err := gogit.PlainOpen(destDir)
	switch {
	case errors.Is(err, gogit.ErrRepositoryNotExists):
		if mkErr := os.MkdirAll(filepath.Dir(destDir), 0o755); mkErr != nil {
			return "", fmt.Errorf("failed to create parent directory: %w", mkErr)
		}
		repo, err = gogit.PlainCloneContext(ctx, destDir, false, &gogit.CloneOptions{
			URL:  url,
			Auth: auth,
			Tags: gogit.AllTags,
		})
		if err != nil {
			return "", fmt.Errorf("git clone failed: %w", err)
		}

	case err != nil:
		return "", fmt.Errorf("failed to open checkout: %w", err)

	default:
		err = repo.FetchContext(ctx, &gogit.FetchOptions{
			RemoteName: "origin",
			Auth:       auth,
			Force:      true,
			Tags:       gogit.AllTags,
		})
		if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("git fetch failed: %w", err)
		}
	}

	hash, err := resolveRef(repo, ref)
	if err != nil {
		return "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return "", fmt.Errorf("git checkout failed for ref %q: %w", ref, err)
	}

	return hash.String(), nil
}

// resolveRef resolves a branch, tag or commit hash to a commit. Remote
// branches are tried first so a fetch is picked up without resetting any
// local branch.
func resolveRef(repo *gogit.Repository, ref string) (*plumbing.Hash, error) {
	for _, rev := range []string{"origin/" + ref, ref} {
		if h, err := repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
			return h, nil
		}
	}
	return nil, fmt.Errorf("cannot resolve ref %q (tried both remote and direct)", ref)
}

// authMethod builds the go-git auth for the configured credentials, matching
// the URL scheme.
func (c *GoGitClient) authMethod(url string) (transport.AuthMethod, error) {
	if c.sshKeyFile != "" && (strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://")) {
		keys, err := gitssh.NewPublicKeysFromFile("git", c.sshKeyFile, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key: %w", err)
		}
		return keys, nil
	}

	if c.httpsTokenFile != "" && strings.HasPrefix(url, "https://") {
		token, err := os.ReadFile(c.httpsTokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read HTTPS token file: %w", err)
		}
		return &githttp.BasicAuth{
			Username: "x-access-token",
			Password: strings.TrimSpace(string(token)),
		}, nil
	}

	return nil, nil
}
