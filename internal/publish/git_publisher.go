package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"forgeline/internal/models"
	"forgeline/internal/utils"
)

// Config holds publisher configuration.
type Config struct {
	// WorkDir is where remote repositories are cloned. One subdirectory per
	// owner/repo pair.
	WorkDir string
	// RemoteBase is the host prefix, e.g. "https://github.com".
	RemoteBase string
	// Token authenticates clone and push over HTTPS.
	Token       string
	AuthorName  string
	AuthorEmail string
}

// GitPublisher implements Publisher on top of local clones of the target
// repositories. Commits are serialized per publisher because concurrent
// workers share one worktree per repository.
type GitPublisher struct {
	cfg Config
	mu  sync.Mutex
}

func NewGitPublisher(cfg Config) (*GitPublisher, error) {
	if strings.TrimSpace(cfg.WorkDir) == "" {
		return nil, fmt.Errorf("publish workdir is required")
	}
	if cfg.RemoteBase == "" {
		cfg.RemoteBase = "https://github.com"
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "forgeline"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "forgeline@localhost"
	}
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create publish workdir: %w", err)
	}
	return &GitPublisher{cfg: cfg}, nil
}

// PutFile writes content at path on the target branch and pushes the commit.
// The returned record carries the commit hash and a browse URL for the file.
func (p *GitPublisher) PutFile(ctx context.Context, target models.PublishTarget, path, content, message string) (*models.PublishRecord, error) {
	if strings.TrimSpace(target.Owner) == "" || strings.TrimSpace(target.Repo) == "" {
		return nil, fmt.Errorf("publish target owner and repo are required")
	}
	path = filepath.ToSlash(strings.TrimSpace(path))
	if path == "" || strings.HasPrefix(path, "..") || filepath.IsAbs(path) {
		return nil, fmt.Errorf("invalid publish path %q", path)
	}
	branch := strings.TrimSpace(target.Branch)
	if branch == "" {
		branch = "main"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	repo, err := p.ensureRepo(ctx, target)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("load worktree: %w", err)
	}
	if err := checkoutBranch(wt, branch); err != nil {
		return nil, err
	}

	absPath := filepath.Join(wt.Filesystem.Root(), filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}
	if _, err := wt.Add(filepath.FromSlash(path)); err != nil {
		return nil, fmt.Errorf("stage file: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	var hash plumbing.Hash
	if status.IsClean() {
		// Identical content already committed; reuse the branch head.
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolve head: %w", err)
		}
		hash = head.Hash()
	} else {
		hash, err = wt.Commit(message, &git.CommitOptions{
			Author: &object.Signature{
				Name:  p.cfg.AuthorName,
				Email: p.cfg.AuthorEmail,
				When:  time.Now(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		if err := repo.PushContext(ctx, &git.PushOptions{
			RemoteName: "origin",
			Auth:       p.auth(),
		}); err != nil && err != git.NoErrAlreadyUpToDate {
			return nil, fmt.Errorf("push: %w", err)
		}
	}

	return &models.PublishRecord{
		Revision:    hash.String(),
		URL:         fmt.Sprintf("%s/%s/%s/blob/%s/%s", p.cfg.RemoteBase, target.Owner, target.Repo, branch, path),
		PublishedAt: time.Now(),
	}, nil
}

func (p *GitPublisher) ensureRepo(ctx context.Context, target models.PublishTarget) (*git.Repository, error) {
	repoDir := filepath.Join(p.cfg.WorkDir, target.Owner, target.Repo)
	if utils.HasGitRepo(repoDir) {
		return git.PlainOpen(repoDir)
	}
	remoteURL := fmt.Sprintf("%s/%s/%s.git", p.cfg.RemoteBase, target.Owner, target.Repo)
	repo, err := git.PlainCloneContext(ctx, repoDir, false, &git.CloneOptions{
		URL:  remoteURL,
		Auth: p.auth(),
	})
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", remoteURL, err)
	}
	return repo, nil
}

func (p *GitPublisher) auth() *http.BasicAuth {
	if p.cfg.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "git", Password: p.cfg.Token}
}

// checkoutBranch switches to branch, creating it from the current HEAD when
// it does not exist yet.
func checkoutBranch(wt *git.Worktree, branch string) error {
	ref := plumbing.NewBranchReferenceName(branch)
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref}); err == nil {
		return nil
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: true}); err != nil {
		return fmt.Errorf("checkout branch %s: %w", branch, err)
	}
	return nil
}
