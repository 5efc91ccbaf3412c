/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package clonemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

const (
	cloneDirPrefix = "northstar-clone-"

	// maxBranchProbes caps name allocation at slug, slug-v2, ..., slug-v50.
	maxBranchProbes = 50
)

// repoURL resolves the remote git URL for an owner/name repository. Tests
// override this to point at local filesystem repositories.
var repoURL = defaultRemoteURL

func defaultRemoteURL(fullName string) string {
	return "https://github.com/" + fullName
}

// Manager creates isolated git workspaces authenticated with a shared token
// source and committing under a shared identity.
type Manager struct {
	tokenSource oauth2.TokenSource
	identity    string
}

// New constructs a Manager. The token source must allow cloning and pushing
// to the targeted repositories. Identity is used as the commit author name
// (and, when it lacks a domain, suffixed with @northstar.dev).
func New(tokenSource oauth2.TokenSource, identity string) (*Manager, error) {
	if tokenSource == nil {
		return nil, errors.New("token source cannot be nil")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, errors.New("identity cannot be empty")
	}
	return &Manager{tokenSource: tokenSource, identity: identity}, nil
}

// Workspace is a fresh clone dedicated to a single execution. It is not safe
// for concurrent use; isolation between executions comes from each one
// holding its own Workspace.
type Workspace struct {
	manager *Manager
	path    string
	repo    *git.Repository

	base     string
	baseHash plumbing.Hash

	// Branch allocation state, set by AllocateBranch and advanced when a
	// rejected push forces a re-probe.
	slug      string
	branch    string
	nextProbe int
}

// NewWorkspace clones repoFullName into a private temp directory with
// baseBranch checked out. The caller must Close the workspace on every exit
// path.
func (m *Manager) NewWorkspace(ctx context.Context, repoFullName, baseBranch string) (*Workspace, error) {
	if repoFullName == "" {
		return nil, errors.New("repository name cannot be empty")
	}
	if baseBranch == "" {
		return nil, errors.New("base branch cannot be empty")
	}

	dir, err := os.MkdirTemp("", cloneDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	auth, err := m.auth()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("getting token: %w", err)
	}

	remote := repoURL(repoFullName)
	clog.FromContext(ctx).Infof("Cloning repository %s into %s", remote, dir)

	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName(baseBranch),
		Auth:          auth,
	})
	if err != nil {
		os.RemoveAll(dir)
		if errors.Is(err, plumbing.ErrReferenceNotFound) ||
			errors.Is(err, git.NoMatchingRefSpecError{}) {
			return nil, &BaseBranchMissingError{Repo: repoFullName, Branch: baseBranch}
		}
		return nil, fmt.Errorf("cloning %s: %w", repoFullName, err)
	}

	head, err := repo.Head()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	return &Workspace{
		manager:  m,
		path:     dir,
		repo:     repo,
		base:     baseBranch,
		baseHash: head.Hash(),
	}, nil
}

// Close removes the workspace directory. Safe to call more than once.
func (w *Workspace) Close() error {
	if w.path == "" {
		return nil
	}
	err := os.RemoveAll(w.path)
	w.path = ""
	return err
}

// Path returns the workspace's working-tree root.
func (w *Workspace) Path() string { return w.path }

// Branch returns the allocated branch name, empty before AllocateBranch.
func (w *Workspace) Branch() string { return w.branch }

// ReadFile returns the contents of a file relative to the workspace root.
func (w *Workspace) ReadFile(rel string) (string, error) {
	abs, err := w.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(data), nil
}

// WriteFile replaces the contents of a file relative to the workspace root,
// creating parent directories as needed.
func (w *Workspace) WriteFile(rel, content string) error {
	abs, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

// resolve joins rel onto the workspace root, rejecting paths that escape it.
func (w *Workspace) resolve(rel string) (string, error) {
	abs := filepath.Join(w.path, rel)
	if abs != w.path && !strings.HasPrefix(abs, w.path+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return abs, nil
}

// AllocateBranch finds the first free branch name among slug, slug-v2, ...
// and checks it out at the base branch's head. The probe consults both local
// and remote-tracking references from clone time.
func (w *Workspace) AllocateBranch(ctx context.Context, slug string) (string, error) {
	if slug == "" {
		return "", errors.New("branch slug cannot be empty")
	}

	name, n, err := w.probe(slug, 1)
	if err != nil {
		return "", err
	}
	if err := w.checkoutNewBranch(name, w.baseHash); err != nil {
		return "", err
	}

	w.slug = slug
	w.branch = name
	w.nextProbe = n + 1

	clog.FromContext(ctx).With("branch", name, "base", w.base).Info("Allocated branch")
	return name, nil
}

// probe returns the first untaken candidate name starting at attempt from.
func (w *Workspace) probe(slug string, from int) (string, int, error) {
	for n := from; n <= maxBranchProbes; n++ {
		name := slug
		if n > 1 {
			name = fmt.Sprintf("%s-v%d", slug, n)
		}
		if !w.branchTaken(name) {
			return name, n, nil
		}
	}
	return "", 0, fmt.Errorf("%w: no free name for %q within %d attempts", ErrAllocationExhausted, slug, maxBranchProbes)
}

func (w *Workspace) branchTaken(name string) bool {
	if _, err := w.repo.Reference(plumbing.NewBranchReferenceName(name), false); err == nil {
		return true
	}
	if _, err := w.repo.Reference(plumbing.NewRemoteReferenceName("origin", name), false); err == nil {
		return true
	}
	return false
}

func (w *Workspace) checkoutNewBranch(name string, at plumbing.Hash) error {
	refName := plumbing.NewBranchReferenceName(name)
	if err := w.repo.Storer.SetReference(plumbing.NewHashReference(refName, at)); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}

	worktree, err := w.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: refName}); err != nil {
		return fmt.Errorf("checking out %s: %w", name, err)
	}
	return nil
}

// CommitAndPush stages everything, commits with the manager's identity, and
// pushes the allocated branch. A clean tree returns ErrNoChanges without
// committing. A rejected push (a concurrent execution won the race for the
// name) is retried exactly once on a freshly probed branch name.
func (w *Workspace) CommitAndPush(ctx context.Context, message string) error {
	log := clog.FromContext(ctx)

	if w.branch == "" {
		return errors.New("no branch allocated")
	}
	if message == "" {
		return errors.New("commit message cannot be empty")
	}

	worktree, err := w.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("getting worktree status: %w", err)
	}
	if status.IsClean() {
		return ErrNoChanges
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: w.manager.signature(),
	})
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	if err := w.push(ctx, w.branch); err != nil {
		log.Warnf("Push of %s rejected, re-probing once: %v", w.branch, err)

		if ferr := w.refreshRemoteRefs(ctx); ferr != nil {
			return fmt.Errorf("refreshing remote refs after rejected push: %w", ferr)
		}
		name, n, perr := w.probe(w.slug, w.nextProbe)
		if perr != nil {
			return perr
		}
		if cerr := w.checkoutNewBranch(name, commit); cerr != nil {
			return cerr
		}
		w.branch = name
		w.nextProbe = n + 1

		if perr := w.push(ctx, name); perr != nil {
			return fmt.Errorf("pushing re-probed branch %s: %w", name, perr)
		}
	}

	log.With("branch", w.branch, "commit", commit.String()).Info("Pushed branch")
	return nil
}

func (w *Workspace) push(ctx context.Context, branch string) error {
	auth, err := w.manager.auth()
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref, ref))

	clog.FromContext(ctx).Infof("Pushing %s", refSpec)
	if err := w.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// refreshRemoteRefs updates the remote-tracking references so a post-rejection
// probe sees branches created since clone time.
func (w *Workspace) refreshRemoteRefs(ctx context.Context) error {
	auth, err := w.manager.auth()
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}
	if err := w.repo.FetchContext(ctx, &git.FetchOptions{
		RefSpecs: []gitconfig.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Auth:     auth,
	}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching: %w", err)
	}
	return nil
}

func (m *Manager) auth() (*githttp.BasicAuth, error) {
	token, err := m.tokenSource.Token()
	if err != nil {
		return nil, err
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}

func (m *Manager) signature() *object.Signature {
	email := m.identity
	if !strings.Contains(email, "@") {
		email = fmt.Sprintf("%s@northstar.dev", email)
	}
	return &object.Signature{
		Name:  m.identity,
		Email: email,
		When:  time.Now(),
	}
}
