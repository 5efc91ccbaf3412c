/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package prmanager

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// Manager opens pull requests through a GitHub client.
type Manager struct {
	client *github.Client
}

// New constructs a Manager around an authenticated GitHub client.
func New(client *github.Client) (*Manager, error) {
	if client == nil {
		return nil, errors.New("github client cannot be nil")
	}
	return &Manager{client: client}, nil
}

// PullRequest describes the PR an execution converged on.
type PullRequest struct {
	URL    string
	Number int
	// Created is false when an open PR for the head/base pair already
	// existed and was reused.
	Created bool
}

// Open finds or creates a pull request from head into base. Looking up open
// PRs by head first makes the operation idempotent: repeated executions of
// the same proposal land on the same PR instead of erroring on a duplicate.
func (m *Manager) Open(ctx context.Context, owner, repo, head, base, title, body string) (*PullRequest, error) {
	log := clog.FromContext(ctx)

	switch {
	case owner == "" || repo == "":
		return nil, errors.New("owner and repo cannot be empty")
	case head == "":
		return nil, errors.New("head branch cannot be empty")
	case base == "":
		return nil, errors.New("base branch cannot be empty")
	case head == base:
		return nil, &InvalidRefsError{Head: head, Base: base, Reason: "head and base are the same branch"}
	}

	existing, _, err := m.client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", owner, head),
		Base:  base,
	})
	if err != nil {
		return nil, classify(err, owner, repo, head, base, "listing pull requests")
	}
	if len(existing) > 0 {
		pr := existing[0]
		log.Infof("Reusing open PR #%d for %s", pr.GetNumber(), head)
		return &PullRequest{URL: pr.GetHTMLURL(), Number: pr.GetNumber()}, nil
	}

	log.Infof("Creating PR with head %s and base %s", head, base)
	pr, _, err := m.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
	})
	if err != nil {
		return nil, classify(err, owner, repo, head, base, "creating pull request")
	}

	log.Infof("Created PR #%d: %s", pr.GetNumber(), pr.GetHTMLURL())
	return &PullRequest{URL: pr.GetHTMLURL(), Number: pr.GetNumber(), Created: true}, nil
}

// classify maps a go-github error onto the package's error taxonomy.
func classify(err error, owner, repo, head, base, op string) error {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return &UpstreamError{Err: fmt.Errorf("%s: %w", op, err)}
	}

	switch ghErr.Response.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, ghErr.Message)
	case http.StatusNotFound:
		return &RepoNotFoundError{Owner: owner, Repo: repo}
	case http.StatusUnprocessableEntity:
		return &InvalidRefsError{Head: head, Base: base, Reason: ghErr.Message}
	default:
		return &UpstreamError{
			StatusCode: ghErr.Response.StatusCode,
			Err:        fmt.Errorf("%s: %w", op, err),
		}
	}
}
