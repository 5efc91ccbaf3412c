/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package prmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v84/github"
)

func newTestManager(t *testing.T, handler http.Handler) *Manager {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parsing server URL: %v", err)
	}
	client.BaseURL = base

	mgr, err := New(client)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return mgr
}

func TestOpenIdempotent(t *testing.T) {
	ctx := context.Background()

	var createCalls int
	var created *github.PullRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			if got := r.URL.Query().Get("head"); got != "octo:northstar/increase-button-contrast" {
				t.Errorf("list head = %q", got)
			}
			prs := []*github.PullRequest{}
			if created != nil {
				prs = append(prs, created)
			}
			json.NewEncoder(w).Encode(prs) //nolint:errcheck
		case http.MethodPost:
			createCalls++
			var req github.NewPullRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decoding create request: %v", err)
			}
			created = &github.PullRequest{
				Number:  github.Ptr(7),
				HTMLURL: github.Ptr("https://github.com/octo/widgets/pull/7"),
				Title:   req.Title,
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(created) //nolint:errcheck
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	mgr := newTestManager(t, mux)

	first, err := mgr.Open(ctx, "octo", "widgets", "northstar/increase-button-contrast", "main",
		"Northstar: increase button contrast", "automated change")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !first.Created {
		t.Error("first Open did not create")
	}

	second, err := mgr.Open(ctx, "octo", "widgets", "northstar/increase-button-contrast", "main",
		"Northstar: increase button contrast", "automated change")
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if second.Created {
		t.Error("second Open created a duplicate")
	}
	if first.URL != second.URL || first.URL != "https://github.com/octo/widgets/pull/7" {
		t.Errorf("URLs diverged: %q vs %q", first.URL, second.URL)
	}
	if createCalls != 1 {
		t.Errorf("create calls = %d, want 1", createCalls)
	}
}

func TestOpenSameHeadAndBase(t *testing.T) {
	mgr := newTestManager(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected for the head==base pre-check")
	}))

	_, err := mgr.Open(context.Background(), "octo", "widgets", "main", "main", "t", "b")
	var invalid *InvalidRefsError
	if !errors.As(err, &invalid) {
		t.Fatalf("Open error = %v, want *InvalidRefsError", err)
	}
}

func TestOpenErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{{
		name:   "unauthorized",
		status: http.StatusUnauthorized,
		check: func(t *testing.T, err error) {
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("error = %v, want ErrUnauthorized", err)
			}
		},
	}, {
		name:   "forbidden",
		status: http.StatusForbidden,
		check: func(t *testing.T, err error) {
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("error = %v, want ErrUnauthorized", err)
			}
		},
	}, {
		name:   "repo not found",
		status: http.StatusNotFound,
		check: func(t *testing.T, err error) {
			var notFound *RepoNotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("error = %v, want *RepoNotFoundError", err)
			}
			if notFound.Owner != "octo" || notFound.Repo != "widgets" {
				t.Errorf("RepoNotFoundError = %+v", notFound)
			}
		},
	}, {
		name:   "invalid refs",
		status: http.StatusUnprocessableEntity,
		check: func(t *testing.T, err error) {
			var invalid *InvalidRefsError
			if !errors.As(err, &invalid) {
				t.Errorf("error = %v, want *InvalidRefsError", err)
			}
		},
	}, {
		name:   "server error",
		status: http.StatusBadGateway,
		check: func(t *testing.T, err error) {
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("error = %v, want *UpstreamError", err)
			}
			if upstream.StatusCode != http.StatusBadGateway {
				t.Errorf("StatusCode = %d, want 502", upstream.StatusCode)
			}
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"message": "synthetic %d"}`, tt.status)
			}))

			_, err := mgr.Open(context.Background(), "octo", "widgets", "northstar/x", "main", "t", "b")
			if err == nil {
				t.Fatal("Open succeeded, want classified error")
			}
			tt.check(t, err)
		})
	}
}
