/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package fastapply

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.morphllm.com/v1"
	defaultModel   = "morph-v3-fast"
	defaultTimeout = 30 * time.Second
)

type settings struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func defaultSettings() settings {
	return settings{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		timeout: defaultTimeout,
	}
}

// Option is a functional option for configuring the client.
type Option func(*settings) error

// WithBaseURL points the client at a different Fast-Apply endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) error {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("base URL %q must be http(s)", url)
		}
		s.baseURL = url
		return nil
	}
}

// WithModel overrides the merge model name.
func WithModel(model string) Option {
	return func(s *settings) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		s.model = model
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		s.timeout = d
		return nil
	}
}

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		s.httpClient = client
		return nil
	}
}
