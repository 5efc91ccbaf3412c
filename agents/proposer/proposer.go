/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package proposer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"

	"northstar.dev/northstar/extractor"
	"northstar.dev/northstar/lifecycle"
)

const (
	defaultModel       = "claude-sonnet-4-5"
	defaultMaxTokens   = 4096
	defaultTemperature = 0.2
)

// Proposer turns an objective into a persisted pending proposal.
type Proposer struct {
	client anthropic.Client
	store  lifecycle.Store

	model       string
	maxTokens   int64
	temperature float64
}

// Option is a functional option for configuring the proposer.
type Option func(*Proposer) error

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(p *Proposer) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		p.model = model
		return nil
	}
}

// WithMaxTokens sets the response token ceiling.
func WithMaxTokens(tokens int64) Option {
	return func(p *Proposer) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		p.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the sampling temperature, 0.0 to 1.0.
func WithTemperature(temp float64) Option {
	return func(p *Proposer) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		p.temperature = temp
		return nil
	}
}

// New constructs a Proposer writing through the given store.
func New(client anthropic.Client, store lifecycle.Store, opts ...Option) (*Proposer, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}

	p := &Proposer{
		client:      client,
		store:       store,
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return p, nil
}

// Request describes what to propose against.
type Request struct {
	// RepoFullName is the owner/name of the repository under improvement.
	RepoFullName string
	// Objective states what kind of improvement is wanted.
	Objective string
	// CodeContext carries relevant file contents, optional.
	CodeContext string
}

// Propose makes a single Messages call, extracts the structured fields from
// the response, and persists a pending proposal. The model's own ID field is
// discarded in favor of a freshly minted one so retries never collide.
func (p *Proposer) Propose(ctx context.Context, req Request) (*lifecycle.Proposal, error) {
	log := clog.FromContext(ctx)

	if req.RepoFullName == "" {
		return nil, errors.New("repository name cannot be empty")
	}
	if strings.TrimSpace(req.Objective) == "" {
		return nil, errors.New("objective cannot be empty")
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(p.temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("calling model: %w", err)
	}

	var text strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	fields, err := extractor.Extract(text.String())
	if err != nil {
		return nil, fmt.Errorf("extracting proposal: %w", err)
	}

	proposal := &lifecycle.Proposal{
		Fields:    *fields,
		RepoID:    req.RepoFullName,
		Status:    lifecycle.ProposalPending,
		CreatedAt: time.Now().UTC(),
	}
	proposal.ProposalID = lifecycle.NewProposalID(req.RepoFullName)

	if err := p.store.CreateProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("persisting proposal: %w", err)
	}

	log.With("proposal", proposal.ProposalID, "repo", req.RepoFullName).Info("Created proposal")
	return proposal, nil
}
