/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package fastapply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client merges update blocks into file contents via the Fast-Apply API.
type Client struct {
	api   openai.Client
	model string
}

// New creates a merge client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithRequestTimeout(cfg.timeout),
		// Single-shot: the orchestrator and its caller decide whether a
		// failed merge is worth retrying.
		option.WithMaxRetries(0),
	}
	if cfg.httpClient != nil {
		requestOpts = append(requestOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &Client{
		api:   openai.NewClient(requestOpts...),
		model: cfg.model,
	}, nil
}

// Merge applies the update block to the original text and returns the merged
// result. A non-2xx upstream answer surfaces as *ServiceError; a 2xx answer
// with no text surfaces as ErrEmptyResult.
func (c *Client) Merge(ctx context.Context, instruction, original, update string) (string, error) {
	log := clog.FromContext(ctx)

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(mergePrompt(instruction, original, update)),
		},
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &ServiceError{
				StatusCode: apierr.StatusCode,
				Body:       apierr.RawJSON(),
			}
		}
		return "", fmt.Errorf("calling merge service: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResult
	}

	merged := resp.Choices[0].Message.Content
	log.With("model", c.model, "merged_bytes", len(merged)).Debug("Merge completed")
	return merged, nil
}

// mergePrompt builds the single-user-message payload the Fast-Apply models
// expect: the instruction, the full current file, and the annotated update.
func mergePrompt(instruction, original, update string) string {
	var b strings.Builder
	b.WriteString("<instruction>")
	b.WriteString(instruction)
	b.WriteString("</instruction>\n<code>")
	b.WriteString(original)
	b.WriteString("</code>\n<update>")
	b.WriteString(update)
	b.WriteString("</update>")
	return b.String()
}
