/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements the northstar CLI: one-shot propose, approve, and
// execute operations against the proposal lifecycle.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/oauth2"

	"northstar.dev/northstar/agents/proposer"
	"northstar.dev/northstar/execution"
	"northstar.dev/northstar/execution/clonemanager"
	"northstar.dev/northstar/execution/prmanager"
	"northstar.dev/northstar/fastapply"
	"northstar.dev/northstar/lifecycle"
	"northstar.dev/northstar/lifecycle/postgres"
)

type config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	// GitHubToken is required by the execute subcommand.
	GitHubToken string `env:"GITHUB_TOKEN"`
	// AnthropicAPIKey is required by the propose subcommand.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	// MorphAPIKey is required by the execute subcommand.
	MorphAPIKey  string `env:"MORPH_API_KEY"`
	MorphBaseURL string `env:"MORPH_BASE_URL,default=https://api.morphllm.com/v1"`
	MorphModel   string `env:"MORPH_MODEL,default=morph-v3-fast"`

	// Identity names the branch namespace and commit author.
	Identity string `env:"NORTHSTAR_IDENTITY,default=northstar"`
}

const usage = `usage: northstar <command> [flags]

commands:
  propose  -repo owner/name -objective "..." [-context-file path]
  approve  -proposal ID
  reject   -proposal ID
  execute  -proposal ID [-base branch]
  connect  -repo owner/name -user ID [-base branch] [-default branch]
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		clog.FatalContextf(ctx, "connecting to database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		clog.FatalContextf(ctx, "migrating database: %v", err)
	}

	switch os.Args[1] {
	case "propose":
		err = runPropose(ctx, cfg, store, os.Args[2:])
	case "approve":
		err = runReview(ctx, store, lifecycle.ProposalApproved, os.Args[2:])
	case "reject":
		err = runReview(ctx, store, lifecycle.ProposalRejected, os.Args[2:])
	case "execute":
		err = runExecute(ctx, cfg, store, os.Args[2:])
	case "connect":
		err = runConnect(ctx, store, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		clog.FatalContextf(ctx, "%s: %v", os.Args[1], err)
	}
}

func runPropose(ctx context.Context, cfg config, store *postgres.Store, args []string) error {
	fs := flag.NewFlagSet("propose", flag.ExitOnError)
	repo := fs.String("repo", "", "owner/name of the target repository")
	objective := fs.String("objective", "", "what to improve")
	contextFile := fs.String("context-file", "", "optional file with code context")
	fs.Parse(args) //nolint:errcheck

	if cfg.AnthropicAPIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is required for propose")
	}

	var codeContext string
	if *contextFile != "" {
		data, err := os.ReadFile(*contextFile)
		if err != nil {
			return fmt.Errorf("reading context file: %w", err)
		}
		codeContext = string(data)
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	p, err := proposer.New(client, store)
	if err != nil {
		return err
	}

	proposal, err := p.Propose(ctx, proposer.Request{
		RepoFullName: *repo,
		Objective:    *objective,
		CodeContext:  codeContext,
	})
	if err != nil {
		return err
	}

	fmt.Printf("proposal %s (pending)\n  %s\n", proposal.ProposalID, proposal.IdeaSummary)
	return nil
}

func runReview(ctx context.Context, store *postgres.Store, status lifecycle.ProposalStatus, args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	id := fs.String("proposal", "", "proposal ID")
	fs.Parse(args) //nolint:errcheck

	if *id == "" {
		return errors.New("-proposal is required")
	}
	if err := store.UpdateProposalStatus(ctx, *id, status); err != nil {
		return err
	}
	fmt.Printf("proposal %s is now %s\n", *id, status)
	return nil
}

func runExecute(ctx context.Context, cfg config, store *postgres.Store, args []string) error {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	id := fs.String("proposal", "", "proposal ID")
	baseOverride := fs.String("base", "", "base branch, defaults to the connected repository's")
	fs.Parse(args) //nolint:errcheck

	if *id == "" {
		return errors.New("-proposal is required")
	}
	if cfg.GitHubToken == "" {
		return errors.New("GITHUB_TOKEN is required for execute")
	}
	if cfg.MorphAPIKey == "" {
		return errors.New("MORPH_API_KEY is required for execute")
	}

	proposal, err := store.GetProposal(ctx, *id)
	if err != nil {
		return err
	}

	base := *baseOverride
	if base == "" {
		repo, err := store.GetRepository(ctx, proposal.RepoID)
		switch {
		case err == nil:
			base = repo.BaseBranch
		case errors.Is(err, lifecycle.ErrNotFound):
			base = "main"
		default:
			return err
		}
	}

	orch, err := buildOrchestrator(ctx, cfg, store)
	if err != nil {
		return err
	}

	if err := store.UpdateProposalStatus(ctx, *id, lifecycle.ProposalExecuting); err != nil {
		return err
	}

	result, execErr := orch.Execute(ctx, execution.Request{
		ProposalID:   proposal.ProposalID,
		Instruction:  proposal.IdeaSummary,
		UpdateBlock:  proposal.UpdateBlock,
		RepoFullName: proposal.RepoID,
		FilePath:     proposal.TargetFile(),
		BaseBranch:   base,
	})
	if execErr != nil {
		if serr := store.UpdateProposalStatus(ctx, *id, lifecycle.ProposalFailed); serr != nil {
			clog.ErrorContextf(ctx, "marking proposal failed: %v", serr)
		}
		return execErr
	}

	if err := store.UpdateProposalStatus(ctx, *id, lifecycle.ProposalCompleted); err != nil {
		return err
	}
	fmt.Printf("experiment %s completed\n  branch: %s\n  pr:     %s\n",
		result.ExperimentID, result.Branch, result.PRURL)
	return nil
}

func runConnect(ctx context.Context, store *postgres.Store, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	repo := fs.String("repo", "", "owner/name of the repository")
	user := fs.String("user", "", "owning user ID")
	base := fs.String("base", "main", "base branch for PRs")
	def := fs.String("default", "main", "default branch")
	fs.Parse(args) //nolint:errcheck

	if err := store.UpsertRepository(ctx, &lifecycle.Repository{
		FullName:      *repo,
		DefaultBranch: *def,
		BaseBranch:    *base,
		UserID:        *user,
	}); err != nil {
		return err
	}
	if err := store.ActivateRepository(ctx, *user, *repo); err != nil {
		return err
	}
	fmt.Printf("repository %s connected and active for %s\n", *repo, *user)
	return nil
}

func buildOrchestrator(ctx context.Context, cfg config, store *postgres.Store) (*execution.Orchestrator, error) {
	merge, err := fastapply.New(cfg.MorphAPIKey,
		fastapply.WithBaseURL(cfg.MorphBaseURL),
		fastapply.WithModel(cfg.MorphModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating merge client: %w", err)
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	clones, err := clonemanager.New(tokenSource, cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("creating clone manager: %w", err)
	}

	ghClient := github.NewClient(oauth2.NewClient(ctx, tokenSource))
	prs, err := prmanager.New(ghClient)
	if err != nil {
		return nil, fmt.Errorf("creating pr manager: %w", err)
	}

	return execution.New(merge, execution.CloneFactory{Manager: clones}, prs, store,
		execution.WithIdentity(cfg.Identity))
}
