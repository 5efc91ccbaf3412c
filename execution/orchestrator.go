/*
Copyright 2026 Northstar Authors
SPDX-License-Identifier: Apache-2.0
*/

package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"northstar.dev/northstar/execution/clonemanager"
	"northstar.dev/northstar/execution/prmanager"
	"northstar.dev/northstar/lifecycle"
)

// MergeGateway merges an update block into a file's current contents.
type MergeGateway interface {
	Merge(ctx context.Context, instruction, original, update string) (string, error)
}

// Workspace is the slice of clonemanager.Workspace the pipeline drives.
type Workspace interface {
	AllocateBranch(ctx context.Context, slug string) (string, error)
	// Branch reports the branch that will actually be pushed; it can differ
	// from the allocated name after a rejected push forced a re-probe.
	Branch() string
	ReadFile(rel string) (string, error)
	WriteFile(rel, content string) error
	CommitAndPush(ctx context.Context, message string) error
	Close() error
}

// WorkspaceFactory produces an isolated clone per execution.
type WorkspaceFactory interface {
	NewWorkspace(ctx context.Context, repoFullName, baseBranch string) (Workspace, error)
}

// CloneFactory adapts a clonemanager.Manager to WorkspaceFactory.
type CloneFactory struct {
	Manager *clonemanager.Manager
}

func (f CloneFactory) NewWorkspace(ctx context.Context, repoFullName, baseBranch string) (Workspace, error) {
	return f.Manager.NewWorkspace(ctx, repoFullName, baseBranch)
}

// PROpener idempotently opens or finds a pull request.
type PROpener interface {
	Open(ctx context.Context, owner, repo, head, base, title, body string) (*prmanager.PullRequest, error)
}

// ExperimentStore is the slice of lifecycle.Store the orchestrator writes
// experiment records through.
type ExperimentStore interface {
	CreateExperiment(ctx context.Context, e *lifecycle.Experiment) error
	UpdateExperiment(ctx context.Context, e *lifecycle.Experiment) error
}

// Timeouts bounds each pipeline step and the run as a whole.
type Timeouts struct {
	Merge   time.Duration
	Git     time.Duration
	PR      time.Duration
	Overall time.Duration
}

func defaultTimeouts() Timeouts {
	return Timeouts{
		Merge:   30 * time.Second,
		Git:     120 * time.Second,
		PR:      60 * time.Second,
		Overall: 5 * time.Minute,
	}
}

// Request describes one execution of an approved code change.
type Request struct {
	// ProposalID links the experiment back to its proposal; optional.
	ProposalID string
	// Instruction is the natural-language description of the change. It
	// names the branch, the commit, and the PR title.
	Instruction string
	// UpdateBlock is the Fast-Apply block to merge into the target file.
	UpdateBlock string
	// RepoFullName is the owner/name of the target repository.
	RepoFullName string
	// FilePath is the repo-relative path of the file to change.
	FilePath string
	// BaseBranch is the branch the change forks from and merges into.
	BaseBranch string
}

func (r Request) validate() error {
	switch {
	case strings.TrimSpace(r.Instruction) == "":
		return errors.New("instruction cannot be empty")
	case r.UpdateBlock == "":
		return errors.New("update block cannot be empty")
	case r.FilePath == "":
		return errors.New("file path cannot be empty")
	case r.BaseBranch == "":
		return errors.New("base branch cannot be empty")
	}
	if _, _, ok := strings.Cut(r.RepoFullName, "/"); !ok {
		return fmt.Errorf("repository %q is not in owner/name form", r.RepoFullName)
	}
	return nil
}

// Result reports where a completed execution landed.
type Result struct {
	ExperimentID string
	Branch       string
	PRURL        string
	PRNumber     int
}

// Orchestrator composes the merge gateway, git workspace, PR opener, and
// experiment store into one synchronous pipeline.
type Orchestrator struct {
	merge      MergeGateway
	workspaces WorkspaceFactory
	prs        PROpener
	store      ExperimentStore

	identity string
	timeouts Timeouts
}

// Option is a functional option for configuring the orchestrator.
type Option func(*Orchestrator) error

// WithIdentity sets the branch namespace, the "northstar" in
// northstar/increase-button-contrast.
func WithIdentity(identity string) Option {
	return func(o *Orchestrator) error {
		identity = strings.TrimSpace(identity)
		if identity == "" {
			return errors.New("identity cannot be empty")
		}
		if strings.ContainsAny(identity, " /") {
			return fmt.Errorf("identity %q cannot contain spaces or slashes", identity)
		}
		o.identity = identity
		return nil
	}
}

// WithTimeouts overrides the per-step and overall deadlines.
func WithTimeouts(t Timeouts) Option {
	return func(o *Orchestrator) error {
		if t.Merge <= 0 || t.Git <= 0 || t.PR <= 0 || t.Overall <= 0 {
			return fmt.Errorf("timeouts must all be positive, got %+v", t)
		}
		o.timeouts = t
		return nil
	}
}

// New constructs an Orchestrator.
func New(merge MergeGateway, workspaces WorkspaceFactory, prs PROpener, store ExperimentStore, opts ...Option) (*Orchestrator, error) {
	switch {
	case merge == nil:
		return nil, errors.New("merge gateway cannot be nil")
	case workspaces == nil:
		return nil, errors.New("workspace factory cannot be nil")
	case prs == nil:
		return nil, errors.New("pr opener cannot be nil")
	case store == nil:
		return nil, errors.New("experiment store cannot be nil")
	}

	o := &Orchestrator{
		merge:      merge,
		workspaces: workspaces,
		prs:        prs,
		store:      store,
		identity:   "northstar",
		timeouts:   defaultTimeouts(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return o, nil
}

// Execute runs the pipeline once. It is synchronous and single-shot: nothing
// is retried here beyond the committer's one re-probe on a rejected push,
// and the caller decides whether a failed experiment is worth a new one.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeouts.Overall)
	defer cancel()

	now := time.Now().UTC()
	exp := &lifecycle.Experiment{
		ID:          lifecycle.NewExperimentID(),
		ProposalID:  req.ProposalID,
		Instruction: req.Instruction,
		UpdateBlock: req.UpdateBlock,
		Status:      lifecycle.ExperimentRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// The running record lands before any side effect so a crash leaves an
	// auditable trail instead of a silent gap.
	if err := o.store.CreateExperiment(ctx, exp); err != nil {
		return nil, fmt.Errorf("creating experiment record: %w", err)
	}

	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("experiment", exp.ID))

	result, err := o.run(ctx, req, exp)
	if err != nil {
		o.recordFailure(ctx, exp, err)
		return nil, err
	}

	exp.Status = lifecycle.ExperimentCompleted
	exp.PRURL = result.PRURL
	exp.Branch = result.Branch
	exp.UpdatedAt = time.Now().UTC()
	if err := o.store.UpdateExperiment(ctx, exp); err != nil {
		return result, fmt.Errorf("recording completion of experiment %s: %w", exp.ID, err)
	}

	result.ExperimentID = exp.ID
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, exp *lifecycle.Experiment) (*Result, error) {
	log := clog.FromContext(ctx)
	owner, repo, _ := strings.Cut(req.RepoFullName, "/")

	gitCtx, cancel := context.WithTimeout(ctx, o.timeouts.Git)
	ws, err := o.workspaces.NewWorkspace(gitCtx, req.RepoFullName, req.BaseBranch)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("preparing workspace: %w", err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			log.Warnf("Removing workspace: %v", cerr)
		}
	}()

	original, err := ws.ReadFile(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetFileMissing, req.FilePath)
	}

	mergeCtx, cancel := context.WithTimeout(ctx, o.timeouts.Merge)
	merged, err := o.merge.Merge(mergeCtx, req.Instruction, original, req.UpdateBlock)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("merging update into %s: %w", req.FilePath, err)
	}
	if merged == original {
		return nil, ErrNoChangeDetected
	}

	gitCtx, cancel = context.WithTimeout(ctx, o.timeouts.Git)
	defer cancel()

	branch, err := ws.AllocateBranch(gitCtx, o.identity+"/"+slugify(req.Instruction))
	if err != nil {
		return nil, fmt.Errorf("allocating branch: %w", err)
	}
	exp.Branch = branch

	if err := ws.WriteFile(req.FilePath, merged); err != nil {
		return nil, fmt.Errorf("writing merged file: %w", err)
	}
	if err := ws.CommitAndPush(gitCtx, fmt.Sprintf("Northstar: %s", req.Instruction)); err != nil {
		if errors.Is(err, clonemanager.ErrNoChanges) {
			return nil, ErrNoChangeDetected
		}
		return nil, fmt.Errorf("committing and pushing: %w", err)
	}
	// The push may have re-probed onto a new name.
	branch = ws.Branch()
	exp.Branch = branch

	prCtx, cancel := context.WithTimeout(ctx, o.timeouts.PR)
	defer cancel()

	pr, err := o.prs.Open(prCtx, owner, repo, branch, req.BaseBranch,
		fmt.Sprintf("Northstar: %s", req.Instruction), prBody(req))
	if err != nil {
		// The pushed branch stays behind on purpose: the work is done and
		// inspectable even though no PR tracks it yet.
		return nil, fmt.Errorf("opening pull request for %s: %w", branch, err)
	}

	log.With("pr", pr.URL, "branch", branch).Info("Execution completed")
	return &Result{Branch: branch, PRURL: pr.URL, PRNumber: pr.Number}, nil
}

// recordFailure writes the failed status back even when the step that failed
// exhausted the context deadline.
func (o *Orchestrator) recordFailure(ctx context.Context, exp *lifecycle.Experiment, cause error) {
	exp.Status = lifecycle.ExperimentFailed
	exp.FailureReason = cause.Error()
	exp.UpdatedAt = time.Now().UTC()

	if err := o.store.UpdateExperiment(context.WithoutCancel(ctx), exp); err != nil {
		clog.FromContext(ctx).Errorf("Recording failure of experiment %s: %v", exp.ID, err)
	}
}

func prBody(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automated change proposed by Northstar.\n\n")
	fmt.Fprintf(&b, "**Instruction:** %s\n\n", req.Instruction)
	fmt.Fprintf(&b, "**File:** `%s`\n", req.FilePath)
	if req.ProposalID != "" {
		fmt.Fprintf(&b, "**Proposal:** `%s`\n", req.ProposalID)
	}
	return b.String()
}
