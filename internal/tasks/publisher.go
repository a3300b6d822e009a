package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytpub/internal/credentials"
	"github.com/desertthunder/ytpub/internal/metadata"
	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/repositories"
	"github.com/desertthunder/ytpub/internal/services"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/storage"
)

// SystemAuthor signs the comments the pipeline appends to tasks.
const SystemAuthor = "ytpub"

// PublisherDeps are the collaborators of a [Publisher].
type PublisherDeps struct {
	Tasks      *repositories.TaskRepository
	Revisions  *repositories.RevisionRepository
	Channels   *repositories.ChannelRepository
	Publishes  *repositories.PublishRepository
	Resolver   *credentials.Resolver
	Assets     storage.Store
	Videos     services.Factory
	Thumbnails *services.ThumbnailFetcher
	Pool       *Pool
	Logger     *log.Logger
}

// PublisherOpts holds per-stage bounds and output formatting.
type PublisherOpts struct {
	WatchURL         string        // prefix for the watch link (default: https://www.youtube.com/watch?v=)
	UploadTimeout    time.Duration // zero leaves the upload bounded only by shutdown
	ThumbnailTimeout time.Duration // whole fetch and set (default: 90s)
	RetainFinished   time.Duration // how long finished requests stay in memory (default: 10m)
}

// SubmitInput is a publish request as received from a caller.
type SubmitInput struct {
	TaskID      string
	ChannelID   string
	Metadata    models.Metadata
	SubmittedBy string
	Progress    chan<- ProgressUpdate // optional; updates are dropped when it is full
}

// Publisher validates publish requests synchronously and runs the upload on its [Pool].
type Publisher struct {
	deps PublisherDeps
	opts PublisherOpts

	mu   sync.Mutex
	runs map[string]*run
	now  func() time.Time
}

type run struct {
	req      models.PublishRequest
	progress chan<- ProgressUpdate
	claimed  bool
	state    models.PublishState
	outcome  *models.UploadOutcome
	done     chan struct{}
	finished time.Time
}

// NewPublisher creates a [Publisher].
func NewPublisher(deps PublisherDeps, opts PublisherOpts) *Publisher {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	if opts.WatchURL == "" {
		opts.WatchURL = "https://www.youtube.com/watch?v="
	}
	if opts.ThumbnailTimeout <= 0 {
		opts.ThumbnailTimeout = 90 * time.Second
	}
	if opts.RetainFinished <= 0 {
		opts.RetainFinished = 10 * time.Minute
	}
	return &Publisher{deps: deps, opts: opts, runs: map[string]*run{}, now: time.Now}
}

// Submit runs the validating stage and, when it passes, queues the upload.
//
// Every validation failure is returned here and nothing is queued. The returned request is
// immutable; its ID can be passed to [Publisher.Wait].
func (p *Publisher) Submit(ctx context.Context, in SubmitInput) (*models.PublishRequest, error) {
	req, err := p.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	r := &run{req: *req, progress: in.Progress, state: models.StateValidating, done: make(chan struct{})}
	outcome := newOutcome(req)
	if err := p.deps.Publishes.Create(outcome); err != nil {
		return nil, fmt.Errorf("failed to record publish: %w", err)
	}

	p.mu.Lock()
	p.prune()
	p.runs[req.ID] = r
	p.mu.Unlock()

	if err := p.deps.Pool.Submit(p.job(req.ID)); err != nil {
		p.mu.Lock()
		delete(p.runs, req.ID)
		p.mu.Unlock()

		outcome.State = models.StateFailed
		outcome.Stage = models.StateValidating
		outcome.Error = err.Error()
		if uerr := p.deps.Publishes.Update(outcome); uerr != nil {
			p.deps.Logger.Error("failed to record rejected publish", "request", req.ID, "err", uerr)
		}
		return nil, err
	}

	p.deps.Logger.Info("publish queued",
		"request", req.ID, "task", req.TaskID, "channel", req.Channel.Name, "title", req.Metadata.Title)
	return req, nil
}

// prepare loads and validates everything a publish needs, without side effects.
func (p *Publisher) prepare(ctx context.Context, in SubmitInput) (*models.PublishRequest, error) {
	task, err := p.deps.Tasks.Get(in.TaskID)
	if err != nil {
		return nil, err
	}

	rev, err := p.deps.Revisions.Latest(task.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: task %q has no revision to publish", shared.ErrInvalidAsset, task.Title)
	}
	if err != nil {
		return nil, err
	}
	if rev.AssetURL == "" {
		return nil, fmt.Errorf("%w: revision %d of %q has no binary", shared.ErrInvalidAsset, rev.Sequence, task.Title)
	}

	ch, err := p.deps.Channels.Get(in.ChannelID)
	if err != nil {
		return nil, err
	}
	if !ch.Active {
		return nil, fmt.Errorf("%w: channel %q is inactive", shared.ErrValidation, ch.Name)
	}

	meta := in.Metadata.Clone()
	meta.PrivacyStatus = metadata.NormalizePrivacy(meta.PrivacyStatus)
	if err := metadata.Validate(meta); err != nil {
		return nil, err
	}

	description, err := metadata.RenderChapters(meta.Chapters, meta.Description)
	if err != nil {
		return nil, err
	}
	if err := metadata.ValidateRendered(description); err != nil {
		return nil, err
	}

	if err := p.deps.Resolver.CheckConnected(ctx, *ch); err != nil {
		return nil, err
	}

	return &models.PublishRequest{
		ID:          shared.GenerateID(),
		TaskID:      task.ID,
		RevisionID:  rev.ID,
		Asset:       models.AssetRef{URL: rev.AssetURL, Name: rev.AssetName},
		Channel:     *ch,
		Metadata:    meta,
		Description: description,
		SubmittedBy: in.SubmittedBy,
		CreatedAt:   time.Now(),
	}, nil
}

func (p *Publisher) job(requestID string) Job {
	return func(ctx context.Context) {
		p.mu.Lock()
		r, ok := p.runs[requestID]
		p.mu.Unlock()
		if !ok {
			return
		}
		if _, err := p.Process(ctx, &r.req); err != nil {
			p.deps.Logger.Warn("publish not run", "request", requestID, "err", err)
		}
	}
}

// Process runs the worker stages of req and returns its terminal outcome.
//
// A request runs at most once; a second call returns [shared.ErrAlreadyProcessed].
func (p *Publisher) Process(ctx context.Context, req *models.PublishRequest) (*models.UploadOutcome, error) {
	r, err := p.claim(req)
	if err != nil {
		return nil, err
	}

	logger := p.deps.Logger.With(
		"request", req.ID, "task", req.TaskID, "channel", req.Channel.Name, "title", req.Metadata.Title)

	outcome := newOutcome(req)
	outcome.CreatedAt = req.CreatedAt
	ex := &execution{p: p, r: r, req: req, outcome: outcome, logger: logger}
	ex.execute(ctx)

	return ex.outcome, nil
}

func (p *Publisher) claim(req *models.PublishRequest) (*run, error) {
	p.mu.Lock()
	_, tracked := p.runs[req.ID]
	p.mu.Unlock()

	if !tracked {
		// Finished requests are dropped from memory; the publishes row still records them.
		stored, err := p.deps.Publishes.Get(req.ID)
		switch {
		case err == nil && stored.State.Terminal():
			return nil, fmt.Errorf("%w: %s", shared.ErrAlreadyProcessed, req.ID)
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.runs[req.ID]
	if !ok {
		r = &run{req: *req, state: models.StateValidating, done: make(chan struct{})}
		p.runs[req.ID] = r
	}
	if r.claimed {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlreadyProcessed, req.ID)
	}
	r.claimed = true
	return r, nil
}

// Wait blocks until the request is terminal and returns its outcome.
//
// Requests from before a restart are read back from the publishes table.
func (p *Publisher) Wait(ctx context.Context, requestID string) (*models.UploadOutcome, error) {
	p.mu.Lock()
	p.prune()
	r, ok := p.runs[requestID]
	p.mu.Unlock()

	if !ok {
		stored, err := p.deps.Publishes.Get(requestID)
		if err != nil {
			return nil, err
		}
		if !stored.State.Terminal() {
			return nil, fmt.Errorf("%w: publish %s is not running in this process", shared.ErrServiceUnavailable, requestID)
		}
		return stored, nil
	}

	select {
	case <-r.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		out := *r.outcome
		return &out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// prune drops runs that finished longer than RetainFinished ago. Callers hold p.mu.
func (p *Publisher) prune() {
	cutoff := p.now().Add(-p.opts.RetainFinished)
	for id, r := range p.runs {
		if !r.finished.IsZero() && r.finished.Before(cutoff) {
			delete(p.runs, id)
		}
	}
}

// Shutdown stops the pool, letting running publishes finish until ctx ends.
func (p *Publisher) Shutdown(ctx context.Context) error {
	return p.deps.Pool.Shutdown(ctx)
}

func newOutcome(req *models.PublishRequest) *models.UploadOutcome {
	return &models.UploadOutcome{
		RequestID: req.ID,
		TaskID:    req.TaskID,
		ChannelID: req.Channel.ID,
		Title:     req.Metadata.Title,
		State:     models.StateValidating,
		CreatedAt: req.CreatedAt,
	}
}
