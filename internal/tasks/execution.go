package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/services"
)

// execution walks one claimed request through the worker stages.
type execution struct {
	p       *Publisher
	r       *run
	req     *models.PublishRequest
	outcome *models.UploadOutcome
	logger  *log.Logger

	thumbnails *services.ThumbnailUploader
}

// StageError attributes a publish failure to the stage it happened in.
type StageError struct {
	Stage models.PublishState
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func (ex *execution) execute(ctx context.Context) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			ex.fail(fmt.Errorf("publish panicked: %v", rec))
		}
		ex.logger.Debug("publish finished", "state", ex.outcome.State, "elapsed", time.Since(start).Round(time.Millisecond))
		ex.finish()
	}()

	videoID, err := ex.upload(ctx)
	if err == nil {
		ex.outcome.VideoID = videoID
		ex.outcome.WatchURL = ex.p.opts.WatchURL + videoID
		ex.attachThumbnail(ctx)
		ex.finalize()
	} else {
		ex.fail(err)
	}
}

// upload runs the credential and upload stages and returns the created video id.
func (ex *execution) upload(ctx context.Context) (string, error) {
	ex.enter(models.StateCredentialResolving)

	cred, err := ex.p.deps.Resolver.Resolve(ctx, ex.req.Channel)
	if err != nil {
		return "", &StageError{models.StateCredentialResolving, err}
	}
	if _, err := cred.TokenContext(ctx); err != nil {
		return "", &StageError{models.StateCredentialResolving, err}
	}
	videos, err := ex.p.deps.Videos(ctx, cred)
	if err != nil {
		return "", &StageError{models.StateCredentialResolving, err}
	}
	ex.logger.Debug("credential resolved", "email", cred.Email(), "expiry", cred.Expiry())

	ex.enter(models.StateUploading)

	asset, err := ex.p.deps.Assets.Open(ctx, ex.req.Asset.URL)
	if err != nil {
		return "", &StageError{models.StateUploading, err}
	}
	defer asset.Body.Close()

	name := ex.req.Asset.Name
	if name == "" {
		name = asset.Name
	}

	uploadCtx := ctx
	if ex.p.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, ex.p.opts.UploadTimeout)
		defer cancel()
	}

	videoID, err := videos.Upload(uploadCtx, services.UploadInput{
		Metadata:    ex.req.Metadata,
		Description: ex.req.Description,
		Name:        name,
		Size:        asset.Size,
		Body:        asset.Body,
	}, func(fraction float64, sent int64) {
		sendProgress(ex.r.progress, uploadUpdate(ex.req, fraction, sent))
	})
	if err != nil {
		return "", &StageError{models.StateUploading, err}
	}

	ex.logger.Info("video uploaded", "video", videoID, "bytes", asset.Size)
	if ex.p.deps.Thumbnails != nil {
		ex.thumbnails = services.NewThumbnailUploader(ex.p.deps.Thumbnails, videos)
	}
	return videoID, nil
}

// attachThumbnail never fails the publish.
func (ex *execution) attachThumbnail(ctx context.Context) {
	url := ex.req.Metadata.ThumbnailURL
	if url == "" || ex.thumbnails == nil {
		return
	}

	ex.enter(models.StateThumbnailAttaching)

	ctx, cancel := context.WithTimeout(ctx, ex.p.opts.ThumbnailTimeout)
	defer cancel()

	err := ex.thumbnails.Attach(ctx, ex.outcome.VideoID, url)
	switch {
	case err == nil:
		ex.outcome.Thumbnail = models.ThumbnailAttached
	case errors.Is(err, services.ErrThumbnailSkipped):
		ex.outcome.Thumbnail = models.ThumbnailSkipped
		ex.logger.Warn("thumbnail skipped", "video", ex.outcome.VideoID, "url", url, "err", err)
	default:
		ex.outcome.Thumbnail = models.ThumbnailFailed
		ex.logger.Error("thumbnail failed", "video", ex.outcome.VideoID, "url", url, "err", err)
	}
}

func (ex *execution) finalize() {
	ex.enter(models.StateFinalizing)

	ex.outcome.State = models.StateSucceeded
	ex.outcome.Stage = models.StateFinalizing

	comment := &models.Comment{
		TaskID: ex.req.TaskID,
		Author: SystemAuthor,
		Body: fmt.Sprintf("Video published to %s: %s (id %s)",
			ex.req.Channel.Name, ex.outcome.WatchURL, ex.outcome.VideoID),
	}

	if err := ex.p.deps.Publishes.Complete(ex.outcome, comment); err != nil {
		// The video exists remotely; keep the id on record even when the task bookkeeping fails.
		ex.logger.Error("failed to record published video", "video", ex.outcome.VideoID, "err", err)
		ex.persist()
	}

	ex.logger.Info("video published", "video", ex.outcome.VideoID, "url", ex.outcome.WatchURL,
		"thumbnail", ex.outcome.Thumbnail)
}

func (ex *execution) fail(err error) {
	stage := ex.outcome.Stage
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
		err = se.Err
	}

	ex.outcome.State = models.StateFailed
	ex.outcome.Stage = stage
	ex.outcome.Error = err.Error()
	ex.outcome.Err = err

	ex.logger.Error("publish failed", "stage", stage, "err", err)
	ex.persist()
}

// enter moves the request into a non-terminal stage.
func (ex *execution) enter(state models.PublishState) {
	ex.p.mu.Lock()
	ex.r.state = state
	ex.p.mu.Unlock()

	ex.outcome.State = state
	ex.outcome.Stage = state
	ex.persist()

	sendProgress(ex.r.progress, stageUpdate(ex.req, state))
}

func (ex *execution) persist() {
	if err := ex.p.deps.Publishes.Update(ex.outcome); err != nil {
		ex.logger.Warn("failed to record publish state", "state", ex.outcome.State, "err", err)
	}
}

func (ex *execution) finish() {
	out := *ex.outcome

	ex.p.mu.Lock()
	ex.r.state = out.State
	ex.r.outcome = &out
	ex.r.finished = ex.p.now()
	close(ex.r.done)
	ex.p.mu.Unlock()

	sendProgress(ex.r.progress, doneUpdate(ex.req, &out))
}
