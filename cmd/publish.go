package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/tasks"
	"github.com/desertthunder/ytpub/internal/ui"
)

const tuiLogPath = "./tmp/ytpub-tui.log"

// logToFile redirects logs to a file before the pipeline is built when --tui is set, so
// worker log lines do not interfere with TUI rendering.
func (r *Runner) logToFile(next cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Bool("tui") {
			fileLogger, err := shared.NewFileLogger(tuiLogPath)
			if err != nil {
				return fmt.Errorf("failed to create file logger: %w", err)
			}
			r.SetLogger(fileLogger)
		}
		return next(ctx, cmd)
	}
}

// Publish validates and queues a publish, then follows it to the end.
//
// The process has to stay up until the upload finishes, so without --wait the command
// prints the request id and drains the pool on exit.
func (r *Runner) Publish(ctx context.Context, cmd *cli.Command, a *app) error {
	taskID := cmd.StringArg("task")
	if taskID == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	meta, err := metadataFromFlags(cmd)
	if err != nil {
		return err
	}

	submittedBy := cmd.String("by")
	if submittedBy == "" {
		submittedBy = os.Getenv("USER")
	}

	updates := make(chan tasks.ProgressUpdate, 64)
	req, err := a.publisher.Submit(ctx, tasks.SubmitInput{
		TaskID:      taskID,
		ChannelID:   cmd.String("channel"),
		Metadata:    meta,
		SubmittedBy: submittedBy,
		Progress:    updates,
	})
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("tui"):
		return r.followTUI(ctx, a, req, updates)
	case cmd.Bool("wait"):
		return r.followPlain(ctx, cmd, a, req, updates)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"id": req.ID, "status": "queued"}, cmd.Bool("pretty"))
	}
	r.writePlain("%s Queued %q for %s (request %s)\n", ui.Success("✓"), req.Metadata.Title, req.Channel.Name, req.ID)
	r.writePlain("Uploading before exit; check later with: ytpub task show %s\n", req.TaskID)
	return nil
}

func (r *Runner) followPlain(ctx context.Context, cmd *cli.Command, a *app, req *models.PublishRequest, updates <-chan tasks.ProgressUpdate) error {
	stop, done := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(done)
		lastPercent := -1
		for {
			var update tasks.ProgressUpdate
			select {
			case update = <-updates:
			case <-stop:
				return
			}
			if update.Done() {
				return
			}
			if update.Phase == models.StateUploading && update.Fraction > 0 {
				percent := int(update.Fraction * 100)
				if percent/10 == lastPercent/10 {
					continue
				}
				lastPercent = percent
			}
			if !cmd.Bool("json") {
				r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	outcome, err := a.publisher.Wait(ctx, req.ID)
	close(stop)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(outcome, cmd.Bool("pretty"))
	}
	return r.printOutcome(outcome)
}

func (r *Runner) followTUI(ctx context.Context, a *app, req *models.PublishRequest, updates <-chan tasks.ProgressUpdate) error {
	model := ui.NewModel(ctx, req, updates, a.publisher)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if model.Detached() {
		r.writePlain("Detached from %s; the upload finishes before exit.\n", req.ID)
		return nil
	}

	outcome, err := model.Outcome()
	if err != nil {
		return err
	}
	if outcome != nil && !outcome.Succeeded() {
		return outcomeError(outcome)
	}
	return nil
}

func (r *Runner) printOutcome(o *models.UploadOutcome) error {
	if !o.Succeeded() {
		r.writePlain("%s\n", ui.Failure(fmt.Sprintf("✗ Publish failed at %s: %s", o.Stage, o.Error)))
		return outcomeError(o)
	}

	r.writePlain("%s\n", ui.Success("✓ Published "+o.Title))
	r.writePlain("  Watch:     %s\n", o.WatchURL)
	r.writePlain("  Video ID:  %s\n", o.VideoID)
	if o.Thumbnail != models.ThumbnailNone {
		r.writePlain("  Thumbnail: %s\n", o.Thumbnail)
	}
	return nil
}

func outcomeError(o *models.UploadOutcome) error {
	if o.Err != nil {
		return fmt.Errorf("publish %s failed at %s: %w", o.RequestID, o.Stage, o.Err)
	}
	return fmt.Errorf("publish %s failed at %s: %s", o.RequestID, o.Stage, o.Error)
}

// metadataFromFlags reads --metadata, then applies individual flags on top.
func metadataFromFlags(cmd *cli.Command) (models.Metadata, error) {
	var meta models.Metadata
	if path := cmd.String("metadata"); path != "" {
		if err := readJSONFile(path, &meta); err != nil {
			return meta, err
		}
	}

	if cmd.IsSet("title") {
		meta.Title = cmd.String("title")
	}
	if cmd.IsSet("description") {
		meta.Description = cmd.String("description")
	}
	if cmd.IsSet("tag") {
		meta.Tags = cmd.StringSlice("tag")
	}
	if cmd.IsSet("privacy") {
		meta.PrivacyStatus = cmd.String("privacy")
	}
	if cmd.IsSet("category") {
		meta.CategoryID = cmd.String("category")
	}
	if cmd.IsSet("language") {
		meta.Language = cmd.String("language")
	}
	if cmd.IsSet("thumbnail") {
		meta.ThumbnailURL = cmd.String("thumbnail")
	}
	if cmd.IsSet("made-for-kids") {
		meta.MadeForKids = cmd.Bool("made-for-kids")
	}
	if cmd.IsSet("age-restricted") {
		meta.AgeRestricted = cmd.Bool("age-restricted")
	}
	if path := cmd.String("chapters"); path != "" {
		chapters, err := readChapters(path)
		if err != nil {
			return meta, err
		}
		meta.Chapters = chapters
	}

	if meta.PrivacyStatus == "" {
		meta.PrivacyStatus = models.PrivacyPrivate
	}
	return meta, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, path, err)
	}
	return nil
}

// readChapters accepts either a bare list or an object with a "chapters" key.
func readChapters(path string) ([]models.Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var chapters []models.Chapter
	if err := json.Unmarshal(data, &chapters); err == nil {
		return chapters, nil
	}

	var wrapped struct {
		Chapters []models.Chapter `json:"chapters"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, path, err)
	}
	return wrapped.Chapters, nil
}
