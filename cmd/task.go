package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/formatter"
	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/services"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/ui"
)

// TaskAdd creates a task.
func (r *Runner) TaskAdd(ctx context.Context, cmd *cli.Command, a *app) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: task title", shared.ErrMissingArgument)
	}

	task := models.NewTask(title)
	if err := a.tasks.Create(task); err != nil {
		return err
	}

	r.logger.Info("task created", "id", task.ID, "sequence", task.Sequence)
	r.writePlain("%s Created task #%d %s (%s)\n", ui.Success("✓"), task.Sequence, task.Title, task.ID)
	return nil
}

// TaskList lists tasks, newest first.
func (r *Runner) TaskList(ctx context.Context, cmd *cli.Command, a *app) error {
	tasks, err := a.tasks.List(map[string]any{"status": cmd.String("status")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if tasks == nil {
			tasks = []*models.Task{}
		}
		return r.writeJSON(tasks, cmd.Bool("pretty"))
	}

	if len(tasks) == 0 {
		return r.writePlain("No tasks.\n")
	}

	for _, t := range tasks {
		r.writePlain("#%-4d %-10s %s\n", t.Sequence, t.Status, t.Title)
		r.writePlain("      %s\n", ui.Muted(t.ID))
	}
	return nil
}

// TaskShow prints a task with its revisions, audit comments and publish history.
func (r *Runner) TaskShow(ctx context.Context, cmd *cli.Command, a *app) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	detail, err := loadTaskExport(a, id)
	if err != nil {
		return err
	}
	task := detail.Task

	if cmd.Bool("json") {
		return r.writeJSON(detail, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("#%d %s", task.Sequence, task.Title))
	r.writePlain("ID:      %s\n", task.ID)
	r.writePlain("Status:  %s\n", task.Status)
	r.writePlain("Updated: %s\n", task.UpdatedAt.Format(time.RFC3339))

	r.writePlainln("Revisions (%d)", len(detail.Revisions))
	for _, rev := range detail.Revisions {
		r.writePlain("  #%d %s  %s\n", rev.Sequence, rev.AssetName, ui.Muted(rev.AssetURL))
	}

	r.writePlainln("Comments (%d)", len(detail.Comments))
	for _, c := range detail.Comments {
		r.writePlain("  [%s] %s: %s\n", c.CreatedAt.Format(time.DateTime), c.Author, c.Body)
	}

	r.writePlainln("Publishes (%d)", len(detail.Publishes))
	for _, p := range detail.Publishes {
		r.writePlain("  %s  %s\n", ui.Muted(p.RequestID), describeOutcome(p))
	}
	return nil
}

// TaskRevision attaches a new revision, copying a local file into the asset store or
// recording an existing asset URL.
func (r *Runner) TaskRevision(ctx context.Context, cmd *cli.Command, a *app) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	file, rawURL := cmd.String("file"), cmd.String("url")
	if (file == "") == (rawURL == "") {
		return fmt.Errorf("%w: exactly one of --file or --url is required", shared.ErrInvalidArgument)
	}

	if _, err := a.tasks.Get(id); err != nil {
		return err
	}

	rev := &models.Revision{TaskID: id}
	if file != "" {
		stored, name, err := r.storeAsset(ctx, a, file)
		if err != nil {
			return err
		}
		rev.AssetURL, rev.AssetName = stored, name
	} else {
		rev.AssetURL, rev.AssetName = rawURL, assetName(rawURL)
	}

	if err := a.revisions.Create(rev); err != nil {
		return err
	}

	r.logger.Info("revision added", "task", id, "revision", rev.Sequence, "asset", rev.AssetURL)
	r.writePlain("%s Revision #%d: %s\n", ui.Success("✓"), rev.Sequence, rev.AssetURL)
	return nil
}

func (r *Runner) storeAsset(ctx context.Context, a *app, file string) (string, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", shared.ErrInvalidAsset, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", shared.ErrInvalidAsset, err)
	}

	name := filepath.Base(file)
	if err := services.CheckAsset(name, info.Size()); err != nil {
		return "", "", err
	}

	r.writePlain("→ Copying %s (%s) into the asset store...\n", name, formatSize(info.Size()))
	stored, err := a.assets.Put(ctx, name, f, info.Size())
	if err != nil {
		return "", "", fmt.Errorf("failed to store asset: %w", err)
	}
	return stored, name, nil
}

func assetName(rawURL string) string {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return path.Base(trimmed)
}

func describeOutcome(o *models.UploadOutcome) string {
	switch {
	case o.Succeeded():
		return ui.Success("published") + " " + o.WatchURL
	case o.State == models.StateFailed:
		return ui.Failure("failed") + fmt.Sprintf(" at %s: %s", o.Stage, o.Error)
	default:
		return ui.Warning(string(o.State))
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TaskExport writes a task's publish history to disk.
func (r *Runner) TaskExport(ctx context.Context, cmd *cli.Command, a *app) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}

	export, err := loadTaskExport(a, id)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	switch format := cmd.String("format"); format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("%s Exported %d publishes\n", ui.Success("✓"), len(export.Publishes))
		r.writePlain("  %s\n  %s\n", result.PublishesFile, result.TaskFile)
	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("%s Exported to %s\n", ui.Success("✓"), path)
	case "text", "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("%s Exported to %s\n", ui.Success("✓"), path)
	default:
		return fmt.Errorf("%w: unknown format %q (use csv, markdown or text)", shared.ErrInvalidArgument, format)
	}

	r.logger.Info("task exported", "task", id, "format", cmd.String("format"))
	return nil
}

func loadTaskExport(a *app, id string) (*models.TaskExport, error) {
	task, err := a.tasks.Get(id)
	if err != nil {
		return nil, err
	}

	export := &models.TaskExport{Task: task}
	if export.Revisions, err = a.revisions.List(id); err != nil {
		return nil, err
	}
	if export.Comments, err = a.comments.List(id); err != nil {
		return nil, err
	}
	if export.Publishes, err = a.publishes.List(id); err != nil {
		return nil, err
	}
	return export, nil
}
