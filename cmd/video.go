package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/metadata"
	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/services"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/ui"
)

// videoService resolves the owner credential of --channel and builds a client for it.
func (r *Runner) videoService(ctx context.Context, cmd *cli.Command, a *app) (services.VideoService, *models.Channel, error) {
	ch, err := r.lookupChannel(a, cmd.String("channel"))
	if err != nil {
		return nil, nil, err
	}

	cred, err := a.resolver.Resolve(ctx, *ch)
	if err != nil {
		return nil, nil, err
	}

	svc, err := r.videoFactory()(ctx, cred)
	if err != nil {
		return nil, nil, err
	}
	return svc, ch, nil
}

func videoID(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}
	return id, nil
}

// VideoShow prints the remote metadata of a video.
func (r *Runner) VideoShow(ctx context.Context, cmd *cli.Command, a *app) error {
	id, err := videoID(cmd)
	if err != nil {
		return err
	}

	svc, _, err := r.videoService(ctx, cmd, a)
	if err != nil {
		return err
	}

	video, err := svc.Video(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(video, cmd.Bool("pretty"))
	}

	r.writePlainHeader(video.Title)
	r.writePlain("ID:        %s\n", video.ID)
	r.writePlain("Watch:     %s%s\n", r.config.YouTube.WatchURL, video.ID)
	r.writePlain("Privacy:   %s\n", video.PrivacyStatus)
	r.writePlain("Upload:    %s\n", video.UploadStatus)
	if video.Duration > 0 {
		r.writePlain("Duration:  %s\n", video.Duration)
	}
	if video.CategoryID != "" {
		r.writePlain("Category:  %s\n", video.CategoryID)
	}
	if video.PublishedAt != "" {
		r.writePlain("Published: %s\n", video.PublishedAt)
	}
	if len(video.Tags) > 0 {
		r.writePlain("Tags:      %s\n", strings.Join(video.Tags, ", "))
	}
	if video.Description != "" {
		r.writePlainln("%s", video.Description)
	}
	return nil
}

// VideoUpdate overwrites a video's metadata after running the same checks as a publish.
func (r *Runner) VideoUpdate(ctx context.Context, cmd *cli.Command, a *app) error {
	id, err := videoID(cmd)
	if err != nil {
		return err
	}

	var meta models.Metadata
	if err := readJSONFile(cmd.String("metadata"), &meta); err != nil {
		return err
	}
	meta.PrivacyStatus = metadata.NormalizePrivacy(meta.PrivacyStatus)
	if err := metadata.Validate(meta); err != nil {
		return err
	}
	if meta.Description, err = metadata.RenderChapters(meta.Chapters, meta.Description); err != nil {
		return err
	}

	svc, ch, err := r.videoService(ctx, cmd, a)
	if err != nil {
		return err
	}

	if err := svc.UpdateVideo(ctx, id, meta); err != nil {
		return err
	}

	r.logger.Info("video updated", "video", id, "channel", ch.Name)
	r.writePlain("%s Updated %s\n", ui.Success("✓"), id)
	return nil
}

// VideoDelete removes a video from the channel.
func (r *Runner) VideoDelete(ctx context.Context, cmd *cli.Command, a *app) error {
	id, err := videoID(cmd)
	if err != nil {
		return err
	}

	svc, ch, err := r.videoService(ctx, cmd, a)
	if err != nil {
		return err
	}

	if err := svc.DeleteVideo(ctx, id); err != nil {
		return err
	}

	r.logger.Info("video deleted", "video", id, "channel", ch.Name)
	r.writePlain("%s Deleted %s\n", ui.Success("✓"), id)
	return nil
}
