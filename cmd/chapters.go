package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/metadata"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/ui"
)

// chapterReport is the JSON shape of "chapters check".
type chapterReport struct {
	Valid       bool   `json:"valid"`
	Kind        string `json:"kind,omitempty"`
	Error       string `json:"error,omitempty"`
	Description string `json:"description,omitempty"`
}

// ChaptersCheck validates a chapter list and prints the description it would produce.
func (r *Runner) ChaptersCheck(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: chapters file", shared.ErrMissingArgument)
	}

	chapters, err := readChapters(path)
	if err != nil {
		return err
	}

	description, err := metadata.RenderChapters(chapters, cmd.String("description"))
	report := chapterReport{Valid: err == nil, Description: description}
	if err != nil {
		report.Error = err.Error()
		var chErr *metadata.ChapterError
		if errors.As(err, &chErr) {
			report.Kind = string(chErr.Kind)
		}
	}

	if cmd.Bool("json") {
		if werr := r.writeJSON(report, cmd.Bool("pretty")); werr != nil {
			return werr
		}
		return err
	}

	if err != nil {
		r.writePlain("%s\n", ui.Failure("✗ "+report.Error))
		return err
	}

	r.writePlain("%s %d chapters\n\n", ui.Success("✓"), len(chapters))
	r.writePlain("%s\n", ui.Box(description))
	return nil
}
