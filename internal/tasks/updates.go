package tasks

import (
	"fmt"

	"github.com/desertthunder/ytpub/internal/models"
)

// ProgressUpdate represents a progress event during a publish.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	RequestID string
	Phase     models.PublishState   // Stage the request is in
	Step      int                   // Current stage number
	Total     int                   // Number of stages
	Fraction  float64               // Upload fraction in [0, 1], only meaningful while uploading
	Bytes     int64                 // Bytes sent so far while uploading
	Message   string                // Human-readable message for display
	Outcome   *models.UploadOutcome // Set on the final update
}

// Done reports whether this is the last update of the request.
func (u ProgressUpdate) Done() bool {
	return u.Outcome != nil
}

const totalStages = 4

func stageNumber(state models.PublishState) int {
	switch state {
	case models.StateCredentialResolving:
		return 1
	case models.StateUploading:
		return 2
	case models.StateThumbnailAttaching:
		return 3
	case models.StateFinalizing, models.StateSucceeded, models.StateFailed:
		return 4
	default:
		return 0
	}
}

func stageUpdate(req *models.PublishRequest, state models.PublishState) ProgressUpdate {
	var msg string
	switch state {
	case models.StateCredentialResolving:
		msg = fmt.Sprintf("Resolving credentials for %s...", req.Channel.OwnerEmail)
	case models.StateUploading:
		msg = fmt.Sprintf("Uploading %s to %s...", req.Asset.Name, req.Channel.Name)
	case models.StateThumbnailAttaching:
		msg = "Attaching thumbnail..."
	case models.StateFinalizing:
		msg = "Recording outcome..."
	default:
		msg = string(state)
	}

	return ProgressUpdate{
		RequestID: req.ID,
		Phase:     state,
		Step:      stageNumber(state),
		Total:     totalStages,
		Message:   msg,
	}
}

func uploadUpdate(req *models.PublishRequest, fraction float64, sent int64) ProgressUpdate {
	return ProgressUpdate{
		RequestID: req.ID,
		Phase:     models.StateUploading,
		Step:      stageNumber(models.StateUploading),
		Total:     totalStages,
		Fraction:  fraction,
		Bytes:     sent,
		Message:   fmt.Sprintf("Uploading %s (%.0f%%)...", req.Asset.Name, fraction*100),
	}
}

func doneUpdate(req *models.PublishRequest, outcome *models.UploadOutcome) ProgressUpdate {
	out := *outcome
	update := ProgressUpdate{
		RequestID: req.ID,
		Phase:     outcome.State,
		Step:      totalStages,
		Total:     totalStages,
		Outcome:   &out,
	}

	if outcome.Succeeded() {
		update.Fraction = 1
		update.Message = fmt.Sprintf("✓ Published %q: %s", outcome.Title, outcome.WatchURL)
	} else {
		update.Message = fmt.Sprintf("✗ %s failed at %s: %s", outcome.Title, outcome.Stage, outcome.Error)
	}
	return update
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
