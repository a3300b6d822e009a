package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytpub/internal/metadata"
	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/tasks"
)

const maxRequestBody = 1 << 20

// Submitter queues publishes. Implemented by [tasks.Publisher].
type Submitter interface {
	Submit(ctx context.Context, in tasks.SubmitInput) (*models.PublishRequest, error)
}

// OutcomeReader loads stored publish outcomes. Implemented by repositories.PublishRepository.
type OutcomeReader interface {
	Get(id string) (*models.UploadOutcome, error)
}

// PublishRequestBody is the JSON body of POST /tasks/{id}/publish.
type PublishRequestBody struct {
	ChannelID   string          `json:"channelId"`
	SubmittedBy string          `json:"submittedBy,omitempty"`
	Metadata    models.Metadata `json:"metadata"`
}

// PublishAccepted is the 202 response of POST /tasks/{id}/publish.
type PublishAccepted struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	ChannelID string `json:"channelId"`
	Status    string `json:"status"`
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// PublishHandler exposes the publish pipeline over HTTP.
type PublishHandler struct {
	publisher Submitter
	outcomes  OutcomeReader
	logger    *log.Logger
}

// NewPublishHandler creates a [PublishHandler].
func NewPublishHandler(publisher Submitter, outcomes OutcomeReader, logger *log.Logger) *PublishHandler {
	return &PublishHandler{publisher: publisher, outcomes: outcomes, logger: logger}
}

// Register mounts the handler's endpoints on r.
func (h *PublishHandler) Register(r *BasicRouter) {
	r.HandleFunc(http.MethodPost, "/tasks/{id}/publish", h.Publish)
	r.HandleFunc(http.MethodGet, "/publishes/{id}", h.Outcome)
}

// Publish validates and queues a publish for the task in the path.
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var body PublishRequestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if body.ChannelID == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: "channelId is required", Field: "channelId"})
		return
	}

	taskID := r.PathValue("id")
	req, err := h.publisher.Submit(r.Context(), tasks.SubmitInput{
		TaskID:      taskID,
		ChannelID:   body.ChannelID,
		Metadata:    body.Metadata,
		SubmittedBy: body.SubmittedBy,
	})
	if err != nil {
		status, resp := describe(err)
		h.logger.Warn("publish rejected", "task", taskID, "channel", body.ChannelID, "status", status, "err", err)
		writeError(w, status, resp)
		return
	}

	writeJSON(w, http.StatusAccepted, PublishAccepted{
		ID:        req.ID,
		TaskID:    req.TaskID,
		ChannelID: req.Channel.ID,
		Status:    "queued",
	})
}

// Outcome returns the stored state of a publish.
func (h *PublishHandler) Outcome(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.outcomes.Get(r.PathValue("id"))
	if err != nil {
		status, resp := describe(err)
		writeError(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// describe maps pipeline errors onto a status code and response body.
func describe(err error) (int, errorBody) {
	resp := errorBody{Error: err.Error()}

	var verr *metadata.ValidationError
	var cerr *metadata.ChapterError
	switch {
	case errors.As(err, &verr):
		resp.Field = verr.Field
	case errors.As(err, &cerr):
		resp.Kind = string(cerr.Kind)
	}

	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidAsset),
		errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, resp
	case errors.Is(err, shared.ErrAccountNotConnected):
		return http.StatusConflict, resp
	case errors.Is(err, shared.ErrTaskNotFound),
		errors.Is(err, shared.ErrChannelNotFound),
		errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, resp
	case errors.Is(err, shared.ErrQueueFull),
		errors.Is(err, shared.ErrPublisherShutdown):
		return http.StatusServiceUnavailable, resp
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}
