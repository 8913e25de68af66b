package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/applymail/applymail/internal/auth"
	"github.com/applymail/applymail/internal/dispatcher"
	"github.com/applymail/applymail/internal/logger"
	"github.com/applymail/applymail/internal/models"
)

// BatchDispatcherService processes a whole batch of applications.
type BatchDispatcherService interface {
	Dispatch(ctx context.Context, req models.BatchRequest, userID string) (*models.BatchResult, error)
}

// ApplicationSenderService sends one application.
// This allows mocking in tests.
type ApplicationSenderService interface {
	Send(ctx context.Context, app models.ApplicationRequest, index int, opts dispatcher.SendOptions) ([]models.SendResult, error)
}

// ApplicationsHandler handles application send requests.
type ApplicationsHandler struct {
	dispatcher BatchDispatcherService
	sender     ApplicationSenderService
	log        *logger.Logger
}

// NewApplicationsHandler creates a new ApplicationsHandler.
func NewApplicationsHandler(batchDispatcher BatchDispatcherService, sender ApplicationSenderService) *ApplicationsHandler {
	return &ApplicationsHandler{
		dispatcher: batchDispatcher,
		sender:     sender,
		log:        logger.Get(),
	}
}

// sendPayload is one application plus its send options.
type sendPayload struct {
	models.ApplicationRequest
	DelayMs int  `json:"delayMs,omitempty"`
	DryRun  bool `json:"dryRun,omitempty"`
}

// Send sends one application to its recipients.
// POST /applications/send
func (h *ApplicationsHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
		return
	}

	var payload sendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid request payload"}`, http.StatusBadRequest)
		return
	}

	dryRun := payload.DryRun
	if payload.ApplicationRequest.DryRun != nil {
		dryRun = *payload.ApplicationRequest.DryRun
	}

	results, err := h.sender.Send(r.Context(), payload.ApplicationRequest, 0, dispatcher.SendOptions{
		UserID:         claims.ID,
		DryRun:         dryRun,
		RecipientDelay: time.Duration(payload.DelayMs) * time.Millisecond,
	})
	if err != nil {
		var vErr *dispatcher.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		h.log.Error().Err(err).Msg("application send failed")
		writeError(w, http.StatusInternalServerError, "failed to send application")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		OK      bool                `json:"ok"`
		Results []models.SendResult `json:"results"`
	}{
		OK:      true,
		Results: results,
	})
}

// SendBatch sends an ordered batch of applications.
// POST /applications/send-batch
func (h *ApplicationsHandler) SendBatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
		return
	}

	var req models.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request payload"}`, http.StatusBadRequest)
		return
	}
	if len(req.Applications) == 0 {
		http.Error(w, `{"error":"applications must be a non-empty array"}`, http.StatusBadRequest)
		return
	}

	batch, err := h.dispatcher.Dispatch(r.Context(), req, claims.ID)
	if err != nil {
		var vErr *dispatcher.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		h.log.Error().Err(err).Msg("batch dispatch failed")
		writeError(w, http.StatusInternalServerError, "failed to send batch")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		OK        bool                `json:"ok"`
		Total     int                 `json:"total"`
		Successes int                 `json:"successes"`
		Failures  int                 `json:"failures"`
		Results   []models.SendResult `json:"results"`
	}{
		OK:        true,
		Total:     batch.Total,
		Successes: batch.Successes,
		Failures:  batch.Failures,
		Results:   batch.Results,
	})
}

// writeError emits the uniform {"error": message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
