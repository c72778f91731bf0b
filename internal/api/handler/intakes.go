package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wowfoxz/botiquin-data/internal/api/respond"
)

// intakeRequest is the "register dose taken" action. TakenAt defaults to
// the server clock when omitted.
type intakeRequest struct {
	MedicationID string     `json:"medication_id"`
	ConsumerID   string     `json:"consumer_id"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
}

// RegisterIntake records that a dose was administered.
// @Summary Register dose taken
// @Description Creates an immutable intake record. Doses taken within 30 minutes of an expected dose suppress that dose's reminder.
// @Tags intakes
// @Accept json
// @Produce json
// @Param intake body intakeRequest true "Intake"
// @Success 201 {object} map[string]string
// @Failure 400 {object} respond.ErrorResponse
// @Router /intakes [post]
func (h *Handler) RegisterIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON body")
		return
	}
	if _, err := uuid.Parse(req.MedicationID); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_MEDICATION_ID", "medication_id must be a UUID")
		return
	}
	if _, err := uuid.Parse(req.ConsumerID); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_CONSUMER_ID", "consumer_id must be a UUID")
		return
	}

	takenAt := time.Now().UTC()
	if req.TakenAt != nil {
		takenAt = req.TakenAt.UTC()
	}

	id, err := h.deps.Intakes.Register(r.Context(), req.MedicationID, req.ConsumerID, takenAt)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTAKE_FAILED", "Could not record intake")
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, map[string]string{"id": id})
}
