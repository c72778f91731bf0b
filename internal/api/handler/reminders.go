package handler

import (
	"net/http"
	"time"

	"github.com/wowfoxz/botiquin-data/internal/api/respond"
)

// RunReminders triggers one scheduler pass.
// @Summary Run reminder pass
// @Description Runs one complete reminder scheduler pass (expiration, low stock, due doses) and returns the summary. Normally driven by the in-process worker; this endpoint is the manual/cron trigger.
// @Tags reminders
// @Produce json
// @Success 200 {object} reminder.PassResult
// @Failure 500 {object} reminder.PassResult
// @Router /reminders/run [post]
func (h *Handler) RunReminders(w http.ResponseWriter, r *http.Request) {
	result := h.deps.Scheduler.Run(r.Context(), time.Now())

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	respond.WriteJSONObject(w, status, result)
}
