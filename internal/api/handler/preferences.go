package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wowfoxz/botiquin-data/internal/api/respond"
	"github.com/wowfoxz/botiquin-data/internal/cache"
	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// preferencesPayload is the wire shape of notification preferences.
type preferencesPayload struct {
	Push                 bool    `json:"push"`
	Email                bool    `json:"email"`
	Browser              bool    `json:"browser"`
	Sound                bool    `json:"sound"`
	DaysBeforeExpiration int     `json:"days_before_expiration"`
	LowStockThreshold    float64 `json:"low_stock_threshold"`
}

func prefsCacheKey(userID string) string { return "prefs:" + userID }

// GetPreferences returns a user's notification preferences.
// @Summary Get notification preferences
// @Description Returns channel toggles and alert thresholds, with defaults for users who never saved any.
// @Tags preferences
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} preferencesPayload
// @Failure 400 {object} respond.ErrorResponse
// @Router /users/{userID}/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_USER_ID", "userID must be a UUID")
		return
	}

	if data, ok := h.deps.Cache.Get(prefsCacheKey(userID)); ok {
		respond.WriteRaw(w, http.StatusOK, data)
		return
	}

	p, err := h.deps.Preferences.Get(r.Context(), userID)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "PREFERENCES_FAILED", "Could not load preferences")
		return
	}

	payload := preferencesPayload{
		Push:                 p.Push,
		Email:                p.Email,
		Browser:              p.Browser,
		Sound:                p.Sound,
		DaysBeforeExpiration: p.DaysBeforeExpiration,
		LowStockThreshold:    p.LowStockThreshold,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "PREFERENCES_FAILED", "Could not encode preferences")
		return
	}
	h.deps.Cache.Set(prefsCacheKey(userID), data, cache.TTLPreferences)
	respond.WriteRaw(w, http.StatusOK, data)
}

// PutPreferences saves a user's notification preferences.
// @Summary Save notification preferences
// @Description Upserts channel toggles and alert thresholds, invalidating the cached copy.
// @Tags preferences
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param preferences body preferencesPayload true "Preferences"
// @Success 204
// @Failure 400 {object} respond.ErrorResponse
// @Router /users/{userID}/preferences [put]
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_USER_ID", "userID must be a UUID")
		return
	}

	var payload preferencesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON body")
		return
	}
	if payload.DaysBeforeExpiration < 0 || payload.LowStockThreshold < 0 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_THRESHOLD", "Thresholds must not be negative")
		return
	}

	p := reminder.Preferences{
		UserID:               userID,
		Push:                 payload.Push,
		Email:                payload.Email,
		Browser:              payload.Browser,
		Sound:                payload.Sound,
		DaysBeforeExpiration: payload.DaysBeforeExpiration,
		LowStockThreshold:    payload.LowStockThreshold,
	}
	if err := h.deps.Preferences.Put(r.Context(), p); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "PREFERENCES_FAILED", "Could not save preferences")
		return
	}

	h.deps.Cache.Delete(prefsCacheKey(userID))
	w.WriteHeader(http.StatusNoContent)
}
