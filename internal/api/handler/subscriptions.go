package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wowfoxz/botiquin-data/internal/api/respond"
)

// subscribeRequest mirrors the browser PushSubscription JSON shape plus the
// owning user.
type subscribeRequest struct {
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// GetVAPIDKey returns the public VAPID key the browser needs to subscribe.
// @Summary VAPID public key
// @Description Returns the server's VAPID public key, or 404 when push is not configured.
// @Tags push
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} respond.ErrorResponse
// @Router /push/vapid [get]
func (h *Handler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.deps.VAPIDPublicKey == "" {
		respond.WriteError(w, http.StatusNotFound, "PUSH_DISABLED", "Push notifications are not configured")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]string{
		"public_key": h.deps.VAPIDPublicKey,
	})
}

// CreateSubscription registers a Web Push endpoint for a user.
// @Summary Register push subscription
// @Description Stores a browser PushSubscription. Re-subscribing the same endpoint refreshes its keys.
// @Tags push
// @Accept json
// @Produce json
// @Param subscription body subscribeRequest true "Subscription"
// @Success 201 {object} map[string]string
// @Failure 400 {object} respond.ErrorResponse
// @Router /push/subscriptions [post]
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON body")
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_USER_ID", "user_id must be a UUID")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SUBSCRIPTION", "endpoint, keys.p256dh and keys.auth are required")
		return
	}

	sub, err := h.deps.Subscriptions.Create(r.Context(), req.UserID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "SUBSCRIBE_FAILED", "Could not store subscription")
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, map[string]string{"id": sub.ID})
}

// DeleteSubscription removes a Web Push endpoint.
// @Summary Remove push subscription
// @Description Deletes a stored subscription on user unsubscribe.
// @Tags push
// @Produce json
// @Param subscriptionID path string true "Subscription ID"
// @Success 204
// @Failure 400 {object} respond.ErrorResponse
// @Router /push/subscriptions/{subscriptionID} [delete]
func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "subscriptionID")
	if _, err := uuid.Parse(id); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SUBSCRIPTION_ID", "subscriptionID must be a UUID")
		return
	}
	if err := h.deps.Subscriptions.Delete(r.Context(), id); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "UNSUBSCRIBE_FAILED", "Could not delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
