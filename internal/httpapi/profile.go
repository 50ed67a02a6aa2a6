package httpapi

import (
	"net/http"

	"github.com/dmehra2102/notely/pkg/auth"
)

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.svc.GetProfile(r.Context(), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toMe(id, user))
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetProfile(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfile(user))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), userID(r), req.Name, req.Avatar)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfile(user))
}
