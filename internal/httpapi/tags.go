package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *Handler) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	tag, err := h.svc.CreateTag(r.Context(), userID(r), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTag(tag, false))
}

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTags(tags, true))
}

func (h *Handler) handleGetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.svc.GetTag(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTag(tag, false))
}

func (h *Handler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTag(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Tag deleted successfully")
}

func (h *Handler) handleAttachTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.AttachTag(r.Context(), userID(r), vars["pageId"], vars["tagId"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, messageBody{Message: "Tag added to page"})
}

func (h *Handler) handleDetachTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DetachTag(r.Context(), userID(r), vars["pageId"], vars["tagId"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Tag removed from page")
}

func (h *Handler) handleListPageTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListPageTags(r.Context(), userID(r), mux.Vars(r)["pageId"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTags(tags, false))
}
