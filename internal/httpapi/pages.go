package httpapi

import (
	"net/http"
	"strings"

	"github.com/dmehra2102/notely/internal/domain"
	"github.com/gorilla/mux"
)

func (h *Handler) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	page, err := h.svc.CreatePage(r.Context(), userID(r), req.Title)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPage(page))
}

func (h *Handler) handleListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &domain.PageFilter{
		UserID:    userID(r),
		Search:    q.Get("search"),
		SortBy:    domain.PageSort(q.Get("sortBy")),
		SortOrder: q.Get("sortOrder"),
	}
	for _, v := range q["tagIds"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.TagIDs = append(filter.TagIDs, id)
			}
		}
	}

	pages, err := h.svc.ListPages(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPages(pages))
}

func (h *Handler) handleListTrash(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.ListTrash(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPages(pages))
}

func (h *Handler) handleReorderPages(w http.ResponseWriter, r *http.Request) {
	var req reorderPagesRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	pages, err := h.svc.ReorderPages(r.Context(), userID(r), req.PageIDs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPages(pages))
}

func (h *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.GetPage(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPage(page))
}

func (h *Handler) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var req updatePageRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.svc.UpdatePage(r.Context(), userID(r), mux.Vars(r)["id"], req.Title)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPage(page))
}

func (h *Handler) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePage(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Page moved to trash successfully")
}

func (h *Handler) handleRestorePage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RestorePage(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Page restored successfully")
}

func (h *Handler) handlePurgePage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PurgePage(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Page permanently deleted")
}
