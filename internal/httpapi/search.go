package httpapi

import "net/http"

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.Search(r.Context(), userID(r), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPages(pages))
}
