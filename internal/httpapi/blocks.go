package httpapi

import (
	"net/http"

	"github.com/dmehra2102/notely/internal/app"
	"github.com/gorilla/mux"
)

func (h *Handler) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	var req createBlockRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	block, err := h.svc.CreateBlock(r.Context(), userID(r), app.CreateBlockInput{
		PageID:   req.PageID,
		Type:     req.Type,
		Content:  req.Content,
		Position: req.Position,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toBlock(block))
}

func (h *Handler) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	blocks, err := h.svc.ListBlocks(r.Context(), userID(r), q.Get("pageId"), q.Get("search"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBlocks(blocks))
}

func (h *Handler) handleReorderBlocks(w http.ResponseWriter, r *http.Request) {
	var req reorderBlocksRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	blocks, err := h.svc.ReorderBlocks(r.Context(), userID(r), r.URL.Query().Get("pageId"), req.BlockIDs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBlocks(blocks))
}

func (h *Handler) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	block, err := h.svc.GetBlock(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBlock(block))
}

func (h *Handler) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req updateBlockRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	block, err := h.svc.UpdateBlock(r.Context(), userID(r), mux.Vars(r)["id"], app.UpdateBlockInput{
		Type:    req.Type,
		Content: req.Content,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBlock(block))
}

func (h *Handler) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlock(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Block moved to trash successfully")
}

func (h *Handler) handleRestoreBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RestoreBlock(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Block restored successfully")
}

func (h *Handler) handlePurgeBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PurgeBlock(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "Block permanently deleted")
}
