package httpapi

import (
	"net/http"

	"github.com/dmehra2102/notely/internal/app"
	"github.com/dmehra2102/notely/pkg/auth"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	svc      *app.Service
	verifier *auth.SupabaseVerifier
	logger   *zap.Logger
}

func NewHandler(svc *app.Service, verifier *auth.SupabaseVerifier, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, verifier: verifier, logger: logger}
}

// Router builds the JSON API. Everything except /healthz requires a bearer
// token.
func (h *Handler) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(h.recovery, h.logging, h.metrics)

	router.HandleFunc("/healthz", h.handleHealth).Methods("GET")

	api := router.PathPrefix("/").Subrouter()
	api.Use(h.authenticate)

	// Identity
	api.HandleFunc("/auth/me", h.handleMe).Methods("GET")
	api.HandleFunc("/profile", h.handleGetProfile).Methods("GET")
	api.HandleFunc("/profile", h.handleUpdateProfile).Methods("PATCH")

	// Pages
	api.HandleFunc("/pages", h.handleCreatePage).Methods("POST")
	api.HandleFunc("/pages", h.handleListPages).Methods("GET")
	api.HandleFunc("/pages/trash", h.handleListTrash).Methods("GET")
	api.HandleFunc("/pages/reorder", h.handleReorderPages).Methods("POST")
	api.HandleFunc("/pages/{id}", h.handleGetPage).Methods("GET")
	api.HandleFunc("/pages/{id}", h.handleUpdatePage).Methods("PATCH")
	api.HandleFunc("/pages/{id}", h.handleDeletePage).Methods("DELETE")
	api.HandleFunc("/pages/{id}/restore", h.handleRestorePage).Methods("POST")
	api.HandleFunc("/pages/{id}/permanent", h.handlePurgePage).Methods("DELETE")

	// Blocks
	api.HandleFunc("/blocks", h.handleCreateBlock).Methods("POST")
	api.HandleFunc("/blocks", h.handleListBlocks).Methods("GET")
	api.HandleFunc("/blocks/reorder", h.handleReorderBlocks).Methods("POST")
	api.HandleFunc("/blocks/{id}", h.handleGetBlock).Methods("GET")
	api.HandleFunc("/blocks/{id}", h.handleUpdateBlock).Methods("PATCH")
	api.HandleFunc("/blocks/{id}", h.handleDeleteBlock).Methods("DELETE")
	api.HandleFunc("/blocks/{id}/restore", h.handleRestoreBlock).Methods("POST")
	api.HandleFunc("/blocks/{id}/permanent", h.handlePurgeBlock).Methods("DELETE")

	// Tags
	api.HandleFunc("/tags", h.handleCreateTag).Methods("POST")
	api.HandleFunc("/tags", h.handleListTags).Methods("GET")
	api.HandleFunc("/tags/pages/{pageId}", h.handleListPageTags).Methods("GET")
	api.HandleFunc("/tags/pages/{pageId}/tags/{tagId}", h.handleAttachTag).Methods("POST")
	api.HandleFunc("/tags/pages/{pageId}/tags/{tagId}", h.handleDetachTag).Methods("DELETE")
	api.HandleFunc("/tags/{id}", h.handleGetTag).Methods("GET")
	api.HandleFunc("/tags/{id}", h.handleDeleteTag).Methods("DELETE")

	// Storage
	api.HandleFunc("/storage/upload", h.handleUpload).Methods("POST")
	api.HandleFunc("/storage/upload/multiple", h.handleUploadMultiple).Methods("POST")
	api.HandleFunc("/storage", h.handleListMedia).Methods("GET")
	api.HandleFunc("/storage/{id}", h.handleDeleteMedia).Methods("DELETE")

	// Search
	api.HandleFunc("/search", h.handleSearch).Methods("GET")

	return router
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
