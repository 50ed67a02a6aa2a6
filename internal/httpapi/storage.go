package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/dmehra2102/notely/internal/app"
	"github.com/dmehra2102/notely/internal/domain"
	"github.com/gorilla/mux"
)

const multipartMemory = 8 << 20

// parseUpload reads the multipart form under a body limit large enough for
// the allowed number of files.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request, files int) error {
	limit := h.svc.MaxUploadBytes()*int64(files) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrFileTooLarge
		}
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

func openUploads(headers []*multipart.FileHeader) ([]app.Upload, func(), error) {
	var closers []multipart.File
	closeAll := func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}

	ups := make([]app.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		closers = append(closers, f)
		ups = append(ups, app.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return ups, closeAll, nil
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := h.parseUpload(w, r, 1); err != nil {
		h.respondError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		h.respondError(w, r, domain.ErrNoFiles)
		return
	}

	ups, closeAll, err := openUploads(headers[:1])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer closeAll()

	media, err := h.svc.UploadFile(r.Context(), userID(r), r.FormValue("folder"), ups[0])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMedia(media))
}

func (h *Handler) handleUploadMultiple(w http.ResponseWriter, r *http.Request) {
	if err := h.parseUpload(w, r, domain.MaxFilesPerUpload); err != nil {
		h.respondError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	ups, closeAll, err := openUploads(r.MultipartForm.File["files"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer closeAll()

	media, err := h.svc.UploadFiles(r.Context(), userID(r), r.FormValue("folder"), ups)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMediaList(media))
}

func (h *Handler) handleListMedia(w http.ResponseWriter, r *http.Request) {
	media, err := h.svc.ListMedia(r.Context(), userID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toMediaList(media))
}

func (h *Handler) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMedia(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondMessage(w, "File deleted successfully")
}
