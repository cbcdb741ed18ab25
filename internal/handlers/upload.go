package handlers

import (
	"errors"
	"net/http"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/models"
	"github.com/jcastano/atelier/internal/services"
	pkghttp "github.com/jcastano/atelier/pkg/http"
)

// UploadHandler accepts multipart product-image uploads and returns the
// stored public URL. Admin only.
type UploadHandler struct {
	storage services.StorageService
}

func NewUploadHandler(storage services.StorageService) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// UploadResponse carries the public URL of the stored image
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /upload with a multipart "file" part.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadSize)
	if err := r.ParseMultipartForm(services.MaxUploadSize); err != nil {
		pkghttp.WriteBadRequest(w, "File too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		pkghttp.WriteBadRequest(w, "Missing file part")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	url, err := h.storage.Upload(r.Context(), claims.UserID, header.Filename, contentType, file, header.Size)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Unsupported image type or size")
			return
		}
		pkghttp.WriteInternalError(w, "Upload failed")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
