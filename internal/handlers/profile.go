package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/models"
	pkghttp "github.com/jcastano/atelier/pkg/http"
)

// ProfileServiceInterface defines the interface for profile business logic
type ProfileServiceInterface interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID, name, avatarURL string) (*models.Profile, error)
}

// ProfileHandler serves the authenticated user's own profile.
type ProfileHandler struct {
	service ProfileServiceInterface
}

func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// UpdateProfileRequest is the write DTO for the profile
type UpdateProfileRequest struct {
	Name      string `json:"name" validate:"max=100"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// Get handles GET /user/profile. First read creates the row, so a fresh
// account always gets a profile back rather than a 404.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	profile, err := h.service.Get(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}

// Update handles PUT /user/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	profile, err := h.service.Update(r.Context(), claims.UserID, req.Name, req.AvatarURL)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}
