package profile

import (
	"errors"
	"net/http"

	"readshelf/internal/httpx"
	"readshelf/internal/logging"
	"readshelf/internal/user"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// GetOwnProfile handles GET /v1/me/profile
// @Summary Get own profile
// @Description The authenticated reader with shelf counts by status and most used tags
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /v1/me/profile [get]
func (h *HTTPHandler) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, httpx.CodeUnauthorized, "Unauthorized", nil)
		return
	}

	p, err := h.service.GetOwnProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "User not found", nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("load profile")
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
		return
	}

	httpx.JSONSuccess(w, r, p, nil)
}
