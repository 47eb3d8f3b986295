package recommend

import (
	"net/http"
	"strconv"

	"readshelf/internal/httpx"
	"readshelf/internal/logging"
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// Recommend handles GET /v1/recommendations
// @Summary Get book recommendations
// @Description Ranked suggestions for the caller. Works without a token, returning popular picks.
// @Tags recommendations
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Result count (default 10, max 20)"
// @Success 200 {object} Result
// @Failure 500 {object} httpx.ErrorResponse
// @Router /v1/recommendations [get]
func (h *HTTPHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		// unparsable values fall back to the default
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
			if limit == 0 {
				limit = 1
			}
		}
	}

	res, err := h.svc.Recommend(r.Context(), httpx.UserIDFrom(r), limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("recommendations failed")
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
