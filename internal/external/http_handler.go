package external

import (
	"errors"
	"net/http"
	"strings"

	"readshelf/internal/candidate"
	"readshelf/internal/httpx"
	"readshelf/internal/logging"
)

const lookupLimit = 6

type HTTPHandler struct {
	searcher *Searcher
}

func NewHTTPHandler(searcher *Searcher) *HTTPHandler {
	return &HTTPHandler{searcher: searcher}
}

type searchResponse struct {
	Source string                `json:"source"`
	Items  []candidate.Candidate `json:"items"`
}

// Search handles GET /v1/external/search
// @Summary Look up a book in external catalogs
// @Description Open Library first, Google Books when Open Library fails or finds nothing. Results are not saved.
// @Tags external
// @Produce json
// @Param title query string false "Title"
// @Param author query string false "Author"
// @Success 200 {object} searchResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /v1/external/search [get]
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	author := strings.TrimSpace(r.URL.Query().Get("author"))
	if title == "" && author == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "title or author query required", nil)
		return
	}

	source, items, err := h.searcher.Lookup(r.Context(), title, author, lookupLimit)
	if err != nil {
		if errors.Is(err, ErrAllProvidersFailed) {
			httpx.JSONError(w, r, http.StatusBadGateway, httpx.CodeBadGateway, "Could not fetch external data", nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("external lookup")
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
		return
	}

	httpx.JSON(w, http.StatusOK, searchResponse{Source: source, Items: items})
}
