package book

import (
	"errors"
	"net/http"
	"strconv"

	"readshelf/internal/httpx"
	"readshelf/internal/logging"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createReq struct {
	Title           string   `json:"title" validate:"notblank,max=300"`
	Author          string   `json:"author" validate:"notblank,max=200"`
	Status          string   `json:"status" validate:"omitempty,book_status"`
	CoverImageURL   string   `json:"coverImageUrl" validate:"omitempty,url,max=2048"`
	Description     string   `json:"description" validate:"max=10000"`
	Tags            []string `json:"tags" validate:"max=50"`
	PopularityScore float64  `json:"popularityScore" validate:"gte=0"`
	SourceProvider  string   `json:"sourceProvider" validate:"omitempty,oneof=local openlibrary google"`
	ExternalID      string   `json:"externalId" validate:"max=200"`
}

type updateReq struct {
	Title         *string   `json:"title" validate:"omitempty,notblank,max=300"`
	Author        *string   `json:"author" validate:"omitempty,notblank,max=200"`
	Status        *string   `json:"status" validate:"omitempty,book_status"`
	CoverImageURL *string   `json:"coverImageUrl" validate:"omitempty,max=2048"`
	Description   *string   `json:"description" validate:"omitempty,max=10000"`
	Tags          *[]string `json:"tags" validate:"omitempty,max=50"`
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found", nil)
	case errors.Is(err, ErrForbidden):
		httpx.JSONError(w, r, http.StatusForbidden, httpx.CodeForbidden, "Not allowed to access this book", nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("book request failed")
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
	}
}

// Create handles POST /v1/books
// @Summary Add a book
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body createReq true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /v1/books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", details)
		return
	}

	b, err := h.service.Create(r.Context(), httpx.UserIDFrom(r), Input{
		Title:           req.Title,
		Author:          req.Author,
		Status:          Status(req.Status),
		CoverImageURL:   req.CoverImageURL,
		Description:     req.Description,
		Tags:            req.Tags,
		PopularityScore: req.PopularityScore,
		SourceProvider:  req.SourceProvider,
		ExternalID:      req.ExternalID,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "create")
		return
	}
	httpx.JSONCreated(w, r, b)
}

// List handles GET /v1/books
// @Summary List the caller's books
// @Tags books
// @Produce json
// @Security Bearer
// @Param status query string false "Reading, Completed or Wishlist"
// @Param limit query int false "page size (max 100)"
// @Param cursor query string false "next page cursor"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := Query{OwnerID: httpx.UserIDFrom(r)}

	if s := query.Get("status"); s != "" {
		if !Status(s).Valid() {
			httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input",
				[]httpx.ErrorDetail{{Field: "status", Message: "status must be one of Reading, Completed, Wishlist"}})
			return
		}
		q.Status = Status(s)
	}

	q.Limit, _ = strconv.Atoi(query.Get("limit"))
	if q.Limit <= 0 || q.Limit > maxPageSize {
		q.Limit = defaultPageSize
	}

	if c := query.Get("cursor"); c != "" {
		cursor, err := DecodeCursor(c)
		if err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid cursor", nil)
			return
		}
		q.After = &cursor
	}

	books, next, err := h.service.List(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err, "list")
		return
	}

	meta := map[string]any{"limit": q.Limit}
	if next != "" {
		meta["next_cursor"] = next
	}
	httpx.JSONSuccess(w, r, books, meta)
}

// Get handles GET /v1/books/{id}
// @Summary Get one of the caller's books
// @Tags books
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), httpx.UserIDFrom(r), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err, "get")
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Update handles PATCH /v1/books/{id}
// @Summary Update one of the caller's books
// @Description ownerId cannot be changed; it is ignored when sent.
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body updateReq true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [patch]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", details)
		return
	}

	p := Patch{
		Title:         req.Title,
		Author:        req.Author,
		CoverImageURL: req.CoverImageURL,
		Description:   req.Description,
		Tags:          req.Tags,
	}
	if req.Status != nil {
		s := Status(*req.Status)
		p.Status = &s
	}

	b, err := h.service.Update(r.Context(), httpx.UserIDFrom(r), r.PathValue("id"), p)
	if err != nil {
		h.writeServiceError(w, r, err, "update")
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /v1/books/{id}
// @Summary Delete one of the caller's books
// @Tags books
// @Security Bearer
// @Success 204 "No Content"
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), httpx.UserIDFrom(r), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err, "delete")
		return
	}
	httpx.JSONNoContent(w)
}
