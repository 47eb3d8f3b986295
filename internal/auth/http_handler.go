package auth

import (
	"errors"
	"net/http"

	"readshelf/internal/httpx"
	"readshelf/internal/logging"
	"readshelf/internal/platform/crypto"
	"readshelf/internal/user"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type RegisterReq struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"omitempty,max=80"`
	Password    string `json:"password" validate:"required,max=72"`
}

type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var passwordRuleErrors = []error{
	crypto.ErrPasswordTooShort,
	crypto.ErrPasswordNoUpper,
	crypto.ErrPasswordNoLower,
	crypto.ErrPasswordNoNumber,
	crypto.ErrPasswordNoSpecialChar,
}

// Register handles POST /v1/auth/register
// @Summary Register a new user
// @Description Create an account and receive an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterReq true "Registration request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/auth/register [post]
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Email = user.NormalizeEmail(req.Email)

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", details)
		return
	}

	sess, err := h.service.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		for _, ruleErr := range passwordRuleErrors {
			if errors.Is(err, ruleErr) {
				httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input",
					[]httpx.ErrorDetail{{Field: "password", Message: err.Error()}})
				return
			}
		}
		if errors.Is(err, user.ErrAlreadyExists) {
			httpx.JSONError(w, r, http.StatusConflict, httpx.CodeConflict, "Email already registered", nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("register user")
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
		return
	}

	httpx.JSONCreated(w, r, sess)
}

// Login handles POST /v1/auth/login
// @Summary User login
// @Description Authenticate user and receive an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "Login request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/auth/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Email = user.NormalizeEmail(req.Email)

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", details)
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.JSONError(w, r, http.StatusUnauthorized, httpx.CodeUnauthorized, "Invalid email or password", nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("login")
		httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Internal server error", nil)
		return
	}

	httpx.JSONSuccess(w, r, sess, nil)
}
