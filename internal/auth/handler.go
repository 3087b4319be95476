package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/simplecms/api/internal/response"
	"github.com/simplecms/api/internal/user"
)

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tokenRequest struct {
	Username string `json:"username" example:"jdoe"`
	Password string `json:"password" example:"s3cret!"`
}

// Token godoc
//
//	@Summary		Issue token
//	@Description	Exchanges a username/password pair for a bearer token with read and write scope.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tokenRequest	true	"Credentials"
//	@Success		200		{object}	response.Envelope{data=Token}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/auth/token [post]
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		response.BadRequest(w, "username and password are required")
		return
	}

	token, err := h.svc.Issue(r.Context(), req.Username, req.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		response.Unauthorized(w, "invalid username or password")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, token)
}
