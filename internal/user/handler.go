package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/simplecms/api/internal/response"
)

// Handler holds HTTP handlers for the users resource. All routes are mounted
// behind the staff-tier access rules.
type Handler struct {
	svc *Service
}

// NewHandler creates a new user Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createUserRequest struct {
	Username  string `json:"username"  example:"jdoe"`
	Password  string `json:"password"  example:"s3cret!"`
	Email     string `json:"email"     example:"jdoe@example.com"`
	FirstName string `json:"firstName" example:"Jane"`
	LastName  string `json:"lastName"  example:"Doe"`
	IsStaff   bool   `json:"isStaff"   example:"false"`
}

type updateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	IsStaff   *bool   `json:"isStaff,omitempty"`
}

// List godoc
//
//	@Summary		List users
//	@Description	Returns all active users. Pass include_inactive=true to include deactivated accounts.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			include_inactive	query		bool	false	"include deactivated accounts"
//	@Success		200					{object}	response.Envelope{data=[]User}
//	@Failure		401					{object}	response.Envelope
//	@Failure		403					{object}	response.Envelope
//	@Router			/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	users, err := h.svc.List(r.Context(), includeInactive)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, users)
}

// Create godoc
//
//	@Summary		Create user
//	@Description	Creates a new account. The password is stored as a salted hash and never returned.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createUserRequest	true	"New user"
//	@Success		201		{object}	response.Envelope{data=User}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/users [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	u, err := h.svc.Create(r.Context(), CreateInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsStaff:   req.IsStaff,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}
	response.Created(w, u)
}

// Get godoc
//
//	@Summary		Retrieve user
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	response.Envelope{data=User}
//	@Failure		404	{object}	response.Envelope
//	@Router			/users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUserError(w, err)
		return
	}
	response.OK(w, u)
}

// Update godoc
//
//	@Summary		Update user
//	@Description	PATCH applies a partial update; PUT requires username and email to be present.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"User ID"
//	@Param			request	body		updateUserRequest	true	"Fields to update"
//	@Success		200		{object}	response.Envelope{data=User}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/users/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if r.Method == http.MethodPut && (req.Username == nil || req.Email == nil) {
		response.BadRequest(w, "username and email are required for a full update")
		return
	}

	u, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), UpdateInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsStaff:   req.IsStaff,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}
	response.OK(w, u)
}

// Delete godoc
//
//	@Summary		Delete user
//	@Description	Deactivates the account. Customers created or updated by the user keep referencing it.
//	@Tags			users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		404	{object}	response.Envelope
//	@Router			/users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeUserError(w, err)
		return
	}
	response.NoContent(w)
}

func writeUserError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, ErrAlreadyExists):
		response.Conflict(w, "username already taken")
	case errors.As(err, &verrs):
		response.BadRequest(w, verrs.Error())
	default:
		response.InternalError(w)
	}
}
