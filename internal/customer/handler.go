package customer

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/simplecms/api/internal/access"
	"github.com/simplecms/api/internal/response"
	"github.com/simplecms/api/internal/upload"
)

// Multipart forms are parsed with this much in-memory buffer; larger photo
// parts spill to temp files before the size check rejects them.
const maxFormMemory = 10 << 20

// Handler holds HTTP handlers for the customers resource. Create and update
// accept multipart forms with name, surname, and an optional photo part.
type Handler struct {
	svc *Service
}

// NewHandler creates a new customer Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List godoc
//
//	@Summary		List customers
//	@Description	Returns all active customers. Staff callers may pass include_inactive=true to include deactivated records.
//	@Tags			customers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			include_inactive	query		bool	false	"include deactivated records (staff only)"
//	@Success		200					{object}	response.Envelope{data=[]Customer}
//	@Failure		401					{object}	response.Envelope
//	@Failure		403					{object}	response.Envelope
//	@Router			/customers [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := access.FromContext(r.Context())
	if p == nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	includeInactive := p.IsStaff && r.URL.Query().Get("include_inactive") == "true"

	customers, err := h.svc.List(r.Context(), includeInactive)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, customers)
}

// Create godoc
//
//	@Summary		Create customer
//	@Description	Creates a customer from a multipart form (name, surname, optional photo). The creating user is taken from the credential, never from the form.
//	@Tags			customers
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	formData	string	true	"Customer name"
//	@Param			surname	formData	string	true	"Customer surname"
//	@Param			photo	formData	file	false	"Photo (png or jpeg, max 500000 bytes by default)"
//	@Success		201		{object}	response.Envelope{data=Customer}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Router			/customers [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p := access.FromContext(r.Context())
	if p == nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	photo, closePhoto, err := photoFromForm(r)
	if err != nil {
		response.BadRequest(w, "invalid photo upload")
		return
	}
	defer closePhoto()

	c, err := h.svc.Create(r.Context(), CreateInput{
		Name:    r.FormValue("name"),
		Surname: r.FormValue("surname"),
		Photo:   photo,
	}, p.ID)
	if err != nil {
		writeCustomerError(w, err)
		return
	}
	response.Created(w, c)
}

// Get godoc
//
//	@Summary		Retrieve customer
//	@Tags			customers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Customer ID"
//	@Success		200	{object}	response.Envelope{data=Customer}
//	@Failure		404	{object}	response.Envelope
//	@Router			/customers/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCustomerError(w, err)
		return
	}
	response.OK(w, c)
}

// Update godoc
//
//	@Summary		Update customer
//	@Description	PATCH applies a partial multipart update; PUT requires name and surname. A supplied photo replaces the stored one and the previous object is deleted from the store.
//	@Tags			customers
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Customer ID"
//	@Param			name	formData	string	false	"Customer name"
//	@Param			surname	formData	string	false	"Customer surname"
//	@Param			photo	formData	file	false	"Replacement photo"
//	@Success		200		{object}	response.Envelope{data=Customer}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/customers/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p := access.FromContext(r.Context())
	if p == nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	if r.Method == http.MethodPut && (!formHas(r, "name") || !formHas(r, "surname")) {
		response.BadRequest(w, "name and surname are required for a full update")
		return
	}

	var in UpdateInput
	if formHas(r, "name") {
		v := r.FormValue("name")
		in.Name = &v
	}
	if formHas(r, "surname") {
		v := r.FormValue("surname")
		in.Surname = &v
	}

	photo, closePhoto, err := photoFromForm(r)
	if err != nil {
		response.BadRequest(w, "invalid photo upload")
		return
	}
	defer closePhoto()
	in.Photo = photo

	c, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in, p.ID)
	if err != nil {
		writeCustomerError(w, err)
		return
	}
	response.OK(w, c)
}

// Delete godoc
//
//	@Summary		Delete customer
//	@Description	Deactivates the record; it disappears from default listings but stays persisted.
//	@Tags			customers
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Customer ID"
//	@Success		204
//	@Failure		404	{object}	response.Envelope
//	@Router			/customers/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeCustomerError(w, err)
		return
	}
	response.NoContent(w)
}

// photoFromForm extracts the optional photo part. The second return value
// closes the underlying file and is safe to call when no photo was sent.
func photoFromForm(r *http.Request) (*PhotoUpload, func(), error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	p := &PhotoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
	return p, func() { _ = file.Close() }, nil
}

func formHas(r *http.Request, key string) bool {
	return r.MultipartForm != nil && len(r.MultipartForm.Value[key]) > 0
}

func writeCustomerError(w http.ResponseWriter, err error) {
	var (
		ferr  *upload.FormatError
		serr  *upload.SizeError
		verrs validator.ValidationErrors
	)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "customer not found")
	case errors.As(err, &ferr), errors.As(err, &serr):
		response.BadRequest(w, err.Error())
	case errors.As(err, &verrs):
		response.BadRequest(w, verrs.Error())
	default:
		response.InternalError(w)
	}
}
