package customer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/simplecms/api/internal/storage"
	"github.com/simplecms/api/internal/upload"
)

var validate = validator.New()

// PhotoUpload describes a file the client attached to a create or update
// request. The bytes are streamed from Reader; Size and ContentType come from
// the multipart headers and are checked by the upload policy before any
// storage mutation.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// CreateInput carries the fields for a new customer. The creating user is
// bound server-side from the request's principal; it is not part of the input
// and cannot be supplied by the client.
type CreateInput struct {
	Name    string       `validate:"required,max=30"`
	Surname string       `validate:"required,max=50"`
	Photo   *PhotoUpload `validate:"-"`
}

// UpdateInput carries a partial update; nil fields keep their prior values.
// A non-nil Photo replaces the stored photo object.
type UpdateInput struct {
	Name    *string      `validate:"omitempty,min=1,max=30"`
	Surname *string      `validate:"omitempty,min=1,max=50"`
	Photo   *PhotoUpload `validate:"-"`
}

// Service contains business logic for the customer lifecycle, including the
// photo replace protocol.
type Service struct {
	repo   Repository
	store  storage.Storage
	policy upload.Policy
}

// NewService creates a new customer Service.
func NewService(repo Repository, store storage.Storage, policy upload.Policy) *Service {
	return &Service{repo: repo, store: store, policy: policy}
}

// Create validates the input and optional photo, writes the photo to the
// store, and persists the record with created_by bound to the acting user.
// Validation happens before the store is touched; a store failure leaves no
// record behind.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID string) (*Customer, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	var photoKey *string
	if in.Photo != nil {
		key, err := s.storePhoto(ctx, in.Photo)
		if err != nil {
			return nil, err
		}
		photoKey = &key
	}

	c, err := s.repo.Create(ctx, &Customer{
		Name:      in.Name,
		Surname:   in.Surname,
		PhotoKey:  photoKey,
		CreatedBy: actorID,
		IsActive:  true,
	})
	if err != nil {
		return nil, err
	}
	return s.withURL(c), nil
}

// Get returns an active customer by ID.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withURL(c), nil
}

// List returns customers. Deactivated records are excluded unless
// includeInactive is set (admin paths only).
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Customer, error) {
	var (
		customers []Customer
		err       error
	)
	if includeInactive {
		customers, err = s.repo.ListAll(ctx)
	} else {
		customers, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	for i := range customers {
		s.withURL(&customers[i])
	}
	return customers, nil
}

// Update applies a partial update on behalf of the acting user, who is always
// rebound as updated_by. When the patch carries a new photo, the new object
// is written first, then the previously referenced object (if any) is deleted
// from the store, then the record is persisted with the new key. A failed
// store delete aborts the entire update: name and surname changes in the
// same request do not commit, and the record keeps its previous photo
// reference.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, actorID string) (*Customer, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Photo != nil {
		key, err := s.storePhoto(ctx, in.Photo)
		if err != nil {
			return nil, err
		}
		if c.PhotoKey != nil {
			if err := s.store.Delete(ctx, *c.PhotoKey); err != nil {
				return nil, fmt.Errorf("delete previous photo %q: %w", *c.PhotoKey, err)
			}
		}
		c.PhotoKey = &key
	}

	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Surname != nil {
		c.Surname = *in.Surname
	}
	c.UpdatedBy = &actorID

	updated, err := s.repo.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.withURL(updated), nil
}

// Delete deactivates a customer. The record and its photo object stay
// persisted.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Deactivate(ctx, id)
}

// storePhoto validates the upload and writes it to the store under a fresh
// random key.
func (s *Service) storePhoto(ctx context.Context, p *PhotoUpload) (string, error) {
	if err := s.policy.Validate(p.ContentType, p.Size); err != nil {
		return "", err
	}
	key := upload.Key(p.Filename)
	if err := s.store.Upload(ctx, key, p.Reader, p.Size, p.ContentType); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return key, nil
}

func (s *Service) withURL(c *Customer) *Customer {
	if c.PhotoKey != nil {
		u := s.store.PublicURL(*c.PhotoKey)
		c.PhotoURL = &u
	}
	return c
}

// IsNotFound returns true when the error indicates a customer was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
