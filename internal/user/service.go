package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when authentication fails. It covers
// unknown usernames, wrong passwords, and deactivated accounts alike so the
// caller cannot probe which of them happened.
var ErrInvalidCredentials = errors.New("invalid credentials")

var validate = validator.New()

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Username  string `validate:"required,min=3,max=150"`
	Password  string `validate:"required,min=6"`
	Email     string `validate:"omitempty,email,max=255"`
	FirstName string `validate:"omitempty,max=150"`
	LastName  string `validate:"omitempty,max=150"`
	IsStaff   bool
}

// UpdateInput carries a partial update; nil fields keep their prior values.
type UpdateInput struct {
	Username  *string `validate:"omitempty,min=3,max=150"`
	Password  *string `validate:"omitempty,min=6"`
	Email     *string `validate:"omitempty,email,max=255"`
	FirstName *string `validate:"omitempty,max=150"`
	LastName  *string `validate:"omitempty,max=150"`
	IsStaff   *bool
}

// Service contains business logic for user management.
type Service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new account with a bcrypt-hashed password. The plaintext
// password never reaches the repository.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, &User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsStaff:      in.IsStaff,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns an active user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns users, excluding deactivated accounts unless includeInactive is set.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]User, error) {
	return s.repo.List(ctx, includeInactive)
}

// Update applies a partial update to an active user. A supplied password is
// re-hashed; absent fields keep their prior values.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.IsStaff != nil {
		u.IsStaff = *in.IsStaff
	}

	return s.repo.Update(ctx, u)
}

// Delete deactivates a user. Records referencing the user keep resolving;
// nothing is physically removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Deactivate(ctx, id)
}

// Authenticate verifies a username/password pair against an active account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// TouchLastLogin records a successful authentication for the user.
func (s *Service) TouchLastLogin(ctx context.Context, id string) error {
	return s.repo.TouchLastLogin(ctx, id, time.Now().UTC())
}

// EnsureAdmin creates the bootstrap staff account when it does not exist yet.
// It is a no-op when password is empty.
func (s *Service) EnsureAdmin(ctx context.Context, username, password, email string) error {
	if username == "" || password == "" {
		log.Println("admin bootstrap skipped: no credentials configured")
		return nil
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil
	}

	_, err := s.Create(ctx, CreateInput{
		Username: username,
		Password: password,
		Email:    email,
		IsStaff:  true,
	})
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Printf("admin account %q created", username)
	return nil
}

// IsNotFound returns true when the error indicates a user was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
