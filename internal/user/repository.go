// Package user manages user accounts and their persistence.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User represents an account that can authenticate against the API.
// The password hash is never serialized.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	IsStaff      bool       `json:"isStaff"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	DateJoined   time.Time  `json:"dateJoined"`
}

// ErrNotFound is returned when a user does not exist or is deactivated.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when a username is already taken.
var ErrAlreadyExists = errors.New("username already taken")

// Repository is the persistence interface for users. GetByID, GetByUsername
// and Update only see active accounts; deactivated users stay persisted and
// are reachable through List with includeInactive set.
type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, includeInactive bool) ([]User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Deactivate(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

const userColumns = `id, username, password_hash, email, first_name, last_name, is_staff, is_active, last_login, date_joined`

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository with the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.FirstName,
		&u.LastName, &u.IsStaff, &u.IsActive, &u.LastLogin, &u.DateJoined)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user and returns the created record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) (*User, error) {
	created, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, email, first_name, last_name, is_staff)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		u.Username, u.PasswordHash, u.Email, u.FirstName, u.LastName, u.IsStaff,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// GetByID fetches an active user by their UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByUsername fetches an active user by their username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND is_active`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// List returns users ordered by join date. Deactivated accounts are excluded
// unless includeInactive is set.
func (r *PostgresRepository) List(ctx context.Context, includeInactive bool) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY date_joined`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update persists mutable fields of an active user.
func (r *PostgresRepository) Update(ctx context.Context, u *User) (*User, error) {
	updated, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users
		 SET username = $2, password_hash = $3, email = $4, first_name = $5, last_name = $6, is_staff = $7
		 WHERE id = $1 AND is_active
		 RETURNING `+userColumns,
		u.ID, u.Username, u.PasswordHash, u.Email, u.FirstName, u.LastName, u.IsStaff,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// Deactivate soft-deletes a user by clearing the active flag. The record and
// everything referencing it stay persisted.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin records a successful authentication time.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE users SET last_login = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
