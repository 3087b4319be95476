// Package customer manages customer records and their photo lifecycle.
package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Customer is a record owned by the user who created it. PhotoKey addresses
// the stored photo object; PhotoURL is derived from it for API responses.
type Customer struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Surname   string     `json:"surname"`
	PhotoKey  *string    `json:"-"`
	PhotoURL  *string    `json:"photo,omitempty"`
	CreatedBy string     `json:"createdBy"`
	UpdatedBy *string    `json:"updatedBy,omitempty"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ErrNotFound is returned when a customer does not exist or is deactivated.
var ErrNotFound = errors.New("customer not found")

// Repository is the persistence interface for customers. GetByID, List and
// Update only see active records; List with ListAll includes deactivated
// records for admin paths.
type Repository interface {
	Create(ctx context.Context, c *Customer) (*Customer, error)
	GetByID(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
	ListAll(ctx context.Context) ([]Customer, error)
	Update(ctx context.Context, c *Customer) (*Customer, error)
	Deactivate(ctx context.Context, id string) error
}

const customerColumns = `id, name, surname, photo_key, created_by, updated_by, is_active, created_at, updated_at`

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository with the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	c := &Customer{}
	err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.PhotoKey, &c.CreatedBy,
		&c.UpdatedBy, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new customer and returns the created record.
func (r *PostgresRepository) Create(ctx context.Context, c *Customer) (*Customer, error) {
	created, err := scanCustomer(r.db.QueryRow(ctx,
		`INSERT INTO customers (name, surname, photo_key, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+customerColumns,
		c.Name, c.Surname, c.PhotoKey, c.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

// GetByID fetches an active customer by their UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND is_active`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by id: %w", err)
	}
	return c, nil
}

// List returns active customers ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Customer, error) {
	return r.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE is_active ORDER BY created_at`)
}

// ListAll returns every customer, including deactivated records.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]Customer, error) {
	return r.list(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at`)
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]Customer, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// Update persists mutable fields of an active customer. created_by is never
// written after creation.
func (r *PostgresRepository) Update(ctx context.Context, c *Customer) (*Customer, error) {
	updated, err := scanCustomer(r.db.QueryRow(ctx,
		`UPDATE customers
		 SET name = $2, surname = $3, photo_key = $4, updated_by = $5, updated_at = now()
		 WHERE id = $1 AND is_active
		 RETURNING `+customerColumns,
		c.ID, c.Name, c.Surname, c.PhotoKey, c.UpdatedBy,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// Deactivate soft-deletes a customer by clearing the active flag.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
