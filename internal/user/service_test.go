package user_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/simplecms/api/internal/user"
)

func newService() *user.Service {
	return user.NewService(user.NewMemoryRepository())
}

func TestCreateHashesPassword(t *testing.T) {
	svc := newService()

	u, err := svc.Create(context.Background(), user.CreateInput{
		Username: "jdoe",
		Password: "password123",
		Email:    "jdoe@example.com",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")))

	// The hash never leaves the API.
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), u.PasswordHash)
}

func TestCreateDuplicateUsername(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, user.CreateInput{Username: "jdoe", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, user.CreateInput{Username: "jdoe", Password: "otherpass"})
	assert.ErrorIs(t, err, user.ErrAlreadyExists)
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	var verrs validator.ValidationErrors

	_, err := svc.Create(ctx, user.CreateInput{Username: "jdoe", Password: "short"})
	assert.ErrorAs(t, err, &verrs)

	_, err = svc.Create(ctx, user.CreateInput{Username: "jd", Password: "password123"})
	assert.ErrorAs(t, err, &verrs)

	_, err = svc.Create(ctx, user.CreateInput{Username: "jdoe", Password: "password123", Email: "not-an-email"})
	assert.ErrorAs(t, err, &verrs)
}

func TestAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, user.CreateInput{Username: "jdoe", Password: "password123"})
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "jdoe", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.Authenticate(ctx, "jdoe", "wrongpass")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestAuthenticateDeactivatedUser(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, user.CreateInput{Username: "jdoe", Password: "password123"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, u.ID))

	_, err = svc.Authenticate(ctx, "jdoe", "password123")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestDeleteIsSoft(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, user.CreateInput{Username: "jdoe", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, u.ID))

	_, err = svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)

	// The account stays persisted: references to it keep resolving.
	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, u.ID, all[0].ID)
	assert.False(t, all[0].IsActive)

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUpdatePartialSemantics(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Create(ctx, user.CreateInput{
		Username:  "jdoe",
		Password:  "password123",
		Email:     "jdoe@example.com",
		FirstName: "Jane",
	})
	require.NoError(t, err)
	originalHash := u.PasswordHash

	first := "Janet"
	updated, err := svc.Update(ctx, u.ID, user.UpdateInput{FirstName: &first})
	require.NoError(t, err)

	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "jdoe", updated.Username)
	assert.Equal(t, "jdoe@example.com", updated.Email)
	assert.Equal(t, originalHash, updated.PasswordHash, "password untouched when absent")

	newPass := "newpassword"
	updated, err = svc.Update(ctx, u.ID, user.UpdateInput{Password: &newPass})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpassword")))
}

func TestEnsureAdmin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "adminpass123", "admin@example.com"))

	u, err := svc.Authenticate(ctx, "admin", "adminpass123")
	require.NoError(t, err)
	assert.True(t, u.IsStaff)

	// Idempotent: a second call creates nothing.
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "adminpass123", "admin@example.com"))
	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnsureAdminSkippedWithoutPassword(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "", ""))

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, all)
}
