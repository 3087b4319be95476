package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplecms/api/internal/api"
	"github.com/simplecms/api/internal/auth"
	"github.com/simplecms/api/internal/customer"
	"github.com/simplecms/api/internal/storage"
	"github.com/simplecms/api/internal/upload"
	"github.com/simplecms/api/internal/user"
)

const testSecret = "router-test-secret"

type fixture struct {
	router     http.Handler
	store      *storage.Memory
	userSvc    *user.Service
	adminToken string
	userToken  string
	adminID    string
	userID     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	userSvc := user.NewService(user.NewMemoryRepository())
	store := storage.NewMemory()
	policy := upload.NewPolicy([]string{"image/png", "image/jpg", "image/jpeg"}, 500_000)
	customerSvc := customer.NewService(customer.NewMemoryRepository(), store, policy)
	authSvc := auth.NewService(userSvc, testSecret)

	admin, err := userSvc.Create(ctx, user.CreateInput{Username: "admin", Password: "adminpass123", IsStaff: true})
	require.NoError(t, err)
	member, err := userSvc.Create(ctx, user.CreateInput{Username: "member", Password: "memberpass123"})
	require.NoError(t, err)

	adminToken, err := authSvc.Issue(ctx, "admin", "adminpass123")
	require.NoError(t, err)
	memberToken, err := authSvc.Issue(ctx, "member", "memberpass123")
	require.NoError(t, err)

	router := api.NewRouter(api.Deps{
		JWTSecret: testSecret,
		Auth:      auth.NewHandler(authSvc),
		Users:     user.NewHandler(userSvc),
		Customers: customer.NewHandler(customerSvc),
	})

	return &fixture{
		router:     router,
		store:      store,
		userSvc:    userSvc,
		adminToken: adminToken.AccessToken,
		userToken:  memberToken.AccessToken,
		adminID:    admin.ID,
		userID:     member.ID,
	}
}

func (f *fixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// customerForm builds a multipart body with optional photo part.
func customerForm(t *testing.T, fields map[string]string, photoName, photoType, photoData string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if photoName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photo"; filename="`+photoName+`"`)
		h.Set("Content-Type", photoType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(photoData))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
		Error   string                 `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestPermissionMatrix(t *testing.T) {
	f := newFixture(t)

	// Anonymous callers get 401 on every resource.
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/customers", "", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/users", "", nil, "").Code)

	// Authenticated non-admin: customers yes, users no.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/customers", f.userToken, nil, "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/users", f.userToken, nil, "").Code)

	// Admin: both.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/customers", f.adminToken, nil, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/users", f.adminToken, nil, "").Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/customers", "not-a-jwt", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInsufficientScopeForbiddenForWrites(t *testing.T) {
	f := newFixture(t)

	// Craft a read-only token for the member: valid credential, narrow scope.
	claims := jwt.MapClaims{
		"sub":      f.userID,
		"username": "member",
		"is_staff": false,
		"scope":    "read",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	readOnly, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	// Reads still work.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/customers", readOnly, nil, "").Code)

	// Writes are forbidden, and nothing is stored.
	body, ct := customerForm(t, map[string]string{"name": "Jane", "surname": "Doe"}, "", "", "")
	rec := f.do(t, http.MethodPost, "/api/v1/customers", readOnly, body, ct)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, f.store.Len())
}

func TestTokenEndpoint(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"username":"member","password":"memberpass123"}`)
	rec := f.do(t, http.MethodPost, "/api/v1/auth/token", "", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.NotEmpty(t, data["access_token"])
	assert.Equal(t, "Bearer", data["token_type"])
	assert.Equal(t, "read write", data["scope"])

	body = strings.NewReader(`{"username":"member","password":"wrong"}`)
	rec = f.do(t, http.MethodPost, "/api/v1/auth/token", "", body, "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCustomerLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)

	// Create with a photo.
	body, ct := customerForm(t, map[string]string{"name": "Jane", "surname": "Doe"},
		"myimage.jpg", "image/jpeg", "mybinarydata")
	rec := f.do(t, http.MethodPost, "/api/v1/customers", f.userToken, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeData(t, rec)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, f.userID, created["createdBy"], "created_by bound to the caller")
	photoURL, _ := created["photo"].(string)
	assert.Contains(t, photoURL, "photos/")
	assert.NotContains(t, photoURL, "myimage", "original filename never reaches the store")
	assert.Equal(t, 1, f.store.Len())

	// Replace the photo: old object removed, record points at the new key.
	body, ct = customerForm(t, nil, "newimage.png", "image/png", "newbinarydata")
	rec = f.do(t, http.MethodPatch, "/api/v1/customers/"+id, f.userToken, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.store.Deleted(), 1)
	assert.Equal(t, 1, f.store.Len())

	updated := decodeData(t, rec)
	assert.NotEqual(t, photoURL, updated["photo"])
	assert.Equal(t, f.userID, updated["updatedBy"])

	// Soft delete: gone from default reads.
	rec = f.do(t, http.MethodDelete, "/api/v1/customers/"+id, f.userToken, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/customers/"+id, f.userToken, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCustomerIgnoresClientSuppliedCreator(t *testing.T) {
	f := newFixture(t)

	// A hostile client supplies created_by in the form; the server binds the
	// caller's identity regardless.
	body, ct := customerForm(t, map[string]string{
		"name":       "Jane",
		"surname":    "Doe",
		"created_by": f.adminID,
		"createdBy":  f.adminID,
	}, "", "", "")
	rec := f.do(t, http.MethodPost, "/api/v1/customers", f.userToken, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeData(t, rec)
	assert.Equal(t, f.userID, created["createdBy"])
}

func TestUploadValidationOverHTTP(t *testing.T) {
	f := newFixture(t)

	body, ct := customerForm(t, map[string]string{"name": "Jane", "surname": "Doe"},
		"anim.gif", "image/gif", "gifdata")
	rec := f.do(t, http.MethodPost, "/api/v1/customers", f.userToken, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "image/png")

	big := strings.Repeat("x", 500_001)
	body, ct = customerForm(t, map[string]string{"name": "Jane", "surname": "Doe"},
		"big.png", "image/png", big)
	rec = f.do(t, http.MethodPost, "/api/v1/customers", f.userToken, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "500000")

	assert.Equal(t, 0, f.store.Len())
}

func TestDeleteReferencedUserIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The member creates a customer, so the member account is referenced.
	body, ct := customerForm(t, map[string]string{"name": "Jane", "surname": "Doe"}, "", "", "")
	rec := f.do(t, http.MethodPost, "/api/v1/customers", f.userToken, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)
	customerID, _ := decodeData(t, rec)["id"].(string)

	// Admin deletes the member: converted to deactivation, never a hard delete.
	rec = f.do(t, http.MethodDelete, "/api/v1/users/"+f.userID, f.adminToken, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The account is gone from default reads but still persisted.
	rec = f.do(t, http.MethodGet, "/api/v1/users/"+f.userID, f.adminToken, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	all, err := f.userSvc.List(ctx, true)
	require.NoError(t, err)
	var found *user.User
	for i := range all {
		if all[i].ID == f.userID {
			found = &all[i]
		}
	}
	require.NotNil(t, found, "deactivated user stays persisted")
	assert.False(t, found.IsActive)

	// The customer still resolves with its creator reference intact.
	rec = f.do(t, http.MethodGet, "/api/v1/customers/"+customerID, f.adminToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.userID, decodeData(t, rec)["createdBy"])
}

func TestUserCRUDOverHTTP(t *testing.T) {
	f := newFixture(t)

	// Create.
	body := strings.NewReader(`{"username":"newbie","password":"newbiepass","email":"n@example.com"}`)
	rec := f.do(t, http.MethodPost, "/api/v1/users", f.adminToken, body, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData(t, rec)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.NotContains(t, rec.Body.String(), "newbiepass", "password never serialized")

	// Duplicate username conflicts.
	body = strings.NewReader(`{"username":"newbie","password":"otherpass"}`)
	rec = f.do(t, http.MethodPost, "/api/v1/users", f.adminToken, body, "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Partial update.
	body = strings.NewReader(`{"firstName":"New"}`)
	rec = f.do(t, http.MethodPatch, "/api/v1/users/"+id, f.adminToken, body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New", decodeData(t, rec)["firstName"])
	assert.Equal(t, "newbie", decodeData(t, rec)["username"])

	// Non-admin cannot touch any of it.
	rec = f.do(t, http.MethodGet, "/api/v1/users/"+id, f.userToken, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
