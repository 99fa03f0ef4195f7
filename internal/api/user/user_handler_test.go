package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/staffdeck/staffdeck/internal/api/auth"
	"github.com/staffdeck/staffdeck/internal/types"
)

// MockUserService is a mock implementation of the UserService interface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context, requester types.Identity, params types.ListUsersParams) ([]types.User, error) {
	args := m.Called(ctx, requester, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, requester, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, requester types.Identity, params types.CreateUserParams) (*types.User, error) {
	args := m.Called(ctx, requester, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, requester types.Identity, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	args := m.Called(ctx, requester, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, requester, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserService) ChangeRole(ctx context.Context, requester types.Identity, id uuid.UUID, role types.Role) (*types.User, types.Role, error) {
	args := m.Called(ctx, requester, id, role)
	if args.Get(0) == nil {
		return nil, args.Get(1).(types.Role), args.Error(2)
	}
	return args.Get(0).(*types.User), args.Get(1).(types.Role), args.Error(2)
}

func (m *MockUserService) ToggleActiveStatus(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, requester, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

// newHandlerRouter mounts the handler under the real route table with the
// given identity pre-attached, skipping the token round trip.
func newHandlerRouter(t *testing.T, service UserService, identity types.Identity) chi.Router {
	t.Helper()
	h := NewHandlerImpl(service, UploadConfig{
		Dir:     t.TempDir(),
		BaseURL: "/assets/images",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), auth.IdentityKey, identity)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/user", h.ListUsers)
	r.Get("/user/{id}", h.GetUser)
	r.Post("/user/add", h.AddUser)
	r.Patch("/user/update/{id}", h.UpdateUser)
	r.Delete("/user/remove/{id}", h.RemoveUser)
	r.Patch("/user/change-role/{id}", h.ChangeRole)
	r.Patch("/user/toggle-active-status/{id}", h.ToggleActiveStatus)
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestListUsersHandler(t *testing.T) {
	admin := identityWithRole(types.RoleAdmin)

	t.Run("Response carries count and no password hashes", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		users := []types.User{
			{ID: uuid.New(), Name: "A", Email: "a@x.com", PasswordHash: "bcrypt-hash-a", Role: types.RoleUser},
			{ID: uuid.New(), Name: "B", Email: "b@x.com", PasswordHash: "bcrypt-hash-b", Role: types.RoleModerator},
		}
		mockService.On("ListUsers", mock.Anything, admin, mock.AnythingOfType("types.ListUsersParams")).
			Return(users, nil)

		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Users Fetch Successful!", body["message"])
		assert.EqualValues(t, 2, body["count"])
		assert.NotContains(t, rr.Body.String(), "bcrypt-hash")
	})

	t.Run("Query parsing splits reserved keys from filters", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		expected := types.ListUsersParams{
			Key:     "ann",
			Page:    2,
			Limit:   5,
			Sort:    []string{"-createdAt", "name"},
			Filters: map[string]string{"gender": "F", "role": "User"},
		}
		mockService.On("ListUsers", mock.Anything, admin, expected).Return([]types.User{}, nil)

		req := httptest.NewRequest(http.MethodGet,
			"/user?key=ann&page=2&limit=5&sort=-createdAt,name&gender=F&role=User", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Out-of-range page", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		mockService.On("ListUsers", mock.Anything, admin, mock.AnythingOfType("types.ListUsersParams")).
			Return(nil, types.ErrPageOutOfRange)

		req := httptest.NewRequest(http.MethodGet, "/user?page=99", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Page doesn't exist!", body["message"])
	})
}

func TestGetUserHandler(t *testing.T) {
	admin := identityWithRole(types.RoleAdmin)

	t.Run("Malformed ID rejected before the service is called", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		req := httptest.NewRequest(http.MethodGet, "/user/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid user ID format")
		mockService.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown user maps to 404", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)
		id := uuid.New()

		mockService.On("GetUser", mock.Anything, admin, id).Return(nil, types.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/user/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "User not found!")
	})

	t.Run("Forbidden maps to 403", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)
		id := uuid.New()

		mockService.On("GetUser", mock.Anything, admin, id).Return(nil, types.ErrForbidden)

		req := httptest.NewRequest(http.MethodGet, "/user/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "Unauthorized")
	})
}

func TestAddUserHandler(t *testing.T) {
	admin := identityWithRole(types.RoleAdmin)

	validPayload := map[string]any{
		"name":     "New Person",
		"email":    "new@example.com",
		"password": "secret-password",
		"mobile":   "5551234567",
		"gender":   "F",
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		mockService.On("CreateUser", mock.Anything, admin, mock.AnythingOfType("types.CreateUserParams")).
			Return(&types.User{ID: uuid.New(), Name: "New Person", Role: types.RoleUser, IsActive: true}, nil)

		payload, _ := json.Marshal(validPayload)
		req := httptest.NewRequest(http.MethodPost, "/user/add", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "New user added!", body["message"])
	})

	t.Run("Validation failure names the offending fields", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		payload, _ := json.Marshal(map[string]any{
			"name":     "New Person",
			"email":    "not-an-email",
			"password": "x",
			"mobile":   "5551234567",
			"gender":   "F",
		})
		req := httptest.NewRequest(http.MethodPost, "/user/add", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid input")
		mockService.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		mockService.On("CreateUser", mock.Anything, admin, mock.AnythingOfType("types.CreateUserParams")).
			Return(nil, types.ErrConflict)

		payload, _ := json.Marshal(validPayload)
		req := httptest.NewRequest(http.MethodPost, "/user/add", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "User already exists")
	})
}

func TestUpdateUserHandler(t *testing.T) {
	requester := identityWithRole(types.RoleUser)

	t.Run("JSON body", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, requester)

		expected := types.UpdateUserParams{
			Name:   "Renamed",
			Email:  "renamed@example.com",
			Mobile: "5559876543",
			Gender: types.GenderMale,
		}
		mockService.On("UpdateUser", mock.Anything, requester, requester.ID, expected).
			Return(&types.User{ID: requester.ID, Name: "Renamed"}, nil)

		payload, _ := json.Marshal(map[string]any{
			"name":   "Renamed",
			"email":  "renamed@example.com",
			"mobile": "5559876543",
			"gender": "M",
		})
		req := httptest.NewRequest(http.MethodPatch, "/user/update/"+requester.ID.String(), bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "User Updated!", body["message"])
		mockService.AssertExpectations(t)
	})

	t.Run("Multipart body with avatar upload", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, requester)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("name", "Renamed"))
		require.NoError(t, mw.WriteField("email", "renamed@example.com"))
		require.NoError(t, mw.WriteField("mobile", "5559876543"))
		require.NoError(t, mw.WriteField("gender", "M"))
		part, err := mw.CreateFormFile("image", "avatar.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-png-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		mockService.On("UpdateUser", mock.Anything, requester, requester.ID,
			mock.MatchedBy(func(p types.UpdateUserParams) bool {
				return p.Name == "Renamed" &&
					strings.HasPrefix(p.Image, "/assets/images/") &&
					filepath.Ext(p.Image) == ".png"
			})).
			Return(&types.User{ID: requester.ID, Name: "Renamed"}, nil)

		req := httptest.NewRequest(http.MethodPatch, "/user/update/"+requester.ID.String(), &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestRemoveUserHandler(t *testing.T) {
	admin := identityWithRole(types.RoleAdmin)
	mockService := new(MockUserService)
	router := newHandlerRouter(t, mockService, admin)
	id := uuid.New()

	mockService.On("DeleteUser", mock.Anything, admin, id).
		Return(&types.User{ID: id, Name: "Gone"}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/user/remove/"+id.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "User Deleted!", body["message"])
}

func TestChangeRoleHandler(t *testing.T) {
	admin := identityWithRole(types.RoleAdmin)

	t.Run("Message reports old and new role", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)
		id := uuid.New()

		mockService.On("ChangeRole", mock.Anything, admin, id, types.RoleModerator).
			Return(&types.User{ID: id, Role: types.RoleModerator}, types.RoleUser, nil)

		payload, _ := json.Marshal(map[string]string{"role": "Moderator"})
		req := httptest.NewRequest(http.MethodPatch, "/user/change-role/"+id.String(), bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "User role change from User to Moderator!", body["message"])
	})

	t.Run("Unknown role rejected", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)
		id := uuid.New()

		payload, _ := json.Marshal(map[string]string{"role": "Owner"})
		req := httptest.NewRequest(http.MethodPatch, "/user/change-role/"+id.String(), bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ChangeRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestToggleActiveStatusHandler(t *testing.T) {
	admin := identityWithRole(types.RoleAdmin)
	id := uuid.New()

	t.Run("Deactivation message", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		mockService.On("ToggleActiveStatus", mock.Anything, admin, id).
			Return(&types.User{ID: id, IsActive: false}, nil)

		req := httptest.NewRequest(http.MethodPatch, "/user/toggle-active-status/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "User Deactivated!", body["message"])
	})

	t.Run("Activation message", func(t *testing.T) {
		mockService := new(MockUserService)
		router := newHandlerRouter(t, mockService, admin)

		mockService.On("ToggleActiveStatus", mock.Anything, admin, id).
			Return(&types.User{ID: id, IsActive: true}, nil)

		req := httptest.NewRequest(http.MethodPatch, "/user/toggle-active-status/"+id.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "User Activated!", body["message"])
	})
}
