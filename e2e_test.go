package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdeck/staffdeck/config"
	"github.com/staffdeck/staffdeck/internal/api/auth"
	"github.com/staffdeck/staffdeck/internal/api/user"
	appRouter "github.com/staffdeck/staffdeck/internal/router"
	"github.com/staffdeck/staffdeck/internal/types"
)

// E2ETestSuite drives the real router, middleware chain and handlers over an
// httptest server, with only the persistence layer mocked out.
type E2ETestSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *http.Client
	authRepo *e2eAuthRepo
	userRepo *mockUserRepo
	admin    *types.User
}

type e2eAuthRepo struct {
	users map[string]*types.User
}

func (r *e2eAuthRepo) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, types.ErrNotFound
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockUserRepo) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) ListUsers(ctx context.Context, params types.ListUsersParams, roleScope []types.Role) ([]types.User, error) {
	args := m.Called(ctx, params, roleScope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.User), args.Error(1)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, params types.CreateUserParams, passwordHash, image string) (*types.User, error) {
	args := m.Called(ctx, params, passwordHash, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockUserRepo) UpdateUser(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (*types.User, error) {
	args := m.Called(ctx, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockUserRepo) SetActiveStatus(ctx context.Context, id uuid.UUID, active bool) (*types.User, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (suite *E2ETestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	suite.Require().NoError(err)
	suite.admin = &types.User{
		ID:           uuid.New(),
		Name:         "Admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         types.RoleAdmin,
		IsActive:     true,
	}
	suite.authRepo = &e2eAuthRepo{users: map[string]*types.User{suite.admin.Email: suite.admin}}
	suite.userRepo = new(mockUserRepo)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey:  "e2e-secret",
			TokenTTL:   24 * time.Hour,
			Issuer:     "staffdeck",
			CookieName: "token",
		},
	}
	cfg.Upload.Dir = suite.T().TempDir()
	cfg.Upload.BaseURL = "/assets/images"

	authService := auth.NewAuthService(suite.authRepo, cfg.JWT, logger)
	authHandler := auth.NewAuthHandler(authService, cfg.JWT, false, logger)
	userService := user.NewUserService(suite.userRepo, logger)
	userHandler := user.NewHandlerImpl(userService, user.UploadConfig{
		Dir:     cfg.Upload.Dir,
		BaseURL: cfg.Upload.BaseURL,
	}, logger)

	router := appRouter.SetupRouter(&appRouter.Config{
		AppConfig:   cfg,
		AuthHandler: authHandler,
		UserHandler: userHandler,
		Logger:      logger,
	})

	suite.server = httptest.NewServer(router)

	jar, err := cookiejar.New(nil)
	suite.Require().NoError(err)
	suite.client = &http.Client{Jar: jar, Timeout: 30 * time.Second}
}

func (suite *E2ETestSuite) TearDownSuite() {
	if suite.server != nil {
		suite.server.Close()
	}
}

func (suite *E2ETestSuite) postJSON(path string, payload any) *http.Response {
	body, err := json.Marshal(payload)
	suite.Require().NoError(err)
	resp, err := suite.client.Post(suite.server.URL+path, "application/json", bytes.NewReader(body))
	suite.Require().NoError(err)
	return resp
}

func (suite *E2ETestSuite) decode(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	var body map[string]any
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func (suite *E2ETestSuite) TestUserManagementWorkflow() {
	// Unauthenticated access is rejected before any handler runs.
	resp, err := suite.client.Get(suite.server.URL + "/api/user")
	suite.Require().NoError(err)
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
	body := suite.decode(resp)
	suite.Equal("Not Authenticated", body["message"])

	// Wrong password never yields a cookie.
	resp = suite.postJSON("/api/auth/login", map[string]string{
		"email":    suite.admin.Email,
		"password": "wrong-password",
	})
	suite.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Login stores the session cookie in the jar.
	resp = suite.postJSON("/api/auth/login", map[string]string{
		"email":    suite.admin.Email,
		"password": "admin-password",
	})
	suite.Equal(http.StatusOK, resp.StatusCode)
	body = suite.decode(resp)
	suite.Equal("Login Successful!", body["message"])

	// Authenticated admin lists users.
	listed := []types.User{*suite.admin}
	suite.userRepo.On("CountUsers", mock.Anything).Return(1, nil)
	suite.userRepo.On("ListUsers", mock.Anything, mock.AnythingOfType("types.ListUsersParams"), []types.Role(nil)).
		Return(listed, nil)

	resp, err = suite.client.Get(suite.server.URL + "/api/user")
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, resp.StatusCode)
	body = suite.decode(resp)
	suite.Equal("Users Fetch Successful!", body["message"])
	suite.EqualValues(1, body["count"])

	// Create a new user through the full stack.
	newID := uuid.New()
	suite.userRepo.On("GetUserByEmail", mock.Anything, "new@example.com").Return(nil, types.ErrNotFound)
	suite.userRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("types.CreateUserParams"), mock.AnythingOfType("string"), types.DefaultAvatar).
		Return(&types.User{ID: newID, Name: "New Person", Email: "new@example.com", Role: types.RoleUser, IsActive: true}, nil)

	resp = suite.postJSON("/api/user/add", map[string]string{
		"name":     "New Person",
		"email":    "new@example.com",
		"password": "new-password",
		"mobile":   "5551230000",
		"gender":   "F",
	})
	suite.Equal(http.StatusOK, resp.StatusCode)
	body = suite.decode(resp)
	suite.Equal("New user added!", body["message"])

	// Logout clears the cookie; the protected routes reject again.
	resp, err = suite.client.Get(suite.server.URL + "/api/auth/logout")
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = suite.client.Get(suite.server.URL + "/api/user")
	suite.Require().NoError(err)
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (suite *E2ETestSuite) TestUnknownRouteEnvelope() {
	resp, err := suite.client.Get(suite.server.URL + "/api/nothing-here")
	suite.Require().NoError(err)
	suite.Equal(http.StatusNotFound, resp.StatusCode)
	body := suite.decode(resp)
	suite.Equal(false, body["success"])
	suite.Equal("Not Found", body["message"])
}

func TestE2ETestSuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
