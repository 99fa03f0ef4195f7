package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffdeck/staffdeck/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService executes the user operations after evaluating the
// authorization policy for the requesting identity.
type UserService interface {
	ListUsers(ctx context.Context, requester types.Identity, params types.ListUsersParams) ([]types.User, error)
	GetUser(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error)
	CreateUser(ctx context.Context, requester types.Identity, params types.CreateUserParams) (*types.User, error)
	UpdateUser(ctx context.Context, requester types.Identity, id uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	DeleteUser(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error)
	// ChangeRole returns the updated record plus the previous role.
	ChangeRole(ctx context.Context, requester types.Identity, id uuid.UUID, role types.Role) (*types.User, types.Role, error)
	// ToggleActiveStatus flips is_active and returns the updated record.
	ToggleActiveStatus(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error)
}

type UserServiceImpl struct {
	repo   UserRepo
	logger *slog.Logger
}

func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

func (s *UserServiceImpl) ListUsers(ctx context.Context, requester types.Identity, params types.ListUsersParams) ([]types.User, error) {
	scope, err := ListScope(requester.Role)
	if err != nil {
		return nil, err
	}

	if params.Page <= 0 {
		params.Page = defaultPage
	}
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}

	// The out-of-range guard compares against the unfiltered total, even
	// when filters narrow the result set.
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	if (params.Page-1)*params.Limit >= total {
		return nil, types.ErrPageOutOfRange
	}

	return s.repo.ListUsers(ctx, params, scope)
}

func (s *UserServiceImpl) GetUser(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error) {
	// Existence before authorization: a missing target is 404 for every role.
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(requester, OpRead, target); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, requester types.Identity, params types.CreateUserParams) (*types.User, error) {
	l := s.logger.With(slog.String("method", "CreateUser"))

	if err := Authorize(requester, OpCreate, nil); err != nil {
		return nil, err
	}

	// Duplicate check before the write; the unique constraint still backs
	// this up if two creates race.
	_, err := s.repo.GetUserByEmail(ctx, params.Email)
	if err == nil {
		return nil, types.ErrConflict
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, params, string(hash), types.DefaultAvatar)
	if err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "User created",
		slog.String("user_id", user.ID.String()),
		slog.String("created_by", requester.ID.String()),
	)
	return user, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, requester types.Identity, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(requester, OpUpdate, target); err != nil {
		return nil, err
	}
	return s.repo.UpdateUser(ctx, id, params)
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error) {
	l := s.logger.With(slog.String("method", "DeleteUser"))

	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(requester, OpDelete, target); err != nil {
		return nil, err
	}

	user, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "User deleted",
		slog.String("user_id", id.String()),
		slog.String("deleted_by", requester.ID.String()),
	)
	return user, nil
}

func (s *UserServiceImpl) ChangeRole(ctx context.Context, requester types.Identity, id uuid.UUID, role types.Role) (*types.User, types.Role, error) {
	if !role.Valid() {
		return nil, "", fmt.Errorf("%w: unknown role %q", types.ErrValidation, role)
	}

	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := Authorize(requester, OpChangeRole, target); err != nil {
		return nil, "", err
	}

	oldRole := target.Role
	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, "", err
	}
	return user, oldRole, nil
}

func (s *UserServiceImpl) ToggleActiveStatus(ctx context.Context, requester types.Identity, id uuid.UUID) (*types.User, error) {
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(requester, OpToggleActive, target); err != nil {
		return nil, err
	}
	return s.repo.SetActiveStatus(ctx, id, !target.IsActive)
}
