package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/staffdeck/staffdeck/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// PGXPool is the subset of pgxpool.Pool the repository needs. Narrowed so
// tests can substitute a pgxmock pool.
type PGXPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UserRepo defines the contract for user persistence.
type UserRepo interface {
	// GetUserByID returns the full record. types.ErrNotFound when missing.
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	// GetUserByEmail returns the full record. types.ErrNotFound when missing.
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	// CountUsers returns the total number of records, unfiltered.
	CountUsers(ctx context.Context) (int, error)
	// ListUsers applies the caller's filters/sort/pagination plus an optional
	// role scope ANDed onto the filters.
	ListUsers(ctx context.Context, params types.ListUsersParams, roleScope []types.Role) ([]types.User, error)
	// CreateUser inserts a record. types.ErrConflict on a unique violation.
	CreateUser(ctx context.Context, params types.CreateUserParams, passwordHash, image string) (*types.User, error)
	// UpdateUser mutates name/email/mobile/gender and optionally the image.
	UpdateUser(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	// DeleteUser removes the record permanently and returns it.
	DeleteUser(ctx context.Context, id uuid.UUID) (*types.User, error)
	// UpdateRole sets the role and returns the updated record.
	UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (*types.User, error)
	// SetActiveStatus sets is_active and returns the updated record.
	SetActiveStatus(ctx context.Context, id uuid.UUID, active bool) (*types.User, error)
}

const userColumns = "id, name, image, email, password_hash, mobile, gender, role, is_active, created_at, updated_at"

// filterColumns whitelists query-string filter keys against real columns.
var filterColumns = map[string]string{
	"name":     "name",
	"email":    "email",
	"mobile":   "mobile",
	"gender":   "gender",
	"role":     "role",
	"isActive": "is_active",
}

// sortColumns whitelists sortable fields.
var sortColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"mobile":    "mobile",
	"gender":    "gender",
	"role":      "role",
	"isActive":  "is_active",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresUserRepo(pgpool PGXPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Name, &u.Image, &u.Email, &u.PasswordHash,
		&u.Mobile, &u.Gender, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}
	return &u, nil
}

// isUniqueViolation maps the postgres unique-constraint error class.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (r *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context) (int, error) {
	var total int
	err := r.pgpool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context, params types.ListUsersParams, roleScope []types.Role) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "ListUsers", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Free-text key: case-insensitive match ORed across the searchable fields.
	if params.Key != "" {
		pattern := "%" + params.Key + "%"
		p := arg(pattern)
		where = append(where, fmt.Sprintf(
			"(name ILIKE %[1]s OR email ILIKE %[1]s OR mobile ILIKE %[1]s OR gender ILIKE %[1]s OR role ILIKE %[1]s)", p))
	}

	// Arbitrary equality filters; unknown keys are ignored rather than
	// allowed to reach the SQL text.
	for key, value := range params.Filters {
		col, ok := filterColumns[key]
		if !ok {
			continue
		}
		where = append(where, fmt.Sprintf("%s = %s", col, arg(value)))
	}

	// Role scope from the policy engine, ANDed with the caller's filters.
	if len(roleScope) > 0 {
		scope := make([]string, len(roleScope))
		for i, role := range roleScope {
			scope[i] = string(role)
		}
		where = append(where, fmt.Sprintf("role = ANY(%s)", arg(scope)))
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + buildOrderBy(params.Sort)
	query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(params.Limit), arg((params.Page-1)*params.Limit))

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Image, &u.Email, &u.PasswordHash,
			&u.Mobile, &u.Gender, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating user rows: %w", err)
	}
	return users, nil
}

// buildOrderBy translates the comma-split sort fields into an ORDER BY
// clause. A "-" prefix sorts descending. Defaults to created_at ascending.
func buildOrderBy(sort []string) string {
	var clauses []string
	for _, field := range sort {
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = strings.TrimPrefix(field, "-")
		}
		col, ok := sortColumns[field]
		if !ok {
			continue
		}
		clauses = append(clauses, col+" "+dir)
	}
	if len(clauses) == 0 {
		return "created_at ASC"
	}
	return strings.Join(clauses, ", ")
}

func (r *PostgresUserRepo) CreateUser(ctx context.Context, params types.CreateUserParams, passwordHash, image string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx, `
		INSERT INTO users (name, image, email, password_hash, mobile, gender)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		params.Name, image, params.Email, passwordHash, params.Mobile, params.Gender)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrConflict
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepo) UpdateUser(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	// Empty image keeps the current avatar.
	row := r.pgpool.QueryRow(ctx, `
		UPDATE users
		SET name = $1, email = $2, mobile = $3, gender = $4,
		    image = COALESCE(NULLIF($5, ''), image), updated_at = now()
		WHERE id = $6
		RETURNING `+userColumns,
		params.Name, params.Email, params.Mobile, params.Gender, params.Image, id)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrConflict
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "DeleteUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx,
		"DELETE FROM users WHERE id = $1 RETURNING "+userColumns, id)
	return scanUser(row)
}

func (r *PostgresUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns, role, id)
	return scanUser(row)
}

func (r *PostgresUserRepo) SetActiveStatus(ctx context.Context, id uuid.UUID, active bool) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "SetActiveStatus", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	row := r.pgpool.QueryRow(ctx, `
		UPDATE users SET is_active = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns, active, id)
	return scanUser(row)
}
