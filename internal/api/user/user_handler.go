package user

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/staffdeck/staffdeck/internal/api"
	"github.com/staffdeck/staffdeck/internal/api/auth"
	"github.com/staffdeck/staffdeck/internal/types"
)

var validate = validator.New()

// reservedQueryKeys are pagination/sort/field-selection parameters that are
// never treated as equality filters.
var reservedQueryKeys = map[string]struct{}{
	"page":   {},
	"limit":  {},
	"sort":   {},
	"fields": {},
	"key":    {},
}

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListUsers(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	AddUser(w http.ResponseWriter, r *http.Request)
	UpdateUser(w http.ResponseWriter, r *http.Request)
	RemoveUser(w http.ResponseWriter, r *http.Request)
	ChangeRole(w http.ResponseWriter, r *http.Request)
	ToggleActiveStatus(w http.ResponseWriter, r *http.Request)
}

// UploadConfig tells the handler where avatar uploads land and how they are
// addressed in responses.
type UploadConfig struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

type HandlerImpl struct {
	userService UserService
	upload      UploadConfig
	logger      *slog.Logger
}

func NewHandlerImpl(userService UserService, upload UploadConfig, logger *slog.Logger) *HandlerImpl {
	if upload.MaxBytes <= 0 {
		upload.MaxBytes = 5 << 20
	}
	return &HandlerImpl{
		userService: userService,
		upload:      upload,
		logger:      logger,
	}
}

func requesterFromContext(w http.ResponseWriter, r *http.Request) (types.Identity, bool) {
	identity, ok := auth.GetIdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, types.ErrNotAuthenticated, "Not Authenticated")
		return types.Identity{}, false
	}
	return identity, true
}

func targetIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, types.ErrValidation, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}

// ListUsers godoc
// @Summary      List users
// @Description  Paginated, filtered, sorted user listing. Moderators only see
// @Description  Moderator and User records regardless of requested filters.
// @Tags         User
// @Produce      json
// @Param        key   query string false "Case-insensitive search across name/email/mobile/gender/role"
// @Param        page  query int    false "1-based page"    default(1)
// @Param        limit query int    false "Page size"       default(10)
// @Param        sort  query string false "Comma-separated fields, '-' prefix for descending"
// @Success      200 {object} types.ListResponse
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     CookieAuth
// @Router       /user/ [get]
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListUsers"))

	requester, ok := requesterFromContext(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	params := types.ListUsersParams{
		Key:     query.Get("key"),
		Filters: map[string]string{},
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		params.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		params.Limit = limit
	}
	if sort := query.Get("sort"); sort != "" {
		params.Sort = strings.Split(sort, ",")
	}
	for key, values := range query {
		if _, reserved := reservedQueryKeys[key]; reserved || len(values) == 0 {
			continue
		}
		params.Filters[key] = values[0]
	}

	users, err := h.userService.ListUsers(ctx, requester, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to list users", slog.Any("error", err))
		api.HandleError(w, r, err, listErrorMessage(err))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.ListResponse{
		Response: types.Response{Success: true, Message: "Users Fetch Successful!"},
		Count:    len(users),
		Users:    users,
	})
}

func listErrorMessage(err error) string {
	if err == types.ErrPageOutOfRange {
		return "Page doesn't exist!"
	}
	return ""
}

// GetUser godoc
// @Summary      Get a user
// @Tags         User
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.UserResponse
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     CookieAuth
// @Router       /user/{id} [get]
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requester, ok := requesterFromContext(w, r)
	if !ok {
		return
	}
	id, ok := targetIDFromURL(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(ctx, requester, id)
	if err != nil {
		api.HandleError(w, r, err, userErrorMessage(err))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.UserResponse{
		Response: types.Response{Success: true, Message: "User Fetch Successful!"},
		User:     user,
	})
}

// AddUser godoc
// @Summary      Add a user
// @Description  Creates a user. Role defaults to User, isActive to true, the
// @Description  avatar to the placeholder image.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        user body types.CreateUserParams true "New user"
// @Success      200 {object} types.UserResponse
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Security     CookieAuth
// @Router       /user/add [post]
func (h *HandlerImpl) AddUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "AddUser"))

	requester, ok := requesterFromContext(w, r)
	if !ok {
		return
	}

	var params types.CreateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(params); err != nil {
		api.HandleError(w, r, types.ErrValidation, validationMessage(err))
		return
	}

	user, err := h.userService.CreateUser(ctx, requester, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to create user", slog.Any("error", err))
		api.HandleError(w, r, err, createErrorMessage(err))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.UserResponse{
		Response: types.Response{Success: true, Message: "New user added!"},
		User:     user,
	})
}

func createErrorMessage(err error) string {
	if err == types.ErrConflict {
		return "User already exists"
	}
	return ""
}

// UpdateUser godoc
// @Summary      Update a user
// @Description  Updates name/email/mobile/gender and optionally the avatar
// @Description  via multipart upload. Never touches the password.
// @Tags         User
// @Accept       mpfd
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.UserResponse
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     CookieAuth
// @Router       /user/update/{id} [patch]
func (h *HandlerImpl) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateUser"))

	requester, ok := requesterFromContext(w, r)
	if !ok {
		return
	}
	id, ok := targetIDFromURL(w, r)
	if !ok {
		return
	}

	params, err := h.decodeUpdateParams(w, r)
	if err != nil {
		l.WarnContext(ctx, "Failed to decode update request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(params); err != nil {
		api.HandleError(w, r, types.ErrValidation, validationMessage(err))
		return
	}

	user, err := h.userService.UpdateUser(ctx, requester, id, params)
	if err != nil {
		api.HandleError(w, r, err, userErrorMessage(err))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.UserResponse{
		Response: types.Response{Success: true, Message: "User Updated!"},
		User:     user,
	})
}

// decodeUpdateParams accepts either a JSON body or a multipart form carrying
// the fields plus an optional "image" file.
func (h *HandlerImpl) decodeUpdateParams(w http.ResponseWriter, r *http.Request) (types.UpdateUserParams, error) {
	var params types.UpdateUserParams

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if err := api.DecodeJSONBody(w, r, &params); err != nil {
			return params, err
		}
		return params, nil
	}

	if err := r.ParseMultipartForm(h.upload.MaxBytes); err != nil {
		return params, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	params.Name = r.FormValue("name")
	params.Email = r.FormValue("email")
	params.Mobile = r.FormValue("mobile")
	params.Gender = types.Gender(r.FormValue("gender"))

	file, header, err := r.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return params, nil
		}
		return params, fmt.Errorf("failed to read uploaded image: %w", err)
	}
	defer file.Close()

	imagePath, err := h.saveAvatar(file, header.Filename)
	if err != nil {
		return params, err
	}
	params.Image = imagePath
	return params, nil
}

// saveAvatar stores the uploaded file under the configured assets dir with a
// timestamp-based name and returns the public URL path.
func (h *HandlerImpl) saveAvatar(file io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(h.upload.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := fmt.Sprintf("%d%s", time.Now().UnixMilli(), filepath.Ext(originalName))
	dst, err := os.Create(filepath.Join(h.upload.Dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}
	return path.Join(h.upload.BaseURL, name), nil
}

// RemoveUser godoc
// @Summary      Delete a user
// @Description  Permanently removes the record. There is no soft delete.
// @Tags         User
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.UserResponse
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     CookieAuth
// @Router       /user/remove/{id} [delete]
func (h *HandlerImpl) RemoveUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requester, ok := requesterFromContext(w, r)
	if !ok {
		return
	}
	id, ok := targetIDFromURL(w, r)
	if !ok {
		return
	}

	user, err := h.userService.DeleteUser(ctx, requester, id)
	if err != nil {
		api.HandleError(w, r, err, userErrorMessage(err))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.UserResponse{
		Response: types.Response{Success: true, Message: "User Deleted!"},
		User:     user,
	})
}

type changeRoleRequest struct {
	Role types.Role `json:"role" validate:"required,oneof=Admin Moderator User"`
}

// ChangeRole godoc
// @Summary      Change a user's role
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        id   path string            true "User ID"
// @Param        body body changeRoleRequest true "New role"
// @Success      200 {object} types.UserResponse
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     CookieAuth
// @Router       /user/change-role/{id} [patch]
func (h *HandlerImpl) ChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requester, ok := requesterFromContext(w, r)
	if !ok {
		return
	}
	id, ok := targetIDFromURL(w, r)
	if !ok {
		return
	}

	var req changeRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		api.HandleError(w, r, types.ErrValidation, validationMessage(err))
		return
	}

	user, oldRole, err := h.userService.ChangeRole(ctx, requester, id, req.Role)
	if err != nil {
		api.HandleError(w, r, err, userErrorMessage(err))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.UserResponse{
		Response: types.Response{
			Success: true,
			Message: fmt.Sprintf("User role change from %s to %s!", oldRole, user.Role),
		},
		User: user,
	})
}

// ToggleActiveStatus godoc
// @Summary      Toggle a user's active status
// @Tags         User
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} types.UserResponse
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     CookieAuth
// @Router       /user/toggle-active-status/{id} [patch]
func (h *HandlerImpl) ToggleActiveStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requester, ok := requesterFromContext(w, r)
	if !ok {
		return
	}
	id, ok := targetIDFromURL(w, r)
	if !ok {
		return
	}

	user, err := h.userService.ToggleActiveStatus(ctx, requester, id)
	if err != nil {
		api.HandleError(w, r, err, userErrorMessage(err))
		return
	}

	message := "User Activated!"
	if !user.IsActive {
		message = "User Deactivated!"
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.UserResponse{
		Response: types.Response{Success: true, Message: message},
		User:     user,
	})
}

func userErrorMessage(err error) string {
	switch {
	case err == types.ErrNotFound:
		return "User not found!"
	case err == types.ErrForbidden:
		return "Unauthorized"
	}
	return ""
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field()
		}
		return "Invalid input: " + strings.Join(fields, ", ")
	}
	return "Invalid input"
}
