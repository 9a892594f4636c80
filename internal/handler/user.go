package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// UserHandler serves admin user management.
type UserHandler struct {
	Users      *repository.UserRepo
	BcryptCost int
	Log        *zap.Logger
}

func NewUserHandler(u *repository.UserRepo, bcryptCost int, log *zap.Logger) *UserHandler {
	return &UserHandler{Users: u, BcryptCost: bcryptCost, Log: log}
}

type updateUserReq struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Bio      *string `json:"bio"`
	Phone    *string `json:"phone"`
	Image    *string `json:"image"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch users", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "User not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetWithCounts(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonErr(c, http.StatusNotFound, "User not found")
		}
		return serverErr(c, h.Log, "Failed to fetch user", err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update overwrites the supplied fields.  A password is hashed before it is
// stored; an unknown role is rejected.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "User not found")
	}
	var req updateUserReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	patch := repository.UserPatch{
		Email: trimPtr(req.Email),
		Name:  trimPtr(req.Name),
		Bio:   req.Bio,
		Phone: trimPtr(req.Phone),
		Image: trimPtr(req.Image),
	}
	if req.Role != nil {
		role := strings.ToUpper(strings.TrimSpace(*req.Role))
		if !model.ValidRole(role) {
			return jsonErr(c, http.StatusBadRequest, "Invalid role")
		}
		patch.Role = &role
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return serverErr(c, h.Log, "Failed to update user", err)
		}
		patch.PasswordHash = &hash
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Update(ctx, id, patch)
	if err != nil {
		return userWriteErr(c, h.Log, err, "Failed to update user")
	}
	return c.JSON(http.StatusOK, u)
}

// Delete removes a user and everything they own.  Admins cannot delete
// their own account.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "User not found")
	}
	if id == session(c).UserID {
		return jsonErr(c, http.StatusBadRequest, "You cannot delete your own account")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return userWriteErr(c, h.Log, err, "Failed to delete user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func userWriteErr(c echo.Context, log *zap.Logger, err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return jsonErr(c, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrEmailExists):
		return jsonErr(c, http.StatusConflict, "Email already in use")
	}
	return serverErr(c, log, msg, err)
}
