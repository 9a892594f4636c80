package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/config"
	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Cookies *utils.SessionCookie
	Log     *zap.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, cookies *utils.SessionCookie, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Cookies: cookies, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Name     *string `json:"name"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
	Role  string  `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue creates an access/refresh pair for u, stores the refresh hash and
// sets the session cookie.
func (h *AuthHandler) issue(c echo.Context, u *model.User) (*authResp, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	if h.Cookies != nil {
		if err := h.Cookies.Set(c.Response(), access.Token, access.Exp); err != nil {
			return nil, err
		}
	}
	return &authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a CLIMBER account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, trimPtr(req.Name), model.RoleClimber, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return jsonErr(c, http.StatusConflict, "User already exists")
		}
		return serverErr(c, h.Log, "Failed to create user", err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return serverErr(c, h.Log, "Failed to create user", err)
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return serverErr(c, h.Log, "Failed to issue tokens", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonErr(c, http.StatusUnauthorized, "Invalid credentials")
		}
		return serverErr(c, h.Log, "Failed to sign in", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return jsonErr(c, http.StatusUnauthorized, "Invalid credentials")
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return serverErr(c, h.Log, "Failed to issue tokens", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return jsonErr(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return jsonErr(c, http.StatusUnauthorized, "Invalid refresh token")
		}
		return serverErr(c, h.Log, "Failed to refresh session", err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return serverErr(c, h.Log, "Failed to refresh session", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonErr(c, http.StatusUnauthorized, "Invalid refresh token")
		}
		return serverErr(c, h.Log, "Failed to refresh session", err)
	}
	if !u.IsActive {
		return jsonErr(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return serverErr(c, h.Log, "Failed to issue tokens", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the signed-in user when the request carries a session, and clears the
// session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	s, signedIn := middleware.CurrentUser(c)
	if raw == "" && !signedIn {
		return jsonErr(c, http.StatusBadRequest, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return serverErr(c, h.Log, "Failed to sign out", err)
		}
	}
	if signedIn {
		if err := h.Tokens.RevokeAllForUser(ctx, s.UserID); err != nil {
			return serverErr(c, h.Log, "Failed to sign out", err)
		}
	}
	if h.Cookies != nil {
		h.Cookies.Clear(c.Response())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the signed-in user with relation counts.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetWithCounts(ctx, session(c).UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonErr(c, http.StatusNotFound, "User not found")
		}
		return serverErr(c, h.Log, "Failed to fetch user", err)
	}
	return c.JSON(http.StatusOK, u)
}
