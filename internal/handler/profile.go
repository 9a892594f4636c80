package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/utils"
)

const profileRecent = 5

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	Users        *repository.UserRepo
	Summits      *repository.SummitRepo
	Bookings     *repository.BookingRepo
	Certificates *repository.CertificateRepo
	BcryptCost   int
	Log          *zap.Logger
}

type profileResp struct {
	*model.User
	SummitRecords []model.SummitRecord `json:"summitRecords"`
	Bookings      []*model.Booking     `json:"bookings"`
	Certificates  []*model.Certificate `json:"certificates"`
}

type updateProfileReq struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Phone    *string `json:"phone"`
	Image    *string `json:"image"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// Get returns the user with relation counts and the most recent successful
// summits, bookings and certificates.
func (h *ProfileHandler) Get(c echo.Context) error {
	uid := session(c).UserID
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetWithCounts(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonErr(c, http.StatusNotFound, "User not found")
		}
		return serverErr(c, h.Log, "Failed to fetch profile", err)
	}
	summits, err := h.Summits.List(ctx, repository.SummitFilter{
		UserID: uid, Status: model.SummitSuccessful, Limit: profileRecent,
	})
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch profile", err)
	}
	bookings, err := h.Bookings.List(ctx, uid, profileRecent)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch profile", err)
	}
	certs, err := h.Certificates.List(ctx, uid, profileRecent)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch profile", err)
	}
	return c.JSON(http.StatusOK, profileResp{User: u, SummitRecords: summits, Bookings: bookings, Certificates: certs})
}

// Update changes the caller's own name, bio, phone, image or password.
// Email and role are not editable here.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req updateProfileReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return jsonErr(c, http.StatusBadRequest, msg)
	}
	patch := repository.UserPatch{
		Name:  trimPtr(req.Name),
		Bio:   req.Bio,
		Phone: trimPtr(req.Phone),
		Image: trimPtr(req.Image),
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return serverErr(c, h.Log, "Failed to update profile", err)
		}
		patch.PasswordHash = &hash
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Update(ctx, session(c).UserID, patch)
	if err != nil {
		return userWriteErr(c, h.Log, err, "Failed to update profile")
	}
	return c.JSON(http.StatusOK, u)
}
