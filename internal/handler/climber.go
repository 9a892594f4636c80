package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/repository"
)

const featuredClimbers = 6

// ClimberHandler serves public climber profiles.
type ClimberHandler struct {
	Users        *repository.UserRepo
	Summits      *repository.SummitRepo
	Certificates *repository.CertificateRepo
	Posts        *repository.CommunityRepo
	Log          *zap.Logger
}

// climberResp is the public projection of a climber.  Email, phone and
// account state stay private.
type climberResp struct {
	model.UserSummary
	Role          string                 `json:"role"`
	Count         *model.UserCounts      `json:"_count,omitempty"`
	SummitRecords []model.SummitRecord   `json:"summitRecords,omitempty"`
	Certificates  []*model.Certificate   `json:"certificates,omitempty"`
	Posts         []*model.CommunityPost `json:"communityPosts,omitempty"`
}

func publicClimber(u *model.User) climberResp {
	return climberResp{
		UserSummary: model.UserSummary{ID: u.ID, Name: u.Name, Image: u.Image, Bio: u.Bio},
		Role:        u.Role,
		Count:       u.Count,
	}
}

// Featured lists the climbers with the most successful summits.
func (h *ClimberHandler) Featured(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.FeaturedClimbers(ctx, featuredClimbers)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch climbers", err)
	}
	out := make([]climberResp, 0, len(users))
	for _, u := range users {
		out = append(out, publicClimber(u))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a climber's public profile: successful summits, certificates
// and published posts.
func (h *ClimberHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Climber not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetWithCounts(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return jsonErr(c, http.StatusNotFound, "Climber not found")
		}
		return serverErr(c, h.Log, "Failed to fetch climber", err)
	}
	if !u.IsActive {
		return jsonErr(c, http.StatusNotFound, "Climber not found")
	}
	out := publicClimber(u)

	if out.SummitRecords, err = h.Summits.List(ctx, repository.SummitFilter{UserID: id, Status: model.SummitSuccessful}); err != nil {
		return serverErr(c, h.Log, "Failed to fetch climber", err)
	}
	if out.Certificates, err = h.Certificates.List(ctx, id, 0); err != nil {
		return serverErr(c, h.Log, "Failed to fetch climber", err)
	}
	for _, cert := range out.Certificates {
		if cert.User != nil {
			cert.User.Email = ""
		}
	}
	published := true
	if out.Posts, err = h.Posts.List(ctx, repository.PostFilter{Published: &published, UserID: id}); err != nil {
		return serverErr(c, h.Log, "Failed to fetch climber", err)
	}
	return c.JSON(http.StatusOK, out)
}
