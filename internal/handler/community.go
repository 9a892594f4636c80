package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/content"
	"github.com/iliyamo/k2-expeditions/internal/middleware"
	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/queue"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/service"
)

// CommunityHandler serves community posts.
type CommunityHandler struct {
	Posts  *repository.CommunityRepo
	Events service.Publisher
	Log    *zap.Logger
}

func NewCommunityHandler(p *repository.CommunityRepo, events service.Publisher, log *zap.Logger) *CommunityHandler {
	return &CommunityHandler{Posts: p, Events: events, Log: log}
}

type createPostReq struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	IsPublished *bool    `json:"isPublished"`
}

type updatePostReq struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Images      *[]string `json:"images"`
	Tags        *[]string `json:"tags"`
	IsPublished *bool     `json:"isPublished"`
	IsFeatured  *bool     `json:"isFeatured"`
}

// List returns posts newest first.  ?published=true|false, ?featured=true
// and ?userId=N narrow the result.
func (h *CommunityHandler) List(c echo.Context) error {
	f := repository.PostFilter{
		Published:    queryBool(c, "published"),
		FeaturedOnly: c.QueryParam("featured") == "true",
	}
	if v := c.QueryParam("userId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusOK, []*model.CommunityPost{})
		}
		f.UserID = id
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	posts, err := h.Posts.List(ctx, f)
	if err != nil {
		return serverErr(c, h.Log, "Failed to fetch community posts", err)
	}
	return c.JSON(http.StatusOK, posts)
}

// Create stores a post by the caller.  Only admins publish directly (by
// default, unless isPublished is false); everyone else starts as a draft.
func (h *CommunityHandler) Create(c echo.Context) error {
	var req createPostReq
	if err := c.Bind(&req); err != nil {
		return jsonErr(c, http.StatusBadRequest, "Invalid request body")
	}
	title := content.PlainText(req.Title)
	body := strings.TrimSpace(req.Content)
	if title == "" || body == "" {
		return jsonErr(c, http.StatusBadRequest, "Title and content are required")
	}

	s := session(c)
	published := false
	if model.IsAdminRole(s.Role) {
		published = req.IsPublished == nil || *req.IsPublished
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Posts.Create(ctx, &model.CommunityPost{
		UserID:      s.UserID,
		Title:       title,
		Content:     body,
		Images:      model.StringList(req.Images).OrEmpty(),
		Tags:        model.StringList(content.CleanList(req.Tags)),
		IsPublished: published,
	})
	if err != nil {
		return serverErr(c, h.Log, "Failed to create community post", err)
	}

	publish(c, h.Events, h.Log, queue.PostCreatedQueue, queue.PostCreatedEvent{
		PostID:      p.ID,
		UserID:      p.UserID,
		Title:       p.Title,
		IsPublished: p.IsPublished,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusCreated, p)
}

// Get returns one post and counts the view.  Every call adds one; views
// are not deduplicated per reader.
func (h *CommunityHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Post not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Posts.View(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return jsonErr(c, http.StatusNotFound, "Post not found")
		}
		return serverErr(c, h.Log, "Failed to fetch community post", err)
	}
	p.ContentHTML = content.RenderMarkdown(p.Content)
	return c.JSON(http.StatusOK, p)
}

// Update edits a post.  The owner and admins may edit; isPublished and
// isFeatured are applied for admins only and ignored for everyone else.
func (h *CommunityHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Post not found")
	}
	var req updatePostReq
	if err := c.Bind(&req); err != nil {
		return jsonErr(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	admin, ok, resp := h.authorize(c, id)
	if !ok {
		return resp
	}

	var patch repository.PostPatch
	if req.Title != nil {
		t := content.PlainText(*req.Title)
		if t == "" {
			return jsonErr(c, http.StatusBadRequest, "Title cannot be empty")
		}
		patch.Title = &t
	}
	if req.Content != nil {
		body := strings.TrimSpace(*req.Content)
		if body == "" {
			return jsonErr(c, http.StatusBadRequest, "Content cannot be empty")
		}
		patch.Content = &body
	}
	if req.Images != nil {
		imgs := model.StringList(*req.Images).OrEmpty()
		patch.Images = &imgs
	}
	if req.Tags != nil {
		tags := model.StringList(content.CleanList(*req.Tags))
		patch.Tags = &tags
	}
	if admin {
		patch.IsPublished = req.IsPublished
		patch.IsFeatured = req.IsFeatured
	}

	p, err := h.Posts.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return jsonErr(c, http.StatusNotFound, "Post not found")
		}
		return serverErr(c, h.Log, "Failed to update community post", err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete removes a post; owner or admin only.
func (h *CommunityHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return jsonErr(c, http.StatusNotFound, "Post not found")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, ok, resp := h.authorize(c, id); !ok {
		return resp
	}
	if err := h.Posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return jsonErr(c, http.StatusNotFound, "Post not found")
		}
		return serverErr(c, h.Log, "Failed to delete community post", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// authorize checks that the caller owns post id or is an admin.  When ok
// is false the response has been written and resp is what the handler
// returns.
func (h *CommunityHandler) authorize(c echo.Context, id uint64) (admin, ok bool, resp error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	owner, err := h.Posts.OwnerID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return false, false, jsonErr(c, http.StatusNotFound, "Post not found")
		}
		return false, false, serverErr(c, h.Log, "Failed to fetch community post", err)
	}
	admin = middleware.IsAdmin(c)
	if !admin && owner != session(c).UserID {
		return false, false, jsonErr(c, http.StatusForbidden, "Forbidden")
	}
	return admin, true, nil
}
