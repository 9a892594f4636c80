package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/model"
	"github.com/iliyamo/k2-expeditions/internal/queue"
	"github.com/iliyamo/k2-expeditions/internal/testutil"
)

func TestNonAdminPostsStartAsDrafts(t *testing.T) {
	api := newAPI(t)
	climber := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)

	rec := api.do(http.MethodPost, "/api/community", api.token(climber, model.RoleClimber), map[string]any{
		"title":       "<b>Broad Peak</b> diary",
		"content":     "  Day one **was** long.  ",
		"tags":        []string{"karakoram", "<script>x</script>"},
		"isPublished": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.CommunityPost](t, rec)
	assert.False(t, p.IsPublished)
	assert.Equal(t, "Broad Peak diary", p.Title)
	assert.Equal(t, "Day one **was** long.", p.Content)
	assert.Equal(t, []string{queue.PostCreatedQueue}, api.events.queues)
}

func TestAdminPostsPublishUnlessToldOtherwise(t *testing.T) {
	api := newAPI(t)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleAdmin)
	tok := api.token(admin, model.RoleAdmin)

	rec := api.do(http.MethodPost, "/api/community", tok, map[string]any{"title": "News", "content": "Season opens"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode[model.CommunityPost](t, rec).IsPublished)

	rec = api.do(http.MethodPost, "/api/community", tok, map[string]any{"title": "Draft", "content": "later", "isPublished": false})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, decode[model.CommunityPost](t, rec).IsPublished)
}

func TestCreatePostNeedsTitleAndContent(t *testing.T) {
	api := newAPI(t)
	u := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	rec := api.do(http.MethodPost, "/api/community", api.token(u, model.RoleClimber), map[string]any{"title": "<i></i>", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEncodedMarkupInTitleIsStripped(t *testing.T) {
	api := newAPI(t)
	u := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)

	rec := api.do(http.MethodPost, "/api/community", api.token(u, model.RoleClimber), map[string]any{
		"title":   "K2 &lt;script&gt;alert(1)&lt;/script&gt;",
		"content": "x",
		"tags":    []string{"&lt;img src=x onerror=alert(1)&gt;", "k2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.CommunityPost](t, rec)
	assert.Equal(t, "K2", p.Title)
	assert.Equal(t, model.StringList{"k2"}, p.Tags)
}

func TestAdminCanUnpublishAnotherUsersPost(t *testing.T) {
	api := newAPI(t)
	author := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	admin := testutil.InsertUser(t, api.db, "a@x.io", model.RoleSuperAdmin)
	id := testutil.InsertPost(t, api.db, author, "Summit", true)

	rec := api.do(http.MethodPut, fmt.Sprintf("/api/community/%d", id), api.token(admin, model.RoleSuperAdmin),
		map[string]any{"isPublished": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[model.CommunityPost](t, rec).IsPublished)
	assert.Equal(t, 1, testutil.Count(t, api.db, "community_posts", "id = ? AND is_published = 0", id))
}

func TestNonOwnerCannotEditPost(t *testing.T) {
	api := newAPI(t)
	author := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	other := testutil.InsertUser(t, api.db, "o@x.io", model.RoleClimber)
	id := testutil.InsertPost(t, api.db, author, "Summit", true)
	path := fmt.Sprintf("/api/community/%d", id)

	rec := api.do(http.MethodPut, path, api.token(other, model.RoleClimber), map[string]any{"title": "Hijacked", "isPublished": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, testutil.Count(t, api.db, "community_posts", "id = ? AND title = 'Summit' AND is_published = 1", id))

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, path, api.token(other, model.RoleClimber), nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPut, "/api/community/9999", api.token(other, model.RoleClimber), map[string]any{"title": "x"}).Code)
}

func TestOwnerCannotPublishOwnPost(t *testing.T) {
	api := newAPI(t)
	author := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	id := testutil.InsertPost(t, api.db, author, "Draft", false)

	rec := api.do(http.MethodPut, fmt.Sprintf("/api/community/%d", id), api.token(author, model.RoleClimber),
		map[string]any{"title": "Renamed", "isPublished": true, "isFeatured": true})
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[model.CommunityPost](t, rec)
	assert.Equal(t, "Renamed", p.Title)
	assert.False(t, p.IsPublished)
	assert.False(t, p.IsFeatured)
}

func TestGetPostCountsEveryView(t *testing.T) {
	api := newAPI(t)
	author := testutil.InsertUser(t, api.db, "c@x.io", model.RoleClimber)
	id := testutil.InsertPost(t, api.db, author, "Summit", true)
	_, err := api.db.Exec("UPDATE community_posts SET content = ? WHERE id = ?", "**top** <script>alert(1)</script>", id)
	require.NoError(t, err)

	for want := 1; want <= 3; want++ {
		rec := api.do(http.MethodGet, fmt.Sprintf("/api/community/%d", id), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		p := decode[model.CommunityPost](t, rec)
		assert.Equal(t, want, p.Views)
		assert.Contains(t, p.ContentHTML, "<strong>top</strong>")
		assert.NotContains(t, p.ContentHTML, "<script>")
	}
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/community/404", "", nil).Code)
}

func TestListPostsFilters(t *testing.T) {
	api := newAPI(t)
	a := testutil.InsertUser(t, api.db, "a@x.io", model.RoleClimber)
	b := testutil.InsertUser(t, api.db, "b@x.io", model.RoleClimber)
	testutil.InsertPost(t, api.db, a, "draft", false)
	testutil.InsertPost(t, api.db, a, "live", true)
	testutil.InsertPost(t, api.db, b, "other", true)

	rec := api.do(http.MethodGet, "/api/community?published=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.CommunityPost](t, rec), 2)

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/community?userId=%d", a), "", nil)
	assert.Len(t, decode[[]model.CommunityPost](t, rec), 2)

	rec = api.do(http.MethodGet, "/api/community?userId=abc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
