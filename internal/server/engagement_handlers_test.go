package server

import (
	"fmt"
	"net/http"
	"testing"

	"devfolio/internal/config"
	"devfolio/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	bob := env.token("bob")
	p := env.createProject(alice, "Likeable", true)
	path := fmt.Sprintf("/api/projects/%d/like", p.ID)

	status, body := env.do(http.MethodPost, path, nil, bob)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, models.LikeResult{Liked: true, LikeCount: 1}, decode[models.LikeResult](t, body))

	status, body = env.do(http.MethodPost, path, nil, alice)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.LikeResult{Liked: true, LikeCount: 2}, decode[models.LikeResult](t, body))

	status, body = env.do(http.MethodPost, path, nil, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.LikeResult{Liked: false, LikeCount: 1}, decode[models.LikeResult](t, body))

	t.Run("requires auth", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("missing project", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/projects/424242/like", nil, bob)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, models.CodeNotFound, errorCode(t, body))
	})
}

func TestRecordView(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	p := env.createProject(alice, "Watched", true)

	for i := 0; i < 3; i++ {
		status, body := env.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/view", p.ID), nil, "")
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Equal(t, true, decode[map[string]any](t, body)["success"])
	}

	var stored models.Project
	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, int64(3), stored.Views)

	status, body := env.do(http.MethodPost, "/api/projects/0/view", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", decode[models.ErrorResponse](t, body).Error)

	status, _ = env.do(http.MethodPost, "/api/projects/777/view", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRecordView_NotQuotaLimited(t *testing.T) {
	production := func(cfg *config.Config, _ *Deps, _ **redis.Client) { cfg.Env = "production" }
	env := newTestEnv(t, withRedis(t), production)
	alice := env.token("alice")
	p := env.createProject(alice, "Popular", true)

	for i := 0; i < 75; i++ {
		status, body := env.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/view", p.ID), nil, "")
		require.Equal(t, http.StatusOK, status, string(body))
	}
	var stored models.Project
	require.NoError(t, env.db.First(&stored, p.ID).Error)
	assert.Equal(t, int64(75), stored.Views)

	// Comment quotas still apply in the same environment.
	path := fmt.Sprintf("/api/projects/%d/comments", p.ID)
	for i := 0; i < 5; i++ {
		status, _ := env.do(http.MethodPost, path, map[string]any{"content": "hi"}, alice)
		require.Equal(t, http.StatusCreated, status)
	}
	status, body := env.do(http.MethodPost, path, map[string]any{"content": "hi"}, alice)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, models.CodeRateLimited, errorCode(t, body))
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	bob := env.token("bob")
	p := env.createProject(alice, "Discussed", true)
	path := fmt.Sprintf("/api/projects/%d/comments", p.ID)

	status, body := env.do(http.MethodPost, path, map[string]any{"content": "first <b>post</b>"}, bob)
	require.Equal(t, http.StatusCreated, status, string(body))
	first := decode[map[string]any](t, body)
	assert.Equal(t, "first post", first["content"])
	author := first["user"].(map[string]any)
	assert.Equal(t, "bob", author["username"])

	status, body = env.do(http.MethodPost, path, map[string]any{"content": "second"}, alice)
	require.Equal(t, http.StatusCreated, status, string(body))
	second := decode[models.Comment](t, body)

	status, body = env.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, status)
	listed := decode[[]models.Comment](t, body)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID, "newest comment first")

	t.Run("empty content", func(t *testing.T) {
		status, body := env.do(http.MethodPost, path, map[string]any{"content": "  <i></i> "}, bob)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, models.CodeValidation, errorCode(t, body))
	})

	t.Run("missing project", func(t *testing.T) {
		status, _ := env.do(http.MethodGet, "/api/projects/31337/comments", nil, "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("only the author deletes", func(t *testing.T) {
		status, body := env.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", second.ID), nil, bob)
		assert.Equal(t, http.StatusForbidden, status, string(body))

		status, _ = env.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", second.ID), nil, alice)
		assert.Equal(t, http.StatusOK, status)

		status, _ = env.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", second.ID), nil, alice)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
