package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"devfolio/internal/models"
	"devfolio/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")

	created := env.createProject(alice, "My Cool App!", false)
	assert.Equal(t, "my-cool-app", created.Slug)
	assert.Equal(t, "alice", created.UserID)
	assert.False(t, created.Published)

	// Draft projects stay private.
	status, _ := env.do(http.MethodGet, "/api/public/projects/alice/my-cool-app", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.do(http.MethodPut, fmt.Sprintf("/api/projects/%d/publish", created.ID),
		map[string]any{"published": true}, alice)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.True(t, decode[models.Project](t, body).Published)
	assert.Contains(t, env.indexer.indexed, created.ID)

	status, body = env.do(http.MethodGet, "/api/public/projects/alice/my-cool-app", nil, "")
	require.Equal(t, http.StatusOK, status, string(body))
	public := decode[models.Project](t, body)
	assert.Equal(t, created.ID, public.ID)
	require.NotNil(t, public.User)
	assert.Equal(t, "alice", *public.User.Username)

	status, body = env.do(http.MethodPut, fmt.Sprintf("/api/projects/%d", created.ID),
		map[string]any{"title": "Brand New Name", "description": "Now with words"}, alice)
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decode[models.Project](t, body)
	assert.Equal(t, "brand-new-name", updated.Slug)
	assert.Equal(t, "Now with words", updated.Description)
	assert.Equal(t, []string{"Go"}, []string(updated.TechStack))

	status, body = env.do(http.MethodGet, "/api/projects", nil, alice)
	require.Equal(t, http.StatusOK, status)
	mine := decode[[]models.Project](t, body)
	require.Len(t, mine, 1)
	assert.Equal(t, "brand-new-name", mine[0].Slug)

	status, body = env.do(http.MethodDelete, fmt.Sprintf("/api/projects/%d", created.ID), nil, alice)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, true, decode[map[string]any](t, body)["success"])
	assert.Contains(t, env.indexer.removed, created.ID)

	status, _ = env.do(http.MethodGet, "/api/public/projects/alice/brand-new-name", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateProject_SlugsPerOwner(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	bob := env.token("bob")

	assert.Equal(t, "portfolio", env.createProject(alice, "Portfolio", true).Slug)
	assert.Equal(t, "portfolio-1", env.createProject(alice, "Portfolio", true).Slug)
	assert.Equal(t, "portfolio", env.createProject(bob, "Portfolio", true).Slug)
	assert.Equal(t, "untitled", env.createProject(alice, "!!!", false).Slug)
}

func TestCreateProject_Rejects(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")

	tests := []struct {
		name string
		body any
	}{
		{"bad live url", map[string]any{"title": "App", "liveUrl": "not a url"}},
		{"ftp repo url", map[string]any{"title": "App", "repoUrl": "ftp://example.com/repo"}},
		{"title too long", map[string]any{"title": strings.Repeat("a", 201)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(http.MethodPost, "/api/projects", tt.body, alice)
			assert.Equal(t, http.StatusBadRequest, status, string(body))
			assert.Equal(t, models.CodeValidation, errorCode(t, body))
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptestJSON(http.MethodPost, "/api/projects", "{not json", alice)
		status, body := env.send(req)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid request body", decode[models.ErrorResponse](t, body).Error)
	})
}

func TestProjectOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	mallory := env.token("mallory")
	p := env.createProject(alice, "Secret Plans", false)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"update", http.MethodPut, fmt.Sprintf("/api/projects/%d", p.ID), map[string]any{"title": "Mine now"}},
		{"publish", http.MethodPut, fmt.Sprintf("/api/projects/%d/publish", p.ID), map[string]any{"published": true}},
		{"delete", http.MethodDelete, fmt.Sprintf("/api/projects/%d", p.ID), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(tt.method, tt.path, tt.body, mallory)
			assert.Equal(t, http.StatusForbidden, status, string(body))
			assert.Equal(t, models.CodeForbidden, errorCode(t, body))
		})
	}

	status, _ := env.do(http.MethodPut, "/api/projects/9999", map[string]any{"title": "x"}, alice)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.do(http.MethodPut, "/api/projects/abc", map[string]any{"title": "x"}, alice)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", decode[models.ErrorResponse](t, body).Error)
}

func TestPublishProject_RequiresPublishedField(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	p := env.createProject(alice, "Thing", false)

	status, body := env.do(http.MethodPut, fmt.Sprintf("/api/projects/%d/publish", p.ID), map[string]any{}, alice)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, errorCode(t, body))
}

func TestPublicProfile(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	env.createProject(alice, "Shown", true)
	env.createProject(alice, "Hidden", false)

	status, body := env.do(http.MethodPut, "/api/user", map[string]any{
		"bio":       "Builds things",
		"githubUrl": "https://github.com/alice",
	}, alice)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.do(http.MethodGet, "/api/public/users/alice", nil, "")
	require.Equal(t, http.StatusOK, status, string(body))
	profile := decode[service.PublicProfile](t, body)
	assert.Equal(t, "Builds things", profile.User.Bio)
	require.NotNil(t, profile.User.GithubURL)
	assert.Equal(t, "https://github.com/alice", *profile.User.GithubURL)

	user := decode[map[string]any](t, body)["user"].(map[string]any)
	assert.NotContains(t, user, "email")
	assert.Equal(t, "alice", user["username"])
	require.Len(t, profile.Projects, 1)
	assert.Equal(t, "Shown", profile.Projects[0].Title)

	status, body = env.do(http.MethodGet, "/api/public/users/nobody", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, errorCode(t, body))
}

func TestUpdateProfile_UsernameTaken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	bob := env.token("bob")
	env.do(http.MethodGet, "/api/user", nil, alice)

	status, body := env.do(http.MethodPut, "/api/user", map[string]any{"username": "alice"}, bob)
	assert.Equal(t, http.StatusConflict, status, string(body))
	assert.Equal(t, models.CodeConflict, errorCode(t, body))

	status, body = env.do(http.MethodPut, "/api/user", map[string]any{"username": "bobby"}, bob)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "bobby", *decode[models.Account](t, body).Username)
}

func TestPopularAndSearch(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	viewed := env.createProject(alice, "Viewed Tool", true)
	quiet := env.createProject(alice, "Quiet Tool", true)
	env.createProject(alice, "Draft Tool", false)

	for i := 0; i < 2; i++ {
		status, _ := env.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/view", viewed.ID), nil, "")
		require.Equal(t, http.StatusOK, status)
	}

	status, body := env.do(http.MethodGet, "/api/public/projects/popular?limit=5", nil, "")
	require.Equal(t, http.StatusOK, status, string(body))
	popular := decode[[]models.Project](t, body)
	require.Len(t, popular, 2)
	assert.Equal(t, viewed.ID, popular[0].ID)
	assert.Equal(t, int64(2), popular[0].Views)
	assert.Equal(t, quiet.ID, popular[1].ID)

	status, body = env.do(http.MethodGet, "/api/public/projects/search?q=tool", nil, "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Len(t, decode[[]models.Project](t, body), 2)

	status, body = env.do(http.MethodGet, "/api/public/projects/search", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, errorCode(t, body))
}

func TestReindexMyProjects(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token("alice")
	a := env.createProject(alice, "One", true)
	env.createProject(alice, "Two", false)
	env.indexer.indexed = nil

	status, body := env.do(http.MethodPost, "/api/projects/reindex", nil, alice)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, float64(1), decode[map[string]any](t, body)["indexed"])
	assert.Equal(t, []uint{a.ID}, env.indexer.indexed)
}
