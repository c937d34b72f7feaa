package seed

import (
	"context"
	"testing"

	"devfolio/internal/models"
	"devfolio/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func count(t *testing.T, s *Seeder, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s := NewSeeder(db)
	ctx := context.Background()

	sum, err := s.Run(ctx, Options{Accounts: 4, ProjectsPerAccount: 3, Seed: 42})
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Accounts)
	assert.Equal(t, 12, sum.Projects)
	assert.Equal(t, int64(4), count(t, s, &models.Account{}))
	assert.Equal(t, int64(12), count(t, s, &models.Project{}))
	assert.Equal(t, int64(sum.Likes), count(t, s, &models.Like{}))
	assert.Equal(t, int64(sum.Comments), count(t, s, &models.Comment{}))

	var accounts []models.Account
	require.NoError(t, db.Find(&accounts).Error)
	seen := map[string]bool{}
	for _, a := range accounts {
		require.NotNil(t, a.Username, "account %s has no username", a.ID)
		assert.False(t, seen[*a.Username], "duplicate username %s", *a.Username)
		seen[*a.Username] = true
		assert.NotEmpty(t, a.Bio)
		assert.Len(t, a.CustomLinks, 1)
	}

	var views int64
	require.NoError(t, db.Model(&models.Project{}).Select("COALESCE(SUM(views), 0)").Scan(&views).Error)
	assert.Equal(t, int64(sum.Views), views)
}

func TestSeeder_ClearAllKeepsRealAccounts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s := NewSeeder(db)
	ctx := context.Background()

	real := &models.Account{ID: "real-user", Email: "real@example.com", Name: "Real"}
	require.NoError(t, db.Create(real).Error)
	require.NoError(t, db.Create(&models.Project{UserID: real.ID, Title: "Keep", Slug: "keep", Published: true}).Error)

	_, err := s.Run(ctx, Options{Accounts: 3, ProjectsPerAccount: 2, Seed: 7})
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	assert.Equal(t, int64(1), count(t, s, &models.Account{}))
	assert.Equal(t, int64(1), count(t, s, &models.Project{}))
	assert.Equal(t, int64(0), count(t, s, &models.Like{}))
	assert.Equal(t, int64(0), count(t, s, &models.Comment{}))
}
