package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"devfolio/internal/auth"
	"devfolio/internal/cache"
	"devfolio/internal/ident"
	"devfolio/internal/models"
	"devfolio/internal/repository"
	"devfolio/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accountRepoStub overrides selected methods of a real repository.
type accountRepoStub struct {
	repository.AccountRepository
	usernameExistsFn func(ctx context.Context, username, excludeID string) (bool, error)
	assignUsernameFn func(ctx context.Context, id, username string) (bool, error)
}

func (s *accountRepoStub) UsernameExists(ctx context.Context, username, excludeID string) (bool, error) {
	if s.usernameExistsFn != nil {
		return s.usernameExistsFn(ctx, username, excludeID)
	}
	return s.AccountRepository.UsernameExists(ctx, username, excludeID)
}

func (s *accountRepoStub) AssignUsername(ctx context.Context, id, username string) (bool, error) {
	if s.assignUsernameFn != nil {
		return s.assignUsernameFn(ctx, id, username)
	}
	return s.AccountRepository.AssignUsername(ctx, id, username)
}

func TestAccountService_GetOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := auth.Identity{ID: "uid-1", Email: "jane.doe@example.com", Picture: "https://img.example.com/j.png"}

	first, err := f.accountSvc.GetOrCreateAccount(ctx, id)
	require.NoError(t, err)
	second, err := f.accountSvc.GetOrCreateAccount(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "jane.doe", first.Name)
	assert.Equal(t, "janedoe", first.UsernameOrEmpty())
	assert.Equal(t, first.UsernameOrEmpty(), second.UsernameOrEmpty())
	assert.Equal(t, "https://img.example.com/j.png", first.AvatarURL)

	var rows int64
	require.NoError(t, f.db.Model(&models.Account{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestAccountService_GetOrCreateConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := auth.Identity{ID: "uid-c", Email: "c@example.com", Name: "Concurrent Carol"}

	var wg sync.WaitGroup
	usernames := make(chan string, 12)
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc, err := f.accountSvc.GetOrCreateAccount(ctx, id)
			if assert.NoError(t, err) {
				usernames <- acc.UsernameOrEmpty()
			}
		}()
	}
	wg.Wait()
	close(usernames)

	for u := range usernames {
		assert.Equal(t, "concurrent-carol", u)
	}
	var rows int64
	require.NoError(t, f.db.Model(&models.Account{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestAccountService_CollidingNamesGetSuffixedUsernames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	letters := "xyz"
	next := 0
	f.accountSvc.WithResolver(&ident.UsernameResolver{
		Letter: func() byte {
			b := letters[next%len(letters)]
			next++
			return b
		},
		MaxAttempts: ident.MaxUsernameAttempts,
	})

	var got []string
	for i := range 4 {
		acc, err := f.accountSvc.GetOrCreateAccount(ctx, auth.Identity{
			ID:    fmt.Sprintf("dup-%d", i),
			Email: fmt.Sprintf("dup%d@example.com", i),
			Name:  "Same Name",
		})
		require.NoError(t, err)
		got = append(got, acc.UsernameOrEmpty())
	}
	// Every later account finds same-name taken and takes the next letter.
	assert.Equal(t, []string{"same-name", "same-namex", "same-namey", "same-namez"}, got)
}

func TestAccountService_UsernamesStayUniqueUnderCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const callers = 10

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.accountSvc.GetOrCreateAccount(ctx, auth.Identity{
				ID:    fmt.Sprintf("dup-%d", i),
				Email: fmt.Sprintf("dup%d@example.com", i),
				Name:  "Same Name",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// A request that loses the commit race twice gives up rather than
	// retrying forever; most callers still get a name.
	succeeded := 0
	for err := range errs {
		if err != nil {
			assertCode(t, err, models.CodeAllocationExhausted)
			continue
		}
		succeeded++
	}
	assert.GreaterOrEqual(t, succeeded, callers/2)

	var usernames []string
	require.NoError(t, f.db.Model(&models.Account{}).Where("username IS NOT NULL").Pluck("username", &usernames).Error)
	assert.Len(t, usernames, succeeded)
	seen := map[string]bool{}
	for _, u := range usernames {
		assert.False(t, seen[u], "duplicate username %q", u)
		seen[u] = true
		assert.True(t, strings.HasPrefix(u, "same-name"), u)
	}
}

func TestAccountService_ShortNameFallsBackToEmail(t *testing.T) {
	f := newFixture(t)
	acc, err := f.accountSvc.GetOrCreateAccount(context.Background(), auth.Identity{
		ID: "short", Email: "longer.local@example.com", Name: "Al",
	})
	require.NoError(t, err)
	assert.Equal(t, "longerlocal", acc.UsernameOrEmpty())

	acc, err = f.accountSvc.GetOrCreateAccount(context.Background(), auth.Identity{
		ID: "tiny", Email: "x@example.com", Name: "Q",
	})
	require.NoError(t, err)
	assert.Equal(t, "user", acc.UsernameOrEmpty())
}

func TestAccountService_BackfillRetriesOnceAfterConflict(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	base := repository.NewAccountRepository(db)
	calls := 0
	stub := &accountRepoStub{AccountRepository: base}
	stub.assignUsernameFn = func(ctx context.Context, id, username string) (bool, error) {
		calls++
		if calls == 1 {
			return false, models.NewConflictError("Username taken", errors.New("duplicate key"))
		}
		return base.AssignUsername(ctx, id, username)
	}
	svc := NewAccountService(stub, repository.NewProjectRepository(db)).WithResolver(fixedLetters("q"))

	acc, err := svc.GetOrCreateAccount(context.Background(), auth.Identity{ID: "r1", Email: "r@example.com", Name: "Retry Me"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "retry-me", acc.UsernameOrEmpty())
}

func TestAccountService_BackfillSecondConflictIsExhausted(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	stub := &accountRepoStub{AccountRepository: repository.NewAccountRepository(db)}
	stub.assignUsernameFn = func(context.Context, string, string) (bool, error) {
		return false, models.NewConflictError("Username taken", errors.New("duplicate key"))
	}
	svc := NewAccountService(stub, repository.NewProjectRepository(db))

	_, err := svc.GetOrCreateAccount(context.Background(), auth.Identity{ID: "r2", Email: "r2@example.com", Name: "Unlucky"})
	assertCode(t, err, models.CodeAllocationExhausted)
}

func TestAccountService_BackfillLookupFailure(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	stub := &accountRepoStub{AccountRepository: repository.NewAccountRepository(db)}
	stub.usernameExistsFn = func(context.Context, string, string) (bool, error) {
		return false, errors.New("connection refused")
	}
	svc := NewAccountService(stub, repository.NewProjectRepository(db))

	_, err := svc.GetOrCreateAccount(context.Background(), auth.Identity{ID: "r3", Email: "r3@example.com", Name: "Offline"})
	assertCode(t, err, models.CodeLookupFailed)
}

func TestAccountService_GetOrCreateRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.accountSvc.GetOrCreateAccount(context.Background(), auth.Identity{})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAccountService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "me", "Me Myself")
	f.account(t, "other", "Taken Name")

	t.Run("username held by another account", func(t *testing.T) {
		_, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Username: testutil.Ptr("taken-name")})
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("username not normalized", func(t *testing.T) {
		for _, u := range []string{"ab", "Has Caps", "trailing-", "under_score", strings.Repeat("x", 31)} {
			_, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Username: testutil.Ptr(u)})
			assertCode(t, err, models.CodeValidation)
		}
	})

	t.Run("invalid link", func(t *testing.T) {
		_, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{GithubURL: testutil.Ptr("not a url")})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("too many custom links", func(t *testing.T) {
		links := make([]models.CustomLink, models.MaxCustomLinks+1)
		for i := range links {
			links[i] = models.CustomLink{Label: "l", URL: "https://example.com"}
		}
		_, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{CustomLinks: &links})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("partial update", func(t *testing.T) {
		updated, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{
			Username:  testutil.Ptr("new-handle"),
			Bio:       testutil.Ptr("<p>Builds <i>things</i></p>"),
			GithubURL: testutil.Ptr("https://github.com/me"),
			CustomLinks: &[]models.CustomLink{
				{Label: "Blog", URL: "https://blog.example.com"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "new-handle", updated.UsernameOrEmpty())
		assert.Equal(t, "Builds things", updated.Bio)
		assert.Equal(t, "Me Myself", updated.Name)

		stored, err := f.accounts.GetByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-handle", stored.UsernameOrEmpty())
		require.NotNil(t, stored.GithubURL)
		assert.Equal(t, "https://github.com/me", *stored.GithubURL)
		assert.Len(t, stored.CustomLinks, 1)
	})

	t.Run("empty social link clears it", func(t *testing.T) {
		_, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{GithubURL: testutil.Ptr("")})
		require.NoError(t, err)
		stored, err := f.accounts.GetByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.GithubURL)
		assert.Equal(t, "new-handle", stored.UsernameOrEmpty())
	})

	t.Run("keeping own username is allowed", func(t *testing.T) {
		_, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Username: testutil.Ptr("new-handle")})
		require.NoError(t, err)
	})
}

func TestAccountService_PublicProfileShowsOnlyPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "pub", "Public Paula")
	f.project(t, acc.ID, "Shown", true)
	f.project(t, acc.ID, "Hidden", false)

	profile, err := f.accountSvc.GetPublicProfile(ctx, "public-paula")
	require.NoError(t, err)
	require.Len(t, profile.Projects, 1)
	assert.Equal(t, "shown", profile.Projects[0].Slug)

	raw, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pub@example.com")
	assert.NotContains(t, string(raw), `"email"`)

	_, err = f.accountSvc.GetPublicProfile(ctx, "nobody")
	assertCode(t, err, models.CodeNotFound)
}

func TestAccountService_PublicProfileCacheInvalidation(t *testing.T) {
	mr := useRedis(t)
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "cached", "Cached Carl")

	_, err := f.accountSvc.GetPublicProfile(ctx, "cached-carl")
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ProfileKey("cached-carl")))

	// Publishing a project drops the owner's cached profile.
	f.project(t, acc.ID, "Fresh", true)
	assert.False(t, mr.Exists(cache.ProfileKey("cached-carl")))

	profile, err := f.accountSvc.GetPublicProfile(ctx, "cached-carl")
	require.NoError(t, err)
	assert.Len(t, profile.Projects, 1)

	_, err = f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{Bio: testutil.Ptr("hello")})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ProfileKey("cached-carl")))
}

func TestAccountService_BackfillUsernames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := range 3 {
		require.NoError(t, f.db.Create(&models.Account{
			ID:          fmt.Sprintf("legacy-%d", i),
			Email:       fmt.Sprintf("legacy%d@example.com", i),
			Name:        "Legacy User",
			CustomLinks: []models.CustomLink{},
		}).Error)
	}

	filled, err := f.accountSvc.BackfillUsernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, filled)

	remaining, err := f.accounts.ListWithoutUsername(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestAccountService_UpdateProfileKeepsPlainText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "lab", "Lab")

	updated, err := f.accountSvc.UpdateProfile(ctx, acc.ID, UpdateProfileInput{
		Name: testutil.Ptr("R&D Lab"),
		Bio:  testutil.Ptr(`We "ship" <b>fast</b> & don't break things`),
	})
	require.NoError(t, err)
	assert.Equal(t, "R&D Lab", updated.Name)
	assert.Equal(t, `We "ship" fast & don't break things`, updated.Bio)
}
