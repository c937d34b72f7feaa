package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"devfolio/internal/auth"
	"devfolio/internal/cache"
	"devfolio/internal/ident"
	"devfolio/internal/models"
	"devfolio/internal/repository"
	"devfolio/internal/search"
	"devfolio/internal/storage"
	"devfolio/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	accounts   repository.AccountRepository
	projects   repository.ProjectRepository
	likes      repository.LikeRepository
	comments   repository.CommentRepository
	indexer    *recordingIndexer
	accountSvc *AccountService
	projectSvc *ProjectService
	engagement *EngagementService
	commentSvc *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	f := &fixture{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		projects: repository.NewProjectRepository(db),
		likes:    repository.NewLikeRepository(db),
		comments: repository.NewCommentRepository(db),
		indexer:  &recordingIndexer{},
	}
	f.accountSvc = NewAccountService(f.accounts, f.projects)
	f.projectSvc = NewProjectService(f.projects, f.accounts, f.indexer, nil, nil)
	f.engagement = NewEngagementService(f.projects, f.likes)
	f.commentSvc = NewCommentService(f.comments, f.projects)
	return f
}

func (f *fixture) account(t *testing.T, id, name string) *models.Account {
	t.Helper()
	acc, err := f.accountSvc.GetOrCreateAccount(context.Background(), auth.Identity{
		ID:    id,
		Email: id + "@example.com",
		Name:  name,
	})
	require.NoError(t, err)
	return acc
}

func (f *fixture) project(t *testing.T, ownerID, title string, published bool) *models.Project {
	t.Helper()
	p, err := f.projectSvc.Create(context.Background(), ownerID, CreateProjectInput{
		Title:     title,
		TechStack: []string{"Go"},
		Published: published,
	})
	require.NoError(t, err)
	return p
}

func useRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = cache.Close()
		cache.SetClient(nil)
	})
	return mr
}

// fixedLetters returns a letter source cycling through letters.
func fixedLetters(letters string) *ident.UsernameResolver {
	i := 0
	return &ident.UsernameResolver{
		Letter: func() byte {
			b := letters[i%len(letters)]
			i++
			return b
		},
		MaxAttempts: ident.MaxUsernameAttempts,
	}
}

type recordingIndexer struct {
	indexed []uint
	removed []uint
	err     error
}

func (r *recordingIndexer) Index(_ context.Context, p *models.Project) error {
	r.indexed = append(r.indexed, p.ID)
	return r.err
}

func (r *recordingIndexer) Remove(_ context.Context, id uint) error {
	r.removed = append(r.removed, id)
	return r.err
}

var _ search.ProjectIndexer = (*recordingIndexer)(nil)

func identity(id string) auth.Identity {
	return auth.Identity{ID: id, Email: id + "@example.com", Name: id}
}

type recordingStorage struct {
	uploads []string
	deleted []string
}

func (r *recordingStorage) Upload(_ context.Context, body io.Reader, folder, fileName string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	r.uploads = append(r.uploads, folder+"/"+fileName)
	return "https://res.cloudinary.com/demo/image/upload/v1/" + folder + "/" + fileName, nil
}

func (r *recordingStorage) Delete(_ context.Context, url string) error {
	r.deleted = append(r.deleted, url)
	return nil
}

func (r *recordingStorage) Owns(url string) bool {
	return strings.HasPrefix(url, "https://res.cloudinary.com/")
}

var _ storage.ImageStorage = (*recordingStorage)(nil)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}
