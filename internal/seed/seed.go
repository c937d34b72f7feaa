// Package seed creates demo portfolios for local development. Everything goes
// through the services so seeded usernames and slugs follow the normal rules.
package seed

import (
	"context"
	"fmt"
	"strings"

	"devfolio/internal/auth"
	"devfolio/internal/ident"
	"devfolio/internal/middleware"
	"devfolio/internal/models"
	"devfolio/internal/repository"
	"devfolio/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// IDPrefix marks accounts created by the seeder.
const IDPrefix = "seed-"

var techChoices = []string{
	"Go", "TypeScript", "React", "Next.js", "Postgres", "Redis", "Docker",
	"Kubernetes", "Tailwind", "GraphQL", "Rust", "Python", "gRPC", "SQLite",
}

// Options controls how much data Run creates.
type Options struct {
	Accounts           int
	ProjectsPerAccount int
	// Seed makes runs reproducible; zero picks a random seed.
	Seed int64
}

// Summary counts what Run created.
type Summary struct {
	Accounts int
	Projects int
	Likes    int
	Comments int
	Views    int
}

// Seeder writes demo data through the services.
type Seeder struct {
	db         *gorm.DB
	accounts   *service.AccountService
	projects   *service.ProjectService
	engagement *service.EngagementService
	comments   *service.CommentService
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	accountRepo := repository.NewAccountRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	return &Seeder{
		db:         db,
		accounts:   service.NewAccountService(accountRepo, projectRepo),
		projects:   service.NewProjectService(projectRepo, accountRepo, nil, nil, nil),
		engagement: service.NewEngagementService(projectRepo, repository.NewLikeRepository(db)),
		comments:   service.NewCommentService(repository.NewCommentRepository(db), projectRepo),
	}
}

// Run creates opts.Accounts portfolios with projects, likes, comments and views.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.Accounts <= 0 {
		opts.Accounts = 10
	}
	if opts.ProjectsPerAccount <= 0 {
		opts.ProjectsPerAccount = 3
	}
	faker := gofakeit.New(opts.Seed)

	var sum Summary
	owners := make([]*models.Account, 0, opts.Accounts)
	for i := 0; i < opts.Accounts; i++ {
		acc, err := s.account(ctx, faker)
		if err != nil {
			return sum, fmt.Errorf("seed account %d: %w", i, err)
		}
		owners = append(owners, acc)
		sum.Accounts++
	}

	var published []models.Project
	for _, owner := range owners {
		for j := 0; j < opts.ProjectsPerAccount; j++ {
			p, err := s.projects.Create(ctx, owner.ID, projectInput(faker))
			if err != nil {
				return sum, fmt.Errorf("seed project for %s: %w", owner.ID, err)
			}
			sum.Projects++
			if p.Published {
				published = append(published, *p)
			}
		}
	}

	for _, p := range published {
		for _, fan := range owners {
			if fan.ID == p.UserID {
				continue
			}
			if faker.Number(0, 2) == 0 {
				if _, err := s.engagement.ToggleLike(ctx, fan.ID, p.ID); err != nil {
					return sum, fmt.Errorf("seed like: %w", err)
				}
				sum.Likes++
			}
			if faker.Number(0, 4) == 0 {
				if _, err := s.comments.AddComment(ctx, fan.ID, p.ID, faker.Sentence(faker.Number(4, 14))); err != nil {
					return sum, fmt.Errorf("seed comment: %w", err)
				}
				sum.Comments++
			}
		}
		views := faker.Number(0, 25)
		for v := 0; v < views; v++ {
			if err := s.engagement.IncrementViews(ctx, p.ID); err != nil {
				return sum, fmt.Errorf("seed views: %w", err)
			}
		}
		sum.Views += views
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		"accounts", sum.Accounts,
		"projects", sum.Projects,
		"likes", sum.Likes,
		"comments", sum.Comments,
	)
	return sum, nil
}

func (s *Seeder) account(ctx context.Context, faker *gofakeit.Faker) (*models.Account, error) {
	first, last := faker.FirstName(), faker.LastName()
	acc, err := s.accounts.GetOrCreateAccount(ctx, auth.Identity{
		ID:      IDPrefix + faker.UUID(),
		Email:   strings.ToLower(first+"."+last) + "@example.dev",
		Name:    first + " " + last,
		Picture: "https://i.pravatar.cc/150?u=" + faker.UUID(),
	})
	if err != nil {
		return nil, err
	}

	handle := acc.UsernameOrEmpty()
	return s.accounts.UpdateProfile(ctx, acc.ID, service.UpdateProfileInput{
		Bio:        ptr(faker.Sentence(faker.Number(8, 20))),
		GithubURL:  ptr("https://github.com/" + handle),
		WebsiteURL: ptr("https://" + handle + ".dev"),
		CustomLinks: &[]models.CustomLink{
			{Label: "Blog", URL: "https://blog." + handle + ".dev"},
		},
	})
}

func projectInput(faker *gofakeit.Faker) service.CreateProjectInput {
	stack := make([]string, len(techChoices))
	copy(stack, techChoices)
	faker.ShuffleStrings(stack)

	title := faker.AppName()
	slugHint := ident.Normalize(title)
	if slugHint == "" {
		slugHint = "app"
	}
	return service.CreateProjectInput{
		Title:       title,
		Description: faker.Paragraph(1, 3, 12, " "),
		ImageURL:    "https://picsum.photos/seed/" + faker.UUID() + "/1200/630",
		TechStack:   stack[:faker.Number(2, 5)],
		LiveURL:     "https://" + slugHint + ".example.dev",
		RepoURL:     "https://github.com/example/" + slugHint,
		Published:   faker.Number(0, 3) > 0,
	}
}

// ClearAll removes every seeded account together with its projects, likes and comments.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seeded := tx.Model(&models.Account{}).Select("id").Where("id LIKE ?", IDPrefix+"%")
		projects := tx.Model(&models.Project{}).Select("id").Where("user_id IN (?)", seeded)

		for _, model := range []any{&models.Comment{}, &models.Like{}} {
			if err := tx.Where("user_id IN (?) OR project_id IN (?)", seeded, projects).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id IN (?)", seeded).Delete(&models.Project{}).Error; err != nil {
			return err
		}
		return tx.Where("id LIKE ?", IDPrefix+"%").Delete(&models.Account{}).Error
	})
}

func ptr(s string) *string { return &s }
