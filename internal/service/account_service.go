package service

import (
	"context"
	"strings"

	"devfolio/internal/auth"
	"devfolio/internal/cache"
	"devfolio/internal/ident"
	"devfolio/internal/models"
	"devfolio/internal/observability"
	"devfolio/internal/repository"
	"devfolio/internal/validation"
)

// AccountService manages accounts, their usernames and public profiles.
type AccountService struct {
	accounts repository.AccountRepository
	projects repository.ProjectRepository
	resolver *ident.UsernameResolver
}

// UpdateProfileInput is a partial profile update; nil fields are left unchanged.
type UpdateProfileInput struct {
	Name        *string              `json:"name" validate:"omitempty,max=100"`
	Username    *string              `json:"username"`
	Bio         *string              `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL   *string              `json:"avatarUrl"`
	BadgeURL    *string              `json:"badgeUrl"`
	GithubURL   *string              `json:"githubUrl"`
	LinkedinURL *string              `json:"linkedinUrl"`
	TwitterURL  *string              `json:"twitterUrl"`
	WebsiteURL  *string              `json:"websiteUrl"`
	CustomLinks *[]models.CustomLink `json:"customLinks" validate:"omitempty,max=6,dive"`
}

// PublicProfile is an account's public view together with its published projects.
type PublicProfile struct {
	User     models.PublicAccount `json:"user"`
	Projects []models.Project `json:"projects"`
}

func NewAccountService(accounts repository.AccountRepository, projects repository.ProjectRepository) *AccountService {
	return &AccountService{
		accounts: accounts,
		projects: projects,
		resolver: ident.NewUsernameResolver(),
	}
}

// WithResolver replaces the username resolver, used by tests to fix the random source.
func (s *AccountService) WithResolver(r *ident.UsernameResolver) *AccountService {
	s.resolver = r
	return s
}

// GetOrCreateAccount returns the account for id, creating it on first access
// and assigning a username when it has none. Concurrent calls for one
// identity converge on a single row.
func (s *AccountService) GetOrCreateAccount(ctx context.Context, id auth.Identity) (*models.Account, error) {
	if id.ID == "" {
		return nil, models.NewUnauthorizedError("Missing account identity")
	}

	name := id.Name
	if name == "" {
		name = emailLocalPart(id.Email)
	}
	if _, err := s.accounts.InsertIfAbsent(ctx, &models.Account{
		ID:          id.ID,
		Email:       id.Email,
		Name:        name,
		AvatarURL:   id.Picture,
		CustomLinks: []models.CustomLink{},
	}); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	if account.Username != nil {
		return account, nil
	}
	return s.backfillUsername(ctx, account)
}

// backfillUsername allocates and conditionally writes a username. A unique
// violation at write time gets exactly one more allocation pass.
func (s *AccountService) backfillUsername(ctx context.Context, account *models.Account) (*models.Account, error) {
	base := ident.Normalize(account.Name)
	if len(base) < ident.MinUsernameLength {
		if fromEmail := ident.Normalize(emailLocalPart(account.Email)); fromEmail != "" {
			base = fromEmail
		}
	}
	exists := func(ctx context.Context, candidate string) (bool, error) {
		return s.accounts.UsernameExists(ctx, candidate, "")
	}

	for attempt := 0; attempt < 2; attempt++ {
		username, err := s.resolver.Resolve(ctx, base, exists)
		if err != nil {
			return nil, err
		}

		assigned, err := s.accounts.AssignUsername(ctx, account.ID, username)
		if err != nil {
			if models.HasCode(err, models.CodeConflict) {
				observability.IdentifierAllocationRetries.WithLabelValues("username").Inc()
				continue
			}
			return nil, err
		}
		if !assigned {
			// Another request filled it in first.
			return s.accounts.GetByID(ctx, account.ID)
		}
		account.Username = &username
		return account, nil
	}

	return nil, models.NewAllocationExhaustedError("username", ident.ErrAllocationExhausted)
}

// UpdateProfile applies in to the account and returns the stored result.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (*models.Account, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	// An empty link clears the field, so only non-empty values are checked.
	urlFields := []struct {
		field string
		value *string
	}{
		{"avatarUrl", in.AvatarURL},
		{"badgeUrl", in.BadgeURL},
		{"githubUrl", in.GithubURL},
		{"linkedinUrl", in.LinkedinURL},
		{"twitterUrl", in.TwitterURL},
		{"websiteUrl", in.WebsiteURL},
	}
	for _, l := range urlFields {
		if err := optionalURL(l.field, l.value); err != nil {
			return nil, err
		}
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	previousUsername := account.UsernameOrEmpty()

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, err
		}
		if username != previousUsername {
			taken, err := s.accounts.UsernameExists(ctx, username, accountID)
			if err != nil {
				return nil, models.NewLookupFailedError(err)
			}
			if taken {
				return nil, models.NewConflictError("Username taken", nil)
			}
		}
		account.Username = &username
	}
	if in.Name != nil {
		account.Name = validation.StripHTML(strings.TrimSpace(*in.Name))
	}
	if in.Bio != nil {
		account.Bio = validation.StripHTML(strings.TrimSpace(*in.Bio))
	}
	if in.AvatarURL != nil {
		account.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.BadgeURL != nil {
		account.BadgeURL = strings.TrimSpace(*in.BadgeURL)
	}
	if in.GithubURL != nil {
		account.GithubURL = nullable(*in.GithubURL)
	}
	if in.LinkedinURL != nil {
		account.LinkedinURL = nullable(*in.LinkedinURL)
	}
	if in.TwitterURL != nil {
		account.TwitterURL = nullable(*in.TwitterURL)
	}
	if in.WebsiteURL != nil {
		account.WebsiteURL = nullable(*in.WebsiteURL)
	}
	if in.CustomLinks != nil {
		links := make([]models.CustomLink, 0, len(*in.CustomLinks))
		for _, l := range *in.CustomLinks {
			links = append(links, models.CustomLink{
				Label: validation.StripHTML(strings.TrimSpace(l.Label)),
				URL:   strings.TrimSpace(l.URL),
			})
		}
		account.CustomLinks = links
	}
	if account.CustomLinks == nil {
		account.CustomLinks = []models.CustomLink{}
	}

	if err := s.accounts.UpdateProfile(ctx, account); err != nil {
		return nil, err
	}

	cache.InvalidateProfile(ctx, previousUsername)
	cache.InvalidateProfile(ctx, account.UsernameOrEmpty())
	return account, nil
}

// GetPublicProfile returns the account with its published projects.
func (s *AccountService) GetPublicProfile(ctx context.Context, username string) (*PublicProfile, error) {
	var profile PublicProfile
	err := cache.Aside(ctx, cache.ProfileKey(username), &profile, cache.ProfileTTL, func() error {
		account, err := s.accounts.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		projects, err := s.projects.ListByOwner(ctx, account.ID, true)
		if err != nil {
			return err
		}
		if projects == nil {
			projects = []models.Project{}
		}
		profile = PublicProfile{User: account.Public(), Projects: projects}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// BackfillUsernames assigns a username to every account that lacks one and
// reports how many were filled.
func (s *AccountService) BackfillUsernames(ctx context.Context) (int, error) {
	filled := 0
	for {
		batch, err := s.accounts.ListWithoutUsername(ctx, 100)
		if err != nil {
			return filled, err
		}
		if len(batch) == 0 {
			return filled, nil
		}
		for i := range batch {
			if _, err := s.backfillUsername(ctx, &batch[i]); err != nil {
				return filled, err
			}
			filled++
		}
	}
}

func optionalURL(field string, v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	if len(*v) > 1000 {
		return models.NewValidationError(field + " must be at most 1000 characters")
	}
	if _, err := validation.HTTPURL(*v); err != nil {
		return models.NewValidationError(field + " must be a valid URL")
	}
	return nil
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
