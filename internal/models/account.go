// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxCustomLinks bounds the number of label/URL pairs on a profile.
const MaxCustomLinks = 6

// CustomLink is a free-form profile link shown next to the fixed social fields.
type CustomLink struct {
	Label string `json:"label" validate:"required,max=50"`
	URL   string `json:"url" validate:"required,url,max=500"`
}

// Account is a portfolio owner. The ID is issued by the identity provider.
type Account struct {
	ID          string                          `gorm:"primaryKey;size:128" json:"id"`
	Email       string                          `gorm:"index" json:"email"`
	Name        string                          `json:"name"`
	Username    *string                         `gorm:"uniqueIndex;size:64" json:"username"`
	Bio         string                          `gorm:"type:text" json:"bio"`
	AvatarURL   string                          `json:"avatarUrl"`
	BadgeURL    string                          `json:"badgeUrl"`
	GithubURL   *string                         `json:"githubUrl"`
	LinkedinURL *string                         `json:"linkedinUrl"`
	TwitterURL  *string                         `json:"twitterUrl"`
	WebsiteURL  *string                         `json:"websiteUrl"`
	CustomLinks datatypes.JSONSlice[CustomLink] `json:"customLinks"`
	CreatedAt   time.Time                       `json:"createdAt"`
	UpdatedAt   time.Time                       `json:"updatedAt"`
}

// UsernameOrEmpty returns the username or "" when it has not been assigned yet.
func (a *Account) UsernameOrEmpty() string {
	if a == nil || a.Username == nil {
		return ""
	}
	return *a.Username
}

// AccountSummary is the author block embedded in comments and public projects.
type AccountSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Username  *string `json:"username"`
	AvatarURL string  `json:"avatarUrl"`
}

// Summary projects an account onto its public author block.
func (a *Account) Summary() AccountSummary {
	if a == nil {
		return AccountSummary{}
	}
	return AccountSummary{
		ID:        a.ID,
		Name:      a.Name,
		Username:  a.Username,
		AvatarURL: a.AvatarURL,
	}
}

// PublicAccount is the profile shown to anonymous visitors. It leaves out the
// email and other fields only the owner sees.
type PublicAccount struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Username    *string      `json:"username"`
	Bio         string       `json:"bio"`
	AvatarURL   string       `json:"avatarUrl"`
	BadgeURL    string       `json:"badgeUrl"`
	GithubURL   *string      `json:"githubUrl"`
	LinkedinURL *string      `json:"linkedinUrl"`
	TwitterURL  *string      `json:"twitterUrl"`
	WebsiteURL  *string      `json:"websiteUrl"`
	CustomLinks []CustomLink `json:"customLinks"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Public projects an account onto its public profile.
func (a *Account) Public() PublicAccount {
	links := []CustomLink(a.CustomLinks)
	if links == nil {
		links = []CustomLink{}
	}
	return PublicAccount{
		ID:          a.ID,
		Name:        a.Name,
		Username:    a.Username,
		Bio:         a.Bio,
		AvatarURL:   a.AvatarURL,
		BadgeURL:    a.BadgeURL,
		GithubURL:   a.GithubURL,
		LinkedinURL: a.LinkedinURL,
		TwitterURL:  a.TwitterURL,
		WebsiteURL:  a.WebsiteURL,
		CustomLinks: links,
		CreatedAt:   a.CreatedAt,
	}
}
