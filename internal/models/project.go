package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Project is a portfolio entry. Slug is unique within the owner's projects.
type Project struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	UserID      string                      `gorm:"not null;size:128;index;uniqueIndex:idx_owner_slug" json:"userId"`
	User        *Account                    `gorm:"foreignKey:UserID" json:"-"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	ImageURL    string                      `json:"imageUrl"`
	TechStack   datatypes.JSONSlice[string] `json:"techStack"`
	LiveURL     string                      `json:"liveUrl"`
	RepoURL     string                      `json:"repoUrl"`
	Published   bool                        `gorm:"not null;default:false;index" json:"published"`
	Views       int64                       `gorm:"not null;default:0" json:"views"`
	Slug        string                      `gorm:"not null;size:255;uniqueIndex:idx_owner_slug" json:"slug"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likeCount"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64     `gorm:"->;-:migration" json:"commentCount"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MarshalJSON renders the owner, when loaded, as its public summary.
func (p Project) MarshalJSON() ([]byte, error) {
	type alias Project
	var user *AccountSummary
	if p.User != nil {
		s := p.User.Summary()
		user = &s
	}
	return json.Marshal(struct {
		alias
		User *AccountSummary `json:"user,omitempty"`
	}{alias(p), user})
}

// UnmarshalJSON restores the owner summary written by MarshalJSON.
func (p *Project) UnmarshalJSON(b []byte) error {
	type alias Project
	aux := struct {
		*alias
		User *AccountSummary `json:"user"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.User != nil {
		p.User = &Account{
			ID:        aux.User.ID,
			Name:      aux.User.Name,
			Username:  aux.User.Username,
			AvatarURL: aux.User.AvatarURL,
		}
	}
	return nil
}
