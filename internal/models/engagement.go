package models

import (
	"encoding/json"
	"time"
)

// Like marks that an account liked a project.
// The combination of UserID and ProjectID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;size:128;uniqueIndex:idx_user_project" json:"userId"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_user_project;index" json:"projectId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a note left on a project. Content is immutable once written.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    string    `gorm:"not null;size:128;index" json:"userId"`
	User      *Account  `gorm:"foreignKey:UserID" json:"-"`
	ProjectID uint      `gorm:"not null;index" json:"projectId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// MarshalJSON renders the author as its public summary.
func (c Comment) MarshalJSON() ([]byte, error) {
	type alias Comment
	var user *AccountSummary
	if c.User != nil {
		s := c.User.Summary()
		user = &s
	}
	return json.Marshal(struct {
		alias
		User *AccountSummary `json:"user"`
	}{alias(c), user})
}

// LikeResult is returned by a like toggle.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}
