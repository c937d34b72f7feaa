package repository

import (
	"context"

	"devfolio/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	// InsertIfAbsent creates the account unless one with the same ID exists.
	// It reports whether a row was inserted.
	InsertIfAbsent(ctx context.Context, account *models.Account) (bool, error)
	// UsernameExists checks the primary database; excludeID is ignored when empty.
	UsernameExists(ctx context.Context, username, excludeID string) (bool, error)
	// AssignUsername sets the username only while it is still NULL.
	AssignUsername(ctx context.Context, id, username string) (bool, error)
	UpdateProfile(ctx context.Context, account *models.Account) error
	ListWithoutUsername(ctx context.Context, limit int) ([]models.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a new AccountRepository implementation.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := primary(r.db).WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, notFoundOr(err, "Account", id)
	}
	return &account, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, notFoundOr(err, "User", username)
	}
	return &account, nil
}

func (r *accountRepository) InsertIfAbsent(ctx context.Context, account *models.Account) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(account)
	if res.Error != nil {
		return false, storeError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *accountRepository) UsernameExists(ctx context.Context, username, excludeID string) (bool, error) {
	q := primary(r.db).WithContext(ctx).Model(&models.Account{}).Where("username = ?", username)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *accountRepository) AssignUsername(ctx context.Context, id, username string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND username IS NULL", id).
		Update("username", username)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, models.NewConflictError("Username taken", res.Error)
		}
		return false, storeError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

var profileColumns = []string{
	"name", "username", "bio", "avatar_url", "badge_url",
	"github_url", "linkedin_url", "twitter_url", "website_url", "custom_links", "updated_at",
}

func (r *accountRepository) UpdateProfile(ctx context.Context, account *models.Account) error {
	res := r.db.WithContext(ctx).Model(account).Select(profileColumns).Updates(account)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return models.NewConflictError("Username taken", res.Error)
		}
		return storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Account", account.ID)
	}
	return nil
}

func (r *accountRepository) ListWithoutUsername(ctx context.Context, limit int) ([]models.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	var accounts []models.Account
	err := primary(r.db).WithContext(ctx).
		Where("username IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, storeError(err)
	}
	return accounts, nil
}
