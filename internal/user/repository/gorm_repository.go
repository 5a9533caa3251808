package repository

import (
	"context"
	"errors"
	"time"

	"diu-events-backend/internal/user/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var clearedTokenFields = map[string]interface{}{
	"fcm_token":            nil,
	"fcm_token_updated_at": nil,
}

// gormUserRepository implements UserRepository on a relational database
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based UserRepository
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) ListWithToken(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Where("fcm_token IS NOT NULL").Find(&users).Error
	return users, err
}

// SaveToken upserts the user row so a token can be registered before any
// profile row exists.
func (r *gormUserRepository) SaveToken(ctx context.Context, userID, token string, at time.Time) error {
	at = at.UTC()
	user := &domain.User{
		ID:                userID,
		Role:              domain.RoleUser,
		FCMToken:          &token,
		FCMTokenUpdatedAt: &at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fcm_token", "fcm_token_updated_at"}),
	}).Create(user).Error
}

func (r *gormUserRepository) ClearToken(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(clearedTokenFields).Error
}

func (r *gormUserRepository) ClearTokenByValue(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("fcm_token = ?", token).
		Updates(clearedTokenFields).Error
}

func (r *gormUserRepository) ClearStaleTokens(ctx context.Context, userIDs []string, cutoff time.Time) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	var cleared int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id IN ? AND fcm_token IS NOT NULL AND fcm_token_updated_at < ?", userIDs, cutoff.UTC()).
			Updates(clearedTokenFields)
		if res.Error != nil {
			return res.Error
		}
		cleared = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(cleared), nil
}
