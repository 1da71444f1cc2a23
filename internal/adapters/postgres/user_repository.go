package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
	"gorm.io/gorm"
)

type credentialStore struct {
	db *gorm.DB
}

func (r *credentialStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&rec).Error; err != nil {
		if isNotFound(err) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	profiles, err := userProfileNames(r.db.WithContext(ctx), rec.UserID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(rec, profiles), nil
}

// SaveUser inserts a new user, assigns its profiles and enqueues the optional
// event in one transaction. A duplicate email reports ErrConflict and an
// unknown profile reports ErrNotFound.
func (r *credentialStore) SaveUser(ctx context.Context, user domain.User, event *ports.OutboxEvent) (domain.User, error) {
	if user.UserID == uuid.Nil {
		user.UserID = uuid.New()
	}
	rec := userModel{
		UserID:         user.UserID,
		Email:          strings.ToLower(strings.TrimSpace(user.Email)),
		PasswordHash:   user.PasswordHash,
		EmailConfirmed: user.EmailConfirmed,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.CreatedAt,
	}
	var profiles []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: email already registered", domain.ErrConflict)
			}
			return err
		}
		seen := make(map[string]struct{}, len(user.Profiles))
		for _, name := range user.Profiles {
			profile, err := findProfile(tx, name)
			if err != nil {
				return err
			}
			if _, ok := seen[profile.Name]; ok {
				continue
			}
			seen[profile.Name] = struct{}{}
			if err := tx.Create(&userProfileModel{
				UserID:     rec.UserID,
				ProfileID:  profile.ProfileID,
				AssignedAt: user.CreatedAt,
			}).Error; err != nil {
				return err
			}
		}
		if err := enqueueOutbox(tx, event); err != nil {
			return err
		}
		var err error
		profiles, err = userProfileNames(tx, rec.UserID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(rec, profiles), nil
}

func (r *credentialStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time, event *ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"password_hash": passwordHash,
				"updated_at":    updatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return enqueueOutbox(tx, event)
	})
}

func userProfileNames(db *gorm.DB, userID uuid.UUID) ([]string, error) {
	var names []string
	if err := db.Table("user_profiles").
		Joins("JOIN profiles ON profiles.profile_id = user_profiles.profile_id").
		Where("user_profiles.user_id = ?", userID).
		Order("profiles.name ASC").
		Pluck("profiles.name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}
