package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateToken supersedes every live token of the same kind for the user and
// inserts the new one. The user row lock serializes concurrent issuers.
func (r *credentialStore) CreateToken(ctx context.Context, params ports.CreateTokenParams) (domain.CredentialToken, error) {
	rec := credentialTokenModel{
		TokenID:   uuid.New(),
		Kind:      string(params.Kind),
		UserID:    params.UserID,
		Email:     params.Email,
		TokenHash: params.TokenHash,
		CreatedAt: params.CreatedAt,
		ExpiresAt: params.ExpiresAt,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner userModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", params.UserID).
			Take(&owner).Error; err != nil {
			if isNotFound(err) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := invalidateLive(tx, params.Kind, params.UserID, params.CreatedAt).Error; err != nil {
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return domain.CredentialToken{}, err
	}
	return toDomainToken(rec), nil
}

func (r *credentialStore) FindToken(ctx context.Context, kind domain.TokenKind, tokenHash string) (domain.CredentialToken, error) {
	var rec credentialTokenModel
	if err := r.db.WithContext(ctx).
		Where("kind = ?", string(kind)).
		Where("token_hash = ?", tokenHash).
		Take(&rec).Error; err != nil {
		if isNotFound(err) {
			return domain.CredentialToken{}, domain.ErrTokenNotFound
		}
		return domain.CredentialToken{}, err
	}
	return toDomainToken(rec), nil
}

// ConsumeToken flips the token to consumed only while it is still live and
// applies the owner's credential change in the same transaction. Losing a
// race yields the state error of the winning transition.
func (r *credentialStore) ConsumeToken(ctx context.Context, params ports.ConsumeTokenParams) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&credentialTokenModel{}).
			Where("token_id = ?", params.TokenID).
			Where("consumed_at IS NULL").
			Where("invalidated_at IS NULL").
			Where("expires_at > ?", params.ConsumedAt).
			Update("consumed_at", params.ConsumedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current credentialTokenModel
			if err := tx.Where("token_id = ?", params.TokenID).Take(&current).Error; err != nil {
				if isNotFound(err) {
					return domain.ErrTokenNotFound
				}
				return err
			}
			if err := toDomainToken(current).Check(params.ConsumedAt); err != nil {
				return err
			}
			return domain.ErrTokenConsumed
		}

		var token credentialTokenModel
		if err := tx.Where("token_id = ?", params.TokenID).Take(&token).Error; err != nil {
			return err
		}
		updates := map[string]any{"updated_at": params.ConsumedAt}
		if params.PasswordHash != "" {
			updates["password_hash"] = params.PasswordHash
		}
		if params.ConfirmEmail {
			updates["email_confirmed"] = true
		}
		if err := tx.Model(&userModel{}).
			Where("user_id = ?", token.UserID).
			Updates(updates).Error; err != nil {
			return err
		}
		return enqueueOutbox(tx, params.Event)
	})
}

// InvalidatePriorTokens stamps invalidated_at on the user's live tokens of
// kind. ChangePassword uses it to retire reset links.
func (r *credentialStore) InvalidatePriorTokens(ctx context.Context, kind domain.TokenKind, userID uuid.UUID, at time.Time) (int64, error) {
	res := invalidateLive(r.db.WithContext(ctx), kind, userID, at)
	return res.RowsAffected, res.Error
}

// PurgeExpiredTokens deletes tokens whose expiry is before the cutoff,
// whatever their consumed state.
func (r *credentialStore) PurgeExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&credentialTokenModel{})
	return res.RowsAffected, res.Error
}

func invalidateLive(tx *gorm.DB, kind domain.TokenKind, userID uuid.UUID, at time.Time) *gorm.DB {
	return tx.Model(&credentialTokenModel{}).
		Where("user_id = ?", userID).
		Where("kind = ?", string(kind)).
		Where("consumed_at IS NULL").
		Where("invalidated_at IS NULL").
		Update("invalidated_at", at)
}
