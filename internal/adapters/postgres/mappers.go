package postgres

import (
	"errors"

	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
	"gorm.io/gorm"
)

func toDomainUser(row userModel, profiles []string) domain.User {
	if profiles == nil {
		profiles = []string{}
	}
	return domain.User{
		UserID:         row.UserID,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash,
		EmailConfirmed: row.EmailConfirmed,
		Profiles:       profiles,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func toDomainToken(row credentialTokenModel) domain.CredentialToken {
	return domain.CredentialToken{
		TokenID:       row.TokenID,
		Kind:          domain.TokenKind(row.Kind),
		UserID:        row.UserID,
		Email:         row.Email,
		TokenHash:     row.TokenHash,
		CreatedAt:     row.CreatedAt,
		ExpiresAt:     row.ExpiresAt,
		ConsumedAt:    row.ConsumedAt,
		InvalidatedAt: row.InvalidatedAt,
	}
}

func toOutboxModel(event ports.OutboxEvent) credentialOutboxModel {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	return credentialOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(payload),
		CreatedAt:    event.OccurredAt,
	}
}

func toOutboxRecord(row credentialOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
