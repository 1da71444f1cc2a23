package postgres

import (
	"github.com/viralforge/intranet/credential-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Credentials ports.CredentialStore
	Profiles    ports.ProfileStore
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Credentials: &credentialStore{db: db},
		Profiles:    &profileStore{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}
