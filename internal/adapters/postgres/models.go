package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Email          string    `gorm:"column:email;uniqueIndex"`
	PasswordHash   string    `gorm:"column:password_hash"`
	EmailConfirmed bool      `gorm:"column:email_confirmed"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type credentialTokenModel struct {
	TokenID       uuid.UUID  `gorm:"column:token_id;type:uuid;primaryKey"`
	Kind          string     `gorm:"column:kind"`
	UserID        uuid.UUID  `gorm:"column:user_id;type:uuid;index"`
	Email         string     `gorm:"column:email"`
	TokenHash     string     `gorm:"column:token_hash;uniqueIndex"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ExpiresAt     time.Time  `gorm:"column:expires_at"`
	ConsumedAt    *time.Time `gorm:"column:consumed_at"`
	InvalidatedAt *time.Time `gorm:"column:invalidated_at"`
}

func (credentialTokenModel) TableName() string { return "credential_tokens" }

type profileModel struct {
	ProfileID   uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (profileModel) TableName() string { return "profiles" }

type permissionModel struct {
	PermissionID uuid.UUID `gorm:"column:permission_id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;uniqueIndex"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (permissionModel) TableName() string { return "permissions" }

type profilePermissionModel struct {
	ProfileID    uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"column:permission_id;type:uuid;primaryKey"`
}

func (profilePermissionModel) TableName() string { return "profile_permissions" }

type userProfileModel struct {
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	ProfileID  uuid.UUID `gorm:"column:profile_id;type:uuid;primaryKey"`
	AssignedAt time.Time `gorm:"column:assigned_at"`
}

func (userProfileModel) TableName() string { return "user_profiles" }

type credentialOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (credentialOutboxModel) TableName() string { return "credential_outbox" }
