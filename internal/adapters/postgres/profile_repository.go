package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/intranet/credential-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileStore struct {
	db *gorm.DB
}

type profilePermissionRow struct {
	Profile    string `gorm:"column:profile"`
	Permission string `gorm:"column:permission"`
}

func (r *profileStore) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	db := r.db.WithContext(ctx)
	var rows []profileModel
	if err := db.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	var links []profilePermissionRow
	if err := db.Table("profile_permissions").
		Select("profiles.name AS profile, permissions.name AS permission").
		Joins("JOIN profiles ON profiles.profile_id = profile_permissions.profile_id").
		Joins("JOIN permissions ON permissions.permission_id = profile_permissions.permission_id").
		Order("permissions.name ASC").
		Scan(&links).Error; err != nil {
		return nil, err
	}
	byProfile := make(map[string][]string, len(rows))
	for _, link := range links {
		byProfile[link.Profile] = append(byProfile[link.Profile], link.Permission)
	}

	result := make([]domain.Profile, 0, len(rows))
	for _, row := range rows {
		permissions := byProfile[row.Name]
		if permissions == nil {
			permissions = []string{}
		}
		result = append(result, domain.Profile{
			Name:        row.Name,
			Description: row.Description,
			Permissions: permissions,
		})
	}
	return result, nil
}

func (r *profileStore) ListPermissions(ctx context.Context, profile string) ([]string, error) {
	db := r.db.WithContext(ctx)
	rec, err := findProfile(db, profile)
	if err != nil {
		return nil, err
	}
	return profilePermissionNames(db, rec.ProfileID)
}

func (r *profileStore) ListUserProfiles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	names, err := userProfileNames(r.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (r *profileStore) AddAssignment(ctx context.Context, userID uuid.UUID, profile string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findProfile(tx, profile)
		if err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&userProfileModel{
			UserID:     userID,
			ProfileID:  rec.ProfileID,
			AssignedAt: at,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrDuplicateAssignment
		}
		return nil
	})
}

func (r *profileStore) RemoveAssignment(ctx context.Context, userID uuid.UUID, profile string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findProfile(tx, profile)
		if err != nil {
			return err
		}
		res := tx.Where("user_id = ?", userID).
			Where("profile_id = ?", rec.ProfileID).
			Delete(&userProfileModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: profile %s is not assigned", domain.ErrNotFound, rec.Name)
		}
		return nil
	})
}

func (r *profileStore) GrantPermissions(ctx context.Context, profile string, permissions []string, at time.Time) error {
	if len(permissions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findProfile(tx, profile)
		if err != nil {
			return err
		}
		for _, name := range permissions {
			if _, _, err := linkPermission(tx, rec.ProfileID, name, at); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedDefaults upserts the given profiles and their permissions. Existing rows
// are left untouched so repeated runs report a no-op.
func (r *profileStore) SeedDefaults(ctx context.Context, defaults []domain.Profile, at time.Time) (domain.SeedReport, error) {
	var report domain.SeedReport
	linked := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defaults {
			name := normalizeProfileName(def.Name)
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&profileModel{
				ProfileID:   uuid.New(),
				Name:        name,
				Description: def.Description,
				CreatedAt:   at,
			})
			if res.Error != nil {
				return res.Error
			}
			report.CreatedProfiles += int(res.RowsAffected)

			rec, err := findProfile(tx, name)
			if err != nil {
				return err
			}
			for _, permission := range def.Permissions {
				createdPermission, createdLink, err := linkPermission(tx, rec.ProfileID, permission, at)
				if err != nil {
					return err
				}
				if createdPermission {
					report.CreatedPermissions++
				}
				if createdLink {
					linked++
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.SeedReport{}, err
	}
	report.Noop = report.CreatedProfiles == 0 && report.CreatedPermissions == 0 && linked == 0
	return report, nil
}

func findProfile(db *gorm.DB, name string) (profileModel, error) {
	var rec profileModel
	if err := db.Where("name = ?", normalizeProfileName(name)).Take(&rec).Error; err != nil {
		if isNotFound(err) {
			return profileModel{}, fmt.Errorf("%w: profile %s", domain.ErrNotFound, normalizeProfileName(name))
		}
		return profileModel{}, err
	}
	return rec, nil
}

// linkPermission upserts a permission by name and attaches it to the profile.
func linkPermission(tx *gorm.DB, profileID uuid.UUID, name string, at time.Time) (createdPermission, createdLink bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, false, nil
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&permissionModel{
		PermissionID: uuid.New(),
		Name:         name,
		CreatedAt:    at,
	})
	if res.Error != nil {
		return false, false, res.Error
	}
	createdPermission = res.RowsAffected > 0

	var permission permissionModel
	if err := tx.Where("name = ?", name).Take(&permission).Error; err != nil {
		return false, false, err
	}
	res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profilePermissionModel{
		ProfileID:    profileID,
		PermissionID: permission.PermissionID,
	})
	if res.Error != nil {
		return false, false, res.Error
	}
	return createdPermission, res.RowsAffected > 0, nil
}

func profilePermissionNames(db *gorm.DB, profileID uuid.UUID) ([]string, error) {
	names := []string{}
	if err := db.Table("profile_permissions").
		Joins("JOIN permissions ON permissions.permission_id = profile_permissions.permission_id").
		Where("profile_permissions.profile_id = ?", profileID).
		Order("permissions.name ASC").
		Pluck("permissions.name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func normalizeProfileName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
