// internal/infrastructure/database/postgres/user_repository.go
package postgres

import (
	"context"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// UserRepository implements user.Repository and notification.AdminDirectory
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*user.User, error) {
	var u user.User
	if err := conn(ctx, r.db).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	email = user.NormalizeEmail(email)
	if err := conn(ctx, r.db).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return translate(conn(ctx, r.db).Create(u).Error)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.update(ctx, id, map[string]interface{}{"password": hash})
}

func (r *UserRepository) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{"last_login_at": at})
}

func (r *UserRepository) ListAdminIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := conn(ctx, r.db).Model(&user.User{}).
		Where("is_admin = ? AND is_active = ?", true, true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (r *UserRepository) update(ctx context.Context, id uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	result := conn(ctx, r.db).Model(&user.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
