// internal/infrastructure/database/postgres/notification_repository.go
package postgres

import (
	"context"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

const notificationBatchSize = 100

// NotificationRepository implements notification.Repository
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

var _ notification.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return translate(conn(ctx, r.db).Create(n).Error)
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return translate(conn(ctx, r.db).CreateInBatches(ns, notificationBatchSize).Error)
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]notification.Notification, int64, error) {
	at := filter.Now
	if at.IsZero() {
		at = time.Now().UTC()
	}

	query := live(conn(ctx, r.db).Model(&notification.Notification{}), at).Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var rows []notification.Notification
	err := query.Order("created_at DESC, id DESC").
		Offset(pagination.Offset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return rows, total, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint, at time.Time) (int64, error) {
	var count int64
	err := live(conn(ctx, r.db).Model(&notification.Notification{}), at).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, translate(err)
}

// MarkAsRead only stamps unread rows so read_at keeps the first read time
func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID, id uint, at time.Time) error {
	db := conn(ctx, r.db)
	result := db.Model(&notification.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var n notification.Notification
		if err := db.Select("id").Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
			return notFound(err, "notification", id)
		}
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	result := conn(ctx, r.db).Model(&notification.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, translate(result.Error)
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uint) error {
	result := conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).Delete(&notification.Notification{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("notification", id)
	}
	return nil
}

func (r *NotificationRepository) DeleteExpired(ctx context.Context, at time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("expires_at IS NOT NULL AND expires_at < ?", at).
		Delete(&notification.Notification{})
	return result.RowsAffected, translate(result.Error)
}

func live(db *gorm.DB, at time.Time) *gorm.DB {
	return db.Where("(expires_at IS NULL OR expires_at >= ?)", at)
}
