// internal/infrastructure/database/memory/notification.go
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// NotificationRepository implements notification.Repository
type NotificationRepository struct {
	store *Store
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(store *Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

var _ notification.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	r.insert(n)
	return nil
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, ns []notification.Notification) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for i := range ns {
		r.insert(&ns[i])
	}
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]notification.Notification, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	at := filter.Now
	if at.IsZero() {
		at = now()
	}

	rows := make([]notification.Notification, 0)
	for _, n := range r.store.data.notifications {
		if n.UserID != filter.UserID || n.IsExpired(at) {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		rows = append(rows, n)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})

	return page(rows, filter.Page, filter.Limit), int64(len(rows)), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint, at time.Time) (int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	var count int64
	for _, n := range r.store.data.notifications {
		if n.UserID == userID && !n.IsRead && !n.IsExpired(at) {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID, id uint, at time.Time) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	n, ok := r.store.data.notifications[id]
	if !ok || n.UserID != userID {
		return apperror.NotFound("notification", id)
	}
	if n.IsRead {
		return nil
	}
	n.IsRead = true
	n.ReadAt = &at
	r.store.data.notifications[id] = n
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	var updated int64
	for id, n := range r.store.data.notifications {
		if n.UserID != userID || n.IsRead {
			continue
		}
		n.IsRead = true
		n.ReadAt = &at
		r.store.data.notifications[id] = n
		updated++
	}
	return updated, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uint) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	n, ok := r.store.data.notifications[id]
	if !ok || n.UserID != userID {
		return apperror.NotFound("notification", id)
	}
	delete(r.store.data.notifications, id)
	return nil
}

func (r *NotificationRepository) DeleteExpired(ctx context.Context, at time.Time) (int64, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	var removed int64
	for id, n := range r.store.data.notifications {
		if n.IsExpired(at) {
			delete(r.store.data.notifications, id)
			removed++
		}
	}
	return removed, nil
}

func (r *NotificationRepository) insert(n *notification.Notification) {
	n.ID = r.store.data.nextID("notifications")
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	r.store.data.notifications[n.ID] = *n
}
