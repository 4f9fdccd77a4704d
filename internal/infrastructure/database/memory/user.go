// internal/infrastructure/database/memory/user.go
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// UserRepository implements user.Repository and notification.AdminDirectory
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*user.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	u, ok := r.store.data.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	email = user.NormalizeEmail(email)
	for _, u := range r.store.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	u.Email = user.NormalizeEmail(u.Email)
	for _, existing := range r.store.data.users {
		if existing.Email == u.Email {
			return apperror.ErrDuplicate
		}
	}

	u.ID = r.store.data.nextID("users")
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	r.store.data.users[u.ID] = *u
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.update(ctx, id, func(u *user.User) { u.Password = hash })
}

func (r *UserRepository) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, func(u *user.User) { u.LastLoginAt = &at })
}

func (r *UserRepository) ListAdminIDs(ctx context.Context) ([]uint, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	ids := make([]uint, 0)
	for _, u := range r.store.data.users {
		if u.IsAdmin && u.IsActive {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *UserRepository) update(ctx context.Context, id uint, fn func(u *user.User)) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	u, ok := r.store.data.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	fn(&u)
	u.UpdatedAt = now()
	r.store.data.users[id] = u
	return nil
}
