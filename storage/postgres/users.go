package postgres

import (
	"context"
	"time"

	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"gorm.io/gorm"
)

// UserRepository implements storage.UserRepository.
type UserRepository struct {
	db *gorm.DB
}

var _ storage.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Close() error { return nil }

func (r *UserRepository) AddUser(ctx context.Context, user *core.User) (*core.User, error) {
	row := &userRow{Email: user.Email, Name: user.Name, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translate(err)
	}
	user.Id = core.ID(row.ID)
	user.CreatedAt = row.CreatedAt
	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id core.ID) (*core.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}
