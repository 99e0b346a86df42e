// Package directory reads user profiles and keeps the last-seen marker.
package directory

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chatroom-service/internal/models"
)

// UserRepository reads the externally owned users table.
type UserRepository interface {
	BulkUsers(ctx context.Context, ids []int) ([]models.User, error)
}

// UserRepo is a read-only sqlx view of the users table.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// BulkUsers fetches multiple users in one query. Unknown ids are omitted.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, avatar_url, last_active FROM users WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("bulk users: %w", err)
	}
	return users, nil
}
