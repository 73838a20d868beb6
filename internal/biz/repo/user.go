package repo

import (
	"context"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// UserRepo is the local user directory interface
type UserRepo interface {
	// Get gets a user by OpenID, nil if not stored
	Get(ctx context.Context, openID string) (*domain.StoredUser, error)

	// Save saves a user (create or update)
	Save(ctx context.Context, user *domain.StoredUser) error

	// SetSubscribed updates the subscribe flag, returns false if the user is unknown
	SetSubscribed(ctx context.Context, openID string, subscribed bool) (bool, error)

	// List lists users, optionally only subscribed ones
	List(ctx context.Context, subscribedOnly bool) ([]*domain.StoredUser, error)

	Close() error
}
