package repository

import (
	"context"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/user/model"
)

// UserRepository is a read-only projection of the auth service's user
// store. The core never creates or mutates users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListAdmins(ctx context.Context) ([]model.User, error)
}
