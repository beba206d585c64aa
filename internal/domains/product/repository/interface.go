package repository

import (
	"context"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/product/model"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]model.Product, error)
}
