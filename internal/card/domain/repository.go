package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, card *Card) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Card, error)
	FindByStoreOwnerStatus(ctx context.Context, db *gorm.DB, storeID string, ownerID OwnerID, status Status) (*Card, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID OwnerID) ([]*Card, error)
	Update(ctx context.Context, db *gorm.DB, card *Card) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
