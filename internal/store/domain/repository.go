package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, store *Store) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Store, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]*Store, error)
	UpdateTemplate(ctx context.Context, db *gorm.DB, store *Store) error
}
