package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, claim *Claim) error
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*Claim, error)
	Bind(ctx context.Context, db *gorm.DB, claim *Claim) error
}
