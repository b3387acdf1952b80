package repository

import (
	"context"

	"github.com/smallbiznis/loyala/internal/claim/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, claim *domain.Claim) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO claims (claim_key, token, store_id, owner_id, card_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		claim.ClaimKey,
		claim.Token,
		claim.StoreID,
		claim.OwnerID,
		claim.CardID,
		claim.CreatedAt,
		claim.UpdatedAt,
	).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Claim, error) {
	var claim domain.Claim
	err := db.WithContext(ctx).Raw(
		`SELECT claim_key, token, store_id, owner_id, card_id, created_at, updated_at
		 FROM claims WHERE claim_key = ?`,
		key,
	).Scan(&claim).Error
	if err != nil {
		return nil, err
	}
	if claim.ClaimKey == "" {
		return nil, nil
	}
	return &claim, nil
}

func (r *repo) Bind(ctx context.Context, db *gorm.DB, claim *domain.Claim) error {
	return db.WithContext(ctx).Exec(
		`UPDATE claims SET owner_id = ?, card_id = ?, updated_at = ? WHERE claim_key = ?`,
		claim.OwnerID,
		claim.CardID,
		claim.UpdatedAt,
		claim.ClaimKey,
	).Error
}
