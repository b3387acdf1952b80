package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loyala/internal/card/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, card *domain.Card) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO cards (id, store_id, owner_id, stamps, goal, status, reward_available, rewards_used, active, source_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		card.StoreID,
		card.OwnerID,
		card.Stamps,
		card.Goal,
		card.Status,
		card.RewardAvailable,
		card.RewardsUsed,
		card.LegacyActive,
		card.SourceToken,
		card.CreatedAt,
		card.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Card, error) {
	var card domain.Card
	err := db.WithContext(ctx).Raw(
		`SELECT id, store_id, owner_id, stamps, goal, status, reward_available, rewards_used, active, source_token, created_at, updated_at
		 FROM cards WHERE id = ?`,
		id,
	).Scan(&card).Error
	if err != nil {
		return nil, err
	}
	if card.ID == 0 {
		return nil, nil
	}
	return &card, nil
}

func (r *repo) FindByStoreOwnerStatus(ctx context.Context, db *gorm.DB, storeID string, ownerID domain.OwnerID, status domain.Status) (*domain.Card, error) {
	var card domain.Card
	err := db.WithContext(ctx).Raw(
		`SELECT id, store_id, owner_id, stamps, goal, status, reward_available, rewards_used, active, source_token, created_at, updated_at
		 FROM cards WHERE store_id = ? AND owner_id = ? AND status = ?
		 ORDER BY created_at ASC LIMIT 1`,
		storeID,
		ownerID,
		status,
	).Scan(&card).Error
	if err != nil {
		return nil, err
	}
	if card.ID == 0 {
		return nil, nil
	}
	return &card, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID domain.OwnerID) ([]*domain.Card, error) {
	var cards []*domain.Card
	err := db.WithContext(ctx).
		Model(&domain.Card{}).
		Where("owner_id = ?", ownerID).
		Order("created_at asc, id asc").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, card *domain.Card) error {
	return db.WithContext(ctx).Exec(
		`UPDATE cards SET stamps = ?, status = ?, reward_available = ?, rewards_used = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		card.Stamps,
		card.Status,
		card.RewardAvailable,
		card.RewardsUsed,
		card.LegacyActive,
		card.UpdatedAt,
		card.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM cards WHERE id = ?`, id).Error
}
