package repository

import (
	"context"

	"github.com/smallbiznis/loyala/internal/store/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, store *domain.Store) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stores (id, name, goal, scan_secret, card_template, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		store.ID,
		store.Name,
		store.Goal,
		store.ScanSecret,
		store.CardTemplate,
		store.CreatedAt,
		store.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Store, error) {
	var store domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, goal, scan_secret, card_template, created_at, updated_at
		 FROM stores WHERE id = ?`,
		id,
	).Scan(&store).Error
	if err != nil {
		return nil, err
	}
	if store.ID == "" {
		return nil, nil
	}
	return &store, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]*domain.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var stores []*domain.Store
	err := db.WithContext(ctx).
		Model(&domain.Store{}).
		Where("id IN ?", ids).
		Find(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *repo) UpdateTemplate(ctx context.Context, db *gorm.DB, store *domain.Store) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stores SET card_template = ?, updated_at = ? WHERE id = ?`,
		store.CardTemplate,
		store.UpdatedAt,
		store.ID,
	).Error
}
