package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	carddomain "github.com/smallbiznis/loyala/internal/card/domain"
	storedomain "github.com/smallbiznis/loyala/internal/store/domain"
	"gorm.io/gorm"
)

// EnsureDemoStore seeds the configured demo store so unprovisioned
// deployments have a working claim target on first boot.
func EnsureDemoStore(db *gorm.DB, storeID string, goal int) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil
	}
	if goal <= 0 {
		goal = carddomain.DefaultGoal
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store storedomain.Store
		err := tx.WithContext(ctx).Where("id = ?", storeID).First(&store).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		store = storedomain.Store{
			ID:           storeID,
			Name:         "Demo Store",
			Goal:         goal,
			CardTemplate: storedomain.DefaultCardTemplate(),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&store).Error
	})
}
