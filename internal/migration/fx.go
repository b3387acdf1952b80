package migration

import (
	"github.com/smallbiznis/loyala/internal/config"
	"github.com/smallbiznis/loyala/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, holder *config.LoyaltyConfigHolder) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		loyalty := holder.Get()
		if loyalty.DemoStoreID != "" {
			return seed.EnsureDemoStore(conn, loyalty.DemoStoreID, loyalty.DefaultGoal)
		}
		return nil
	}),
)
