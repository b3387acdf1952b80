// Package scanauth gates stamp accrual with a per-store shared secret.
//
// The trust model is deliberately weak: a shared secret, not a
// per-request signature, so replay is possible. Stores that never
// configured a secret stay in a compatibility mode where every scan is
// allowed.
package scanauth

import (
	"context"
	"crypto/subtle"
	"strings"

	storedomain "github.com/smallbiznis/loyala/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mode reports which path allowed a scan, for logging.
type Mode string

const (
	ModeNoSecret Mode = "compat-no-secret"
	ModeSecretOK Mode = "secret-ok"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Stores storedomain.Repository
}

type Gate struct {
	db     *gorm.DB
	log    *zap.Logger
	stores storedomain.Repository
}

func New(p Params) *Gate {
	return &Gate{
		db:     p.DB,
		log:    p.Log.Named("scanauth"),
		stores: p.Stores,
	}
}

// Authorize checks the presented secret against the store's configured
// one. A store with no secret (or no store document at all) allows
// unconditionally. Returns the mode on allow and a non-nil error on deny.
func (g *Gate) Authorize(ctx context.Context, storeID, presentedSecret string) (Mode, error) {
	store, err := g.stores.FindByID(ctx, g.db, storeID)
	if err != nil {
		return "", err
	}

	required := ""
	if store != nil {
		required = strings.TrimSpace(store.ScanSecret)
	}
	if required == "" {
		return ModeNoSecret, nil
	}

	presented := strings.TrimSpace(presentedSecret)
	if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(required)) != 1 {
		g.log.Warn("scan denied", zap.String("store_id", storeID))
		return "", ErrDenied
	}

	return ModeSecretOK, nil
}

var Module = fx.Module("scanauth",
	fx.Provide(New),
)
