package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/loyala/internal/card/domain"
	"github.com/smallbiznis/loyala/internal/claim/domain"
	"github.com/smallbiznis/loyala/internal/clock"
	"github.com/smallbiznis/loyala/internal/config"
	storedomain "github.com/smallbiznis/loyala/internal/store/domain"
	pkgdb "github.com/smallbiznis/loyala/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Cards   carddomain.Repository
	Stores  storedomain.Repository
	Loyalty *config.LoyaltyConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	cards   carddomain.Repository
	stores  storedomain.Repository
	loyalty *config.LoyaltyConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("claim.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		cards:   p.Cards,
		stores:  p.Stores,
		loyalty: p.Loyalty,
	}
}

var serializableTx = &sql.TxOptions{Isolation: sql.LevelSerializable}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.ResolveResult, error) {
	token := strings.TrimSpace(req.Token)
	if !domain.ValidToken(token) {
		return domain.ResolveResult{}, domain.ErrInvalidToken
	}
	ownerID := carddomain.OwnerID(strings.TrimSpace(req.OwnerID.String()))
	if ownerID == "" {
		return domain.ResolveResult{}, domain.ErrInvalidOwner
	}
	key := domain.KeyFromToken(token)

	var result domain.ResolveResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := s.repo.FindByKey(ctx, tx, key)
		if err != nil {
			return err
		}

		// Already claimed: a pure read path, so repeated re-claims stay
		// cheap and side-effect free.
		if claim != nil && claim.CardID != nil {
			result = domain.ResolveResult{
				CardID:   claim.CardID.String(),
				StoreID:  claim.StoreID,
				Existing: true,
			}
			if card, err := s.cards.FindByID(ctx, tx, *claim.CardID); err != nil {
				return err
			} else if card != nil {
				result.Status = card.Status
				result.StoreID = card.StoreID
			}
			return nil
		}

		store, err := s.resolveStore(ctx, tx, claim, token)
		if err != nil {
			return err
		}
		now := s.clock.Now()

		// A customer who already holds an open card for this store is
		// bound to it instead of being handed a duplicate.
		open, err := s.findOpenCard(ctx, tx, store.ID, ownerID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := s.bind(ctx, tx, claim, key, token, store.ID, ownerID, open.ID, now); err != nil {
				return err
			}
			result = domain.ResolveResult{
				CardID:   open.ID.String(),
				StoreID:  store.ID,
				Status:   open.Status,
				Existing: true,
			}
			return nil
		}

		goal := store.Goal
		if goal <= 0 {
			goal = s.loyalty.Get().DefaultGoal
		}
		sourceToken := token
		card := carddomain.Card{
			ID:          s.genID.Generate(),
			StoreID:     store.ID,
			OwnerID:     ownerID,
			Goal:        goal,
			Status:      carddomain.StatusActive,
			SourceToken: &sourceToken,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.cards.Insert(ctx, tx, &card); err != nil {
			return err
		}
		if err := s.bind(ctx, tx, claim, key, token, store.ID, ownerID, card.ID, now); err != nil {
			return err
		}

		result = domain.ResolveResult{
			CardID:  card.ID.String(),
			StoreID: store.ID,
			Status:  card.Status,
		}
		return nil
	}, serializableTx)
	if err != nil {
		return domain.ResolveResult{}, s.classify(err)
	}

	return result, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.CreateResult, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return domain.CreateResult{}, domain.ErrInvalidStore
	}

	token, err := s.mintToken()
	if err != nil {
		return domain.CreateResult{}, err
	}

	now := s.clock.Now()
	claim := domain.Claim{
		ClaimKey:  domain.KeyFromToken(token),
		Token:     token,
		StoreID:   storeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &claim); err != nil {
		return domain.CreateResult{}, s.classify(err)
	}

	return domain.CreateResult{Token: token}, nil
}

// resolveStore binds a claim to its store: the claim's own store when
// pre-provisioned, the token itself when it names a store, otherwise the
// configured demo store. Resolving to no provisioned store is a hard
// failure.
func (s *Service) resolveStore(ctx context.Context, tx *gorm.DB, claim *domain.Claim, token string) (*storedomain.Store, error) {
	storeID := ""
	if claim != nil {
		storeID = strings.TrimSpace(claim.StoreID)
	} else if strings.HasPrefix(token, "store_") {
		storeID = token
	}
	if storeID == "" {
		storeID = strings.TrimSpace(s.loyalty.Get().DemoStoreID)
	}
	if storeID == "" {
		return nil, domain.ErrUnresolvableStore
	}

	store, err := s.stores.FindByID(ctx, tx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, domain.ErrUnresolvableStore
	}
	return store, nil
}

func (s *Service) findOpenCard(ctx context.Context, tx *gorm.DB, storeID string, ownerID carddomain.OwnerID) (*carddomain.Card, error) {
	active, err := s.cards.FindByStoreOwnerStatus(ctx, tx, storeID, ownerID, carddomain.StatusActive)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}
	// A pending reward also counts: the customer should redeem it, not
	// accumulate an extra active card.
	return s.cards.FindByStoreOwnerStatus(ctx, tx, storeID, ownerID, carddomain.StatusReward)
}

func (s *Service) bind(ctx context.Context, tx *gorm.DB, claim *domain.Claim, key, token, storeID string, ownerID carddomain.OwnerID, cardID snowflake.ID, now time.Time) error {
	if claim == nil {
		return s.repo.Insert(ctx, tx, &domain.Claim{
			ClaimKey:  key,
			Token:     token,
			StoreID:   storeID,
			OwnerID:   ownerID,
			CardID:    &cardID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	claim.OwnerID = ownerID
	claim.CardID = &cardID
	claim.UpdatedAt = now
	return s.repo.Bind(ctx, tx, claim)
}

func (s *Service) mintToken() (string, error) {
	n := s.loyalty.Get().ClaimTokenBytes
	if n <= 0 {
		n = 16
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *Service) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case pkgdb.IsSerializationFailure(err), pkgdb.IsDuplicateKeyErr(err):
		return domain.ErrConflict
	default:
		return err
	}
}
