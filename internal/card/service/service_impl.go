package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loyala/internal/card/domain"
	"github.com/smallbiznis/loyala/internal/clock"
	"github.com/smallbiznis/loyala/internal/config"
	"github.com/smallbiznis/loyala/internal/scanauth"
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
	Gate    *scanauth.Gate
	Loyalty *config.LoyaltyConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	gate    *scanauth.Gate
	loyalty *config.LoyaltyConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("card.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		gate:    p.Gate,
		loyalty: p.Loyalty,
	}
}

// serializableTx keeps every engine transaction at the isolation level the
// rollover arithmetic depends on: a concurrent accrual against the same
// card either sees this transaction's effect or conflicts and retries.
var serializableTx = &sql.TxOptions{Isolation: sql.LevelSerializable}

func (s *Service) AddStamps(ctx context.Context, req domain.AddStampsRequest) (domain.AccrualResult, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return domain.AccrualResult{}, domain.ErrInvalidStore
	}
	ownerID := domain.OwnerID(strings.TrimSpace(req.OwnerID.String()))
	if ownerID == "" {
		return domain.AccrualResult{}, domain.ErrInvalidOwner
	}
	cardID, err := parseCardID(req.CardID)
	if err != nil {
		return domain.AccrualResult{}, err
	}
	delta, err := normalizeDelta(req.Delta)
	if err != nil {
		return domain.AccrualResult{}, err
	}

	// Authorization runs before the transaction touches the card; a
	// denial must leave no trace.
	if _, err := s.gate.Authorize(ctx, storeID, req.PresentedSecret); err != nil {
		if errors.Is(err, scanauth.ErrDenied) {
			return domain.AccrualResult{}, domain.ErrForbidden
		}
		return domain.AccrualResult{}, err
	}

	var result domain.AccrualResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := s.repo.FindByID(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card == nil {
			return domain.ErrNotFound
		}
		if card.StoreID != storeID {
			return domain.ErrForbidden
		}
		if card.OwnerID != ownerID {
			return domain.ErrForbidden
		}

		normalized, repaired := domain.Normalize(*card)
		if normalized.Status != domain.StatusActive {
			return domain.ErrNotActive
		}
		if repaired {
			s.log.Info("repaired legacy card status",
				zap.String("card_id", card.ID.String()),
				zap.String("store_id", storeID),
			)
		}

		result, err = s.applyDelta(ctx, tx, normalized, delta)
		return err
	}, serializableTx)
	if err != nil {
		return domain.AccrualResult{}, s.classify(err)
	}

	return result, nil
}

// applyDelta mutates the already-normalized active card inside tx.
func (s *Service) applyDelta(ctx context.Context, tx *gorm.DB, card domain.Card, delta int) (domain.AccrualResult, error) {
	now := s.clock.Now()
	goal := card.EffectiveGoal()
	total := card.EffectiveStamps() + delta

	if total < goal {
		card.Stamps = total
		card.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, &card); err != nil {
			return domain.AccrualResult{}, err
		}
		return domain.AccrualResult{
			Stamps:           total,
			Goal:             goal,
			ActiveCardID:     card.ID.String(),
			CreatedRewardIDs: []string{},
		}, nil
	}

	// The current card becomes a terminal reward. It is never reused as
	// an active card again.
	card.Stamps = goal
	card.Status = domain.StatusReward
	card.RewardAvailable = true
	card.UpdatedAt = now
	if err := s.repo.Update(ctx, tx, &card); err != nil {
		return domain.AccrualResult{}, err
	}

	createdRewardIDs := []string{card.ID.String()}
	surplus := total - goal

	// A single large accrual can span several full cycles; each one
	// becomes its own reward card.
	for surplus >= goal {
		reward := domain.Card{
			ID:              s.genID.Generate(),
			StoreID:         card.StoreID,
			OwnerID:         card.OwnerID,
			Stamps:          goal,
			Goal:            goal,
			Status:          domain.StatusReward,
			RewardAvailable: true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Insert(ctx, tx, &reward); err != nil {
			return domain.AccrualResult{}, err
		}
		createdRewardIDs = append(createdRewardIDs, reward.ID.String())
		surplus -= goal
	}

	active := domain.Card{
		ID:        s.genID.Generate(),
		StoreID:   card.StoreID,
		OwnerID:   card.OwnerID,
		Stamps:    surplus,
		Goal:      goal,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, &active); err != nil {
		return domain.AccrualResult{}, err
	}

	return domain.AccrualResult{
		Stamps:           goal,
		Goal:             goal,
		RewardAvailable:  true,
		RolledOver:       true,
		ActiveCardID:     active.ID.String(),
		RewardCardID:     card.ID.String(),
		CreatedRewardIDs: createdRewardIDs,
		Surplus:          surplus,
	}, nil
}

func (s *Service) ConsumeReward(ctx context.Context, req domain.ConsumeRewardRequest) (domain.ConsumeRewardResult, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return domain.ConsumeRewardResult{}, domain.ErrInvalidStore
	}
	ownerID := domain.OwnerID(strings.TrimSpace(req.OwnerID.String()))
	if ownerID == "" {
		return domain.ConsumeRewardResult{}, domain.ErrInvalidOwner
	}
	cardID, err := parseCardID(req.CardID)
	if err != nil {
		return domain.ConsumeRewardResult{}, err
	}

	var result domain.ConsumeRewardResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := s.repo.FindByID(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card == nil {
			// Idempotent: a second redemption of the same reward is
			// success, not an error.
			result = domain.ConsumeRewardResult{AlreadyGone: true}
			return nil
		}
		if card.StoreID != storeID {
			return domain.ErrForbidden
		}
		if card.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		if card.Status != domain.StatusReward {
			return domain.ErrNotAReward
		}

		if err := s.repo.Delete(ctx, tx, card.ID); err != nil {
			return err
		}
		result = domain.ConsumeRewardResult{Deleted: true}
		return nil
	}, serializableTx)
	if err != nil {
		return domain.ConsumeRewardResult{}, s.classify(err)
	}

	return result, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Card, error) {
	ownerID := domain.OwnerID(strings.TrimSpace(req.OwnerID.String()))
	if ownerID == "" {
		return nil, domain.ErrInvalidOwner
	}

	items, err := s.repo.ListByOwner(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	cards := make([]domain.Card, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		cards = append(cards, *item)
	}
	return cards, nil
}

func (s *Service) Remove(ctx context.Context, req domain.RemoveRequest) error {
	ownerID := domain.OwnerID(strings.TrimSpace(req.OwnerID.String()))
	if ownerID == "" {
		return domain.ErrInvalidOwner
	}
	cardID, err := parseCardID(req.CardID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := s.repo.FindByID(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card == nil {
			return domain.ErrNotFound
		}
		if card.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		return s.repo.Delete(ctx, tx, card.ID)
	}, serializableTx)
	if err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Card, error) {
	storeID := strings.TrimSpace(req.StoreID)
	if storeID == "" {
		return domain.Card{}, domain.ErrInvalidStore
	}
	ownerID := domain.OwnerID(strings.TrimSpace(req.OwnerID.String()))
	if ownerID == "" {
		return domain.Card{}, domain.ErrInvalidOwner
	}
	goal := req.Goal
	if goal == 0 {
		goal = s.loyalty.Get().DefaultGoal
	}
	if goal <= 0 {
		return domain.Card{}, domain.ErrInvalidGoal
	}

	now := s.clock.Now()
	card := domain.Card{
		ID:        s.genID.Generate(),
		StoreID:   storeID,
		OwnerID:   ownerID,
		Goal:      goal,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &card); err != nil {
		return domain.Card{}, s.classify(err)
	}

	return card, nil
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

func parseCardID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		// An unparseable id cannot name any card.
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func normalizeDelta(delta float64) (int, error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta <= 0 {
		return 0, domain.ErrInvalidDelta
	}
	floored := int(math.Floor(delta))
	if floored < 1 {
		return 0, domain.ErrInvalidDelta
	}
	return floored, nil
}
