package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/loyala/internal/clock"
	"github.com/smallbiznis/loyala/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("store.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (domain.Store, error) {
	id := domain.SanitizeID(strings.TrimSpace(req.ID))
	if id == "" {
		return domain.Store{}, domain.ErrInvalidID
	}

	store, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Store{}, err
	}
	if store == nil {
		// Stores may not be provisioned yet; callers still get a
		// renderable default template.
		return domain.Store{
			ID:           id,
			CardTemplate: domain.DefaultCardTemplate(),
		}, nil
	}

	return *store, nil
}

func (s *Service) BatchGet(ctx context.Context, req domain.BatchGetRequest) (map[string]domain.Store, error) {
	seen := make(map[string]struct{}, len(req.IDs))
	ids := make([]string, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	out := make(map[string]domain.Store, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	stores, err := s.repo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for _, store := range stores {
		if store == nil || store.Name == "" {
			continue
		}
		out[store.ID] = *store
	}
	return out, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, req domain.UpdateTemplateRequest) (domain.Store, error) {
	id := domain.SanitizeID(strings.TrimSpace(req.ID))
	if id == "" {
		return domain.Store{}, domain.ErrInvalidID
	}
	if req.CardTemplate == nil {
		return domain.Store{}, domain.ErrInvalidTemplate
	}

	clean := cleanTemplate(req.CardTemplate)
	now := s.clock.Now()

	var out domain.Store
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if store == nil {
			store = &domain.Store{
				ID:           id,
				CardTemplate: clean,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.repo.Insert(ctx, tx, store); err != nil {
				return err
			}
			out = *store
			return nil
		}

		store.CardTemplate = clean
		store.UpdatedAt = now
		if err := s.repo.UpdateTemplate(ctx, tx, store); err != nil {
			return err
		}
		out = *store
		return nil
	})
	if err != nil {
		return domain.Store{}, err
	}

	return out, nil
}

var allowedFonts = map[string]struct{}{
	"sans":  {},
	"serif": {},
	"mono":  {},
}

func cleanTemplate(raw map[string]interface{}) datatypes.JSONMap {
	font := stringField(raw, "font", 16, "sans")
	if _, ok := allowedFonts[font]; !ok {
		font = "sans"
	}
	return datatypes.JSONMap{
		"title":      stringField(raw, "title", 40, "Loyalty Card"),
		"bgColor":    stringField(raw, "bgColor", 20, "#111827"),
		"textColor":  stringField(raw, "textColor", 20, "#ffffff"),
		"font":       font,
		"logoUrl":    stringField(raw, "logoUrl", 500, ""),
		"bgImageUrl": stringField(raw, "bgImageUrl", 500, ""),
	}
}

func stringField(raw map[string]interface{}, key string, max int, def string) string {
	value, ok := raw[key].(string)
	if !ok {
		return def
	}
	if len(value) > max {
		value = value[:max]
	}
	return value
}
