package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/loyala/internal/clock"
	"github.com/smallbiznis/loyala/internal/store/domain"
	"github.com/smallbiznis/loyala/internal/store/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStoreService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&domain.Store{}); err != nil {
		t.Fatal(err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func insertTestStore(t *testing.T, db *gorm.DB, store domain.Store) {
	t.Helper()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store.CreatedAt = now
	store.UpdatedAt = now
	if store.CardTemplate == nil {
		store.CardTemplate = domain.DefaultCardTemplate()
	}
	if err := repository.Provide().Insert(context.Background(), db, &store); err != nil {
		t.Fatal(err)
	}
}

func TestGetUnprovisionedStoreReturnsDefaults(t *testing.T) {
	svc, _ := setupStoreService(t)

	store, err := svc.Get(context.Background(), domain.GetRequest{ID: "store_new"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if store.ID != "store_new" {
		t.Fatalf("unexpected id %q", store.ID)
	}
	if store.CardTemplate["title"] != "Loyalty Card" {
		t.Fatalf("expected default template, got %+v", store.CardTemplate)
	}
}

func TestGetSanitizesID(t *testing.T) {
	svc, db := setupStoreService(t)
	insertTestStore(t, db, domain.Store{ID: "store_a_b", Name: "AB"})

	store, err := svc.Get(context.Background(), domain.GetRequest{ID: "store_a/b"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if store.Name != "AB" {
		t.Fatalf("expected sanitized lookup to hit store_a_b, got %+v", store)
	}

	if _, err := svc.Get(context.Background(), domain.GetRequest{ID: "   "}); err != domain.ErrInvalidID {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestBatchGetSkipsUnprovisioned(t *testing.T) {
	svc, db := setupStoreService(t)
	insertTestStore(t, db, domain.Store{ID: "store_a", Name: "A"})
	insertTestStore(t, db, domain.Store{ID: "store_unnamed"})

	out, err := svc.BatchGet(context.Background(), domain.BatchGetRequest{
		IDs: []string{"store_a", "store_a", "store_missing", "store_unnamed", " "},
	})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected only the named store, got %+v", out)
	}
	if out["store_a"].Name != "A" {
		t.Fatalf("unexpected store: %+v", out["store_a"])
	}
}

func TestUpdateTemplateUpsertsAndCleans(t *testing.T) {
	svc, _ := setupStoreService(t)

	store, err := svc.UpdateTemplate(context.Background(), domain.UpdateTemplateRequest{
		ID: "store_b",
		CardTemplate: map[string]interface{}{
			"title":   "Coffee Club",
			"bgColor": "#000000",
			"font":    "comic-sans",
			"bogus":   "dropped",
		},
	})
	if err != nil {
		t.Fatalf("update template: %v", err)
	}

	if store.CardTemplate["title"] != "Coffee Club" {
		t.Fatalf("unexpected template: %+v", store.CardTemplate)
	}
	if store.CardTemplate["font"] != "sans" {
		t.Fatalf("unknown font must fall back, got %v", store.CardTemplate["font"])
	}
	if _, ok := store.CardTemplate["bogus"]; ok {
		t.Fatal("unknown keys must be dropped")
	}

	got, err := svc.Get(context.Background(), domain.GetRequest{ID: "store_b"})
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.CardTemplate["title"] != "Coffee Club" {
		t.Fatalf("template not persisted: %+v", got.CardTemplate)
	}

	updated, err := svc.UpdateTemplate(context.Background(), domain.UpdateTemplateRequest{
		ID: "store_b",
		CardTemplate: map[string]interface{}{
			"title": "Tea Club",
		},
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if updated.CardTemplate["title"] != "Tea Club" {
		t.Fatalf("unexpected template: %+v", updated.CardTemplate)
	}

	if _, err := svc.UpdateTemplate(context.Background(), domain.UpdateTemplateRequest{
		ID: "store_b",
	}); err != domain.ErrInvalidTemplate {
		t.Fatalf("expected invalid template, got %v", err)
	}
}

func TestUpdateTemplateTruncatesLongValues(t *testing.T) {
	svc, _ := setupStoreService(t)

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}

	store, err := svc.UpdateTemplate(context.Background(), domain.UpdateTemplateRequest{
		ID: "store_c",
		CardTemplate: map[string]interface{}{
			"title": string(long),
		},
	})
	if err != nil {
		t.Fatalf("update template: %v", err)
	}

	title, _ := store.CardTemplate["title"].(string)
	if len(title) != 40 {
		t.Fatalf("expected title truncated to 40, got %d", len(title))
	}
}
