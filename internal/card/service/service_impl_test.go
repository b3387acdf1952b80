package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loyala/internal/card/domain"
	cardrepository "github.com/smallbiznis/loyala/internal/card/repository"
	"github.com/smallbiznis/loyala/internal/clock"
	"github.com/smallbiznis/loyala/internal/config"
	"github.com/smallbiznis/loyala/internal/scanauth"
	storedomain "github.com/smallbiznis/loyala/internal/store/domain"
	storerepository "github.com/smallbiznis/loyala/internal/store/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCardService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.Card{}, &storedomain.Store{}); err != nil {
		t.Fatal(err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()

	gate := scanauth.New(scanauth.Params{
		DB:     db,
		Log:    logger,
		Stores: storerepository.Provide(),
	})

	svc := New(Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  cardrepository.Provide(),
		Gate:  gate,
		Loyalty: config.NewStaticLoyaltyConfigHolder(config.LoyaltyConfig{
			DefaultGoal:     10,
			ClaimTokenBytes: 16,
		}),
	})

	return svc, db, node
}

func seedCard(t *testing.T, db *gorm.DB, card domain.Card) domain.Card {
	t.Helper()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	}
	if card.UpdatedAt.IsZero() {
		card.UpdatedAt = card.CreatedAt
	}
	if err := cardrepository.Provide().Insert(context.Background(), db, &card); err != nil {
		t.Fatalf("seed card: %v", err)
	}
	return card
}

func seedStore(t *testing.T, db *gorm.DB, store storedomain.Store) storedomain.Store {
	t.Helper()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store.CreatedAt = now
	store.UpdatedAt = now
	if store.CardTemplate == nil {
		store.CardTemplate = storedomain.DefaultCardTemplate()
	}
	if err := storerepository.Provide().Insert(context.Background(), db, &store); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func loadCard(t *testing.T, db *gorm.DB, id snowflake.ID) *domain.Card {
	t.Helper()
	card, err := cardrepository.Provide().FindByID(context.Background(), db, id)
	if err != nil {
		t.Fatalf("load card: %v", err)
	}
	return card
}

func countCards(t *testing.T, db *gorm.DB, ownerID domain.OwnerID) int {
	t.Helper()
	var count int64
	if err := db.Model(&domain.Card{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		t.Fatalf("count cards: %v", err)
	}
	return int(count)
}

func TestAddStampsAccumulates(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_1",
		Stamps:  3,
		Goal:    10,
		Status:  domain.StatusActive,
	})

	res, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "owner_1",
		CardID:  card.ID.String(),
		Delta:   4,
	})
	if err != nil {
		t.Fatalf("add stamps: %v", err)
	}

	if res.Stamps != 7 || res.RolledOver || res.RewardAvailable {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.ActiveCardID != card.ID.String() {
		t.Fatalf("expected same active card, got %s", res.ActiveCardID)
	}
	if len(res.CreatedRewardIDs) != 0 {
		t.Fatalf("expected no reward cards, got %v", res.CreatedRewardIDs)
	}

	stored := loadCard(t, db, card.ID)
	if stored == nil || stored.Stamps != 7 || stored.Status != domain.StatusActive {
		t.Fatalf("unexpected stored card: %+v", stored)
	}
	if countCards(t, db, "owner_1") != 1 {
		t.Fatal("expected single card")
	}
}

func TestAddStampsReachingGoalRollsOver(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_2",
		Stamps:  9,
		Goal:    10,
		Status:  domain.StatusActive,
	})

	res, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "owner_2",
		CardID:  card.ID.String(),
		Delta:   1,
	})
	if err != nil {
		t.Fatalf("add stamps: %v", err)
	}

	if !res.RolledOver || !res.RewardAvailable {
		t.Fatalf("expected rollover, got %+v", res)
	}
	if res.Stamps != 10 || res.Surplus != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.RewardCardID != card.ID.String() {
		t.Fatalf("expected original card to become the reward, got %s", res.RewardCardID)
	}
	if len(res.CreatedRewardIDs) != 1 || res.CreatedRewardIDs[0] != card.ID.String() {
		t.Fatalf("unexpected reward ids: %v", res.CreatedRewardIDs)
	}
	if res.ActiveCardID == card.ID.String() {
		t.Fatal("expected a fresh active card")
	}

	reward := loadCard(t, db, card.ID)
	if reward == nil || reward.Status != domain.StatusReward || !reward.RewardAvailable || reward.Stamps != 10 {
		t.Fatalf("unexpected reward card: %+v", reward)
	}

	activeID, err := snowflake.ParseString(res.ActiveCardID)
	if err != nil {
		t.Fatal(err)
	}
	active := loadCard(t, db, activeID)
	if active == nil || active.Status != domain.StatusActive || active.Stamps != 0 {
		t.Fatalf("unexpected active card: %+v", active)
	}
}

func TestAddStampsMultiCycleRollover(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_3",
		Stamps:  0,
		Goal:    10,
		Status:  domain.StatusActive,
	})

	res, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "owner_3",
		CardID:  card.ID.String(),
		Delta:   25,
	})
	if err != nil {
		t.Fatalf("add stamps: %v", err)
	}

	if !res.RolledOver || res.Surplus != 5 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.CreatedRewardIDs) != 2 {
		t.Fatalf("expected 2 reward cards, got %v", res.CreatedRewardIDs)
	}
	if res.CreatedRewardIDs[0] != card.ID.String() {
		t.Fatalf("expected original card first, got %v", res.CreatedRewardIDs)
	}

	if countCards(t, db, "owner_3") != 3 {
		t.Fatalf("expected 3 cards, got %d", countCards(t, db, "owner_3"))
	}

	for _, raw := range res.CreatedRewardIDs {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			t.Fatal(err)
		}
		reward := loadCard(t, db, id)
		if reward == nil || reward.Status != domain.StatusReward || reward.Stamps != 10 {
			t.Fatalf("unexpected reward card: %+v", reward)
		}
	}

	activeID, err := snowflake.ParseString(res.ActiveCardID)
	if err != nil {
		t.Fatal(err)
	}
	active := loadCard(t, db, activeID)
	if active == nil || active.Status != domain.StatusActive || active.Stamps != 5 {
		t.Fatalf("unexpected active card: %+v", active)
	}
}

func TestAddStampsOwnerMismatch(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_4",
		Stamps:  5,
		Goal:    10,
		Status:  domain.StatusActive,
	})

	_, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "someone_else",
		CardID:  card.ID.String(),
		Delta:   1,
	})
	if err != domain.ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	stored := loadCard(t, db, card.ID)
	if stored.Stamps != 5 {
		t.Fatalf("card must stay untouched, got %d stamps", stored.Stamps)
	}
}

func TestAddStampsStoreMismatch(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_5",
		Goal:    10,
		Status:  domain.StatusActive,
	})

	_, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_b",
		OwnerID: "owner_5",
		CardID:  card.ID.String(),
		Delta:   1,
	})
	if err != domain.ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAddStampsRewardCardRejected(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:              node.Generate(),
		StoreID:         "store_a",
		OwnerID:         "owner_6",
		Stamps:          10,
		Goal:            10,
		Status:          domain.StatusReward,
		RewardAvailable: true,
	})

	_, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "owner_6",
		CardID:  card.ID.String(),
		Delta:   1,
	})
	if err != domain.ErrNotActive {
		t.Fatalf("expected not active, got %v", err)
	}
}

func TestAddStampsInvalidDelta(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_7",
		Goal:    10,
		Status:  domain.StatusActive,
	})

	for _, delta := range []float64{0, -1, 0.5, math.NaN(), math.Inf(1)} {
		_, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
			StoreID: "store_a",
			OwnerID: "owner_7",
			CardID:  card.ID.String(),
			Delta:   delta,
		})
		if err != domain.ErrInvalidDelta {
			t.Fatalf("delta %v: expected invalid delta, got %v", delta, err)
		}
	}
}

func TestAddStampsFractionalDeltaFloored(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_8",
		Stamps:  1,
		Goal:    10,
		Status:  domain.StatusActive,
	})

	res, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "owner_8",
		CardID:  card.ID.String(),
		Delta:   2.9,
	})
	if err != nil {
		t.Fatalf("add stamps: %v", err)
	}
	if res.Stamps != 3 {
		t.Fatalf("expected delta floored to 2, got total %d", res.Stamps)
	}
}

func TestAddStampsUnknownCard(t *testing.T) {
	svc, _, node := setupCardService(t)

	for _, id := range []string{node.Generate().String(), "not-a-card", ""} {
		_, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
			StoreID: "store_a",
			OwnerID: "owner_9",
			CardID:  id,
			Delta:   1,
		})
		if err != domain.ErrNotFound {
			t.Fatalf("card %q: expected not found, got %v", id, err)
		}
	}
}

func TestAddStampsRepairsLegacyStatus(t *testing.T) {
	svc, db, node := setupCardService(t)
	legacy := "true"
	card := seedCard(t, db, domain.Card{
		ID:           node.Generate(),
		StoreID:      "store_a",
		OwnerID:      "owner_10",
		Stamps:       2,
		Goal:         10,
		Status:       "",
		LegacyActive: &legacy,
	})

	res, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "owner_10",
		CardID:  card.ID.String(),
		Delta:   1,
	})
	if err != nil {
		t.Fatalf("add stamps: %v", err)
	}
	if res.Stamps != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}

	stored := loadCard(t, db, card.ID)
	if stored.Status != domain.StatusActive {
		t.Fatalf("expected repaired status, got %q", stored.Status)
	}
	if stored.LegacyActive != nil {
		t.Fatalf("expected legacy column cleared, got %q", *stored.LegacyActive)
	}
}

func TestAddStampsUnknownStatusNotRepaired(t *testing.T) {
	svc, db, node := setupCardService(t)
	legacy := "true"
	card := seedCard(t, db, domain.Card{
		ID:           node.Generate(),
		StoreID:      "store_a",
		OwnerID:      "owner_11",
		Stamps:       2,
		Goal:         10,
		Status:       "frozen",
		LegacyActive: &legacy,
	})

	_, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_a",
		OwnerID: "owner_11",
		CardID:  card.ID.String(),
		Delta:   1,
	})
	if err != domain.ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}

	stored := loadCard(t, db, card.ID)
	if stored.Stamps != 2 || stored.Status != "frozen" {
		t.Fatalf("card must be untouched: %+v", stored)
	}
}

func TestAddStampsSecretGate(t *testing.T) {
	svc, db, node := setupCardService(t)
	seedStore(t, db, storedomain.Store{
		ID:         "store_s",
		Name:       "Secret Store",
		ScanSecret: "s3cret",
	})
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_s",
		OwnerID: "owner_11",
		Goal:    10,
		Status:  domain.StatusActive,
	})

	_, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID: "store_s",
		OwnerID: "owner_11",
		CardID:  card.ID.String(),
		Delta:   1,
	})
	if err != domain.ErrForbidden {
		t.Fatalf("expected forbidden without secret, got %v", err)
	}

	_, err = svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID:         "store_s",
		OwnerID:         "owner_11",
		CardID:          card.ID.String(),
		Delta:           1,
		PresentedSecret: "wrong",
	})
	if err != domain.ErrForbidden {
		t.Fatalf("expected forbidden with wrong secret, got %v", err)
	}

	stored := loadCard(t, db, card.ID)
	if stored.Stamps != 0 {
		t.Fatalf("denied scans must not stamp, got %d", stored.Stamps)
	}

	res, err := svc.AddStamps(context.Background(), domain.AddStampsRequest{
		StoreID:         "store_s",
		OwnerID:         "owner_11",
		CardID:          card.ID.String(),
		Delta:           1,
		PresentedSecret: "s3cret",
	})
	if err != nil {
		t.Fatalf("add stamps with secret: %v", err)
	}
	if res.Stamps != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestConsumeRewardIdempotent(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:              node.Generate(),
		StoreID:         "store_a",
		OwnerID:         "owner_12",
		Stamps:          10,
		Goal:            10,
		Status:          domain.StatusReward,
		RewardAvailable: true,
	})

	first, err := svc.ConsumeReward(context.Background(), domain.ConsumeRewardRequest{
		StoreID: "store_a",
		OwnerID: "owner_12",
		CardID:  card.ID.String(),
	})
	if err != nil {
		t.Fatalf("consume first: %v", err)
	}
	if !first.Deleted || first.AlreadyGone {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := svc.ConsumeReward(context.Background(), domain.ConsumeRewardRequest{
		StoreID: "store_a",
		OwnerID: "owner_12",
		CardID:  card.ID.String(),
	})
	if err != nil {
		t.Fatalf("consume second: %v", err)
	}
	if second.Deleted || !second.AlreadyGone {
		t.Fatalf("unexpected second result: %+v", second)
	}

	if countCards(t, db, "owner_12") != 0 {
		t.Fatal("expected reward card deleted")
	}
}

func TestConsumeRewardRejectsActiveCard(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:      node.Generate(),
		StoreID: "store_a",
		OwnerID: "owner_13",
		Stamps:  4,
		Goal:    10,
		Status:  domain.StatusActive,
	})

	_, err := svc.ConsumeReward(context.Background(), domain.ConsumeRewardRequest{
		StoreID: "store_a",
		OwnerID: "owner_13",
		CardID:  card.ID.String(),
	})
	if err != domain.ErrNotAReward {
		t.Fatalf("expected not a reward, got %v", err)
	}

	if stored := loadCard(t, db, card.ID); stored == nil {
		t.Fatal("active card must survive a bad redemption")
	}
}

func TestConsumeRewardOwnerMismatch(t *testing.T) {
	svc, db, node := setupCardService(t)
	card := seedCard(t, db, domain.Card{
		ID:              node.Generate(),
		StoreID:         "store_a",
		OwnerID:         "owner_14",
		Stamps:          10,
		Goal:            10,
		Status:          domain.StatusReward,
		RewardAvailable: true,
	})

	_, err := svc.ConsumeReward(context.Background(), domain.ConsumeRewardRequest{
		StoreID: "store_a",
		OwnerID: "someone_else",
		CardID:  card.ID.String(),
	})
	if err != domain.ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if stored := loadCard(t, db, card.ID); stored == nil {
		t.Fatal("reward must survive a foreign redemption attempt")
	}
}

func TestListAndRemove(t *testing.T) {
	svc, db, node := setupCardService(t)
	first := seedCard(t, db, domain.Card{
		ID:        node.Generate(),
		StoreID:   "store_a",
		OwnerID:   "owner_15",
		Goal:      10,
		Status:    domain.StatusActive,
		CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	second := seedCard(t, db, domain.Card{
		ID:        node.Generate(),
		StoreID:   "store_b",
		OwnerID:   "owner_15",
		Goal:      10,
		Status:    domain.StatusReward,
		CreatedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	})

	cards, err := svc.List(context.Background(), domain.ListRequest{OwnerID: "owner_15"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != 2 || cards[0].ID != first.ID || cards[1].ID != second.ID {
		t.Fatalf("unexpected list: %+v", cards)
	}

	if err := svc.Remove(context.Background(), domain.RemoveRequest{
		OwnerID: "someone_else",
		CardID:  first.ID.String(),
	}); err != domain.ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if err := svc.Remove(context.Background(), domain.RemoveRequest{
		OwnerID: "owner_15",
		CardID:  first.ID.String(),
	}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if countCards(t, db, "owner_15") != 1 {
		t.Fatal("expected one card left")
	}
}

func TestCreateDefaultsGoal(t *testing.T) {
	svc, db, _ := setupCardService(t)

	card, err := svc.Create(context.Background(), domain.CreateRequest{
		StoreID: "store_a",
		OwnerID: "owner_16",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if card.Goal != 10 || card.Status != domain.StatusActive {
		t.Fatalf("unexpected card: %+v", card)
	}

	stored := loadCard(t, db, card.ID)
	if stored == nil || stored.Goal != 10 {
		t.Fatalf("unexpected stored card: %+v", stored)
	}

	if _, err := svc.Create(context.Background(), domain.CreateRequest{
		StoreID: "store_a",
		OwnerID: "owner_16",
		Goal:    -3,
	}); err != domain.ErrInvalidGoal {
		t.Fatalf("expected invalid goal, got %v", err)
	}
}
