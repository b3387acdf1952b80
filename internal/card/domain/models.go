package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the card lifecycle state. A card moves active -> reward once
// and is deleted on redemption; it never transitions back.
type Status string

const (
	StatusActive Status = "active"
	StatusReward Status = "reward"
)

// DefaultGoal is used when a card's stored goal is missing or corrupted.
const DefaultGoal = 10

// OwnerID is a client-supplied customer identifier. There is no proof of
// possession behind it: two devices can present the same value and one
// physical customer can hold many. Code receiving an OwnerID must treat
// it as an opaque, unauthenticated capability, never as an identity.
type OwnerID string

func (o OwnerID) String() string {
	return string(o)
}

// Card is a single stamp-accrual record for one (store, customer) pairing
// in one accrual cycle.
type Card struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	StoreID         string       `gorm:"not null;index" json:"storeId"`
	OwnerID         OwnerID      `gorm:"not null;index" json:"ownerId"`
	Stamps          int          `gorm:"not null;default:0" json:"stamps"`
	Goal            int          `gorm:"not null;default:10" json:"goal"`
	Status          Status       `gorm:"not null;default:active" json:"status"`
	RewardAvailable bool         `gorm:"not null;default:false" json:"rewardAvailable"`
	RewardsUsed     int          `gorm:"not null;default:0" json:"rewardsUsed"`

	// LegacyActive is the deprecated pre-status encoding: "true", the
	// store id, or "active". Nil on every card written by this code.
	LegacyActive *string `gorm:"column:active" json:"-"`

	// SourceToken is the claim token that produced this card, for audit.
	// Nil on cards spawned by rollover.
	SourceToken *string `gorm:"column:source_token" json:"sourceToken,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// Normalize resolves the card's canonical status, tolerating the legacy
// active-column encoding. It returns the normalized card and whether the
// stored document needs a repair write. The translation is pure; the
// caller decides when to persist the repair.
func Normalize(c Card) (Card, bool) {
	if c.Status == StatusActive || c.Status == StatusReward {
		return c, false
	}

	// The legacy column only speaks for cards written before the status
	// field existed; an unknown status stays unknown.
	if c.Status == "" && legacyActive(c.LegacyActive, c.StoreID) {
		c.Status = StatusActive
		c.LegacyActive = nil
		return c, true
	}

	return c, false
}

func legacyActive(legacy *string, storeID string) bool {
	if legacy == nil {
		return false
	}
	switch *legacy {
	case "true", storeID:
		return true
	}
	return strings.EqualFold(*legacy, "active")
}

// EffectiveGoal returns the card's goal, falling back to the default when
// the stored value is missing or non-positive.
func (c Card) EffectiveGoal() int {
	if c.Goal > 0 {
		return c.Goal
	}
	return DefaultGoal
}

// EffectiveStamps returns the card's stamp count clamped to non-negative.
func (c Card) EffectiveStamps() int {
	if c.Stamps < 0 {
		return 0
	}
	return c.Stamps
}
