package domain

import (
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/loyala/internal/card/domain"
)

// Claim is a one-time binding from a token to a card. The sanitized token
// is its primary key, so a token maps to at most one card forever.
type Claim struct {
	ClaimKey string              `gorm:"primaryKey;column:claim_key" json:"-"`
	Token    string              `gorm:"not null" json:"token"`
	StoreID  string              `gorm:"not null" json:"storeId"`
	OwnerID  carddomain.OwnerID  `json:"ownerId,omitempty"`
	CardID   *snowflake.ID       `json:"cardId,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// MaxKeyLen bounds the claim storage key.
const MaxKeyLen = 200

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// KeyFromToken derives the claim storage key from a raw token by dropping
// every character outside [A-Za-z0-9_-] and truncating to MaxKeyLen.
//
// The derivation is lossy, so distinct tokens could collide after
// sanitization; ValidToken rejects any token the derivation would alter,
// which keeps the key space bijective for accepted tokens.
func KeyFromToken(token string) string {
	key := unsafeKeyChars.ReplaceAllString(token, "")
	if len(key) > MaxKeyLen {
		key = key[:MaxKeyLen]
	}
	return key
}

// ValidToken reports whether the token survives key derivation unchanged.
func ValidToken(token string) bool {
	return token != "" && KeyFromToken(token) == token
}
