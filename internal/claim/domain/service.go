package domain

import (
	"context"
	"errors"

	carddomain "github.com/smallbiznis/loyala/internal/card/domain"
)

type ResolveRequest struct {
	Token   string
	OwnerID carddomain.OwnerID
}

// ResolveResult reports the card a claim token resolved to. Existing is
// true when the card predates this call (re-claim, or dedup against a
// card the customer already held).
type ResolveResult struct {
	CardID   string            `json:"cardId"`
	StoreID  string            `json:"storeId"`
	Status   carddomain.Status `json:"status"`
	Existing bool              `json:"existing"`
}

type CreateRequest struct {
	StoreID string
}

type CreateResult struct {
	Token string `json:"token"`
}

type Service interface {
	// Resolve maps a claim token plus a customer identifier to exactly
	// one card, creating the card on first use. Idempotent per token.
	Resolve(context.Context, ResolveRequest) (ResolveResult, error)
	// Create mints a one-time claim token pre-bound to a store.
	Create(context.Context, CreateRequest) (CreateResult, error)
}

var (
	ErrInvalidToken      = errors.New("invalid_token")
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidStore      = errors.New("invalid_store")
	ErrUnresolvableStore = errors.New("unresolvable_store")
	ErrConflict          = errors.New("claim_conflict")
)
