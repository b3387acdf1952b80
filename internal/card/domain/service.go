package domain

import (
	"context"
	"errors"
)

type AddStampsRequest struct {
	StoreID string
	OwnerID OwnerID
	CardID  string
	Delta   float64

	// PresentedSecret is the raw x-scan-secret header value. Checked
	// against the store's configured secret before any card read.
	PresentedSecret string
}

// AccrualResult reports the outcome of one accrual. On rollover,
// ActiveCardID points at the replacement card the scanner should keep
// using and CreatedRewardIDs lists every card that became a reward,
// the original first.
type AccrualResult struct {
	Stamps           int      `json:"stamps"`
	Goal             int      `json:"goal"`
	RewardAvailable  bool     `json:"rewardAvailable"`
	RolledOver       bool     `json:"rolledOver"`
	ActiveCardID     string   `json:"activeCardId"`
	RewardCardID     string   `json:"rewardCardId,omitempty"`
	CreatedRewardIDs []string `json:"createdRewardIds"`
	Surplus          int      `json:"surplus"`
}

type ConsumeRewardRequest struct {
	StoreID string
	OwnerID OwnerID
	CardID  string
}

type ConsumeRewardResult struct {
	Deleted     bool `json:"deleted"`
	AlreadyGone bool `json:"alreadyGone"`
}

type ListRequest struct {
	OwnerID OwnerID
}

type RemoveRequest struct {
	OwnerID OwnerID
	CardID  string
}

type CreateRequest struct {
	StoreID string
	OwnerID OwnerID
	Goal    int
}

type Service interface {
	AddStamps(context.Context, AddStampsRequest) (AccrualResult, error)
	ConsumeReward(context.Context, ConsumeRewardRequest) (ConsumeRewardResult, error)
	List(context.Context, ListRequest) ([]Card, error)
	Remove(context.Context, RemoveRequest) error
	Create(context.Context, CreateRequest) (Card, error)
}

var (
	ErrInvalidStore = errors.New("invalid_store")
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidCard  = errors.New("invalid_card")
	ErrInvalidDelta = errors.New("invalid_delta")
	ErrInvalidGoal  = errors.New("invalid_goal")
	ErrNotFound     = errors.New("card_not_found")
	ErrForbidden    = errors.New("forbidden")
	ErrNotActive    = errors.New("card_not_active")
	ErrNotAReward   = errors.New("card_not_a_reward")
	ErrConflict     = errors.New("transaction_conflict")
)
