package domain

import (
	"context"
	"errors"
	"time"

	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*RoyaltyContract, error)
	Get(ctx context.Context, id string) (*RoyaltyContract, error)
	List(ctx context.Context, req ListRequest) ([]RoyaltyContract, error)
	UpdateStatus(ctx context.Context, id string, status string) (*RoyaltyContract, error)
	RecordAdditionalAdvancePayment(ctx context.Context, req AdvancePaymentRequest) (*RoyaltyContract, error)
	// Snapshot loads the contract as an immutable calculator input. Broken
	// tier rows surface as configuration errors here.
	Snapshot(ctx context.Context, id string) (royaltydomain.Contract, error)
}

type TierInput struct {
	MinQuantity string  `json:"min_quantity"`
	MaxQuantity *string `json:"max_quantity"`
	Rate        string  `json:"rate"`
}

type CreateRequest struct {
	TitleID         string                 `json:"title_id"`
	TierMode        string                 `json:"tier_mode"`
	AdvanceAmount   string                 `json:"advance_amount"`
	AdvanceRecouped string                 `json:"advance_recouped"`
	Tiers           map[string][]TierInput `json:"tiers"`
	// EffectiveFrom starts the lifetime count. Left empty, the first contract
	// on a title counts its whole history and later ones start at creation.
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
}

type ListRequest struct {
	TitleID string `form:"title_id"`
	Status  string `form:"status"`
	Limit   int    `form:"limit"`
}

type AdvancePaymentRequest struct {
	ContractID string `json:"-"`
	Amount     string `json:"amount"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidTitle       = errors.New("invalid_title")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrContractTerminated = errors.New("contract_terminated")
	ErrRecoupedExceeds    = errors.New("advance_recouped_exceeds_advance")
	ErrConcurrentUpdate   = errors.New("concurrent_contract_update")
	ErrNotFound           = royaltydomain.ErrContractNotFound
)
