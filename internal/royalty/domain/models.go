// Package domain contains the snapshots the royalty calculator consumes and
// the itemized result it produces.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	advancedomain "github.com/smallbiznis/royalty/internal/advance/domain"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	returnsdomain "github.com/smallbiznis/royalty/internal/returns/domain"
	tierdomain "github.com/smallbiznis/royalty/internal/tier/domain"
)

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusSuspended  ContractStatus = "suspended"
	ContractStatusTerminated ContractStatus = "terminated"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractStatusActive, ContractStatusSuspended, ContractStatusTerminated:
		return true
	default:
		return false
	}
}

// Contract is an immutable snapshot of a royalty contract. Records dated
// before EffectiveFrom belong to an earlier agreement; zero means unbounded.
type Contract struct {
	ID              string
	TitleID         string
	Status          ContractStatus
	AdvanceAmount   decimal.Decimal
	AdvanceRecouped decimal.Decimal
	TierMode        lifetimedomain.Mode
	EffectiveFrom   time.Time
	Tiers           map[catalogdomain.Format]tierdomain.Schedule
}

// InvocationMode tells downstream collaborators whether a result may be
// persisted. The calculator itself behaves the same in both modes.
type InvocationMode string

const (
	ModeCommit InvocationMode = "commit"
	ModeDryRun InvocationMode = "dry_run"
)

func (m InvocationMode) Valid() bool {
	return m == ModeCommit || m == ModeDryRun
}

// OwnershipContext names the author a result is being produced for.
type OwnershipContext struct {
	AuthorID string
	Set      ownershipdomain.Set
}

// Request is everything one calculation needs. Sales and returns outside
// the period, or dated after AsOf, are ignored.
type Request struct {
	Contract  Contract
	Period    catalogdomain.Period
	AsOf      time.Time
	Mode      InvocationMode
	Sales     []returnsdomain.SaleRecord
	Returns   []returnsdomain.ReturnRecord
	Prior     map[catalogdomain.Format]lifetimedomain.Totals
	Ownership *OwnershipContext
}

// FormatBreakdown itemizes one format.
type FormatBreakdown struct {
	Format   catalogdomain.Format       `json:"format"`
	Sales    returnsdomain.NettedTotals `json:"sales"`
	Quantity decimal.Decimal            `json:"quantity"`
	Revenue  decimal.Decimal            `json:"revenue"`
	Tiers    []tierdomain.Slice         `json:"tiers"`
	Royalty  decimal.Decimal            `json:"royalty"`
	Lifetime lifetimedomain.Context     `json:"lifetime"`
}

// Split reports one author's part of a multi-author title.
type Split struct {
	TitleRoyalty        decimal.Decimal              `json:"title_royalty"`
	AuthorID            string                       `json:"author_id"`
	OwnershipPercentage decimal.Decimal              `json:"ownership_percentage"`
	AuthorShare         decimal.Decimal              `json:"author_share"`
	Allocations         []ownershipdomain.Allocation `json:"allocations"`
}

// Result is the full audit trail of a calculation.
type Result struct {
	ContractID       string                   `json:"contract_id"`
	TitleID          string                   `json:"title_id"`
	AuthorID         string                   `json:"author_id,omitempty"`
	Mode             InvocationMode           `json:"mode"`
	TierMode         lifetimedomain.Mode      `json:"tier_mode"`
	Period           catalogdomain.Period     `json:"period"`
	AsOf             time.Time                `json:"as_of"`
	Formats          []FormatBreakdown        `json:"formats"`
	ReturnsDeduction decimal.Decimal          `json:"returns_deduction"`
	GrossRoyalty     decimal.Decimal          `json:"gross_royalty"`
	Advance          advancedomain.Recoupment `json:"advance"`
	NetBeforeFloor   decimal.Decimal          `json:"net_before_floor"`
	NetPayable       decimal.Decimal          `json:"net_payable"`
	AuthorPayable    decimal.Decimal          `json:"author_payable"`
	Split            *Split                   `json:"split,omitempty"`
}
