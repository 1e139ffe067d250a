// Package domain models co-author ownership of a title.
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
)

const percentagePlaces int32 = 2

// Share is one author's claim on a title's royalty.
type Share struct {
	AuthorID   string          `json:"author_id"`
	Percentage decimal.Decimal `json:"percentage"`
	IsPrimary  bool            `json:"is_primary"`
}

// Set is a validated ownership split. The zero value is not usable; build
// one with NewSet so the sum and primary invariants always hold.
type Set struct {
	titleID string
	shares  []Share
}

// NewSet validates shares and returns an immutable Set.
func NewSet(titleID string, shares []Share) (Set, error) {
	titleID = strings.TrimSpace(titleID)
	if titleID == "" {
		return Set{}, calcerr.Invalid("title_id", ErrInvalidTitle)
	}
	if len(shares) == 0 {
		return Set{}, calcerr.Misconfigured("ownership", ErrEmptyOwnership)
	}

	seen := make(map[string]struct{}, len(shares))
	normalized := make([]Share, 0, len(shares))
	percentages := make([]decimal.Decimal, 0, len(shares))
	primaries := 0
	for _, share := range shares {
		authorID := strings.TrimSpace(share.AuthorID)
		if authorID == "" {
			return Set{}, calcerr.Invalid("author_id", ErrInvalidAuthor)
		}
		if _, dup := seen[authorID]; dup {
			return Set{}, calcerr.Invalid("author_id", ErrDuplicateAuthor)
		}
		seen[authorID] = struct{}{}

		if err := validatePercentage(share.Percentage); err != nil {
			return Set{}, err
		}
		if share.IsPrimary {
			primaries++
		}

		normalized = append(normalized, Share{
			AuthorID:   authorID,
			Percentage: share.Percentage,
			IsPrimary:  share.IsPrimary,
		})
		percentages = append(percentages, share.Percentage)
	}

	if sum := ValidateOwnershipSum(percentages); !sum.Valid {
		return Set{}, calcerr.Misconfigured("ownership", ErrOwnershipSumMismatch)
	}
	if primaries != 1 {
		return Set{}, calcerr.Misconfigured("ownership", ErrPrimaryAuthorCount)
	}

	return Set{titleID: titleID, shares: normalized}, nil
}

// SoleAuthor is the single-author shortcut: one primary row at 100%.
func SoleAuthor(titleID, authorID string) (Set, error) {
	return NewSet(titleID, []Share{{AuthorID: authorID, Percentage: money.Hundred, IsPrimary: true}})
}

// EqualShares builds a Set that splits the title evenly between authorIDs.
// The first author is primary.
func EqualShares(titleID string, authorIDs []string) (Set, error) {
	split := EqualSplit(uint32(len(authorIDs)))
	shares := make([]Share, len(authorIDs))
	for i, authorID := range authorIDs {
		shares[i] = Share{AuthorID: authorID, Percentage: split[i], IsPrimary: i == 0}
	}
	return NewSet(titleID, shares)
}

func validatePercentage(pct decimal.Decimal) error {
	if !pct.IsPositive() || pct.GreaterThan(money.Hundred) {
		return calcerr.Invalid("percentage", ErrInvalidPercentage)
	}
	if !money.HasAtMostPlaces(pct, percentagePlaces) {
		return calcerr.Invalid("percentage", ErrInvalidPercentage)
	}
	return nil
}

func (s Set) TitleID() string { return s.titleID }

func (s Set) Len() int { return len(s.shares) }

func (s Set) IsMultiAuthor() bool { return len(s.shares) > 1 }

// Shares returns a copy of the rows in their original order.
func (s Set) Shares() []Share {
	out := make([]Share, len(s.shares))
	copy(out, s.shares)
	return out
}

func (s Set) Share(authorID string) (Share, bool) {
	authorID = strings.TrimSpace(authorID)
	for _, share := range s.shares {
		if share.AuthorID == authorID {
			return share, true
		}
	}
	return Share{}, false
}

func (s Set) Primary() Share {
	for _, share := range s.shares {
		if share.IsPrimary {
			return share
		}
	}
	return Share{}
}

// Allocation is one author's portion of an amount.
type Allocation struct {
	AuthorID   string          `json:"author_id"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Allocate splits amount by ownership. Each portion is rounded by policy and
// the last author absorbs the rounding remainder, so the portions add up to
// amount exactly.
func (s Set) Allocate(amount decimal.Decimal, policy money.Policy) []Allocation {
	out := make([]Allocation, len(s.shares))
	allocated := decimal.Zero
	last := len(s.shares) - 1
	for i, share := range s.shares {
		portion := amount.Sub(allocated)
		if i != last {
			portion = policy.Round(money.Percent(amount, share.Percentage))
			allocated = allocated.Add(portion)
		}
		out[i] = Allocation{
			AuthorID:   share.AuthorID,
			Percentage: share.Percentage,
			Amount:     portion,
		}
	}
	return out
}

// AllocationFor returns authorID's portion of amount under Allocate.
func (s Set) AllocationFor(authorID string, amount decimal.Decimal, policy money.Policy) (Allocation, error) {
	authorID = strings.TrimSpace(authorID)
	for _, alloc := range s.Allocate(amount, policy) {
		if alloc.AuthorID == authorID {
			return alloc, nil
		}
	}
	return Allocation{}, calcerr.Invalid("author_id", ErrAuthorNotOnTitle)
}
