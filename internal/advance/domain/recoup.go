// Package domain applies earned royalty against an outstanding advance.
// Nothing here mutates the advance ledger; callers persist the delta.
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
)

var (
	ErrInvalidAdvanceAmount   = errors.New("invalid_advance_amount")
	ErrInvalidRecoupedAmount  = errors.New("invalid_recouped_amount")
	ErrInvalidPaymentAmount   = errors.New("invalid_payment_amount")
	ErrPaymentExceedsAdvance  = errors.New("payment_exceeds_advance")
	ErrAdvanceAlreadyRecouped = errors.New("advance_already_recouped")
)

// Recoupment is the outcome of applying one period's gross royalty.
type Recoupment struct {
	OriginalAdvance      decimal.Decimal `json:"original_advance"`
	PreviouslyRecouped   decimal.Decimal `json:"previously_recouped"`
	ThisPeriodRecoupment decimal.Decimal `json:"this_period_recoupment"`
	RemainingAdvance     decimal.Decimal `json:"remaining_advance"`
	NetPayable           decimal.Decimal `json:"net_payable"`
}

// Recoup deducts gross royalty from the outstanding advance. A negative
// gross royalty never gives back recouped advance; it passes through to
// NetPayable unchanged so the caller can floor it at the final step.
func Recoup(grossRoyalty, advanceAmount, previouslyRecouped decimal.Decimal) (Recoupment, error) {
	if advanceAmount.IsNegative() {
		return Recoupment{}, calcerr.Invalid("advance_amount", ErrInvalidAdvanceAmount)
	}
	if previouslyRecouped.IsNegative() {
		return Recoupment{}, calcerr.Invalid("advance_recouped", ErrInvalidRecoupedAmount)
	}

	outstanding := money.FloorZero(advanceAmount.Sub(previouslyRecouped))
	recouped := decimal.Min(money.FloorZero(grossRoyalty), outstanding)

	return Recoupment{
		OriginalAdvance:      advanceAmount,
		PreviouslyRecouped:   previouslyRecouped,
		ThisPeriodRecoupment: recouped,
		RemainingAdvance:     money.FloorZero(outstanding.Sub(recouped)),
		NetPayable:           grossRoyalty.Sub(recouped),
	}, nil
}

// MaxAdditionalPayment is the largest manual advance payment that keeps the
// recouped total within the advance.
func MaxAdditionalPayment(advanceAmount, currentPaid decimal.Decimal) decimal.Decimal {
	return money.FloorZero(advanceAmount.Sub(currentPaid))
}

// ValidateAdditionalPayment checks a manual payment against MaxAdditionalPayment.
func ValidateAdditionalPayment(advanceAmount, currentPaid, payment decimal.Decimal) error {
	if !payment.IsPositive() {
		return calcerr.Invalid("payment_amount", ErrInvalidPaymentAmount)
	}
	limit := MaxAdditionalPayment(advanceAmount, currentPaid)
	if limit.IsZero() {
		return calcerr.Invalid("payment_amount", ErrAdvanceAlreadyRecouped)
	}
	if payment.GreaterThan(limit) {
		return calcerr.Invalid("payment_amount", ErrPaymentExceedsAdvance)
	}
	return nil
}
