package service

import (
	"time"

	"github.com/shopspring/decimal"
	advancedomain "github.com/smallbiznis/royalty/internal/advance/domain"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	returnsdomain "github.com/smallbiznis/royalty/internal/returns/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	tierdomain "github.com/smallbiznis/royalty/internal/tier/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
)

// Calculate assembles a royalty result from snapshots. It reads no clock
// and touches no storage, so identical requests give identical results.
//
// Formats are processed in a fixed order. Each format's royalty keeps its
// sign; only the final net payable is floored at zero.
func Calculate(req royaltydomain.Request, policy money.Policy) (*royaltydomain.Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	window := effectiveWindow(req.Period, req.Contract.EffectiveFrom, req.AsOf)
	totals, err := returnsdomain.NetSales(
		returnsdomain.FilterSales(req.Sales, window),
		returnsdomain.FilterReturns(req.Returns, window),
	)
	if err != nil {
		return nil, err
	}

	formats := make([]catalogdomain.Format, 0, len(totals))
	for f := range totals {
		formats = append(formats, f)
	}
	formats = catalogdomain.SortFormats(formats)

	breakdowns := make([]royaltydomain.FormatBreakdown, 0, len(formats))
	gross := decimal.Zero
	for _, f := range formats {
		line, err := calculateFormat(req, f, totals[f], policy)
		if err != nil {
			return nil, err
		}
		gross = gross.Add(line.Royalty)
		breakdowns = append(breakdowns, line)
	}

	recoupment, err := advancedomain.Recoup(gross, req.Contract.AdvanceAmount, req.Contract.AdvanceRecouped)
	if err != nil {
		return nil, err
	}

	result := &royaltydomain.Result{
		ContractID:       req.Contract.ID,
		TitleID:          req.Contract.TitleID,
		Mode:             req.Mode,
		TierMode:         req.Contract.TierMode,
		Period:           req.Period,
		AsOf:             window.End,
		Formats:          breakdowns,
		ReturnsDeduction: policy.Round(returnsdomain.ReturnsDeduction(totals)),
		GrossRoyalty:     gross,
		Advance:          recoupment,
		NetBeforeFloor:   recoupment.NetPayable,
		NetPayable:       money.FloorZero(recoupment.NetPayable),
	}
	result.AuthorPayable = result.NetPayable

	if req.Ownership != nil {
		if err := applyOwnership(result, *req.Ownership, policy); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func calculateFormat(req royaltydomain.Request, f catalogdomain.Format, totals returnsdomain.NettedTotals, policy money.Policy) (royaltydomain.FormatBreakdown, error) {
	schedule, ok := req.Contract.Tiers[f]
	if !ok || schedule.IsZero() {
		return royaltydomain.FormatBreakdown{}, calcerr.Misconfigured("tiers."+string(f), royaltydomain.ErrMissingFormatTiers)
	}

	period := lifetimedomain.Totals{Quantity: totals.NetQuantity, Revenue: totals.NetRevenue}
	lc, err := lifetimedomain.Build(req.Contract.TierMode, req.Prior[f], period, schedule)
	if err != nil {
		return royaltydomain.FormatBreakdown{}, err
	}

	res := tierdomain.Resolve(schedule, lc.Baseline(), totals.NetQuantity, totals.NetRevenue, policy)

	return royaltydomain.FormatBreakdown{
		Format:   f,
		Sales:    totals,
		Quantity: res.Quantity,
		Revenue:  res.Revenue,
		Tiers:    res.Slices,
		Royalty:  res.Royalty,
		Lifetime: lc,
	}, nil
}

func applyOwnership(result *royaltydomain.Result, oc royaltydomain.OwnershipContext, policy money.Policy) error {
	set := oc.Set
	if set.Len() == 0 {
		return calcerr.Misconfigured("ownership", royaltydomain.ErrInvalidContract)
	}
	if set.TitleID() != result.TitleID {
		return calcerr.Misconfigured("ownership.title_id", royaltydomain.ErrOwnershipTitleMismatch)
	}

	authorID := oc.AuthorID
	if authorID == "" {
		authorID = set.Primary().AuthorID
	}
	mine, err := set.AllocationFor(authorID, result.NetPayable, policy)
	if err != nil {
		return err
	}
	result.AuthorID = authorID

	if !set.IsMultiAuthor() {
		return nil
	}

	result.AuthorPayable = mine.Amount
	result.Split = &royaltydomain.Split{
		TitleRoyalty:        result.NetPayable,
		AuthorID:            authorID,
		OwnershipPercentage: mine.Percentage,
		AuthorShare:         mine.Amount,
		Allocations:         set.Allocate(result.NetPayable, policy),
	}
	return nil
}

// effectiveWindow clips the period to the contract start and the as-of date.
func effectiveWindow(p catalogdomain.Period, from, asOf time.Time) catalogdomain.Period {
	if from.After(p.Start) {
		p.Start = from
	}
	if !asOf.IsZero() && asOf.Before(p.End) {
		p.End = asOf
	}
	return p
}

func validateRequest(req royaltydomain.Request) error {
	c := req.Contract
	if c.ID == "" || c.TitleID == "" {
		return calcerr.Invalid("contract", royaltydomain.ErrInvalidContract)
	}
	if !c.Status.Valid() {
		return calcerr.Invalid("contract.status", royaltydomain.ErrInvalidContractStatus)
	}
	if c.TierMode != lifetimedomain.ModePeriod && c.TierMode != lifetimedomain.ModeLifetime {
		return calcerr.Invalid("contract.tier_mode", lifetimedomain.ErrInvalidMode)
	}
	if len(c.Tiers) == 0 {
		return calcerr.Misconfigured("tiers", royaltydomain.ErrMissingFormatTiers)
	}
	if err := req.Period.Validate(); err != nil {
		return calcerr.Invalid("period", err)
	}
	if !req.AsOf.IsZero() && req.AsOf.Before(req.Period.Start) {
		return calcerr.Invalid("as_of", catalogdomain.ErrInvalidPeriod)
	}
	if !req.Mode.Valid() {
		return calcerr.Invalid("mode", royaltydomain.ErrInvalidInvocationMode)
	}
	return nil
}
