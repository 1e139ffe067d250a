// Package domain nets returned units and revenue against gross sales per
// format before any tier is resolved.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
)

var (
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
)

// SaleRecord is an immutable sale line. Quantity is never negative.
type SaleRecord struct {
	ID              string               `json:"id,omitempty"`
	Format          catalogdomain.Format `json:"format"`
	Quantity        decimal.Decimal      `json:"quantity"`
	UnitPrice       decimal.Decimal      `json:"unit_price"`
	TransactionDate time.Time            `json:"transaction_date"`
}

func (r SaleRecord) Revenue() decimal.Decimal { return r.Quantity.Mul(r.UnitPrice) }

// ReturnRecord is its own typed record; it never mutates a sale. Quantity is
// the positive number of units handed back.
type ReturnRecord struct {
	ID              string               `json:"id,omitempty"`
	Format          catalogdomain.Format `json:"format"`
	Quantity        decimal.Decimal      `json:"quantity"`
	UnitPrice       decimal.Decimal      `json:"unit_price"`
	TransactionDate time.Time            `json:"transaction_date"`
}

func (r ReturnRecord) Revenue() decimal.Decimal { return r.Quantity.Mul(r.UnitPrice) }

// NettedTotals is gross sales less returns for one format. Net figures may
// be negative when returns exceed the period's sales.
type NettedTotals struct {
	Format           catalogdomain.Format `json:"format"`
	GrossQuantity    decimal.Decimal      `json:"gross_quantity"`
	GrossRevenue     decimal.Decimal      `json:"gross_revenue"`
	ReturnedQuantity decimal.Decimal      `json:"returned_quantity"`
	ReturnedRevenue  decimal.Decimal      `json:"returned_revenue"`
	NetQuantity      decimal.Decimal      `json:"net_quantity"`
	NetRevenue       decimal.Decimal      `json:"net_revenue"`
}

func zeroTotals(f catalogdomain.Format) NettedTotals {
	return NettedTotals{
		Format:           f,
		GrossQuantity:    decimal.Zero,
		GrossRevenue:     decimal.Zero,
		ReturnedQuantity: decimal.Zero,
		ReturnedRevenue:  decimal.Zero,
		NetQuantity:      decimal.Zero,
		NetRevenue:       decimal.Zero,
	}
}

// NetSales aggregates sales and returns by format.
func NetSales(sales []SaleRecord, returns []ReturnRecord) (map[catalogdomain.Format]NettedTotals, error) {
	out := make(map[catalogdomain.Format]NettedTotals)

	for _, s := range sales {
		if err := validateLine("sale", s.Format, s.Quantity, s.UnitPrice); err != nil {
			return nil, err
		}
		t, ok := out[s.Format]
		if !ok {
			t = zeroTotals(s.Format)
		}
		t.GrossQuantity = t.GrossQuantity.Add(s.Quantity)
		t.GrossRevenue = t.GrossRevenue.Add(s.Revenue())
		out[s.Format] = t
	}

	for _, r := range returns {
		if err := validateLine("return", r.Format, r.Quantity, r.UnitPrice); err != nil {
			return nil, err
		}
		t, ok := out[r.Format]
		if !ok {
			t = zeroTotals(r.Format)
		}
		t.ReturnedQuantity = t.ReturnedQuantity.Add(r.Quantity)
		t.ReturnedRevenue = t.ReturnedRevenue.Add(r.Revenue())
		out[r.Format] = t
	}

	for f, t := range out {
		t.NetQuantity = t.GrossQuantity.Sub(t.ReturnedQuantity)
		t.NetRevenue = t.GrossRevenue.Sub(t.ReturnedRevenue)
		out[f] = t
	}

	return out, nil
}

// ReturnsDeduction sums returned revenue over every format.
func ReturnsDeduction(totals map[catalogdomain.Format]NettedTotals) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.ReturnedRevenue)
	}
	return sum
}

func validateLine(kind string, f catalogdomain.Format, qty, price decimal.Decimal) error {
	if !f.Valid() {
		return calcerr.Invalid(kind+".format", catalogdomain.ErrInvalidFormat)
	}
	if qty.IsNegative() {
		return calcerr.Invalid(kind+".quantity", ErrInvalidQuantity)
	}
	if price.IsNegative() {
		return calcerr.Invalid(kind+".unit_price", ErrInvalidUnitPrice)
	}
	return nil
}

// FilterSales keeps records dated within the period.
func FilterSales(records []SaleRecord, period catalogdomain.Period) []SaleRecord {
	out := make([]SaleRecord, 0, len(records))
	for _, r := range records {
		if period.Contains(r.TransactionDate) {
			out = append(out, r)
		}
	}
	return out
}

// FilterReturns keeps records dated within the period.
func FilterReturns(records []ReturnRecord, period catalogdomain.Period) []ReturnRecord {
	out := make([]ReturnRecord, 0, len(records))
	for _, r := range records {
		if period.Contains(r.TransactionDate) {
			out = append(out, r)
		}
	}
	return out
}
