// Package render turns a statement result into a printable PDF.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	"github.com/smallbiznis/royalty/pkg/money"
)

const dateLayout = "2006-01-02"

type StatementDocument struct {
	StatementID string
	IssuedAt    time.Time
	Result      royaltydomain.Result
}

var (
	cell      = props.Text{Size: 9}
	cellRight = props.Text{Size: 9, Align: align.Right}
	head      = props.Text{Size: 9, Style: fontstyle.Bold}
	headRight = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
)

func RenderPDF(doc StatementDocument) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	res := doc.Result

	m.AddRow(12,
		text.NewCol(12, "Royalty statement", props.Text{Size: 18, Style: fontstyle.Bold}),
	)
	m.AddRow(22,
		col.New(6).Add(
			text.New("Statement: "+doc.StatementID, props.Text{Size: 9}),
			text.New("Contract: "+res.ContractID, props.Text{Size: 9, Top: 4}),
			text.New("Title: "+res.TitleID, props.Text{Size: 9, Top: 8}),
			text.New("Author: "+authorLabel(res.AuthorID), props.Text{Size: 9, Top: 12}),
		),
		col.New(6).Add(
			text.New("Period: "+periodLabel(res.Period), props.Text{Size: 9, Align: align.Right}),
			text.New("Issued: "+doc.IssuedAt.UTC().Format(dateLayout), props.Text{Size: 9, Top: 4, Align: align.Right}),
			text.New("Tier mode: "+string(res.TierMode), props.Text{Size: 9, Top: 8, Align: align.Right}),
		),
	)

	for _, f := range res.Formats {
		addFormat(m, f)
	}

	m.AddRow(6)
	addTotal(m, "Returns deduction", money.Fixed(res.ReturnsDeduction), false)
	addTotal(m, "Gross royalty", money.Fixed(res.GrossRoyalty), false)
	addTotal(m, "Advance", money.Fixed(res.Advance.OriginalAdvance), false)
	addTotal(m, "Previously recouped", money.Fixed(res.Advance.PreviouslyRecouped), false)
	addTotal(m, "Recouped this period", money.Fixed(res.Advance.ThisPeriodRecoupment), false)
	addTotal(m, "Remaining advance", money.Fixed(res.Advance.RemainingAdvance), false)
	addTotal(m, "Net payable", money.Fixed(res.NetPayable), true)

	if res.Split != nil {
		m.AddRow(6)
		m.AddRow(8, text.NewCol(12, "Co-author split", props.Text{Size: 11, Style: fontstyle.Bold}))
		m.AddRow(7,
			text.NewCol(6, "Author", head),
			text.NewCol(3, "Ownership %", headRight),
			text.NewCol(3, "Share", headRight),
		)
		for _, a := range res.Split.Allocations {
			m.AddRow(6,
				text.NewCol(6, a.AuthorID, cell),
				text.NewCol(3, a.Percentage.StringFixed(2), cellRight),
				text.NewCol(3, money.Fixed(a.Amount), cellRight),
			)
		}
		addTotal(m, "Payable to "+res.Split.AuthorID, money.Fixed(res.Split.AuthorShare), true)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render statement %s: %w", doc.StatementID, err)
	}
	return out.GetBytes(), nil
}

func addFormat(m core.Maroto, f royaltydomain.FormatBreakdown) {
	m.AddRow(6)
	m.AddRow(8, text.NewCol(12, strings.ToUpper(string(f.Format)), props.Text{Size: 11, Style: fontstyle.Bold}))
	m.AddRow(7,
		text.NewCol(3, "Units", head),
		text.NewCol(2, "Rate", headRight),
		text.NewCol(2, "Quantity", headRight),
		text.NewCol(3, "Revenue", headRight),
		text.NewCol(2, "Royalty", headRight),
	)
	for _, s := range f.Tiers {
		m.AddRow(6,
			text.NewCol(3, tierRange(s.MinQuantity, s.MaxQuantity), cell),
			text.NewCol(2, s.Rate.String(), cellRight),
			text.NewCol(2, s.Quantity.String(), cellRight),
			text.NewCol(3, money.Fixed(s.Revenue), cellRight),
			text.NewCol(2, money.Fixed(s.Royalty), cellRight),
		)
	}
	m.AddRow(6,
		text.NewCol(3, fmt.Sprintf("Returned %s units", f.Sales.ReturnedQuantity.String()), cell),
		col.New(2),
		text.NewCol(2, f.Quantity.String(), headRight),
		text.NewCol(3, money.Fixed(f.Revenue), headRight),
		text.NewCol(2, money.Fixed(f.Royalty), headRight),
	)
}

func addTotal(m core.Maroto, label, value string, bold bool) {
	style := cell
	valueStyle := cellRight
	if bold {
		style = head
		valueStyle = headRight
	}
	m.AddRow(6,
		col.New(6),
		text.NewCol(3, label, style),
		text.NewCol(3, value, valueStyle),
	)
}

func tierRange(min decimal.Decimal, max *decimal.Decimal) string {
	if max == nil {
		return min.String() + "+"
	}
	return min.String() + " - " + max.String()
}

func authorLabel(authorID string) string {
	if authorID == "" {
		return "all authors"
	}
	return authorID
}

func periodLabel(p catalogdomain.Period) string {
	return p.Start.UTC().Format(dateLayout) + " to " + p.End.UTC().Format(dateLayout)
}

// FileName is a filesystem and URL safe name for the statement PDF.
func FileName(titleID, authorID string, period catalogdomain.Period) string {
	parts := []string{"royalty statement", titleID}
	if authorID != "" {
		parts = append(parts, authorID)
	}
	parts = append(parts, period.Start.UTC().Format(dateLayout), period.End.UTC().Format(dateLayout))
	return slug.Make(strings.Join(parts, " ")) + ".pdf"
}
