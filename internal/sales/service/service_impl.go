package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	returnsdomain "github.com/smallbiznis/royalty/internal/returns/domain"
	salesdomain "github.com/smallbiznis/royalty/internal/sales/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/db/option"
	"github.com/smallbiznis/royalty/pkg/money"
	"github.com/smallbiznis/royalty/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	sales   repository.Repository[salesdomain.SaleRow]
	returns repository.Repository[salesdomain.ReturnRow]
}

func New(p Params) salesdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("sales.service"),
		genID:   p.GenID,
		sales:   repository.ProvideStore[salesdomain.SaleRow](p.DB),
		returns: repository.ProvideStore[salesdomain.ReturnRow](p.DB),
	}
}

// Append validates every line before writing any of them; the batch is
// stored in one transaction or not at all.
func (s *Service) Append(ctx context.Context, req salesdomain.AppendRequest) (*salesdomain.AppendResponse, error) {
	titleID := strings.TrimSpace(req.TitleID)
	if titleID == "" {
		return nil, calcerr.Invalid("title_id", salesdomain.ErrInvalidTitle)
	}
	if len(req.Sales) == 0 && len(req.Returns) == 0 {
		return nil, calcerr.Invalid("sales", salesdomain.ErrEmptyAppend)
	}

	saleRows := make([]*salesdomain.SaleRow, 0, len(req.Sales))
	saleRecords := make([]returnsdomain.SaleRecord, 0, len(req.Sales))
	for _, in := range req.Sales {
		line, err := parseLine("sale", in)
		if err != nil {
			return nil, err
		}
		row := &salesdomain.SaleRow{
			ID:              s.genID.Generate(),
			TitleID:         titleID,
			Format:          line.format,
			Quantity:        line.record.Quantity,
			UnitPrice:       line.record.UnitPrice,
			TransactionDate: line.record.TransactionDate,
		}
		saleRows = append(saleRows, row)
		saleRecords = append(saleRecords, row.Record())
	}

	returnRows := make([]*salesdomain.ReturnRow, 0, len(req.Returns))
	returnRecords := make([]returnsdomain.ReturnRecord, 0, len(req.Returns))
	for _, in := range req.Returns {
		line, err := parseLine("return", in)
		if err != nil {
			return nil, err
		}
		row := &salesdomain.ReturnRow{
			ID:              s.genID.Generate(),
			TitleID:         titleID,
			SaleID:          line.saleID,
			Format:          line.format,
			Quantity:        line.record.Quantity,
			UnitPrice:       line.record.UnitPrice,
			TransactionDate: line.record.TransactionDate,
		}
		returnRows = append(returnRows, row)
		returnRecords = append(returnRecords, row.Record())
	}

	// Same checks the calculator applies, so stored lines always net cleanly.
	if _, err := returnsdomain.NetSales(saleRecords, returnRecords); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.sales.WithTrx(tx).BatchCreate(ctx, saleRows); err != nil {
			return err
		}
		return s.returns.WithTrx(tx).BatchCreate(ctx, returnRows)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sales appended",
		zap.String("title_id", titleID),
		zap.Int("sales", len(saleRows)),
		zap.Int("returns", len(returnRows)),
	)
	return &salesdomain.AppendResponse{TitleID: titleID, Sales: len(saleRows), Returns: len(returnRows)}, nil
}

func (s *Service) ListInPeriod(ctx context.Context, titleID string, period catalogdomain.Period) (*salesdomain.PeriodRecords, error) {
	titleID = strings.TrimSpace(titleID)
	if titleID == "" {
		return nil, calcerr.Invalid("title_id", salesdomain.ErrInvalidTitle)
	}
	if err := period.Validate(); err != nil {
		return nil, calcerr.Invalid("period", err)
	}

	window := option.WithWhere("transaction_date >= ? AND transaction_date < ?", period.Start.UTC(), period.End.UTC())
	order := option.WithSortBy(option.WithQuerySortBy("transaction_date", "asc", map[string]bool{"transaction_date": true}))

	sales, err := s.sales.Find(ctx, &salesdomain.SaleRow{TitleID: titleID}, window, order)
	if err != nil {
		return nil, err
	}
	returns, err := s.returns.Find(ctx, &salesdomain.ReturnRow{TitleID: titleID}, window, order)
	if err != nil {
		return nil, err
	}

	out := &salesdomain.PeriodRecords{
		Sales:   make([]returnsdomain.SaleRecord, 0, len(sales)),
		Returns: make([]returnsdomain.ReturnRecord, 0, len(returns)),
	}
	for _, row := range sales {
		out.Sales = append(out.Sales, row.Record())
	}
	for _, row := range returns {
		out.Returns = append(out.Returns, row.Record())
	}
	return out, nil
}

// PriorTotals sums in Go rather than SQL so decimal results stay exact on
// every dialect.
func (s *Service) PriorTotals(ctx context.Context, titleID string, since, before time.Time) (map[catalogdomain.Format]lifetimedomain.Totals, error) {
	titleID = strings.TrimSpace(titleID)
	if titleID == "" {
		return nil, calcerr.Invalid("title_id", salesdomain.ErrInvalidTitle)
	}

	window := option.WithWhere("transaction_date < ?", before.UTC())
	if !since.IsZero() {
		window = option.WithWhere("transaction_date >= ? AND transaction_date < ?", since.UTC(), before.UTC())
	}
	sales, err := s.sales.Find(ctx, &salesdomain.SaleRow{TitleID: titleID}, window)
	if err != nil {
		return nil, err
	}
	returns, err := s.returns.Find(ctx, &salesdomain.ReturnRow{TitleID: titleID}, window)
	if err != nil {
		return nil, err
	}

	saleRecords := make([]returnsdomain.SaleRecord, 0, len(sales))
	for _, row := range sales {
		saleRecords = append(saleRecords, row.Record())
	}
	returnRecords := make([]returnsdomain.ReturnRecord, 0, len(returns))
	for _, row := range returns {
		returnRecords = append(returnRecords, row.Record())
	}

	netted, err := returnsdomain.NetSales(saleRecords, returnRecords)
	if err != nil {
		return nil, err
	}

	out := make(map[catalogdomain.Format]lifetimedomain.Totals, len(netted))
	for format, totals := range netted {
		out[format] = lifetimedomain.Totals{Quantity: totals.NetQuantity, Revenue: totals.NetRevenue}
	}
	return out, nil
}

type parsedLine struct {
	format catalogdomain.Format
	saleID *snowflake.ID
	record returnsdomain.SaleRecord
}

func parseLine(kind string, in salesdomain.LineInput) (parsedLine, error) {
	format, err := catalogdomain.ParseFormat(in.Format)
	if err != nil {
		return parsedLine{}, calcerr.Invalid(kind+".format", err)
	}
	qty, err := money.Parse(kind+".quantity", in.Quantity)
	if err != nil {
		return parsedLine{}, err
	}
	price, err := money.Parse(kind+".unit_price", in.UnitPrice)
	if err != nil {
		return parsedLine{}, err
	}
	if in.TransactionDate.IsZero() {
		return parsedLine{}, calcerr.Invalid(kind+".transaction_date", salesdomain.ErrInvalidTransactionDate)
	}

	line := parsedLine{
		format: format,
		record: returnsdomain.SaleRecord{
			Format:          format,
			Quantity:        qty,
			UnitPrice:       price,
			TransactionDate: in.TransactionDate.UTC(),
		},
	}
	if raw := strings.TrimSpace(in.SaleID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return parsedLine{}, calcerr.Invalid(kind+".sale_id", salesdomain.ErrInvalidSaleID)
		}
		line.saleID = &id
	}
	return line, nil
}
