package server

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	lifetimedomain "github.com/smallbiznis/royalty/internal/lifetime/domain"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	returnsdomain "github.com/smallbiznis/royalty/internal/returns/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	tierdomain "github.com/smallbiznis/royalty/internal/tier/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
)

type contractSnapshot struct {
	ID              string                      `json:"id"`
	TitleID         string                      `json:"title_id"`
	Status          string                      `json:"status"`
	AdvanceAmount   decimal.Decimal             `json:"advance_amount"`
	AdvanceRecouped decimal.Decimal             `json:"advance_recouped"`
	TierMode        string                      `json:"tier_mode"`
	EffectiveFrom   time.Time                   `json:"effective_from"`
	Tiers           map[string][]tierdomain.Row `json:"tiers"`
}

type ownershipSnapshot struct {
	AuthorID string                  `json:"author_id"`
	Shares   []ownershipdomain.Share `json:"shares"`
}

// calculateRequest is a self-contained dry run: nothing is loaded from or
// written to storage.
type calculateRequest struct {
	Contract    contractSnapshot                 `json:"contract"`
	PeriodStart time.Time                        `json:"period_start"`
	PeriodEnd   time.Time                        `json:"period_end"`
	AsOf        time.Time                        `json:"as_of"`
	Sales       []returnsdomain.SaleRecord       `json:"sales"`
	Returns     []returnsdomain.ReturnRecord     `json:"returns"`
	Prior       map[string]lifetimedomain.Totals `json:"prior"`
	Ownership   *ownershipSnapshot               `json:"ownership"`
}

func (s *Server) CalculateRoyalty(c *gin.Context) {
	var body calculateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req, err := body.toRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("contract_id", req.Contract.ID)

	result, err := s.calculator.Calculate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (b calculateRequest) toRequest() (royaltydomain.Request, error) {
	contract, err := b.Contract.toContract()
	if err != nil {
		return royaltydomain.Request{}, err
	}

	period, err := catalogdomain.NewPeriod(b.PeriodStart, b.PeriodEnd)
	if err != nil {
		return royaltydomain.Request{}, calcerr.Invalid("period", err)
	}

	req := royaltydomain.Request{
		Contract: contract,
		Period:   period,
		AsOf:     b.AsOf,
		Mode:     royaltydomain.ModeDryRun,
		Sales:    b.Sales,
		Returns:  b.Returns,
	}

	if len(b.Prior) > 0 {
		req.Prior = make(map[catalogdomain.Format]lifetimedomain.Totals, len(b.Prior))
		for raw, totals := range b.Prior {
			format, err := catalogdomain.ParseFormat(raw)
			if err != nil {
				return royaltydomain.Request{}, calcerr.Invalid("prior", err)
			}
			req.Prior[format] = totals
		}
	}

	if b.Ownership != nil {
		set, err := ownershipdomain.NewSet(contract.TitleID, b.Ownership.Shares)
		if err != nil {
			return royaltydomain.Request{}, err
		}
		req.Ownership = &royaltydomain.OwnershipContext{
			AuthorID: strings.TrimSpace(b.Ownership.AuthorID),
			Set:      set,
		}
	}
	return req, nil
}

func (c contractSnapshot) toContract() (royaltydomain.Contract, error) {
	status := royaltydomain.ContractStatusActive
	if raw := strings.TrimSpace(c.Status); raw != "" {
		status = royaltydomain.ContractStatus(strings.ToLower(raw))
		if !status.Valid() {
			return royaltydomain.Contract{}, calcerr.Invalid("contract.status", royaltydomain.ErrInvalidContractStatus)
		}
	}

	mode, err := lifetimedomain.ParseMode(c.TierMode)
	if err != nil {
		return royaltydomain.Contract{}, err
	}

	schedules := make(map[catalogdomain.Format]tierdomain.Schedule, len(c.Tiers))
	for raw, rows := range c.Tiers {
		format, err := catalogdomain.ParseFormat(raw)
		if err != nil {
			return royaltydomain.Contract{}, calcerr.Invalid("contract.tiers", err)
		}
		sorted := append([]tierdomain.Row(nil), rows...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinQuantity.LessThan(sorted[j].MinQuantity) })
		schedule, err := tierdomain.FromRows(sorted)
		if err != nil {
			return royaltydomain.Contract{}, err
		}
		schedules[format] = schedule
	}

	id := strings.TrimSpace(c.ID)
	if id == "" {
		id = "dry-run"
	}
	return royaltydomain.Contract{
		ID:              id,
		TitleID:         strings.TrimSpace(c.TitleID),
		Status:          status,
		AdvanceAmount:   c.AdvanceAmount,
		AdvanceRecouped: c.AdvanceRecouped,
		TierMode:        mode,
		EffectiveFrom:   c.EffectiveFrom.UTC(),
		Tiers:           schedules,
	}, nil
}
