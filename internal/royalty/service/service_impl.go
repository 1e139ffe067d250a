package service

import (
	"context"
	"time"

	obsmetrics "github.com/smallbiznis/royalty/internal/observability/metrics"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/smallbiznis/royalty/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PolicySource hands out the rounding policy currently in force.
type PolicySource interface {
	Policy() money.Policy
}

type Service struct {
	log     *zap.Logger
	metrics *obsmetrics.Metrics
	policy  PolicySource
}

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Policy  PolicySource
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) royaltydomain.Calculator {
	return &Service{
		log:     p.Log.Named("royalty.service"),
		metrics: p.Metrics,
		policy:  p.Policy,
	}
}

func (s *Service) Calculate(ctx context.Context, req royaltydomain.Request) (*royaltydomain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	policy := money.DefaultPolicy
	if s.policy != nil {
		policy = s.policy.Policy()
	}

	start := time.Now()
	result, err := Calculate(req, policy)
	elapsed := time.Since(start)
	if err != nil {
		class := calcerr.Classify(err)
		s.metrics.RecordCalculation(ctx, string(req.Mode), string(class), elapsed)
		s.log.Warn("royalty calculation rejected",
			zap.String("contract_id", req.Contract.ID),
			zap.String("class", string(class)),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordCalculation(ctx, string(req.Mode), "ok", elapsed)
	s.log.Debug("royalty calculated",
		zap.String("contract_id", result.ContractID),
		zap.String("mode", string(result.Mode)),
		zap.Int("formats", len(result.Formats)),
		zap.String("gross_royalty", money.Fixed(result.GrossRoyalty)),
		zap.String("net_payable", money.Fixed(result.NetPayable)),
	)
	return result, nil
}
