package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/royalty/internal/batch"
	"github.com/smallbiznis/royalty/internal/config"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	liabilitydomain "github.com/smallbiznis/royalty/internal/liability/domain"
	"github.com/smallbiznis/royalty/internal/observability"
	obsmiddleware "github.com/smallbiznis/royalty/internal/observability/logger"
	obstracing "github.com/smallbiznis/royalty/internal/observability/tracing"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	salesdomain "github.com/smallbiznis/royalty/internal/sales/domain"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
	"github.com/smallbiznis/royalty/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// BatchRunner runs statement batches.
type BatchRunner interface {
	Run(ctx context.Context, req batch.Request) (*batch.Report, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *telemetry.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(requestMetrics(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *telemetry.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	calculator   royaltydomain.Calculator
	contractSvc  contractdomain.Service
	salesSvc     salesdomain.Service
	ownership    ownershipdomain.Store
	statementSvc statementdomain.Service
	liabilitySvc liabilitydomain.Service
	batches      BatchRunner
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Calculator   royaltydomain.Calculator
	ContractSvc  contractdomain.Service
	SalesSvc     salesdomain.Service
	Ownership    ownershipdomain.Store
	StatementSvc statementdomain.Service
	LiabilitySvc liabilitydomain.Service
	Batches      *batch.Runner `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		calculator:   p.Calculator,
		contractSvc:  p.ContractSvc,
		salesSvc:     p.SalesSvc,
		ownership:    p.Ownership,
		statementSvc: p.StatementSvc,
		liabilitySvc: p.LiabilitySvc,
	}
	if p.Batches != nil {
		svc.batches = p.Batches
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	// -------- Calculator --------
	api.POST("/royalties/calculate", s.CalculateRoyalty)

	// -------- Contracts --------
	api.GET("/contracts", s.ListContracts)
	api.POST("/contracts", s.CreateContract)
	api.GET("/contracts/:id", s.GetContractByID)
	api.PATCH("/contracts/:id/status", s.UpdateContractStatus)
	api.POST("/contracts/:id/advance-payments", s.RecordAdvancePayment)

	// -------- Sales --------
	api.POST("/sales", s.AppendSales)

	// -------- Ownership --------
	api.GET("/titles/:id/ownership", s.GetOwnership)
	api.PUT("/titles/:id/ownership", s.ReplaceOwnership)

	// -------- Statements --------
	api.GET("/statements", s.ListStatements)
	api.POST("/statements", s.GenerateStatement)
	api.GET("/statements/:id", s.GetStatementByID)
	api.GET("/statements/:id/pdf", s.GetStatementDocument)

	// -------- Reporting --------
	api.GET("/liability", s.GetLiability)
	api.POST("/batches", s.RunBatch)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
