package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/royalty/internal/batch"
	"github.com/smallbiznis/royalty/internal/config"
	contractdomain "github.com/smallbiznis/royalty/internal/contract/domain"
	liabilitydomain "github.com/smallbiznis/royalty/internal/liability/domain"
	"github.com/smallbiznis/royalty/internal/observability"
	ownershipdomain "github.com/smallbiznis/royalty/internal/ownership/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	royaltyservice "github.com/smallbiznis/royalty/internal/royalty/service"
	salesdomain "github.com/smallbiznis/royalty/internal/sales/domain"
	statementdomain "github.com/smallbiznis/royalty/internal/statement/domain"
	"github.com/smallbiznis/royalty/internal/statement/mocks"
	"github.com/smallbiznis/royalty/pkg/calcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeContractService struct {
	contractdomain.Service
	getErr error
}

func (f *fakeContractService) Get(ctx context.Context, id string) (*contractdomain.RoyaltyContract, error) {
	_ = ctx
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &contractdomain.RoyaltyContract{ID: snowflake.ID(101), TitleID: "title-1"}, nil
}

type fakeSalesService struct {
	salesdomain.Service
}

func (f *fakeSalesService) Append(ctx context.Context, req salesdomain.AppendRequest) (*salesdomain.AppendResponse, error) {
	_ = ctx
	if req.TitleID == "" {
		return nil, calcerr.Invalid("title_id", salesdomain.ErrInvalidTitle)
	}
	return &salesdomain.AppendResponse{TitleID: req.TitleID, Sales: len(req.Sales), Returns: len(req.Returns)}, nil
}

type fakeOwnershipStore struct {
	ownershipdomain.Store
}

func (f *fakeOwnershipStore) LoadSet(ctx context.Context, titleID string) (*ownershipdomain.Set, error) {
	_ = ctx
	_ = titleID
	return nil, nil
}

type fakeLiabilityService struct{}

func (fakeLiabilityService) Summary(ctx context.Context, req liabilitydomain.SummaryRequest) (*liabilitydomain.Summary, error) {
	_ = ctx
	return &liabilitydomain.Summary{
		Authors:      []liabilitydomain.AuthorLiability{{AuthorID: req.AuthorID, Statements: 1, Payable: decimal.RequireFromString("250.20")}},
		TotalPayable: decimal.RequireFromString("250.20"),
	}, nil
}

type fakeBatchRunner struct {
	last batch.Request
}

func (f *fakeBatchRunner) Run(ctx context.Context, req batch.Request) (*batch.Report, error) {
	_ = ctx
	f.last = req
	return &batch.Report{CorrelationID: "01TEST", Mode: royaltydomain.ModeDryRun, DryRun: 2}, nil
}

type testServer struct {
	srv        *Server
	statements *mocks.MockService
	contracts  *fakeContractService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	ts := &testServer{
		statements: mocks.NewMockService(ctrl),
		contracts:  &fakeContractService{},
	}
	ts.srv = NewServer(ServerParams{
		Gin:          NewEngine(observability.Config{}, nil),
		Cfg:          config.Config{Environment: "test"},
		Calculator:   royaltyservice.NewService(royaltyservice.ServiceParam{Log: zap.NewNop()}),
		ContractSvc:  ts.contracts,
		SalesSvc:     &fakeSalesService{},
		Ownership:    &fakeOwnershipStore{},
		StatementSvc: ts.statements,
		LiabilitySvc: fakeLiabilityService{},
	})
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

const calculateBody = `{
	"contract": {
		"id": "c-1",
		"title_id": "title-1",
		"advance_amount": "50.00",
		"advance_recouped": "0",
		"tier_mode": "period",
		"tiers": {
			"hardcover": [
				{"min_quantity": "1000", "rate": "0.15"},
				{"min_quantity": "0", "max_quantity": "999", "rate": "0.10"}
			]
		}
	},
	"period_start": "2026-01-01T00:00:00Z",
	"period_end": "2026-03-31T23:59:59Z",
	"sales": [
		{"format": "hardcover", "quantity": "100", "unit_price": "10.00", "transaction_date": "2026-02-01T00:00:00Z"}
	]
}`

func TestCalculateRoyalty_DryRunFromSnapshot(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/royalties/calculate", calculateBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data royaltydomain.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, royaltydomain.ModeDryRun, resp.Data.Mode)
	assert.True(t, decimal.RequireFromString("100").Equal(resp.Data.GrossRoyalty), resp.Data.GrossRoyalty.String())
	assert.True(t, decimal.RequireFromString("50").Equal(resp.Data.NetPayable), resp.Data.NetPayable.String())
	assert.True(t, decimal.RequireFromString("50").Equal(resp.Data.AuthorPayable), resp.Data.AuthorPayable.String())
}

func TestCalculateRoyalty_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/royalties/calculate", `{"contract":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Errors[0].Code)

	gap := bytes.Replace([]byte(calculateBody), []byte(`"min_quantity": "1000"`), []byte(`"min_quantity": "1200"`), 1)
	rec = ts.do(http.MethodPost, "/v1/royalties/calculate", string(gap))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "configuration_error", payload.Type)
	assert.Equal(t, "tiers", payload.Errors[0].Field)

	badMode := bytes.Replace([]byte(calculateBody), []byte(`"tier_mode": "period"`), []byte(`"tier_mode": "weekly"`), 1)
	rec = ts.do(http.MethodPost, "/v1/royalties/calculate", string(badMode))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_tier_mode", decodeError(t, rec).Errors[0].Code)
}

func TestGenerateStatement(t *testing.T) {
	ts := newTestServer(t)

	req := statementdomain.GenerateRequest{ContractID: "101", AuthorID: "a-1", Mode: "commit"}
	ts.statements.EXPECT().
		Generate(gomock.Any(), req).
		Return(&statementdomain.GenerateResponse{
			Statement: &statementdomain.Statement{ID: snowflake.ID(9001), ContractID: snowflake.ID(101)},
			Result:    &royaltydomain.Result{Mode: royaltydomain.ModeCommit},
		}, nil)
	ts.statements.EXPECT().
		Generate(gomock.Any(), req).
		Return(nil, statementdomain.ErrStatementExists)

	rec := ts.do(http.MethodPost, "/v1/statements", req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/v1/statements", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "statement_exists", decodeError(t, rec).Message)
}

func TestGetStatementDocument(t *testing.T) {
	ts := newTestServer(t)

	ts.statements.EXPECT().
		Document(gomock.Any(), "9001").
		Return(&statementdomain.DocumentResponse{FileName: "royalty-statement.pdf", Content: []byte("%PDF-1.4")}, nil)
	ts.statements.EXPECT().
		Document(gomock.Any(), "404").
		Return(nil, statementdomain.ErrNotFound)

	rec := ts.do(http.MethodGet, "/v1/statements/9001/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "royalty-statement.pdf")
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	rec = ts.do(http.MethodGet, "/v1/statements/404/pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContractAndOwnershipLookups(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/contracts/101", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.contracts.getErr = contractdomain.ErrNotFound
	rec = ts.do(http.MethodGet, "/v1/contracts/102", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/titles/title-9/ownership", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppendSalesAndLiability(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/sales", salesdomain.AppendRequest{
		TitleID: "title-1",
		Sales:   []salesdomain.LineInput{{Format: "ebook", Quantity: "3", UnitPrice: "4.99"}},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/sales", salesdomain.AppendRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title_id", decodeError(t, rec).Errors[0].Field)

	rec = ts.do(http.MethodGet, "/v1/liability?author_id=a-1&from=2026-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"author_id":"a-1"`)
}

func TestRunBatch(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/batches", batch.Request{Mode: "dry_run"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	runner := &fakeBatchRunner{}
	ts.srv.batches = runner
	rec = ts.do(http.MethodPost, "/v1/batches", batch.Request{ContractIDs: []string{"101", "102"}, Mode: "dry_run"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"101", "102"}, runner.last.ContractIDs)
	assert.Contains(t, rec.Body.String(), `"correlation_id":"01TEST"`)
}

func TestMapError_Taxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{name: "parse", err: &calcerr.ParseError{Field: "amount", Value: "x", Err: calcerr.ErrMalformedDecimal}, status: http.StatusBadRequest, kind: "validation_error"},
		{name: "configuration", err: calcerr.Misconfigured("ownership", ownershipdomain.ErrEmptyOwnership), status: http.StatusUnprocessableEntity, kind: "configuration_error"},
		{name: "concurrent commit", err: statementdomain.ErrConcurrentCommit, status: http.StatusConflict, kind: "conflict"},
		{name: "terminated", err: contractdomain.ErrContractTerminated, status: http.StatusConflict, kind: "conflict"},
		{name: "period open", err: calcerr.Invalid("period_end", batch.ErrPeriodOpen), status: http.StatusBadRequest, kind: "validation_error"},
		{name: "internal", err: context.DeadlineExceeded, status: http.StatusInternalServerError, kind: "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}
