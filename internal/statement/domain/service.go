package domain

import (
	"context"
	"errors"
	"time"

	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
	"github.com/smallbiznis/royalty/pkg/db/pagination"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type Service interface {
	// Generate calculates a statement. In dry_run mode nothing is written;
	// in commit mode the statement, the advance movement and its ledger
	// entry are stored together.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Get(ctx context.Context, id string) (*Statement, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	// Document renders a committed statement as a PDF.
	Document(ctx context.Context, id string) (*DocumentResponse, error)
}

type GenerateRequest struct {
	ContractID  string    `json:"contract_id"`
	AuthorID    string    `json:"author_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	AsOf        time.Time `json:"as_of"`
	Mode        string    `json:"mode"`
}

type GenerateResponse struct {
	Statement *Statement            `json:"statement,omitempty"`
	Result    *royaltydomain.Result `json:"result"`
}

type ListRequest struct {
	pagination.Pagination
	ContractID string `form:"contract_id"`
	AuthorID   string `form:"author_id"`
}

type ListResponse struct {
	Items    []*Statement         `json:"items"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type DocumentResponse struct {
	FileName string
	Content  []byte
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrStatementExists  = errors.New("statement_exists")
	ErrConcurrentCommit = errors.New("concurrent_commit")
	ErrNotFound         = errors.New("statement_not_found")
)
