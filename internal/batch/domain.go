package batch

import (
	"errors"
	"time"

	catalogdomain "github.com/smallbiznis/royalty/internal/catalog/domain"
	royaltydomain "github.com/smallbiznis/royalty/internal/royalty/domain"
)

// Request selects the contracts for one statement run. An empty
// ContractIDs runs every contract that is not terminated.
type Request struct {
	ContractIDs []string  `json:"contract_ids"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	AsOf        time.Time `json:"as_of"`
	Mode        string    `json:"mode"`
}

// Outcome is the result for one contract and author. Err is set for
// failures; the batch itself never fails because of one contract.
type Outcome struct {
	ContractID  string                `json:"contract_id"`
	AuthorID    string                `json:"author_id,omitempty"`
	Status      string                `json:"status"`
	Reason      string                `json:"reason,omitempty"`
	StatementID string                `json:"statement_id,omitempty"`
	Result      *royaltydomain.Result `json:"result,omitempty"`
	Err         error                 `json:"-"`
	Error       string                `json:"error,omitempty"`
}

type Report struct {
	CorrelationID string                       `json:"correlation_id"`
	Mode          royaltydomain.InvocationMode `json:"mode"`
	Period        catalogdomain.Period         `json:"period"`
	Outcomes      []Outcome                    `json:"outcomes"`
	Committed     int                          `json:"committed"`
	DryRun        int                          `json:"dry_run"`
	Skipped       int                          `json:"skipped"`
	Failed        int                          `json:"failed"`
	Cancelled     bool                         `json:"cancelled"`
}

var ErrPeriodOpen = errors.New("period_not_closed")
