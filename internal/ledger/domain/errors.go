package domain

import "errors"

var (
	ErrInvalidContract   = errors.New("invalid_contract")
	ErrInvalidSourceType = errors.New("invalid_source_type")
	ErrInvalidSourceID   = errors.New("invalid_source_id")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidOccurredAt = errors.New("invalid_occurred_at")
)
