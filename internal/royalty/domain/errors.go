package domain

import "errors"

var (
	ErrInvalidContract        = errors.New("invalid_contract")
	ErrInvalidContractStatus  = errors.New("invalid_contract_status")
	ErrInvalidInvocationMode  = errors.New("invalid_invocation_mode")
	ErrMissingFormatTiers     = errors.New("missing_format_tiers")
	ErrOwnershipTitleMismatch = errors.New("ownership_title_mismatch")
	ErrContractNotFound       = errors.New("contract_not_found")
	ErrContractNotCalculable  = errors.New("contract_not_calculable")
)
