package domain

import "errors"

var (
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidAuthor        = errors.New("invalid_author")
	ErrInvalidPercentage    = errors.New("invalid_percentage")
	ErrDuplicateAuthor      = errors.New("duplicate_author")
	ErrEmptyOwnership       = errors.New("empty_ownership")
	ErrOwnershipSumMismatch = errors.New("ownership_sum_mismatch")
	ErrPrimaryAuthorCount   = errors.New("primary_author_count")
	ErrAuthorNotOnTitle     = errors.New("author_not_on_title")
)
