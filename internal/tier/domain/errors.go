package domain

import "errors"

var (
	ErrEmptySchedule      = errors.New("empty_tier_schedule")
	ErrInvalidMinQuantity = errors.New("invalid_min_quantity")
	ErrInvalidMaxQuantity = errors.New("invalid_max_quantity")
	ErrInvalidRate        = errors.New("invalid_rate")
	ErrFirstTierStart     = errors.New("first_tier_must_start_at_zero_or_one")
	ErrTierGap            = errors.New("tier_gap")
	ErrTierOverlap        = errors.New("tier_overlap")
	ErrUnboundedNotLast   = errors.New("unbounded_tier_not_last")
	ErrMissingUnbounded   = errors.New("missing_unbounded_tier")
)
