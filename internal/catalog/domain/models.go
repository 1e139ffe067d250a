// Package domain holds the catalog vocabulary shared by the royalty engine:
// distribution formats and statement periods.
package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Format is a distribution format a title is sold in.
type Format string

const (
	FormatHardcover Format = "hardcover"
	FormatPaperback Format = "paperback"
	FormatEbook     Format = "ebook"
	FormatAudiobook Format = "audiobook"
)

var (
	ErrInvalidFormat = errors.New("invalid_format")
	ErrInvalidPeriod = errors.New("invalid_period")
)

func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	if !f.Valid() {
		return "", ErrInvalidFormat
	}
	return f, nil
}

func (f Format) Valid() bool {
	switch f {
	case FormatHardcover, FormatPaperback, FormatEbook, FormatAudiobook:
		return true
	default:
		return false
	}
}

// SortFormats returns formats in a stable order so results are reproducible.
func SortFormats(formats []Format) []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Period is a statement window in UTC covering [Start, End). Adjacent
// periods share their boundary instant without double counting it.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: start.UTC(), End: end.UTC()}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || !p.End.After(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether t falls in [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}
