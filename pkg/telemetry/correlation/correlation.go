// Package correlation threads one identifier through every log line, span
// and statement produced on behalf of a single request or batch run.
package correlation

import (
	"context"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// Header carries a caller supplied correlation id over HTTP.
const Header = "X-Correlation-Id"

const maxLength = 64

type ctxKey struct{}

func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// EnsureCorrelationID returns ctx unchanged when it already carries an id,
// otherwise a child context holding a fresh one.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return ContextWithCorrelationID(ctx, id), id
}

// NewID returns a lexically sortable id, so batch runs list in start order.
func NewID() string {
	return ulid.Make().String()
}

// Sanitize accepts a caller supplied id only when it is short and printable;
// anything else is dropped so it cannot pollute log fields.
func Sanitize(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxLength {
		return ""
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			return ""
		}
	}
	return id
}
