package requestid

import (
	"context"

	"github.com/google/uuid"
)

const maxLen = 128

type ctxKey struct{}

// Resolve keeps a caller-supplied request ID when it is safe to echo into
// logs and headers, and generates a UUID v4 otherwise.
func Resolve(incoming string) string {
	if incoming == "" || len(incoming) > maxLen {
		return uuid.NewString()
	}
	for _, r := range incoming {
		if r < 0x21 || r > 0x7e {
			return uuid.NewString()
		}
	}
	return incoming
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
