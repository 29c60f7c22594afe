// Package requestid carries the correlation id of an inbound request through
// to outbound backend calls.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header used on both inbound and outbound requests.
const Header = "X-Request-Id"

type key struct{}

// New returns a fresh request id.
func New() string {
	return "req_" + uuid.New().String()[:22]
}

// With returns a copy of ctx carrying id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// From returns the id stored in ctx, or "".
func From(ctx context.Context) string {
	if id, ok := ctx.Value(key{}).(string); ok {
		return id
	}
	return ""
}
