package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc processes one raw payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

// TypedHandlerFunc processes a decoded payload.
type TypedHandlerFunc[T any] func(ctx context.Context, msg *T) error

// JSONAdapter decodes the payload into T before calling handler.
// Unknown fields are ignored so older operators keep working.
func JSONAdapter[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		msg := new(T)
		if err := json.Unmarshal(payload, msg); err != nil {
			return fmt.Errorf("json unmarshal failed: %w", err)
		}
		return handler(ctx, msg)
	}
}
