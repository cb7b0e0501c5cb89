package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/ports"
)

// RequestKey is the fixed storage key holding the pending authorization
// request between the redirect and the callback.
const RequestKey = "pulse:auth_request"

func saveRequest(ctx context.Context, store ports.Store, req *core.AuthRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode auth request: %w", err)
	}
	if err := store.Set(ctx, RequestKey, string(payload)); err != nil {
		return fmt.Errorf("failed to persist auth request: %w", err)
	}
	return nil
}

// loadRequest returns the pending request, or (nil, nil) when none exists.
func loadRequest(ctx context.Context, store ports.Store) (*core.AuthRequest, error) {
	payload, err := store.Get(ctx, RequestKey)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load auth request: %w", err)
	}
	var req core.AuthRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("failed to decode auth request: %w", err)
	}
	return &req, nil
}

// Discard removes any pending authorization request. Used on provider
// errors and by sign-out, which also clears request remnants.
func Discard(ctx context.Context, store ports.Store) error {
	return store.Delete(ctx, RequestKey)
}
