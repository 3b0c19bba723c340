package vision

import (
	"context"
	"log/slog"
)

// Gateway fronts the configured provider with a deterministic fallback.
// Provider failures (missing credential, network, auth, quota, malformed
// response) are never surfaced to callers; the gateway substitutes the
// fallback result and marks it as such, so downstream code can treat the
// data as low-trust without handling transport errors.
type Gateway struct {
	provider Detector // nil when no credential is configured
	fallback Detector
	logger   *slog.Logger
}

// NewGateway builds a gateway. provider may be nil.
func NewGateway(provider Detector, logger *slog.Logger) *Gateway {
	return &Gateway{
		provider: provider,
		fallback: NewFallbackDetector(),
		logger:   logger,
	}
}

func (g *Gateway) Detect(ctx context.Context, image []byte) (*Result, error) {
	if g.provider == nil {
		g.logger.Warn("vision provider not configured, using fallback detection")
		return g.fallback.Detect(ctx, image)
	}

	result, err := g.provider.Detect(ctx, image)
	if err != nil {
		g.logger.Warn("vision provider call failed, using fallback detection", "error", err)
		return g.fallback.Detect(ctx, image)
	}
	return result, nil
}
