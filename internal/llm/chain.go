package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Chain tries generators in order and returns the first answer.
type Chain struct {
	generators []Generator
	logger     *zap.Logger
}

// NewChain creates a fallback chain.
func NewChain(logger *zap.Logger, generators ...Generator) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{generators: generators, logger: logger}
}

// Name lists the providers in order.
func (c *Chain) Name() string {
	names := make([]string, len(c.generators))
	for i, g := range c.generators {
		names[i] = g.Name()
	}
	return strings.Join(names, ">")
}

// Len returns the number of providers.
func (c *Chain) Len() int { return len(c.generators) }

// Generate returns the first successful answer. When all providers fail
// the error wraps ErrGeneration and every provider error.
func (c *Chain) Generate(ctx context.Context, req Request) (string, error) {
	if len(c.generators) == 0 {
		return "", fmt.Errorf("%w: no providers configured", ErrGeneration)
	}

	errs := []error{ErrGeneration}
	for _, g := range c.generators {
		start := time.Now()
		out, err := g.Generate(ctx, req)
		if err == nil {
			c.logger.Info("generation succeeded",
				zap.String("provider", g.Name()),
				zap.Int("attachments", len(req.Attachments)),
				zap.Duration("took", time.Since(start)))
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Join(append(errs, ctxErr)...)
		}
		c.logger.Warn("generation provider failed, falling back",
			zap.String("provider", g.Name()),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
	}
	return "", errors.Join(errs...)
}
