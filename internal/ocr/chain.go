package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

var ErrNoText = errors.New("engine returned no text")

// Chain tries engines in order and returns the first non-empty result.
// A hosted engine backed by a local one keeps pages readable when the
// remote service is down or rate limited.
type Chain struct {
	engines []Engine
	logger  *slog.Logger
}

func NewChain(logger *slog.Logger, engines ...Engine) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{engines: engines, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.engines))
	for i, e := range c.engines {
		names[i] = e.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *Chain) Recognize(ctx context.Context, in Input) (Result, error) {
	lastErr := ErrNoText
	for _, e := range c.engines {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := e.Recognize(ctx, in)
		if err != nil {
			c.logger.Debug("ocr.chain.engine_failed", "engine", e.Name(), "input_id", in.ID, "error", err)
			lastErr = err
			continue
		}
		if strings.TrimSpace(res.Text) == "" {
			lastErr = ErrNoText
			continue
		}
		return res, nil
	}
	return Result{}, lastErr
}
