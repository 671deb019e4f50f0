package engine

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/chainsafe/advent-agent/internal/metrics"
	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	"github.com/chainsafe/advent-agent/pkg/transport"
)

const textMaxLen = 50

// logEngine wraps Engine with logging of every handled message
type logEngine struct {
	engine Engine
	logger *zap.Logger
}

// NewLog creates a logging decorator for the Engine.
// It logs message entry/exit, duration and errors, and records handle duration.
func NewLog(engine Engine, logger *zap.Logger) Engine {
	return &logEngine{
		engine: engine,
		logger: logger,
	}
}

// Handle wraps the engine method with logging
func (l *logEngine) Handle(ctx context.Context, in transport.Inbound) (out []transport.Outbound, err error) {
	start := time.Now()

	l.logger.Debug("Handle started",
		zap.String("inbound_id", in.ID),
		zap.String("participant", in.Address),
		zap.String("kind", string(in.Kind)),
		zap.String("text", truncateString(in.Text, textMaxLen)),
	)

	defer func() {
		duration := time.Since(start)
		metrics.HandleDuration.Observe(duration.Seconds())

		if err != nil {
			metrics.ErrorsTotal.WithLabelValues("engine", apperrors.CategoryOf(err).String()).Inc()
			l.logger.Error("Handle failed",
				zap.String("inbound_id", in.ID),
				zap.String("participant", in.Address),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		l.logger.Info("Handle completed",
			zap.String("inbound_id", in.ID),
			zap.String("participant", in.Address),
			zap.Int("replies", len(out)),
			zap.Duration("duration", duration),
		)
	}()

	return l.engine.Handle(ctx, in)
}

// truncateString caps logged chat text at maxLen bytes, cutting on a rune
// boundary so the log stays valid UTF-8.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
