// Package agent connects the transport to the engine. Inbound events are
// handled by a bounded worker pool; events from the same participant are
// handled one at a time in arrival order.
package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/advent-agent/internal/metrics"
	apperrors "github.com/chainsafe/advent-agent/pkg/app/errors"
	"github.com/chainsafe/advent-agent/pkg/engine"
	"github.com/chainsafe/advent-agent/pkg/transport"
)

const msgInternalError = "⚠️ Something went wrong on my side. Please try again in a moment."

// ErrTransportClosed is returned by Run when the transport stops delivering
// events before ctx is cancelled.
var ErrTransportClosed = errors.New("transport closed")

// Agent runs the inbound loop.
type Agent struct {
	transport transport.Transport
	engine    engine.Engine
	workers   int
	logger    *zap.Logger

	ready atomic.Bool

	mu      sync.Mutex
	pending map[string][]transport.Inbound
}

// New creates an agent.
func New(t transport.Transport, e engine.Engine, workers int, logger *zap.Logger) *Agent {
	if workers < 1 {
		workers = 1
	}
	return &Agent{
		transport: t,
		engine:    e,
		workers:   workers,
		logger:    logger.With(zap.String("component", "agent")),
		pending:   make(map[string][]transport.Inbound),
	}
}

// Ready reports whether the transport has signalled that it is connected.
func (a *Agent) Ready() bool {
	return a.ready.Load()
}

// Run consumes inbound events until ctx is cancelled or the transport
// closes. In-flight events are finished before Run returns.
func (a *Agent) Run(ctx context.Context) error {
	events, err := a.transport.Listen(ctx)
	if err != nil {
		return err
	}

	g := &errgroup.Group{}
	g.SetLimit(a.workers)

	runErr := ErrTransportClosed
loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		case in, ok := <-events:
			if !ok {
				break loop
			}
			if in.Kind == transport.KindAgentStarted {
				a.ready.Store(true)
				a.logger.Info("Transport connected, agent ready")
				continue
			}
			if in.Address == "" {
				a.logger.Warn("Dropping inbound without address", zap.String("inbound_id", in.ID))
				continue
			}
			if a.enqueue(in) {
				address := in.Address
				g.Go(func() error {
					a.drain(ctx, address)
					return nil
				})
			}
		}
	}

	a.ready.Store(false)
	_ = g.Wait()
	return runErr
}

// enqueue appends in to its participant's queue and reports whether a new
// worker must be started for that participant.
func (a *Agent) enqueue(in transport.Inbound) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	q, active := a.pending[in.Address]
	a.pending[in.Address] = append(q, in)
	return !active
}

func (a *Agent) next(address string) (transport.Inbound, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	q := a.pending[address]
	if len(q) == 0 {
		delete(a.pending, address)
		return transport.Inbound{}, false
	}
	a.pending[address] = q[1:]
	return q[0], true
}

func (a *Agent) drain(ctx context.Context, address string) {
	for {
		in, ok := a.next(address)
		if !ok {
			return
		}
		a.handle(ctx, in)
	}
}

func (a *Agent) handle(ctx context.Context, in transport.Inbound) {
	logger := a.logger.With(
		zap.String("correlation_id", uuid.NewString()),
		zap.String("inbound_id", in.ID),
		zap.String("participant", in.Address),
	)

	replies, err := a.engine.Handle(ctx, in)
	if err != nil {
		// the engine decorator has logged the failure
		if ctx.Err() != nil {
			return
		}
		logger.Debug("Replying with apology after engine error")
		replies = []transport.Outbound{transport.Text(msgInternalError)}
	}

	for _, reply := range replies {
		if err := a.transport.Send(ctx, in.Address, reply); err != nil {
			metrics.ErrorsTotal.WithLabelValues("agent", apperrors.CategoryOf(err).String()).Inc()
			logger.Error("Failed to send reply", zap.Error(err))
			return
		}
	}
}
