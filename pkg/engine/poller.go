package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qxtrade/pkg/util"
)

// Poller drives the engine's reconciliation on a fixed interval. It
// never stops on a failed cycle; errors are the engine's to log and the
// next interval always fires.
type Poller struct {
	eng      *Engine
	interval time.Duration
	clock    util.Clock
	log      *zap.SugaredLogger
	kick     chan struct{}
}

func NewPoller(eng *Engine, interval time.Duration, clock util.Clock, log *zap.SugaredLogger) *Poller {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Poller{
		eng:      eng,
		interval: interval,
		clock:    clock,
		log:      log,
		kick:     make(chan struct{}, 1),
	}
}

// Kick schedules an immediate cycle ahead of the next interval, used
// after login or an asset switch.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run polls until the context is cancelled. One cycle runs immediately
// so a fresh process does not sit blank for a full interval.
func (p *Poller) Run(ctx context.Context) {
	p.log.Infow("poller started", "interval", p.interval)
	p.eng.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.log.Infow("poller stopped")
			return
		case <-p.kick:
		case <-p.clock.After(p.interval):
		}
		p.eng.Poll(ctx)
	}
}
