package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scald/internal/model"
	"scald/internal/remote"
)

// State is the poller's position in its fetch cycle.
type State int32

const (
	// StateIdle: waiting for the next tick.
	StateIdle State = iota
	// StateFetching: a fetch is in flight; further ticks are dropped.
	StateFetching
	// StateBackingOff: credential rejected; ticking is suspended until a
	// fresh credential arrives.
	StateBackingOff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBackingOff:
		return "backing_off"
	default:
		return "unknown"
	}
}

// Renewer requests a fresh credential. The request is fire-and-forget: the
// renewed credential arrives later through Poller.SupplyCredential.
type Renewer interface {
	RequestRenewal()
}

// Config holds poller timing.
type Config struct {
	// Interval between fetch cycles.
	Interval time.Duration
	// InitialDelay before the first tick after Start.
	InitialDelay time.Duration
	// Lookback bounds how far into the past events are still fetched.
	Lookback time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Second,
		InitialDelay: 3 * time.Second,
		Lookback:     7 * 24 * time.Hour,
	}
}

// Poller periodically fetches the remote snapshot and reconciles it into
// the store. At most one fetch is in flight at a time; a tick that fires
// mid-fetch is dropped rather than queued.
type Poller struct {
	cfg        Config
	source     remote.Source
	reconciler *Reconciler
	renewer    Renewer
	onSync     func(calendars []model.Calendar)
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	state      State
	credential string
	lastSync   time.Time
	cancel     context.CancelFunc
	done       chan struct{}

	// kick forces an immediate fetch, used when a fresh credential arrives.
	kick chan struct{}
}

// NewPoller creates a poller. onSync receives the reconciled calendars of
// each successful cycle; it may be nil. renewer may be nil, in which case
// auth expiry only suspends polling until SupplyCredential is called.
func NewPoller(cfg Config, source remote.Source, reconciler *Reconciler, renewer Renewer, onSync func([]model.Calendar), logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultConfig().Lookback
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:        cfg,
		source:     source,
		reconciler: reconciler,
		renewer:    renewer,
		onSync:     onSync,
		logger:     logger,
		now:        time.Now,
		kick:       make(chan struct{}, 1),
	}
}

// Start begins the poll loop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		initial := time.NewTimer(p.cfg.InitialDelay)
		defer initial.Stop()

		select {
		case <-ctx.Done():
			return
		case <-initial.C:
			p.tick(ctx)
		case <-p.kick:
			p.tick(ctx)
		}

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			case <-p.kick:
				p.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the poller. A fetch already in flight finishes.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// State returns the poller's current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastSync returns when the last successful cycle completed, zero if none.
func (p *Poller) LastSync() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSync
}

// SupplyCredential delivers a credential to the poller. If the poller was
// backing off it resumes with an immediate fetch.
func (p *Poller) SupplyCredential(credential string) {
	p.mu.Lock()
	p.credential = credential
	resumed := p.state == StateBackingOff
	if resumed {
		p.state = StateIdle
	}
	p.mu.Unlock()

	if resumed {
		p.logger.Info("credential renewed, resuming polling")
	}
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// tick starts one fetch cycle unless one is already running or the poller
// is backing off. The fetch itself runs on its own goroutine so the loop
// can keep dropping ticks while a slow fetch is in flight.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	switch p.state {
	case StateBackingOff:
		p.mu.Unlock()
		return
	case StateFetching:
		p.mu.Unlock()
		p.logger.Debug("fetch still in flight, dropping tick")
		return
	}

	credential := p.credential
	if credential == "" {
		p.state = StateBackingOff
		p.mu.Unlock()
		p.requestRenewal("no credential available")
		return
	}

	p.state = StateFetching
	p.mu.Unlock()

	go p.fetch(ctx, credential)
}

func (p *Poller) fetch(ctx context.Context, credential string) {
	backingOff := false
	defer func() {
		p.mu.Lock()
		if backingOff {
			p.state = StateBackingOff
		} else if p.state == StateFetching {
			p.state = StateIdle
		}
		p.mu.Unlock()
	}()

	ids, err := p.source.Calendars(ctx, credential)
	if err != nil {
		if errors.Is(err, remote.ErrAuthExpired) {
			backingOff = true
			p.requestRenewal("credential rejected listing calendars")
			return
		}
		p.logger.Warn("listing remote calendars failed, retrying next cycle", "error", err)
		return
	}

	since := p.now().Add(-p.cfg.Lookback)
	var synced []model.Calendar

	for _, id := range ids {
		events, err := p.source.Events(ctx, credential, id, since)
		if err != nil {
			if errors.Is(err, remote.ErrAuthExpired) {
				backingOff = true
				p.requestRenewal("credential rejected listing events")
				return
			}
			p.logger.Warn("fetching calendar failed, skipping this cycle",
				"calendar_id", id, "error", err)
			continue
		}

		reconciled, err := p.reconciler.Sync(model.NewCalendar(id, events...))
		if err != nil {
			p.logger.Error("reconcile failed, skipping calendar this cycle",
				"calendar_id", id, "error", err)
			continue
		}
		synced = append(synced, reconciled)
	}

	p.mu.Lock()
	p.lastSync = p.now()
	p.mu.Unlock()

	p.logger.Info("sync cycle complete", "calendars", len(synced))
	if p.onSync != nil {
		p.onSync(synced)
	}
}

func (p *Poller) requestRenewal(reason string) {
	p.logger.Warn("suspending polling until credential renewal", "reason", reason)
	if p.renewer != nil {
		p.renewer.RequestRenewal()
	}
}
