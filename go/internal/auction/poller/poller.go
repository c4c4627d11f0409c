// Package poller periodically re-pulls authoritative auction state as a
// backstop for real-time events that were missed or arrived out of order.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"

	"github.com/sevahub/templeauction/go/internal/auction/store"
	"github.com/sevahub/templeauction/go/internal/models"
)

const (
	DefaultInterval   = 30 * time.Second
	DefaultQueueLimit = 5
)

// Backend is the read side of the auction REST API
type Backend interface {
	GetAuctionState(ctx context.Context) (*models.AuctionState, error)
	GetPlayerQueue(ctx context.Context, limit int) ([]models.Player, error)
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
	GetTeamSquad(ctx context.Context, teamID string) ([]models.Player, error)
}

// Connection reports whether the real-time channel is up
type Connection interface {
	Connected() bool
}

// Config holds poller settings
type Config struct {
	Interval     time.Duration
	QueueLimit   int
	ViewerTeamID string
}

// Poller installs full backend state into the store on load, on every
// (re)connect, and on a fixed interval while connected.
type Poller struct {
	backend Backend
	store   *store.Store
	clock   clockwork.Clock
	config  Config

	connMu sync.RWMutex
	conn   Connection

	group singleflight.Group
}

// New creates a poller. conn may be nil until SetConnection is called.
func New(backend Backend, st *store.Store, conn Connection, clock clockwork.Clock, config Config) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.QueueLimit <= 0 {
		config.QueueLimit = DefaultQueueLimit
	}
	return &Poller{
		backend: backend,
		store:   st,
		conn:    conn,
		clock:   clock,
		config:  config,
	}
}

// SetConnection attaches the real-time channel whose state gates ticks
func (p *Poller) SetConnection(conn Connection) {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	p.conn = conn
}

func (p *Poller) connected() bool {
	p.connMu.RLock()
	defer p.connMu.RUnlock()
	return p.conn != nil && p.conn.Connected()
}

// Run syncs once, then again on every tick while connected, until ctx ends
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("initial auction sync incomplete")
	}

	ticker := p.clock.NewTicker(p.config.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", p.config.Interval).Msg("reconciliation poller started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciliation poller shutting down")
			return nil
		case <-ticker.Chan():
			if !p.connected() {
				log.Debug().Msg("skipping reconciliation poll while disconnected")
				continue
			}
			if err := p.Sync(ctx); err != nil {
				log.Debug().Err(err).Msg("reconciliation poll incomplete")
			}
		}
	}
}

// OnConnect is the real-time (re)connect hook
func (p *Poller) OnConnect(ctx context.Context) {
	if err := p.Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("resync after connect incomplete")
	}
}

// Sync fetches state, queue and (with a team) team plus squad concurrently.
// Each slice installs independently; the error lists every slice that failed.
// Concurrent callers share one in-flight sync.
func (p *Poller) Sync(ctx context.Context) error {
	_, err, shared := p.group.Do("sync", func() (any, error) {
		return nil, p.syncAll(ctx)
	})
	if shared {
		log.Debug().Msg("joined in-flight auction sync")
	}
	return err
}

func (p *Poller) syncAll(ctx context.Context) error {
	var (
		wg   conc.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	collect := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Go(func() { collect(p.RefreshState(ctx)) })
	wg.Go(func() { collect(p.RefreshQueue(ctx)) })
	if p.config.ViewerTeamID != "" {
		wg.Go(func() { collect(p.refreshTeamOnly(ctx)) })
		wg.Go(func() { collect(p.refreshSquad(ctx)) })
	}
	wg.Wait()

	return errors.Join(errs...)
}

// RefreshState replaces the auction state wholesale
func (p *Poller) RefreshState(ctx context.Context) error {
	state, err := p.backend.GetAuctionState(ctx)
	if err != nil {
		return fmt.Errorf("refresh auction state: %w", err)
	}
	p.store.ReplaceState(*state)
	return nil
}

// RefreshQueue replaces the upcoming player queue
func (p *Poller) RefreshQueue(ctx context.Context) error {
	queue, err := p.backend.GetPlayerQueue(ctx, p.config.QueueLimit)
	if err != nil {
		return fmt.Errorf("refresh player queue: %w", err)
	}
	p.store.SetQueue(queue)
	return nil
}

// RefreshTeam replaces the viewer's team and squad. No-op without a team.
func (p *Poller) RefreshTeam(ctx context.Context) error {
	if p.config.ViewerTeamID == "" {
		return nil
	}
	return errors.Join(p.refreshTeamOnly(ctx), p.refreshSquad(ctx))
}

func (p *Poller) refreshTeamOnly(ctx context.Context) error {
	team, err := p.backend.GetTeam(ctx, p.config.ViewerTeamID)
	if err != nil {
		return fmt.Errorf("refresh team: %w", err)
	}
	p.store.SetTeam(team)
	return nil
}

func (p *Poller) refreshSquad(ctx context.Context) error {
	squad, err := p.backend.GetTeamSquad(ctx, p.config.ViewerTeamID)
	if err != nil {
		return fmt.Errorf("refresh squad: %w", err)
	}
	p.store.SetSquad(squad)
	return nil
}
