package supervisor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sysfeed/wdt-agent/pkg/types"
)

// feeder is the slice of the watchdog device the supervisor drives.
type feeder interface {
	Feed() error
	Disarm() error
}

type probe interface {
	Check() bool
}

// Phase names, exported through Snapshot.
const (
	PhaseStarting   = "starting"
	PhaseMonitoring = "monitoring"
)

type Config struct {
	// Interval is the feed cadence.
	Interval time.Duration
	// StartupDelay is how long feeds stay unconditional after start, so a
	// slow boot is never mistaken for a sick host.
	StartupDelay time.Duration
	// FailTimeout is how long health must stay bad before feeds stop.
	FailTimeout time.Duration
}

// Supervisor drives the feed loop: unconditional feeds during the startup
// grace period, then health-gated feeds. Once health has been failing for
// FailTimeout it stops feeding and keeps running; the hardware performs the
// reset. The loop goroutine exclusively owns the device; the mutex only
// guards the fields Snapshot reads from other goroutines.
type Supervisor struct {
	dev   feeder
	probe probe
	cfg   Config

	mu        sync.Mutex
	phase     string
	healthy   bool
	started   time.Time
	failStart time.Time // zero while the last check passed
	lastFeed  time.Time
	feeds     uint64
	withheld  uint64
}

func New(dev feeder, p probe, cfg Config) *Supervisor {
	return &Supervisor{
		dev:     dev,
		probe:   p,
		cfg:     cfg,
		phase:   PhaseStarting,
		healthy: true,
	}
}

// Run blocks until ctx is cancelled (clean disarm, nil return) or a feed
// write fails (fatal, error return). It never returns because of bad
// health: after FailTimeout of sustained failure it stops feeding and keeps
// ticking, passively waiting for the hardware reset.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	log.Printf("[Supervisor] startup grace period: feeding unconditionally for %v", s.cfg.StartupDelay)

	for {
		if err := s.tick(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return s.shutdown()
		case <-time.After(s.cfg.Interval):
		}
	}
}

func (s *Supervisor) tick() error {
	if s.phaseNow() == PhaseStarting {
		if time.Since(s.started) < s.cfg.StartupDelay {
			return s.feed()
		}
		s.setPhase(PhaseMonitoring)
		log.Println("[Supervisor] grace period over, health monitoring started")
	}
	return s.monitorTick()
}

func (s *Supervisor) monitorTick() error {
	healthy := s.check()

	s.mu.Lock()
	s.healthy = healthy
	if healthy {
		s.failStart = time.Time{}
		s.mu.Unlock()
		return s.feed()
	}
	if s.failStart.IsZero() {
		s.failStart = time.Now()
	}
	elapsed := time.Since(s.failStart)
	s.mu.Unlock()

	log.Printf("[Supervisor] unhealthy for %d/%d seconds",
		int(elapsed.Seconds()), int(s.cfg.FailTimeout.Seconds()))

	if elapsed < s.cfg.FailTimeout {
		// Still within the grace budget for transient blips.
		return s.feed()
	}

	s.mu.Lock()
	s.withheld++
	s.mu.Unlock()
	log.Println("[Supervisor] fail timeout exceeded, withholding feed; hardware reset pending")
	return nil
}

// check never lets a probe failure out. A crashed supervisor would stop
// feeding entirely, which is a much louder verdict than any single probe is
// entitled to, so a panic maps to unhealthy.
func (s *Supervisor) check() (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Supervisor] health probe panicked: %v", r)
			healthy = false
		}
	}()
	return s.probe.Check()
}

func (s *Supervisor) feed() error {
	if err := s.dev.Feed(); err != nil {
		return fmt.Errorf("feed failed, refusing to keep running blind: %w", err)
	}
	s.mu.Lock()
	s.feeds++
	s.lastFeed = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) shutdown() error {
	log.Println("[Supervisor] termination requested, disarming watchdog")
	if err := s.dev.Disarm(); err != nil {
		return fmt.Errorf("disarm: %w", err)
	}
	return nil
}

func (s *Supervisor) phaseNow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Supervisor) setPhase(phase string) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

// Snapshot returns the current state for the status API.
func (s *Supervisor) Snapshot() types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := types.Status{
		Phase:       s.phase,
		Healthy:     s.healthy,
		FailTimeout: s.cfg.FailTimeout,
		StartedAt:   s.started,
		LastFeed:    s.lastFeed,
		Feeds:       s.feeds,
		Withheld:    s.withheld,
	}
	if !s.failStart.IsZero() {
		st.UnhealthyFor = time.Since(s.failStart)
	}
	return st
}
