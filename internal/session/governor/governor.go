// Package governor enforces the per-user session cap and retires sessions that expired,
// went idle past the retention window, or were never used.
package governor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"cuidame-health/backend/internal/session/domain"
	"cuidame-health/backend/internal/session/repository"
)

const (
	DefaultRetentionDays       = 30
	DefaultNeverUsedGraceHours = 24
)

// Config holds the retirement windows.
type Config struct {
	RetentionDays       int
	NeverUsedGraceHours int
}

func (c Config) retention() time.Duration {
	if c.RetentionDays <= 0 {
		return DefaultRetentionDays * 24 * time.Hour
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c Config) grace() time.Duration {
	if c.NeverUsedGraceHours <= 0 {
		return DefaultNeverUsedGraceHours * time.Hour
	}
	return time.Duration(c.NeverUsedGraceHours) * time.Hour
}

// Governor applies the session cap and the sweep/purge policies to a session repository.
type Governor struct {
	repo   repository.Repository
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	evicted metric.Int64Counter
	swept   metric.Int64Counter
	purged  metric.Int64Counter

	onTick TickFunc
}

// TickFunc receives the outcome of each scheduled pass run by Run.
type TickFunc func(ctx context.Context, sweep domain.SweepResult, purge domain.PurgeResult)

// Option configures a Governor.
type Option func(*Governor)

// WithClock overrides the clock used for sweep cutoffs.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// WithMeterProvider records governor counters on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(g *Governor) { g.initMetrics(mp) }
}

// WithTickFunc registers fn to be called after every scheduled pass.
func WithTickFunc(fn TickFunc) Option {
	return func(g *Governor) { g.onTick = fn }
}

// New returns a Governor. logger may be nil.
func New(repo repository.Repository, cfg Config, logger *zap.Logger, opts ...Option) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Governor{repo: repo, cfg: cfg, logger: logger.Named("governor"), now: time.Now}
	g.initMetrics(otel.GetMeterProvider())
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Governor) initMetrics(mp metric.MeterProvider) {
	meter := mp.Meter("cuidame/session/governor")
	// Instrument creation only fails on invalid names; the returned instrument is usable either way.
	g.evicted, _ = meter.Int64Counter("sessions.evicted", metric.WithDescription("Sessions deactivated by the per-user cap"))
	g.swept, _ = meter.Int64Counter("sessions.swept", metric.WithDescription("Sessions deactivated by sweeps"))
	g.purged, _ = meter.Int64Counter("sessions.purged", metric.WithDescription("Retired session rows deleted"))
}

// CapSessions deactivates the user's oldest active sessions until at most maxKept remain.
// Returns the ids of evicted sessions, oldest first.
func (g *Governor) CapSessions(ctx context.Context, userID string, maxKept int) ([]string, error) {
	if maxKept < 0 {
		maxKept = 0
	}
	active, err := g.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	if len(active) <= maxKept {
		return nil, nil
	}
	victims := active[:len(active)-maxKept]
	evicted := make([]string, 0, len(victims))
	for _, s := range victims {
		if err := g.repo.Deactivate(ctx, s.ID); err != nil {
			return evicted, fmt.Errorf("deactivate session: %w", err)
		}
		evicted = append(evicted, s.ID)
	}
	g.evicted.Add(ctx, int64(len(evicted)))
	g.logger.Info("session cap enforced",
		zap.String("user_id", userID),
		zap.Int("max_kept", maxKept),
		zap.Strings("evicted", evicted),
	)
	return evicted, nil
}

// Sweep deactivates expired, stale, and never-used sessions. Every criterion runs even when
// an earlier one fails; the counts of the ones that succeeded are returned with the joined error.
func (g *Governor) Sweep(ctx context.Context) (domain.SweepResult, error) {
	now := g.now().UTC()
	var res domain.SweepResult
	var errs []error

	n, err := g.repo.PurgeExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep expired: %w", err))
	}
	res.Expired = n

	n, err = g.repo.PurgeStaleInactive(ctx, now.Add(-g.cfg.retention()))
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep stale: %w", err))
	}
	res.Inactive = n

	n, err = g.repo.PurgeNeverUsed(ctx, now.Add(-g.cfg.grace()))
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep never used: %w", err))
	}
	res.NeverUsed = n

	g.swept.Add(ctx, res.Expired, metric.WithAttributes(attribute.String("reason", "expired")))
	g.swept.Add(ctx, res.Inactive, metric.WithAttributes(attribute.String("reason", "inactive")))
	g.swept.Add(ctx, res.NeverUsed, metric.WithAttributes(attribute.String("reason", "never_used")))
	if res.Total() > 0 {
		g.logger.Info("sessions swept",
			zap.Int64("expired", res.Expired),
			zap.Int64("inactive", res.Inactive),
			zap.Int64("never_used", res.NeverUsed),
		)
	}
	return res, errors.Join(errs...)
}

// SweepBestEffort runs Sweep and logs instead of returning a failure.
func (g *Governor) SweepBestEffort(ctx context.Context) domain.SweepResult {
	res, err := g.Sweep(ctx)
	if err != nil {
		g.logger.Warn("session sweep failed", zap.Error(err))
	}
	return res
}

// Purge deletes retired sessions whose last activity is older than the retention window.
func (g *Governor) Purge(ctx context.Context) (domain.PurgeResult, error) {
	cutoff := g.now().UTC().Add(-g.cfg.retention())
	n, err := g.repo.DeleteRetired(ctx, cutoff)
	if err != nil {
		return domain.PurgeResult{}, fmt.Errorf("purge retired sessions: %w", err)
	}
	g.purged.Add(ctx, n)
	if n > 0 {
		g.logger.Info("retired sessions purged", zap.Int64("deleted", n))
	}
	return domain.PurgeResult{Deleted: n}, nil
}

// Run sweeps and purges once immediately and then every interval until ctx is done.
func (g *Governor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	g.tick(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

func (g *Governor) tick(ctx context.Context) {
	swept := g.SweepBestEffort(ctx)
	purged, err := g.Purge(ctx)
	if err != nil && ctx.Err() == nil {
		g.logger.Warn("session purge failed", zap.Error(err))
	}
	if g.onTick != nil {
		g.onTick(ctx, swept, purged)
	}
}
