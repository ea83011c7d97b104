package practice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LimitOptions configures the daily quota gate.
type LimitOptions struct {
	TierLimits  map[string]int
	DefaultTier string
	Location    *time.Location
	Clock       func() time.Time
}

// LimitGate enforces "at most K sessions per calendar day", K by tier.
type LimitGate struct {
	counter     SessionCounter
	tiers       TierSource
	limits      map[string]int
	defaultTier string
	loc         *time.Location
	now         func() time.Time
}

// NewLimitGate builds a gate. A nil Location falls back to time.Local.
func NewLimitGate(counter SessionCounter, tiers TierSource, opts LimitOptions) *LimitGate {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	limits := make(map[string]int, len(opts.TierLimits))
	for tier, n := range opts.TierLimits {
		limits[tier] = n
	}
	return &LimitGate{
		counter:     counter,
		tiers:       tiers,
		limits:      limits,
		defaultTier: opts.DefaultTier,
		loc:         loc,
		now:         clock,
	}
}

// CheckLimit reports today's usage for studentID.
func (g *LimitGate) CheckLimit(ctx context.Context, studentID uuid.UUID) (LimitStatus, error) {
	tier, limit, err := g.LimitFor(ctx, studentID)
	if err != nil {
		return LimitStatus{}, err
	}

	count, err := g.counter.CountSessionsSince(ctx, studentID, g.DayStart(g.now()))
	if err != nil {
		return LimitStatus{}, fmt.Errorf("count sessions today: %w", err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return LimitStatus{
		Tier:              tier,
		SessionsToday:     count,
		SessionLimit:      limit,
		CanStartSession:   count < limit,
		RemainingSessions: remaining,
	}, nil
}

// LimitFor resolves the tier and daily cap for studentID. Unknown tiers use the default tier's cap.
func (g *LimitGate) LimitFor(ctx context.Context, studentID uuid.UUID) (string, int, error) {
	tier := ""
	if g.tiers != nil {
		t, err := g.tiers.TierFor(ctx, studentID)
		if err != nil {
			return "", 0, fmt.Errorf("resolve tier: %w", err)
		}
		tier = t
	}
	if limit, ok := g.limits[tier]; ok {
		return tier, limit, nil
	}
	return g.defaultTier, g.limits[g.defaultTier], nil
}

// DayStart returns midnight of t's calendar day in the reference timezone.
func (g *LimitGate) DayStart(t time.Time) time.Time {
	local := t.In(g.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, g.loc)
}

// Now returns the gate's clock reading.
func (g *LimitGate) Now() time.Time {
	return g.now()
}
