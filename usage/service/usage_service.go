package service

import (
	"context"
	"sync"
	"time"

	"chat-companion-analytics/backend/pkg/logger"
	"chat-companion-analytics/backend/shared/observability"
	"chat-companion-analytics/backend/usage/models"
	"chat-companion-analytics/backend/usage/repository"
)

// BadgeNotifier delivers milestone notifications. Delivery is best-effort:
// failures are logged and never surfaced to the caller.
type BadgeNotifier interface {
	NotifyBadge(ctx context.Context, ownerID uint, category, tier string) error
}

// DayStamper marks an owner-day as counted across processes. Used as a
// fast-path guard in front of the stats row; a nil stamper disables it.
type DayStamper interface {
	StampDay(ctx context.Context, ownerID uint, day string) (bool, error)
}

// UsageAggregator centralizes every per-owner counter mutation behind one
// idempotent operation. Counter updates are read-modify-write, so they are
// serialized per owner with a keyed lock rather than left to interleave.
type UsageAggregator struct {
	repo     repository.UsageRepository
	notifier BadgeNotifier
	stamps   DayStamper
	log      *logger.Logger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewUsageAggregator(repo repository.UsageRepository, notifier BadgeNotifier, stamps DayStamper, log *logger.Logger) *UsageAggregator {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &UsageAggregator{
		repo:     repo,
		notifier: notifier,
		stamps:   stamps,
		log:      log,
		locks:    make(map[uint]*sync.Mutex),
	}
}

// RecordActivity updates the streak and days-used counters for an owner
// without accruing hours. Safe to call on every journal append; repeat calls
// within one calendar day are no-ops.
func (a *UsageAggregator) RecordActivity(ctx context.Context, ownerID uint, now time.Time) error {
	return a.RecordUsage(ctx, ownerID, 0, now)
}

// RecordUsage applies one usage observation: sessionHours accrue to the
// all-time total, the day counters advance at most once per calendar day,
// and any newly crossed milestone tiers are granted.
func (a *UsageAggregator) RecordUsage(ctx context.Context, ownerID uint, sessionHours float64, now time.Time) error {
	lock := a.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	stats, err := a.repo.GetStats(ctx, ownerID)
	if err != nil {
		return err
	}

	today := now.UTC().Truncate(24 * time.Hour)
	yesterday := today.Add(-24 * time.Hour)

	if !stats.LastActiveDay.Equal(today) && !a.dayAlreadyStamped(ctx, ownerID, today) {
		switch {
		case stats.LastActiveDay.Equal(yesterday):
			stats.Streak++
		default:
			stats.Streak = 0
		}
		stats.DaysUsed++
		stats.LastActiveDay = today
	}

	if sessionHours > 0 {
		stats.TotalHours += sessionHours
	}
	stats.UpdatedAt = now.UTC()

	if err := a.repo.SaveStats(ctx, stats); err != nil {
		return err
	}
	a.grantMilestones(ctx, ownerID, stats.TotalHours, now)
	return nil
}

// Stats returns the owner's counters together with every badge granted so
// far.
func (a *UsageAggregator) Stats(ctx context.Context, ownerID uint) (*models.UsageStats, []models.BadgeGrant, error) {
	stats, err := a.repo.GetStats(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	grants, err := a.repo.ListGrants(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	return stats, grants, nil
}

// grantMilestones walks the ordered thresholds and grants every tier the
// cumulative total has reached. The grant store enforces at-most-once, so a
// re-run at the same total grants nothing further. Grant and notification
// failures are logged and swallowed.
func (a *UsageAggregator) grantMilestones(ctx context.Context, ownerID uint, totalHours float64, now time.Time) {
	for _, m := range models.Milestones {
		if totalHours < m.Hours {
			break
		}
		granted, err := a.repo.Grant(ctx, ownerID, models.CategoryUsageHours, m.Tier, now.UTC())
		if err != nil {
			a.log.LogError(err, "badge grant failed", "owner_id", ownerID, "tier", m.Tier)
			continue
		}
		if !granted {
			continue
		}
		a.log.Info("badge granted", "owner_id", ownerID, "tier", m.Tier, "total_hours", totalHours)
		observability.CountBadgeGranted(ctx, m.Tier)
		if a.notifier != nil {
			if err := a.notifier.NotifyBadge(ctx, ownerID, models.CategoryUsageHours, m.Tier); err != nil {
				a.log.LogError(err, "badge notification failed", "owner_id", ownerID, "tier", m.Tier)
			}
		}
	}
}

// dayAlreadyStamped consults the cross-process stamp. StampDay returns true
// when this call set the stamp, false when another writer beat us to it.
func (a *UsageAggregator) dayAlreadyStamped(ctx context.Context, ownerID uint, day time.Time) bool {
	if a.stamps == nil {
		return false
	}
	fresh, err := a.stamps.StampDay(ctx, ownerID, day.Format("2006-01-02"))
	if err != nil {
		// Stamp store unavailable; fall back to the stats row comparison.
		a.log.Warn("day stamp unavailable", "owner_id", ownerID, "error", err.Error())
		return false
	}
	return !fresh
}

func (a *UsageAggregator) ownerLock(ownerID uint) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[ownerID] = lock
	}
	return lock
}

// LogNotifier is the default BadgeNotifier: it records the notification in
// the log and reports success. Real delivery (push, email) hangs off the
// same interface.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyBadge(_ context.Context, ownerID uint, category, tier string) error {
	n.log.Info("badge notification", "owner_id", ownerID, "category", category, "tier", tier)
	return nil
}
