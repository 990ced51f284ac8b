package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"chat-companion-analytics/backend/pkg/logger"
	"chat-companion-analytics/backend/usage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsageRepo struct {
	stats   map[uint]models.UsageStats
	grants  map[string]models.BadgeGrant
	saveErr error
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{
		stats:  make(map[uint]models.UsageStats),
		grants: make(map[string]models.BadgeGrant),
	}
}

func (f *fakeUsageRepo) GetStats(_ context.Context, ownerID uint) (*models.UsageStats, error) {
	if s, ok := f.stats[ownerID]; ok {
		copied := s
		return &copied, nil
	}
	return &models.UsageStats{OwnerID: ownerID}, nil
}

func (f *fakeUsageRepo) SaveStats(_ context.Context, stats *models.UsageStats) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stats[stats.OwnerID] = *stats
	return nil
}

func (f *fakeUsageRepo) Grant(_ context.Context, ownerID uint, category, tier string, at time.Time) (bool, error) {
	key := category + "/" + tier
	if _, ok := f.grants[key]; ok {
		return false, nil
	}
	f.grants[key] = models.BadgeGrant{OwnerID: ownerID, Category: category, Tier: tier, GrantedAt: at}
	return true, nil
}

func (f *fakeUsageRepo) ListGrants(_ context.Context, ownerID uint) ([]models.BadgeGrant, error) {
	var out []models.BadgeGrant
	for _, g := range f.grants {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	tiers []string
	err   error
}

func (n *recordingNotifier) NotifyBadge(_ context.Context, _ uint, _, tier string) error {
	n.tiers = append(n.tiers, tier)
	return n.err
}

func usageTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

var noon = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRecordActivityStartsCounters(t *testing.T) {
	repo := newFakeUsageRepo()
	agg := NewUsageAggregator(repo, nil, nil, usageTestLogger())

	require.NoError(t, agg.RecordActivity(context.Background(), 1, noon))

	stats, _, err := agg.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DaysUsed)
	assert.Equal(t, 0, stats.Streak)
	assert.Equal(t, noon.Truncate(24*time.Hour), stats.LastActiveDay)
}

func TestRecordActivityExtendsStreakAfterYesterday(t *testing.T) {
	repo := newFakeUsageRepo()
	agg := NewUsageAggregator(repo, nil, nil, usageTestLogger())
	ctx := context.Background()

	require.NoError(t, agg.RecordActivity(ctx, 1, noon))
	require.NoError(t, agg.RecordActivity(ctx, 1, noon.Add(24*time.Hour)))
	require.NoError(t, agg.RecordActivity(ctx, 1, noon.Add(48*time.Hour)))

	stats, _, err := agg.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, 3, stats.DaysUsed)
}

func TestRecordActivityResetsStreakAfterGap(t *testing.T) {
	repo := newFakeUsageRepo()
	agg := NewUsageAggregator(repo, nil, nil, usageTestLogger())
	ctx := context.Background()

	require.NoError(t, agg.RecordActivity(ctx, 1, noon))
	require.NoError(t, agg.RecordActivity(ctx, 1, noon.Add(24*time.Hour)))
	// Skip two days.
	require.NoError(t, agg.RecordActivity(ctx, 1, noon.Add(96*time.Hour)))

	stats, _, err := agg.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Streak)
	assert.Equal(t, 3, stats.DaysUsed)
}

func TestRecordUsageSameDayOnlyAccruesHours(t *testing.T) {
	repo := newFakeUsageRepo()
	agg := NewUsageAggregator(repo, nil, nil, usageTestLogger())
	ctx := context.Background()

	require.NoError(t, agg.RecordUsage(ctx, 1, 0.5, noon))
	require.NoError(t, agg.RecordUsage(ctx, 1, 0.25, noon.Add(2*time.Hour)))

	stats, _, err := agg.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DaysUsed)
	assert.Equal(t, 0, stats.Streak)
	assert.InDelta(t, 0.75, stats.TotalHours, 1e-9)
}

func TestRecordUsageIsolatesOwners(t *testing.T) {
	repo := newFakeUsageRepo()
	agg := NewUsageAggregator(repo, nil, nil, usageTestLogger())
	ctx := context.Background()

	require.NoError(t, agg.RecordUsage(ctx, 1, 1, noon))
	require.NoError(t, agg.RecordUsage(ctx, 2, 2, noon))

	first, _, err := agg.Stats(ctx, 1)
	require.NoError(t, err)
	second, _, err := agg.Stats(ctx, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, first.TotalHours, 1e-9)
	assert.InDelta(t, 2.0, second.TotalHours, 1e-9)
}

func TestMilestonesGrantOnceAtThreshold(t *testing.T) {
	repo := newFakeUsageRepo()
	notifier := &recordingNotifier{}
	agg := NewUsageAggregator(repo, notifier, nil, usageTestLogger())
	ctx := context.Background()

	require.NoError(t, agg.RecordUsage(ctx, 1, 9.9, noon))
	_, grants, err := agg.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, grants)

	require.NoError(t, agg.RecordUsage(ctx, 1, 0.2, noon.Add(time.Hour)))
	_, grants, err = agg.Stats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "bronze", grants[0].Tier)
	assert.Equal(t, []string{"bronze"}, notifier.tiers)

	// A re-run at the same total grants and notifies nothing further.
	require.NoError(t, agg.RecordUsage(ctx, 1, 0, noon.Add(2*time.Hour)))
	_, grants, err = agg.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
	assert.Equal(t, []string{"bronze"}, notifier.tiers)
}

func TestMilestonesBackfillEveryReachedTier(t *testing.T) {
	repo := newFakeUsageRepo()
	notifier := &recordingNotifier{}
	agg := NewUsageAggregator(repo, notifier, nil, usageTestLogger())

	// A single large accrual crosses three thresholds at once.
	require.NoError(t, agg.RecordUsage(context.Background(), 1, 60, noon))

	_, grants, err := agg.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, grants, 3)
	assert.Equal(t, []string{"bronze", "silver", "gold"}, notifier.tiers)
}

func TestNotifierFailureDoesNotFailUsage(t *testing.T) {
	repo := newFakeUsageRepo()
	notifier := &recordingNotifier{err: errors.New("push gateway down")}
	agg := NewUsageAggregator(repo, notifier, nil, usageTestLogger())

	require.NoError(t, agg.RecordUsage(context.Background(), 1, 12, noon))

	_, grants, err := agg.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestSaveFailureSurfaces(t *testing.T) {
	repo := newFakeUsageRepo()
	repo.saveErr = errors.New("connection reset")
	agg := NewUsageAggregator(repo, nil, nil, usageTestLogger())

	err := agg.RecordUsage(context.Background(), 1, 1, noon)
	assert.Error(t, err)
}

type stampOnce struct {
	seen map[string]bool
}

func (s *stampOnce) StampDay(_ context.Context, ownerID uint, day string) (bool, error) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	key := day
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func TestDayStampGuardsAgainstDoubleCounting(t *testing.T) {
	stamper := &stampOnce{}
	first := NewUsageAggregator(newFakeUsageRepo(), nil, stamper, usageTestLogger())
	ctx := context.Background()

	require.NoError(t, first.RecordActivity(ctx, 1, noon))

	// A second process with stale stats sees the stamp and skips the day
	// counters.
	second := NewUsageAggregator(newFakeUsageRepo(), nil, stamper, usageTestLogger())
	require.NoError(t, second.RecordActivity(ctx, 1, noon.Add(time.Minute)))

	stats, _, err := second.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DaysUsed)
}
