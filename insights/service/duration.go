package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	journal "chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"
)

// DurationCalculator computes elapsed chat time per session and per calendar
// day. Day bucketing is done in UTC so groups are stable across restarts.
type DurationCalculator struct {
	store   repository.EventStore
	maxRows int
}

func NewDurationCalculator(store repository.EventStore, maxRows int) *DurationCalculator {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &DurationCalculator{store: store, maxRows: maxRows}
}

// SessionHours returns the elapsed hours between the first and last member
// of a session, by id order. A session with fewer than two members spans no
// time.
func SessionHours(members []journal.Event) float64 {
	if len(members) < 2 {
		return 0
	}
	first := members[0].CreatedAt
	last := members[len(members)-1].CreatedAt
	return elapsedHours(first, last)
}

// DayGroup is one calendar day's worth of session-start activity.
type DayGroup struct {
	OwnerID       uint
	Day           time.Time // midnight UTC
	StartTime     time.Time
	EndTime       time.Time
	StartEventID  uint
	EndEventID    uint
	DurationHours float64
}

// DayGroups buckets the owner's session-start markers in [start, end) by
// calendar day. Per group the duration runs from the first marker to the
// last; a day with exactly one marker yields zero hours.
func (d *DurationCalculator) DayGroups(ctx context.Context, ownerID uint, start, end time.Time) ([]DayGroup, error) {
	markers, err := d.store.SessionStartsInRange(ctx, ownerID, start, end, d.maxRows)
	if err != nil {
		return nil, err
	}

	groups := make(map[time.Time]*DayGroup)
	for _, marker := range markers {
		day := marker.CreatedAt.UTC().Truncate(24 * time.Hour)
		g, ok := groups[day]
		if !ok {
			groups[day] = &DayGroup{
				OwnerID:      ownerID,
				Day:          day,
				StartTime:    marker.CreatedAt,
				EndTime:      marker.CreatedAt,
				StartEventID: marker.ID,
				EndEventID:   marker.ID,
			}
			continue
		}
		// Markers arrive ascending by id, so this one closes the group.
		g.EndTime = marker.CreatedAt
		g.EndEventID = marker.ID
	}

	result := make([]DayGroup, 0, len(groups))
	for _, g := range groups {
		g.DurationHours = elapsedHours(g.StartTime, g.EndTime)
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.Before(result[j].Day) })
	return result, nil
}

func elapsedHours(start, end time.Time) float64 {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return float64(ms) / 3600000.0
}

// ChatTimeLabel renders elapsed hours as a human-readable label, e.g.
// "1 hour and 30 minutes", "2 hours", "45 minutes", or "0 mins" when the
// duration rounds to nothing.
func ChatTimeLabel(hours float64) string {
	whole := int(hours)
	minutes := int(math.Round((hours - float64(whole)) * 60))
	if minutes == 60 {
		whole++
		minutes = 0
	}

	switch {
	case whole == 0 && minutes == 0:
		return "0 mins"
	case whole == 0:
		return fmt.Sprintf("%d %s", minutes, plural(minutes, "minute"))
	case minutes == 0:
		return fmt.Sprintf("%d %s", whole, plural(whole, "hour"))
	default:
		return fmt.Sprintf("%d %s and %d %s",
			whole, plural(whole, "hour"), minutes, plural(minutes, "minute"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
