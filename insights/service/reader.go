package service

import (
	"context"
	"math"
	"time"

	"chat-companion-analytics/backend/insights/models"
	journal "chat-companion-analytics/backend/journal/models"
	"chat-companion-analytics/backend/journal/repository"
	"chat-companion-analytics/backend/pkg/logger"
	"chat-companion-analytics/backend/shared/observability"
)

const defaultPerPage = 20

// PaginatedSessionReader composes boundary location, session assembly, mood
// annotation and duration calculation into paged session listings. Each
// listing re-derives sessions within one pass; boundaries are never cached
// across requests.
type PaginatedSessionReader struct {
	store     repository.EventStore
	locator   *BoundaryLocator
	assembler *SessionAssembler
	annotator *MoodAnnotator
	durations *DurationCalculator
	maxRows   int
	log       *logger.Logger
}

func NewPaginatedSessionReader(store repository.EventStore, maxRows int, log *logger.Logger) *PaginatedSessionReader {
	if maxRows <= 0 {
		maxRows = 5000
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &PaginatedSessionReader{
		store:     store,
		locator:   NewBoundaryLocator(store),
		assembler: NewSessionAssembler(store, maxRows),
		annotator: NewMoodAnnotator(store, maxRows),
		durations: NewDurationCalculator(store, maxRows),
		maxRows:   maxRows,
		log:       log,
	}
}

// Locator exposes the reader's boundary locator for callers that need the
// current session window (e.g. history reconstruction).
func (r *PaginatedSessionReader) Locator() *BoundaryLocator { return r.locator }

// Assembler exposes the reader's session assembler.
func (r *PaginatedSessionReader) Assembler() *SessionAssembler { return r.assembler }

// ListSessions pages over every derived session of the owner, oldest first.
func (r *PaginatedSessionReader) ListSessions(ctx context.Context, ownerID uint, page, perPage int) (models.PagedSessions, error) {
	page, perPage = normalizePage(page, perPage)
	anchors, err := r.store.SessionStartsFrom(ctx, ownerID, 0, r.maxRows)
	if err != nil {
		return models.PagedSessions{}, err
	}
	return r.buildPage(ctx, ownerID, anchors, int64(len(anchors)), page, perPage)
}

// ListSessionsByDateRange pages over sessions whose start marker falls in
// [start, end). An invalid or missing range defaults to today.
func (r *PaginatedSessionReader) ListSessionsByDateRange(ctx context.Context, ownerID uint, start, end time.Time, page, perPage int) (models.PagedSessions, error) {
	page, perPage = normalizePage(page, perPage)
	start, end = NormalizeRange(start, end, time.Now().UTC())
	total, err := r.store.CountSessionStartsInRange(ctx, ownerID, start, end)
	if err != nil {
		return models.PagedSessions{}, err
	}
	anchors, err := r.store.SessionStartsInRange(ctx, ownerID, start, end, r.maxRows)
	if err != nil {
		return models.PagedSessions{}, err
	}
	if total > int64(len(anchors)) {
		// Scan cap truncated the range; the page reflects what was scanned.
		r.log.Warn("session scan truncated at row cap",
			"owner_id", ownerID, "qualifying", total, "scanned", len(anchors))
		total = int64(len(anchors))
	}
	return r.buildPage(ctx, ownerID, anchors, total, page, perPage)
}

// buildPage assembles one summary row per anchored session. Consecutive
// anchors bound each other; only the final anchor needs a boundary lookup,
// since its closing marker may lie outside the scanned range.
func (r *PaginatedSessionReader) buildPage(ctx context.Context, ownerID uint, anchors []journal.Event, total int64, page, perPage int) (models.PagedSessions, error) {
	result := models.PagedSessions{Page: page, PerPage: perPage, TotalCount: total, Sessions: []models.SessionRow{}}

	offset := (page - 1) * perPage
	if offset >= len(anchors) {
		return result, nil
	}
	limit := offset + perPage
	if limit > len(anchors) {
		limit = len(anchors)
	}

	anchorIDs := make([]uint, 0, limit-offset)
	for _, anchor := range anchors[offset:limit] {
		anchorIDs = append(anchorIDs, anchor.ID)
	}
	moods, err := r.annotator.AnnotateAll(ctx, ownerID, anchorIDs)
	if err != nil {
		return result, err
	}

	for i := offset; i < limit; i++ {
		var w models.Window
		if i+1 < len(anchors) {
			w = models.Window{Lower: &anchors[i], Upper: &anchors[i+1]}
		} else {
			w, err = r.locator.Locate(ctx, ownerID, anchors[i].ID)
			if err != nil {
				return result, err
			}
		}
		session, err := r.assembler.Assemble(ctx, w)
		if err != nil {
			return result, err
		}
		observability.CountSessionDerived(ctx)
		row := sessionRow(session)
		if mood, ok := moods[session.StartEventID]; ok {
			m := mood
			row.Mood = &m
		}
		result.Sessions = append(result.Sessions, row)
	}
	return result, nil
}

// SessionMessages paginates within one session's member events. A missing
// boundary yields an empty page, not an error.
func (r *PaginatedSessionReader) SessionMessages(ctx context.Context, ownerID, anchorID uint, page, perPage int) (models.PagedMessages, error) {
	page, perPage = normalizePage(page, perPage)
	result := models.PagedMessages{Page: page, PerPage: perPage, Messages: []models.MessageRow{}}

	w, err := r.locator.Locate(ctx, ownerID, anchorID)
	if err != nil {
		return result, err
	}
	members, total, err := r.assembler.Members(ctx, w, (page-1)*perPage, perPage)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	anchorIDs := make([]uint, 0, len(members))
	for _, member := range members {
		anchorIDs = append(anchorIDs, member.ID)
	}
	moods, err := r.annotator.AnnotateAll(ctx, ownerID, anchorIDs)
	if err != nil {
		return result, err
	}

	for _, member := range members {
		row := models.MessageRow{
			EventID:    member.ID,
			ExternalID: member.ExternalID,
			Message:    member.Message(),
			CreatedAt:  member.CreatedAt,
		}
		switch member.Kind() {
		case journal.KindUserMessage:
			row.Sender = "user"
		case journal.KindBotMessage:
			row.Sender = "bot"
		}
		if mood, ok := moods[member.ID]; ok {
			m := mood
			row.Mood = &m
		}
		result.Messages = append(result.Messages, row)
	}
	return result, nil
}

// TimeSpentReport pages over per-day usage groups in [start, end). Each row
// spans the day's first to last session-start marker; a day with a single
// marker reports zero hours.
func (r *PaginatedSessionReader) TimeSpentReport(ctx context.Context, ownerID uint, start, end time.Time, page, perPage int) (models.PagedSessions, error) {
	page, perPage = normalizePage(page, perPage)
	start, end = NormalizeRange(start, end, time.Now().UTC())

	groups, err := r.durations.DayGroups(ctx, ownerID, start, end)
	if err != nil {
		return models.PagedSessions{}, err
	}
	result := models.PagedSessions{Page: page, PerPage: perPage, TotalCount: int64(len(groups)), Sessions: []models.SessionRow{}}

	offset := (page - 1) * perPage
	if offset >= len(groups) {
		return result, nil
	}
	limit := offset + perPage
	if limit > len(groups) {
		limit = len(groups)
	}

	anchorIDs := make([]uint, 0, limit-offset)
	for _, g := range groups[offset:limit] {
		anchorIDs = append(anchorIDs, g.StartEventID)
	}
	moods, err := r.annotator.AnnotateAll(ctx, ownerID, anchorIDs)
	if err != nil {
		return result, err
	}

	for _, g := range groups[offset:limit] {
		row := models.SessionRow{
			StartEventID:  g.StartEventID,
			StartTime:     g.StartTime,
			DurationHours: g.DurationHours,
			ChatTimeLabel: ChatTimeLabel(g.DurationHours),
		}
		if g.EndEventID != g.StartEventID {
			endID := g.EndEventID
			endTime := g.EndTime
			row.EndEventID = &endID
			row.EndTime = &endTime
		}
		if first, ferr := r.store.MessagesInWindow(ctx, ownerID, g.StartEventID, 0, 0, 1); ferr != nil {
			// Best-effort decoration; the day row still reports its hours.
			r.log.Warn("first message lookup failed",
				"owner_id", ownerID, "start_event_id", g.StartEventID, "error", ferr.Error())
		} else if len(first) > 0 {
			row.FirstMessage = first[0].Message()
		}
		if mood, ok := moods[g.StartEventID]; ok {
			m := mood
			row.Mood = &m
		}
		result.Sessions = append(result.Sessions, row)
	}
	return result, nil
}

// MoodBreakdown tallies the owner's mood markers in [start, end) into
// percentages over the nine canonical categories. Percentages are rounded
// half-up; the largest category absorbs the rounding residue so the map sums
// to exactly 100 whenever any markers exist.
func (r *PaginatedSessionReader) MoodBreakdown(ctx context.Context, ownerID uint, start, end time.Time) (map[string]int, error) {
	start, end = NormalizeRange(start, end, time.Now().UTC())
	markers, err := r.store.MoodMarkersInRange(ctx, ownerID, start, end, r.maxRows)
	if err != nil {
		return nil, err
	}

	counts := make(map[int]int, len(moodNames))
	total := 0
	for _, marker := range markers {
		payload, ok := marker.Payload.(journal.MoodMarker)
		if !ok {
			continue
		}
		if _, known := moodNames[payload.MoodID]; !known {
			continue
		}
		counts[payload.MoodID]++
		total++
	}

	breakdown := make(map[string]int, len(moodNames))
	for _, code := range MoodCodes() {
		breakdown[moodNames[code]] = 0
	}
	if total == 0 {
		return breakdown, nil
	}

	sum := 0
	largest := ""
	largestCount := -1
	for _, code := range MoodCodes() {
		name := moodNames[code]
		pct := int(math.Floor(float64(counts[code])*100/float64(total) + 0.5))
		breakdown[name] = pct
		sum += pct
		if counts[code] > largestCount {
			largestCount = counts[code]
			largest = name
		}
	}
	breakdown[largest] += 100 - sum
	return breakdown, nil
}

func sessionRow(session models.Session) models.SessionRow {
	hours := SessionHours(session.Members)
	row := models.SessionRow{
		StartEventID:  session.StartEventID,
		StartTime:     session.StartTime,
		EndEventID:    session.EndEventID,
		EndTime:       session.EndTime,
		DurationHours: hours,
		ChatTimeLabel: ChatTimeLabel(hours),
	}
	if len(session.Members) > 0 {
		row.FirstMessage = session.Members[0].Message()
	}
	return row
}

// NormalizeRange validates a half-open date range, falling back to today
// (UTC) when the range is missing or inverted.
func NormalizeRange(start, end, now time.Time) (time.Time, time.Time) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		day := now.Truncate(24 * time.Hour)
		return day, day.Add(24 * time.Hour)
	}
	return start, end
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}
